package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/mbland/optinlist/db"
	"github.com/mbland/optinlist/email"
	"github.com/mbland/optinlist/metrics"
	"github.com/mbland/optinlist/ops"
	"github.com/mbland/optinlist/types"
)

// Publish sends issue to every subscriber confirmed when Publish begins.
//
// Only a failure to fetch subscribers returns an error. Unreadable records and
// stored addresses that no longer validate are skipped, and failed sends are
// recorded, without stopping the remaining sends. Each recipient gets exactly
// one attempt.
func (a *ProdAgent) Publish(
	ctx context.Context, issue *ops.NewsletterIssue,
) (result *ops.PublishResult, err error) {
	defer func() { recordOutcome("publish", err) }()

	var subs []*db.Subscriber
	var malformed *db.MalformedSubscribersError

	subs, err = a.Db.GetSubscribers(ctx, db.SubscriberConfirmed)
	if errors.As(err, &malformed) {
		err = nil
	} else if err != nil {
		const errFmt = "%w: failed to fetch confirmed subscribers: %w"
		return nil, fmt.Errorf(errFmt, ops.ErrUnexpected, err)
	}

	result = &ops.PublishResult{}
	if malformed != nil {
		a.skipMalformed(malformed.Records, result)
	}
	for _, sub := range subs {
		a.sendIssue(ctx, issue, sub, result)
	}
	a.Log.Printf("published %q: %s", issue.Title, result)
	return
}

func (a *ProdAgent) skipMalformed(
	records []db.MalformedRecord, result *ops.PublishResult,
) {
	for _, rec := range records {
		const logFmt = "skipping unreadable subscriber record %q: %s"
		a.Log.Printf(logFmt, rec.Key, rec.Err)
		result.Skipped = append(result.Skipped, ops.RecipientIssue{
			SubscriberId: rec.Key,
			Reason:       rec.Err.Error(),
		})
		recordDelivery(metrics.KindNewsletter, metrics.ResultSkipped)
	}
}

func (a *ProdAgent) sendIssue(
	ctx context.Context,
	issue *ops.NewsletterIssue,
	sub *db.Subscriber,
	result *ops.PublishResult,
) {
	recipientIssue := func(err error) ops.RecipientIssue {
		return ops.RecipientIssue{
			SubscriberId: sub.Id.String(),
			Email:        sub.Email,
			Reason:       err.Error(),
		}
	}

	address, err := types.NewSubscriberEmail(sub.Email)
	if err != nil {
		const logFmt = "skipping confirmed subscriber %s: " +
			"stored contact details are invalid: %s"
		a.Log.Printf(logFmt, sub.Id, err)
		result.Skipped = append(result.Skipped, recipientIssue(err))
		recordDelivery(metrics.KindNewsletter, metrics.ResultSkipped)
		return
	}

	msg := email.NewIssueMessage(a.SenderAddress, address.String(), issue)
	if _, err = a.Mailer.Send(ctx, msg); err != nil {
		const logFmt = "failed to send newsletter issue to %s (%s): %s"
		a.Log.Printf(logFmt, sub.Email, sub.Id, err)
		result.Failed = append(result.Failed, recipientIssue(err))
		recordDelivery(metrics.KindNewsletter, metrics.ResultFailed)
		return
	}
	result.NumSent++
	recordDelivery(metrics.KindNewsletter, metrics.ResultSent)
}
