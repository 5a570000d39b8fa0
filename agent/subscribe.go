package agent

import (
	"context"
	"fmt"

	"github.com/mbland/optinlist/db"
	"github.com/mbland/optinlist/email"
	"github.com/mbland/optinlist/metrics"
	"github.com/mbland/optinlist/ops"
	"github.com/mbland/optinlist/types"
)

// Subscribe stores a pending subscriber along with a new confirmation token,
// then emails the confirmation link.
//
// The email is sent only after the subscriber and token are stored. If the
// send fails, the pending subscriber remains stored.
func (a *ProdAgent) Subscribe(
	ctx context.Context, name, address string,
) (err error) {
	defer func() { recordOutcome("subscribe", err) }()

	var newSub *types.NewSubscriber
	var sub *db.Subscriber
	var token types.Token

	if newSub, err = types.ParseNewSubscriber(name, address); err != nil {
		a.Log.Printf("rejected subscription: %s", err)
		err = fmt.Errorf("%w: %w", ops.ErrValidation, err)
	} else if sub, token, err = a.storePendingSubscriber(ctx, newSub); err == nil {
		err = a.sendConfirmation(ctx, sub, token)
	}
	return
}

func (a *ProdAgent) storePendingSubscriber(
	ctx context.Context, newSub *types.NewSubscriber,
) (sub *db.Subscriber, token types.Token, err error) {
	if sub, err = a.newPendingSubscriber(newSub); err != nil {
		return nil, "", err
	}

	token = a.NewToken()
	if err = a.Db.CreatePendingSubscriber(ctx, sub, token); err != nil {
		const errFmt = "%w: failed to store pending subscriber %s: %w"
		return nil, "", fmt.Errorf(errFmt, ops.ErrStorage, sub.Email, err)
	}
	return
}

func (a *ProdAgent) newPendingSubscriber(
	newSub *types.NewSubscriber,
) (*db.Subscriber, error) {
	id, err := a.NewUid()
	if err != nil {
		const errFmt = "%w: failed to create id for %s: %w"
		return nil, fmt.Errorf(errFmt, ops.ErrUnexpected, newSub.Email, err)
	}
	return db.NewSubscriber(id, newSub, a.CurrentTime()), nil
}

func (a *ProdAgent) sendConfirmation(
	ctx context.Context, sub *db.Subscriber, token types.Token,
) error {
	confirmUrl := ops.ConfirmUrl(a.ApiBaseUrl, token)
	msg := email.NewConfirmationMessage(
		a.SenderAddress, sub.Email, sub.Name, confirmUrl,
	)

	msgId, err := a.Mailer.Send(ctx, msg)
	if err != nil {
		recordDelivery(metrics.KindConfirmation, metrics.ResultFailed)
		const errFmt = "%w: failed to send confirmation to %s (%s): %w"
		return fmt.Errorf(errFmt, ops.ErrEmailDelivery, sub.Email, sub.Id, err)
	}

	recordDelivery(metrics.KindConfirmation, metrics.ResultSent)
	const logFmt = "sent confirmation to %s (%s): message ID: %s"
	a.Log.Printf(logFmt, sub.Email, sub.Id, msgId)
	return nil
}
