//go:build small_tests || all_tests

package handler

import (
	"context"
	"fmt"
	"testing"

	"github.com/mbland/optinlist/events"
	"github.com/mbland/optinlist/ops"
	tu "github.com/mbland/optinlist/testutils"
	"gotest.tools/assert"
)

func newCliHandlerFixture() (*cliHandler, *testAgent, *tu.Logs) {
	ta := &testAgent{}
	logs, logger := tu.NewLogs()
	return &cliHandler{Agent: ta, Log: logger}, ta, logs
}

func newPublishEvent() *events.CommandLineEvent {
	return &events.CommandLineEvent{
		OptInListCommand: events.CommandLinePublishEvent,
		Publish: &events.PublishEvent{
			NewsletterIssue: ops.NewsletterIssue{
				Title: "Newsletter title",
				Content: ops.IssueContent{
					Html: "<p>Newsletter body as HTML</p>",
					Text: "Newsletter body as plain text",
				},
			},
		},
	}
}

func TestCliHandlerPublish(t *testing.T) {
	ctx := context.Background()

	t.Run("Succeeds", func(t *testing.T) {
		h, ta, logs := newCliHandlerFixture()
		result := &ops.PublishResult{
			NumSent: 1,
			Failed: []ops.RecipientIssue{{
				SubscriberId: "00000000-0000-0000-0000-000000000002",
				Email:        "nkj@example.com",
				Reason:       "bounced",
			}},
		}
		ta.PublishResult = result
		event := newPublishEvent()

		res, err := h.HandleEvent(ctx, event)

		assert.NilError(t, err)
		assert.DeepEqual(
			t, &events.PublishResponse{Success: true, Result: result}, res,
		)
		assert.DeepEqual(t, &event.Publish.NewsletterIssue, ta.Issue)
		logs.AssertContains(
			t, `publish: title: "Newsletter title"; success: true`,
		)
	})

	t.Run("ReportsFailure", func(t *testing.T) {
		h, ta, logs := newCliHandlerFixture()
		ta.PublishErr = fmt.Errorf("%w: scan failed", ops.ErrUnexpected)

		res, err := h.HandleEvent(ctx, newPublishEvent())

		assert.NilError(t, err)
		assert.DeepEqual(
			t,
			&events.PublishResponse{
				Details: "unexpected error: scan failed",
			},
			res,
		)
		logs.AssertContains(t, "success: false")
	})

	t.Run("FailsIfPublishEventMissing", func(t *testing.T) {
		h, _, _ := newCliHandlerFixture()
		event := newPublishEvent()
		event.Publish = nil

		res, err := h.HandleEvent(ctx, event)

		assert.Assert(t, res == nil)
		assert.Error(t, err, "Publish command missing publish event")
	})

	t.Run("FailsOnUnknownCommand", func(t *testing.T) {
		h, _, _ := newCliHandlerFixture()
		event := newPublishEvent()
		event.OptInListCommand = "Unsubscribe"

		res, err := h.HandleEvent(ctx, event)

		assert.Assert(t, res == nil)
		assert.Error(t, err, "unknown optinlist command: Unsubscribe")
	})
}
