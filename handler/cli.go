package handler

import (
	"context"
	"fmt"
	"log"

	"github.com/mbland/optinlist/agent"
	"github.com/mbland/optinlist/events"
)

type cliHandler struct {
	Agent agent.SubscriptionAgent
	Log   *log.Logger
}

func (h *cliHandler) HandleEvent(
	ctx context.Context, e *events.CommandLineEvent,
) (res any, err error) {
	switch e.OptInListCommand {
	case events.CommandLinePublishEvent:
		if e.Publish == nil {
			err = fmt.Errorf("%s command missing publish event", e.OptInListCommand)
		} else {
			res = h.HandlePublishEvent(ctx, e.Publish)
		}
	default:
		err = fmt.Errorf("unknown optinlist command: %s", e.OptInListCommand)
	}
	return
}

func (h *cliHandler) HandlePublishEvent(
	ctx context.Context, e *events.PublishEvent,
) (res *events.PublishResponse) {
	res = &events.PublishResponse{}
	var err error

	if res.Result, err = h.Agent.Publish(ctx, &e.NewsletterIssue); err != nil {
		res.Details = err.Error()
	} else {
		res.Success = true
	}

	const logFmt = "publish: title: %q; success: %t"
	h.Log.Printf(logFmt, e.Title, res.Success)
	return
}
