package handler

import (
	"context"
	"fmt"
	"log"

	"github.com/mbland/optinlist/agent"
)

// Handler answers every event the Lambda function receives, and every request
// the local HTTP server receives via NewRouter.
type Handler struct {
	api *apiHandler
	cli *cliHandler
}

func NewHandler(sa agent.SubscriptionAgent, logger *log.Logger) *Handler {
	return &Handler{
		api: &apiHandler{Agent: sa, log: logger},
		cli: &cliHandler{Agent: sa, Log: logger},
	}
}

func (h *Handler) HandleEvent(ctx context.Context, event *Event) (any, error) {
	switch event.Type {
	case ApiRequest:
		return h.api.HandleEvent(ctx, event.ApiRequest), nil
	case CommandLineEvent:
		return h.cli.HandleEvent(ctx, event.CommandLineEvent)
	default:
		return nil, fmt.Errorf("unexpected event type: %s", event.Type)
	}
}
