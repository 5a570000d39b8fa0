package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mbland/optinlist/db"
	"github.com/mbland/optinlist/ops"
	"github.com/mbland/optinlist/types"
)

// Confirm marks the subscriber owning rawToken as confirmed.
//
// Malformed tokens, unknown tokens, and tokens whose subscriber no longer
// exists all produce ops.ErrTokenNotFound. Confirming twice succeeds without
// writing to the store again.
func (a *ProdAgent) Confirm(ctx context.Context, rawToken string) (err error) {
	defer func() { recordOutcome("confirm", err) }()

	var token types.Token
	var id uuid.UUID
	var sub *db.Subscriber

	if token, err = types.ParseToken(rawToken); err != nil {
		err = fmt.Errorf("%w: %w", ops.ErrTokenNotFound, err)
	} else if id, err = a.Db.GetSubscriberIdByToken(ctx, token); err != nil {
		err = storeError(err, "failed to look up token "+token.String())
	} else if sub, err = a.Db.GetSubscriber(ctx, id); err != nil {
		err = storeError(err, "failed to get subscriber "+id.String())
	} else if sub.Status == db.SubscriberConfirmed {
		a.Log.Printf("subscriber %s already confirmed", id)
	} else if err = a.Db.ConfirmSubscriber(ctx, id); err != nil {
		err = storeError(err, "failed to confirm subscriber "+id.String())
	} else {
		a.Log.Printf("confirmed subscriber %s", id)
	}
	return
}

func storeError(err error, msg string) error {
	if errors.Is(err, db.ErrTokenNotFound) ||
		errors.Is(err, db.ErrSubscriberNotFound) {
		return fmt.Errorf("%w: %s: %w", ops.ErrTokenNotFound, msg, err)
	}
	return fmt.Errorf("%w: %s: %w", ops.ErrStorage, msg, err)
}
