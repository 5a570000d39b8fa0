package agent

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mbland/optinlist/db"
	"github.com/mbland/optinlist/email"
	"github.com/mbland/optinlist/metrics"
	"github.com/mbland/optinlist/ops"
	"github.com/mbland/optinlist/types"
)

// SubscriptionAgent implements every subscription operation.
//
// Errors wrap one of the ops sentinel errors, so callers may classify them
// with ops.OutcomeOf.
type SubscriptionAgent interface {
	Subscribe(ctx context.Context, name, email string) error
	Confirm(ctx context.Context, token string) error
	Publish(
		ctx context.Context, issue *ops.NewsletterIssue,
	) (*ops.PublishResult, error)
}

type ProdAgent struct {
	ApiBaseUrl    string
	SenderAddress string
	NewUid        func() (uuid.UUID, error)
	NewToken      func() types.Token
	CurrentTime   func() time.Time
	Db            db.Database
	Mailer        email.Mailer
	Log           *log.Logger
}

func NewProdAgent(
	apiBaseUrl, senderAddress string,
	database db.Database,
	mailer email.Mailer,
	logger *log.Logger,
) *ProdAgent {
	return &ProdAgent{
		ApiBaseUrl:    apiBaseUrl,
		SenderAddress: senderAddress,
		NewUid:        uuid.NewRandom,
		NewToken:      types.MustNewToken,
		CurrentTime:   time.Now,
		Db:            database,
		Mailer:        mailer,
		Log:           logger,
	}
}

func recordOutcome(operation string, err error) {
	outcome := ops.OutcomeOf(err).String()
	metrics.Operations.WithLabelValues(operation, outcome).Inc()
}

func recordDelivery(kind, result string) {
	metrics.EmailDeliveries.WithLabelValues(kind, result).Inc()
}
