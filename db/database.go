package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mbland/optinlist/types"
)

const ErrSubscriberNotFound = types.SentinelError("is not a subscriber")

const ErrTokenNotFound = types.SentinelError("token not found")

// Database is the transactional store behind every subscription operation.
//
// CreatePendingSubscriber must store the subscriber and its token as one
// atomic unit: either both are visible to later reads, or neither is.
//
// GetSubscriberIdByToken returns ErrTokenNotFound if no such token exists.
// GetSubscriber and ConfirmSubscriber return ErrSubscriberNotFound if no
// subscriber has the given ID. ConfirmSubscriber succeeds if the subscriber is
// already confirmed.
//
// GetSubscribers returns every subscriber it could parse. If any stored
// records could not be parsed, it also returns a *MalformedSubscribersError
// describing them.
type Database interface {
	CreatePendingSubscriber(
		ctx context.Context, sub *Subscriber, token types.Token,
	) error
	GetSubscriberIdByToken(
		ctx context.Context, token types.Token,
	) (uuid.UUID, error)
	GetSubscriber(ctx context.Context, id uuid.UUID) (*Subscriber, error)
	ConfirmSubscriber(ctx context.Context, id uuid.UUID) error
	GetSubscribers(
		ctx context.Context, status SubscriberStatus,
	) ([]*Subscriber, error)
}

type SubscriberStatus string

const (
	SubscriberPending   SubscriberStatus = "pending_confirmation"
	SubscriberConfirmed SubscriberStatus = "confirmed"
)

const SubscriberTimestampFormat = time.RFC1123Z

// Subscriber is a stored subscription.
//
// Email and Name are kept as plain strings, since rows read back from storage
// may predate the current validation rules.
type Subscriber struct {
	Id           uuid.UUID
	Email        string
	Name         string
	Status       SubscriberStatus
	SubscribedAt time.Time
}

func NewSubscriber(
	id uuid.UUID, sub *types.NewSubscriber, now time.Time,
) *Subscriber {
	return &Subscriber{
		Id:           id,
		Email:        sub.Email.String(),
		Name:         sub.Name.String(),
		Status:       SubscriberPending,
		SubscribedAt: now.Truncate(time.Second).UTC(),
	}
}

func (sub *Subscriber) String() string {
	sb := strings.Builder{}
	sb.WriteString("Id: ")
	sb.WriteString(sub.Id.String())
	sb.WriteString(", Email: ")
	sb.WriteString(sub.Email)
	sb.WriteString(", Name: ")
	sb.WriteString(sub.Name)
	sb.WriteString(", Status: ")
	sb.WriteString(string(sub.Status))
	sb.WriteString(", SubscribedAt: ")
	sb.WriteString(sub.SubscribedAt.Format(SubscriberTimestampFormat))
	return sb.String()
}

// MalformedRecord identifies a stored subscriber record that couldn't be
// parsed. Key is empty if even the record's key was unreadable.
type MalformedRecord struct {
	Key string
	Err error
}

type MalformedSubscribersError struct {
	Records []MalformedRecord
}

func (e *MalformedSubscribersError) Error() string {
	msgs := make([]string, len(e.Records))
	for i, rec := range e.Records {
		msgs[i] = fmt.Sprintf("%q: %s", rec.Key, rec.Err)
	}
	return fmt.Sprintf(
		"%d malformed subscriber records: %s",
		len(e.Records), strings.Join(msgs, "; "),
	)
}

func malformedError(records []MalformedRecord) error {
	if len(records) == 0 {
		return nil
	}
	return &MalformedSubscribersError{Records: records}
}
