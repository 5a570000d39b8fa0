package testdoubles

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/mbland/optinlist/db"
	"github.com/mbland/optinlist/types"
)

// Database is an in-memory db.Database.
//
// Each Simulate* function returns the error the corresponding method should
// return before touching any state.
type Database struct {
	Subscribers        map[uuid.UUID]*db.Subscriber
	Tokens             map[types.Token]uuid.UUID
	SimulateCreateErr  func(sub *db.Subscriber) error
	SimulateTokenErr   func(token types.Token) error
	SimulateGetErr     func(id uuid.UUID) error
	SimulateConfirmErr func(id uuid.UUID) error
	SimulateGetSubsErr func(status db.SubscriberStatus) error
	ConfirmCalls       int

	// Malformed is reported by GetSubscribers alongside the parsed records.
	Malformed []db.MalformedRecord
}

func NewDatabase() *Database {
	return &Database{
		Subscribers:        make(map[uuid.UUID]*db.Subscriber, 10),
		Tokens:             make(map[types.Token]uuid.UUID, 10),
		SimulateCreateErr:  func(*db.Subscriber) error { return nil },
		SimulateTokenErr:   func(types.Token) error { return nil },
		SimulateGetErr:     func(uuid.UUID) error { return nil },
		SimulateConfirmErr: func(uuid.UUID) error { return nil },
		SimulateGetSubsErr: func(db.SubscriberStatus) error { return nil },
	}
}

// Add stores a copy of each subscriber without a token.
func (dbase *Database) Add(subs ...*db.Subscriber) {
	for _, sub := range subs {
		stored := *sub
		dbase.Subscribers[sub.Id] = &stored
	}
}

func (dbase *Database) CreatePendingSubscriber(
	_ context.Context, sub *db.Subscriber, token types.Token,
) error {
	if err := dbase.SimulateCreateErr(sub); err != nil {
		return err
	} else if _, exists := dbase.Subscribers[sub.Id]; exists {
		return fmt.Errorf("subscriber %s already exists", sub.Id)
	} else if _, exists := dbase.Tokens[token]; exists {
		return fmt.Errorf("token %s already exists", token)
	}
	dbase.Add(sub)
	dbase.Tokens[token] = sub.Id
	return nil
}

func (dbase *Database) GetSubscriberIdByToken(
	_ context.Context, token types.Token,
) (id uuid.UUID, err error) {
	var ok bool

	if err = dbase.SimulateTokenErr(token); err != nil {
		return
	} else if id, ok = dbase.Tokens[token]; !ok {
		err = fmt.Errorf("%w: %s", db.ErrTokenNotFound, token)
	}
	return
}

func (dbase *Database) GetSubscriber(
	_ context.Context, id uuid.UUID,
) (*db.Subscriber, error) {
	if err := dbase.SimulateGetErr(id); err != nil {
		return nil, err
	} else if sub, ok := dbase.Subscribers[id]; !ok {
		return nil, fmt.Errorf("%s %w", id, db.ErrSubscriberNotFound)
	} else {
		result := *sub
		return &result, nil
	}
}

func (dbase *Database) ConfirmSubscriber(
	_ context.Context, id uuid.UUID,
) error {
	dbase.ConfirmCalls++

	if err := dbase.SimulateConfirmErr(id); err != nil {
		return err
	} else if sub, ok := dbase.Subscribers[id]; !ok {
		return fmt.Errorf("%s %w", id, db.ErrSubscriberNotFound)
	} else {
		sub.Status = db.SubscriberConfirmed
	}
	return nil
}

// GetSubscribers returns copies of the matching subscribers ordered by
// subscription time, then by id.
func (dbase *Database) GetSubscribers(
	_ context.Context, status db.SubscriberStatus,
) ([]*db.Subscriber, error) {
	if err := dbase.SimulateGetSubsErr(status); err != nil {
		return nil, err
	}

	subs := make([]*db.Subscriber, 0, len(dbase.Subscribers))
	for _, sub := range dbase.Subscribers {
		if sub.Status == status {
			result := *sub
			subs = append(subs, &result)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].SubscribedAt.Equal(subs[j].SubscribedAt) {
			return subs[i].SubscribedAt.Before(subs[j].SubscribedAt)
		}
		return subs[i].Id.String() < subs[j].Id.String()
	})

	if len(dbase.Malformed) != 0 {
		return subs, &db.MalformedSubscribersError{Records: dbase.Malformed}
	}
	return subs, nil
}
