//go:build small_tests || medium_tests || all_tests

package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/mbland/optinlist/types"
)

const testTimeStr = "Fri, 18 Sep 1970 12:45:00 +0000"

var testTimestamp time.Time = func() time.Time {
	ts, err := time.Parse(time.RFC1123Z, testTimeStr)
	if err != nil {
		panic("failed to parse testTimestamp: " + err.Error())
	}
	return ts.UTC()
}()

var testToken = types.Token("abcdefghijKLMNOP0123")

func newTestSubscriber(id, name, email string) *Subscriber {
	return &Subscriber{
		Id:           uuid.MustParse(id),
		Email:        email,
		Name:         name,
		Status:       SubscriberPending,
		SubscribedAt: testTimestamp,
	}
}

func newTestSubscribers() []*Subscriber {
	return []*Subscriber{
		newTestSubscriber(
			"00000000-0000-0000-0000-000000000001",
			"le guin",
			"ursula_le_guin@gmail.com",
		),
		newTestSubscriber(
			"00000000-0000-0000-0000-000000000002",
			"Octavia E. Butler",
			"octavia@example.com",
		),
		newTestSubscriber(
			"00000000-0000-0000-0000-000000000003",
			"N. K. Jemisin",
			"nkj@example.com",
		),
	}
}

func confirmed(subs ...*Subscriber) []*Subscriber {
	result := make([]*Subscriber, len(subs))
	for i, sub := range subs {
		c := *sub
		c.Status = SubscriberConfirmed
		result[i] = &c
	}
	return result
}
