package testdoubles

import (
	"context"
	"fmt"
	"testing"

	"github.com/mbland/optinlist/email"
)

// Mailer records every message it's asked to send, keyed by recipient.
type Mailer struct {
	RecipientMessages map[string][]*email.Message
	RecipientErrors   map[string]error
	NumAttempts       int
}

func NewMailer() *Mailer {
	return &Mailer{
		RecipientMessages: make(map[string][]*email.Message, 10),
		RecipientErrors:   make(map[string]error, 10),
	}
}

func (m *Mailer) Send(
	_ context.Context, msg *email.Message,
) (messageId string, err error) {
	m.NumAttempts++

	if err = m.RecipientErrors[msg.To]; err == nil {
		m.RecipientMessages[msg.To] = append(m.RecipientMessages[msg.To], msg)
		messageId = fmt.Sprintf("msg-%d", m.NumAttempts)
	}
	return
}

func (m *Mailer) GetMessageTo(t *testing.T, recipient string) *email.Message {
	t.Helper()

	msgs := m.RecipientMessages[recipient]
	if len(msgs) != 1 {
		t.Fatalf("expected one message to %s, got: %d", recipient, len(msgs))
	}
	return msgs[0]
}

func (m *Mailer) AssertNoMessageSent(t *testing.T, recipient string) {
	t.Helper()

	if msgs, ok := m.RecipientMessages[recipient]; ok {
		const errFmt = "expected %s to receive no messages, got: %d"
		t.Fatalf(errFmt, recipient, len(msgs))
	}
}
