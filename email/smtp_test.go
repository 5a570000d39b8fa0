//go:build small_tests || all_tests

package email

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gopkg.in/gomail.v2"
	"gotest.tools/assert"
	is "gotest.tools/assert/cmp"
)

type TestSmtpSender struct {
	messages []*gomail.Message
	err      error
}

func (s *TestSmtpSender) DialAndSend(m ...*gomail.Message) error {
	s.messages = append(s.messages, m...)
	return s.err
}

// HungSmtpSender blocks every DialAndSend until release is closed.
type HungSmtpSender struct {
	release chan struct{}
}

func newHungSmtpSender(t *testing.T) *HungSmtpSender {
	s := &HungSmtpSender{release: make(chan struct{})}
	t.Cleanup(func() { close(s.release) })
	return s
}

func (s *HungSmtpSender) DialAndSend(...*gomail.Message) error {
	<-s.release
	return nil
}

func renderGomailMessage(t *testing.T, m *gomail.Message) string {
	t.Helper()
	sb := &strings.Builder{}
	_, err := m.WriteTo(sb)
	assert.NilError(t, err)
	return sb.String()
}

func TestSmtpMailerSend(t *testing.T) {
	setup := func() (*TestSmtpSender, *SmtpMailer) {
		sender := &TestSmtpSender{}
		mailer := &SmtpMailer{
			Sender:   sender,
			NewMsgId: func() string { return "deadbeef" },
		}
		return sender, mailer
	}
	ctx := context.Background()

	t.Run("SendsMultipartMessage", func(t *testing.T) {
		sender, mailer := setup()
		msg := newTestMessage()

		msgId, err := mailer.Send(ctx, msg)

		assert.NilError(t, err)
		assert.Equal(t, "deadbeef", msgId)
		assert.Equal(t, 1, len(sender.messages))
		m := sender.messages[0]
		assert.DeepEqual(t, []string{msg.From}, m.GetHeader("From"))
		assert.DeepEqual(t, []string{msg.To}, m.GetHeader("To"))
		assert.DeepEqual(t, []string{msg.Subject}, m.GetHeader("Subject"))
		assert.DeepEqual(
			t, []string{"<deadbeef@foo.com>"}, m.GetHeader("Message-ID"),
		)
		content := renderGomailMessage(t, m)
		assert.Assert(t, is.Contains(content, "multipart/alternative"))
		assert.Assert(t, is.Contains(content, "text/html"))
	})

	t.Run("SendsTextOnlyMessage", func(t *testing.T) {
		sender, mailer := setup()
		msg := newTestMessage()
		msg.HtmlBody = ""

		_, err := mailer.Send(ctx, msg)

		assert.NilError(t, err)
		content := renderGomailMessage(t, sender.messages[0])
		assert.Assert(t, !strings.Contains(content, "multipart/alternative"))
		assert.Assert(t, is.Contains(content, "text/plain"))
	})

	t.Run("ReturnsErrorIfSendFails", func(t *testing.T) {
		sender, mailer := setup()
		sender.err = errors.New("535 authentication failed")

		msgId, err := mailer.Send(ctx, newTestMessage())

		assert.Equal(t, "", msgId)
		const expected = "send to ursula_le_guin@gmail.com failed: " +
			"535 authentication failed"
		assert.Error(t, err, expected)
	})

	t.Run("DoesNotSendIfContextCanceled", func(t *testing.T) {
		sender, mailer := setup()
		canceledCtx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := mailer.Send(canceledCtx, newTestMessage())

		assert.Assert(t, errors.Is(err, context.Canceled))
		assert.Equal(t, 0, len(sender.messages))
	})

	t.Run("AbandonsSendWhenContextExpires", func(t *testing.T) {
		_, mailer := setup()
		mailer.Sender = newHungSmtpSender(t)
		deadlineCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		start := time.Now()

		msgId, err := mailer.Send(deadlineCtx, newTestMessage())

		assert.Assert(t, time.Since(start) < time.Second)
		assert.Equal(t, "", msgId)
		assert.Assert(t, errors.Is(err, context.DeadlineExceeded))
		assert.ErrorContains(t, err, "send to ursula_le_guin@gmail.com failed")
	})

	t.Run("AbandonsSendAfterTimeout", func(t *testing.T) {
		_, mailer := setup()
		mailer.Sender = newHungSmtpSender(t)
		mailer.Timeout = 50 * time.Millisecond
		start := time.Now()

		_, err := mailer.Send(ctx, newTestMessage())

		assert.Assert(t, time.Since(start) < time.Second)
		assert.Assert(t, errors.Is(err, context.DeadlineExceeded))
	})

	t.Run("TimeoutDoesNotCutOffPromptSend", func(t *testing.T) {
		sender, mailer := setup()
		mailer.Timeout = time.Minute

		msgId, err := mailer.Send(ctx, newTestMessage())

		assert.NilError(t, err)
		assert.Equal(t, "deadbeef", msgId)
		assert.Equal(t, 1, len(sender.messages))
	})
}

func TestSenderDomain(t *testing.T) {
	assert.Equal(t, "foo.com", senderDomain("newsletter@foo.com"))
	assert.Equal(t, "foo.com", senderDomain("Foo <newsletter@foo.com>"))
	assert.Equal(t, "localhost", senderDomain("newsletter"))
}
