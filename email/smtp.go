package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

type SmtpSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SmtpMailer sends each message over a new SMTP connection.
//
// gomail.Dialer has no overall deadline, so Send abandons a DialAndSend call
// that outlives Timeout or ctx. The abandoned call finishes in the background.
type SmtpMailer struct {
	Sender   SmtpSender
	NewMsgId func() string
	Timeout  time.Duration
}

func NewSmtpMailer(
	host string, port int, user, password string, timeout time.Duration,
) *SmtpMailer {
	return &SmtpMailer{
		Sender:   gomail.NewDialer(host, port, user, password),
		NewMsgId: uuid.NewString,
		Timeout:  timeout,
	}
}

func (mailer *SmtpMailer) Send(
	ctx context.Context, msg *Message,
) (messageId string, err error) {
	if err = ctx.Err(); err != nil {
		return "", fmt.Errorf("send to %s canceled: %w", msg.To, err)
	}

	messageId = mailer.NewMsgId()
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", "<"+messageId+"@"+senderDomain(msg.From)+">")
	m.SetBody("text/plain", msg.TextBody)

	if msg.HtmlBody != "" {
		m.AddAlternative("text/html", msg.HtmlBody)
	}

	if err = mailer.dialAndSend(ctx, m); err != nil {
		messageId = ""
		err = fmt.Errorf("send to %s failed: %w", msg.To, err)
	}
	return
}

func (mailer *SmtpMailer) dialAndSend(
	ctx context.Context, m *gomail.Message,
) error {
	if mailer.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, mailer.Timeout)
		defer cancel()
	}

	// Buffered so the sending goroutine never blocks after we stop waiting.
	done := make(chan error, 1)
	go func() { done <- mailer.Sender.DialAndSend(m) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func senderDomain(from string) string {
	if i := strings.LastIndexByte(from, '@'); i != -1 {
		return strings.TrimRight(from[i+1:], ">")
	}
	return "localhost"
}
