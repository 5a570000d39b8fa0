package email

import (
	"html"
	"strings"

	"github.com/mbland/optinlist/ops"
)

const ConfirmationSubject = "Welcome!"

// NewConfirmationMessage builds the message asking a new subscriber to click
// confirmUrl.
func NewConfirmationMessage(from, to, name, confirmUrl string) *Message {
	tb := &strings.Builder{}
	tb.WriteString("Welcome to our newsletter, ")
	tb.WriteString(name)
	tb.WriteString("!\n\nVisit ")
	tb.WriteString(confirmUrl)
	tb.WriteString(" to confirm your subscription.\n")

	hb := &strings.Builder{}
	hb.WriteString("<p>Welcome to our newsletter, ")
	hb.WriteString(html.EscapeString(name))
	hb.WriteString("!</p>\n<p>Click <a href=\"")
	hb.WriteString(html.EscapeString(confirmUrl))
	hb.WriteString("\">here</a> to confirm your subscription.</p>\n")

	return &Message{
		From:     from,
		To:       to,
		Subject:  ConfirmationSubject,
		TextBody: tb.String(),
		HtmlBody: hb.String(),
	}
}

func NewIssueMessage(from, to string, issue *ops.NewsletterIssue) *Message {
	return &Message{
		From:     from,
		To:       to,
		Subject:  issue.Title,
		TextBody: issue.Content.Text,
		HtmlBody: issue.Content.Html,
	}
}
