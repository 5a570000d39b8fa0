package email

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mbland/optinlist/ops"
	"github.com/mrz1836/postmark"
)

type PostmarkClient interface {
	SendEmail(
		ctx context.Context, email postmark.Email,
	) (postmark.EmailResponse, error)
}

// PostmarkMailer sends through the Postmark transactional email API.
//
// https://postmarkapp.com/developer/api/email-api
type PostmarkMailer struct {
	Client PostmarkClient
	Tag    string
}

func NewPostmarkMailer(
	serverToken string, timeout time.Duration,
) *PostmarkMailer {
	client := postmark.NewClient(serverToken, "")
	client.HTTPClient = &http.Client{Timeout: timeout}
	return &PostmarkMailer{Client: client, Tag: "optinlist"}
}

func (mailer *PostmarkMailer) Send(
	ctx context.Context, msg *Message,
) (messageId string, err error) {
	var resp postmark.EmailResponse

	resp, err = mailer.Client.SendEmail(ctx, postmark.Email{
		From:     msg.From,
		To:       msg.To,
		Subject:  msg.Subject,
		Tag:      mailer.Tag,
		HTMLBody: msg.HtmlBody,
		TextBody: msg.TextBody,
	})

	if err != nil {
		err = fmt.Errorf("send to %s failed: %w", msg.To, err)
	} else if resp.ErrorCode != 0 {
		const errFmt = "%w: send to %s failed: postmark error %d: %s"
		err = fmt.Errorf(errFmt, ops.ErrExternal, msg.To, resp.ErrorCode, resp.Message)
	} else {
		messageId = resp.MessageID
	}
	return
}
