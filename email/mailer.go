package email

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/mbland/optinlist/ops"
)

// Mailer sends one message to one recipient, returning the message ID
// assigned by the transport.
type Mailer interface {
	Send(ctx context.Context, msg *Message) (messageId string, err error)
}

type SesMailer struct {
	Client    SesV2Api
	ConfigSet string
}

func NewSesMailer(cfg aws.Config, configSet string) *SesMailer {
	return &SesMailer{Client: sesv2.NewFromConfig(cfg), ConfigSet: configSet}
}

func (mailer *SesMailer) Send(
	ctx context.Context, msg *Message,
) (messageId string, err error) {
	var raw []byte
	if raw, err = msg.Bytes(); err != nil {
		return "", fmt.Errorf("failed to build message to %s: %w", msg.To, err)
	}

	sesMsg := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination:      &sestypes.Destination{ToAddresses: []string{msg.To}},
		Content: &sestypes.EmailContent{
			Raw: &sestypes.RawMessage{Data: raw},
		},
	}
	if mailer.ConfigSet != "" {
		sesMsg.ConfigurationSetName = aws.String(mailer.ConfigSet)
	}
	var output *sesv2.SendEmailOutput

	if output, err = mailer.Client.SendEmail(ctx, sesMsg); err != nil {
		err = ops.AwsError("send to "+msg.To+" failed", err)
	} else {
		messageId = aws.ToString(output.MessageId)
	}
	return
}
