//go:build medium_tests || contract_tests || all_tests

package email

import (
	"context"
	"flag"
	"testing"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"gotest.tools/assert"
)

var fromAddress string
var configurationSetName string

func init() {
	flag.StringVar(
		&fromAddress,
		"fromAddr",
		"",
		"From: address, must be one you've verified for your AWS account",
	)
	flag.StringVar(
		&configurationSetName,
		"configSet",
		"",
		"Name of the Configuration Set to apply when sending",
	)
}

// https://docs.aws.amazon.com/ses/latest/dg/send-an-email-from-console.html
func TestSendWithLiveSes(t *testing.T) {
	if fromAddress == "" {
		t.Skip("pass -fromAddr to send through SES")
	}

	setup := func() (*SesMailer, context.Context) {
		ctx := context.Background()
		cfg, err := config.LoadDefaultConfig(ctx)

		if err != nil {
			panic("failed to load AWS config: " + err.Error())
		}

		return &SesMailer{
			Client:    sesv2.NewFromConfig(cfg),
			ConfigSet: configurationSetName,
		}, ctx
	}

	t.Run("Success", func(t *testing.T) {
		mailer, ctx := setup()
		msg := &Message{
			From:     fromAddress,
			To:       "success@simulator.amazonses.com",
			Subject:  "Successful mailer.Send test",
			TextBody: "This should work just fine.\n",
		}

		msgId, err := mailer.Send(ctx, msg)

		assert.NilError(t, err)
		assert.Assert(t, msgId != "")
	})

	t.Run("FailsIfSenderIsNotVerified", func(t *testing.T) {
		mailer, ctx := setup()
		msg := &Message{
			From:     "unverified-sender@optinlist.invalid",
			To:       "success@simulator.amazonses.com",
			Subject:  "Failing mailer.Send test",
			TextBody: "This should fail.\n",
		}

		_, err := mailer.Send(ctx, msg)

		assert.ErrorContains(t, err, "send to "+msg.To+" failed: ")
	})
}
