package email

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
)

type SesV2Api interface {
	SendEmail(
		context.Context,
		*sesv2.SendEmailInput,
		...func(*sesv2.Options),
	) (*sesv2.SendEmailOutput, error)
}
