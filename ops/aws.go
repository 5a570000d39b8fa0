package ops

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// AwsError prefixes err with msg, also wrapping ErrExternal if the AWS API
// reported a server fault.
//
// Inspired by:
// https://aws.github.io/aws-sdk-go-v2/docs/handling-errors/#api-error-responses
func AwsError(msg string, err error) error {
	var apiErr smithy.APIError

	if errors.As(err, &apiErr) && apiErr.ErrorFault() == smithy.FaultServer {
		return fmt.Errorf("%w: %s: %w", ErrExternal, msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
