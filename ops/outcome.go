package ops

import "errors"

//go:generate go run golang.org/x/tools/cmd/stringer -type=Outcome
type Outcome int

const (
	Success Outcome = iota
	ValidationFailed
	StorageFailed
	EmailDeliveryFailed
	TokenNotFound
	Unexpected
)

// OutcomeOf classifies err by the sentinel errors in its tree.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrValidation):
		return ValidationFailed
	case errors.Is(err, ErrTokenNotFound):
		return TokenNotFound
	case errors.Is(err, ErrEmailDelivery):
		return EmailDeliveryFailed
	case errors.Is(err, ErrStorage):
		return StorageFailed
	}
	return Unexpected
}
