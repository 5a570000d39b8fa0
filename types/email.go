package types

import (
	"fmt"
	"net/mail"
	"strings"
)

const ErrInvalidSubscriberEmail = SentinelError("invalid subscriber email")

// SubscriberEmail is an address that passed NewSubscriberEmail.
type SubscriberEmail struct {
	address string
}

// NewSubscriberEmail validates a raw form value as a bare addr-spec.
//
// The address must parse via [mail.ParseAddress] to exactly the input string,
// which rules out display names, angle brackets, comments, and surrounding
// whitespace. The domain must also contain at least one dot.
func NewSubscriberEmail(raw string) (SubscriberEmail, error) {
	if raw == "" {
		return SubscriberEmail{}, emailError("empty address", raw)
	} else if strings.TrimSpace(raw) != raw {
		return SubscriberEmail{}, emailError("surrounding whitespace", raw)
	}

	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return SubscriberEmail{}, emailError(err.Error(), raw)
	} else if addr.Name != "" || addr.Address != raw {
		return SubscriberEmail{}, emailError("not a bare address", raw)
	}

	// mail.ParseAddress guarantees an "@domain" part is present.
	domain := raw[strings.LastIndexByte(raw, '@')+1:]
	if i := strings.IndexByte(domain, '.'); i <= 0 || i == len(domain)-1 {
		return SubscriberEmail{}, emailError("domain lacks a dot", raw)
	}
	return SubscriberEmail{raw}, nil
}

func emailError(reason, raw string) error {
	return fmt.Errorf("%w: %s: %q", ErrInvalidSubscriberEmail, reason, raw)
}

func (e SubscriberEmail) String() string {
	return e.address
}
