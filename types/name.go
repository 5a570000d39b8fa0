package types

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const ErrInvalidSubscriberName = SentinelError("invalid subscriber name")

// MaxSubscriberNameLength is measured in runes after NFC normalization.
const MaxSubscriberNameLength = 256

const forbiddenNameChars = `/()"<>\{}`

// SubscriberName is a display name that passed NewSubscriberName.
type SubscriberName struct {
	name string
}

// NewSubscriberName validates a raw form value.
//
// Surrounding whitespace is trimmed and the result is normalized to NFC. The
// name must be nonempty, at most MaxSubscriberNameLength runes, and must not
// contain control characters, whitespace other than a plain space, or any of
// the characters in forbiddenNameChars.
func NewSubscriberName(raw string) (SubscriberName, error) {
	name := norm.NFC.String(strings.TrimSpace(raw))

	if name == "" {
		return SubscriberName{}, nameError("empty name", raw)
	} else if n := utf8.RuneCountInString(name); n > MaxSubscriberNameLength {
		msg := fmt.Sprintf("longer than %d characters", MaxSubscriberNameLength)
		return SubscriberName{}, nameError(msg, raw)
	} else if i := strings.IndexFunc(name, isForbiddenNameRune); i != -1 {
		r, _ := utf8.DecodeRuneInString(name[i:])
		return SubscriberName{}, nameError(fmt.Sprintf("contains %q", r), raw)
	}
	return SubscriberName{name}, nil
}

func isForbiddenNameRune(r rune) bool {
	return r == utf8.RuneError ||
		unicode.IsControl(r) ||
		(unicode.IsSpace(r) && r != ' ') ||
		strings.ContainsRune(forbiddenNameChars, r)
}

func nameError(reason, raw string) error {
	return fmt.Errorf("%w: %s: %q", ErrInvalidSubscriberName, reason, raw)
}

func (n SubscriberName) String() string {
	return n.name
}
