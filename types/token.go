package types

import (
	"crypto/rand"
	"fmt"
	"io"
)

const TokenLength = 20

const tokenChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"abcdefghijklmnopqrstuvwxyz" +
	"0123456789"

// Largest multiple of len(tokenChars) that fits in a byte. Bytes at or above
// this value are discarded so every character is equally likely.
const tokenByteLimit = 256 - (256 % len(tokenChars))

// Token is a confirmation token: the only thing a confirmation link carries.
type Token string

// NewToken draws TokenLength alphanumeric characters from source.
func NewToken(source io.Reader) (Token, error) {
	result := make([]byte, 0, TokenLength)
	buf := make([]byte, TokenLength*2)

	for len(result) != TokenLength {
		if _, err := io.ReadFull(source, buf); err != nil {
			return "", fmt.Errorf("failed to generate token: %w", err)
		}
		for _, b := range buf {
			if int(b) >= tokenByteLimit {
				continue
			}
			result = append(result, tokenChars[int(b)%len(tokenChars)])
			if len(result) == TokenLength {
				break
			}
		}
	}
	return Token(result), nil
}

// tokenSource is crypto/rand.Reader outside of tests.
var tokenSource io.Reader = rand.Reader

// MustNewToken panics if crypto/rand fails, which means the process can no
// longer generate anything secret.
func MustNewToken() Token {
	token, err := NewToken(tokenSource)
	if err != nil {
		panic(err.Error())
	}
	return token
}

func (t Token) String() string {
	return string(t)
}

const ErrInvalidToken = SentinelError("invalid subscription token")

// ParseToken checks that raw has the shape of a generated token.
func ParseToken(raw string) (Token, error) {
	if len(raw) != TokenLength {
		const errFmt = "%w: expected %d characters, got %d: %q"
		return "", fmt.Errorf(errFmt, ErrInvalidToken, TokenLength, len(raw), raw)
	}
	for i := 0; i != len(raw); i++ {
		if !isTokenChar(raw[i]) {
			return "", fmt.Errorf("%w: %q", ErrInvalidToken, raw)
		}
	}
	return Token(raw), nil
}

func isTokenChar(c byte) bool {
	return ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z') ||
		('0' <= c && c <= '9')
}
