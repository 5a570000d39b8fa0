//go:build small_tests || all_tests

package ops

import (
	"net/url"
	"testing"

	"github.com/mbland/optinlist/types"
	"gotest.tools/assert"
)

func TestConfirmUrl(t *testing.T) {
	const token = types.Token("abcDEF0123456789wxyz")
	const expected = "https://foo.com/api/subscriptions/confirm" +
		"?subscription_token=abcDEF0123456789wxyz"

	t.Run("EmbedsToken", func(t *testing.T) {
		assert.Equal(t, expected, ConfirmUrl("https://foo.com/api", token))
	})

	t.Run("TrimsBaseUrlTrailingSlash", func(t *testing.T) {
		assert.Equal(t, expected, ConfirmUrl("https://foo.com/api/", token))
	})

	t.Run("ParsesBackToToken", func(t *testing.T) {
		u, err := url.Parse(ConfirmUrl("https://foo.com/api", token))

		assert.NilError(t, err)
		assert.Equal(t, ApiPathConfirm, u.Path[len("/api"):])
		assert.Equal(t, token.String(), u.Query().Get(TokenQueryParam))
	})
}
