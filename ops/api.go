package ops

import (
	"net/url"
	"strings"

	"github.com/mbland/optinlist/types"
)

const (
	ApiPathHealthCheck   = "/health_check"
	ApiPathSubscriptions = "/subscriptions"
	ApiPathConfirm       = "/subscriptions/confirm"
	ApiPathNewsletters   = "/newsletters"
	ApiPathMetrics       = "/metrics"
)

const TokenQueryParam = "subscription_token"

// ConfirmUrl returns the link embedded in a confirmation email.
//
// It carries only the token, never the subscriber ID.
func ConfirmUrl(apiBaseUrl string, token types.Token) string {
	sb := strings.Builder{}
	sb.WriteString(strings.TrimSuffix(apiBaseUrl, "/"))
	sb.WriteString(ApiPathConfirm)
	sb.WriteString("?")
	sb.WriteString(TokenQueryParam)
	sb.WriteString("=")
	sb.WriteString(url.QueryEscape(token.String()))
	return sb.String()
}
