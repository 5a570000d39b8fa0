// Package metrics defines Prometheus counters for subscription requests and
// email deliveries.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ApiRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optinlist_api_requests_total",
		Help: "Total number of API requests by endpoint and response status",
	}, []string{"endpoint", "status"})
	// Label values come from ops.Outcome.String().
	Operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optinlist_operations_total",
		Help: "Total number of subscribe, confirm, and publish operations by outcome",
	}, []string{"operation", "outcome"})
	EmailDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optinlist_email_deliveries_total",
		Help: "Total number of email send attempts by kind and result",
	}, []string{"kind", "result"})
)

const (
	KindConfirmation = "confirmation"
	KindNewsletter   = "newsletter"

	ResultSent    = "sent"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

func init() {
	prometheus.MustRegister(ApiRequests)
	prometheus.MustRegister(Operations)
	prometheus.MustRegister(EmailDeliveries)
}

// MetricsHandler returns an http.Handler exposing Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
