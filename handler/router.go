package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mbland/optinlist/metrics"
	"github.com/mbland/optinlist/ops"
)

// MaxRequestBodySize bounds the bytes read from a request body.
const MaxRequestBodySize = 1 << 20

// NewRouter returns the http.Handler for the local HTTP server.
//
// Unknown paths and methods flow through the same handler as the API routes so
// that every response is logged and counted the same way as in Lambda.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	serve := h.api.ServeHTTP
	r.Get(ops.ApiPathHealthCheck, serve)
	r.Post(ops.ApiPathSubscriptions, serve)
	r.Get(ops.ApiPathConfirm, serve)
	r.Post(ops.ApiPathNewsletters, serve)
	r.Method(http.MethodGet, ops.ApiPathMetrics, metrics.MetricsHandler())
	r.NotFound(serve)
	r.MethodNotAllowed(serve)
	return r
}

func (h *apiHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := &apiRequest{
		Id:          middleware.GetReqID(r.Context()),
		SourceIp:    r.RemoteAddr,
		Method:      r.Method,
		Path:        r.URL.Path,
		Protocol:    r.Proto,
		ContentType: r.Header.Get("Content-Type"),
		Query:       r.URL.Query(),
	}

	var reqErr error
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBodySize))
	if err != nil {
		reqErr = fmt.Errorf("failed to read request body: %w", err)
	}
	req.Body = string(body)

	res := h.respond(r.Context(), req, reqErr)
	w.Header().Set("Content-Type", res.ContentType)
	w.WriteHeader(res.StatusCode)
	io.WriteString(w, res.Body)
}
