package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/mbland/optinlist/agent"
	"github.com/mbland/optinlist/metrics"
	"github.com/mbland/optinlist/ops"
)

const formContentType = "application/x-www-form-urlencoded"

// apiRequest is the transport independent form of an HTTP request, built from
// either an API Gateway event or a *http.Request.
type apiRequest struct {
	Id          string
	SourceIp    string
	Method      string
	Path        string
	Protocol    string
	ContentType string
	Query       url.Values
	Body        string
}

type apiResponse struct {
	StatusCode  int
	ContentType string
	Body        string
}

type apiHandler struct {
	Agent agent.SubscriptionAgent
	log   *log.Logger
}

func newApiRequest(req *awsevents.APIGatewayV2HTTPRequest) (*apiRequest, error) {
	desc := req.RequestContext.HTTP
	result := &apiRequest{
		Id:          req.RequestContext.RequestID,
		SourceIp:    desc.SourceIP,
		Method:      desc.Method,
		Path:        req.RawPath,
		Protocol:    desc.Protocol,
		ContentType: req.Headers["content-type"],
		Body:        req.Body,
	}

	// API Gateway lowercases header names, but `sam local` passes them through
	// as the client sent them.
	if result.ContentType == "" {
		result.ContentType = req.Headers["Content-Type"]
	}

	var err error
	if result.Query, err = url.ParseQuery(req.RawQueryString); err != nil {
		return result, fmt.Errorf("failed to parse query string: %w", err)
	} else if req.IsBase64Encoded {
		var decoded []byte
		if decoded, err = base64.StdEncoding.DecodeString(req.Body); err != nil {
			return result, fmt.Errorf("failed to base64 decode body: %w", err)
		}
		result.Body = string(decoded)
	}
	return result, nil
}

// HandleEvent answers an API Gateway request.
func (h *apiHandler) HandleEvent(
	ctx context.Context, origReq *awsevents.APIGatewayV2HTTPRequest,
) *awsevents.APIGatewayV2HTTPResponse {
	req, err := newApiRequest(origReq)
	res := h.respond(ctx, req, err)

	return &awsevents.APIGatewayV2HTTPResponse{
		StatusCode: res.StatusCode,
		Headers:    map[string]string{"content-type": res.ContentType},
		Body:       res.Body,
	}
}

// respond performs the operation req names, unless reqErr reports that req
// couldn't be read in full, then logs and counts the response.
func (h *apiHandler) respond(
	ctx context.Context, req *apiRequest, reqErr error,
) (res *apiResponse) {
	var err error

	if reqErr != nil {
		err = fmt.Errorf("%w: %w", ops.ErrValidation, reqErr)
		res = textResponse(statusFor(err))
	} else {
		res, err = h.handleApiRequest(ctx, req)
	}

	endpoint := endpointLabel(req.Path)
	status := strconv.Itoa(res.StatusCode)
	metrics.ApiRequests.WithLabelValues(endpoint, status).Inc()
	logApiResponse(h.log, req, res, err)
	return
}

func (h *apiHandler) handleApiRequest(
	ctx context.Context, req *apiRequest,
) (*apiResponse, error) {
	switch req.Path {
	case ops.ApiPathHealthCheck:
		if req.Method == http.MethodGet {
			return textResponse(http.StatusOK), nil
		}
	case ops.ApiPathSubscriptions:
		if req.Method == http.MethodPost {
			return h.subscribe(ctx, req)
		}
	case ops.ApiPathConfirm:
		if req.Method == http.MethodGet {
			return h.confirm(ctx, req)
		}
	case ops.ApiPathNewsletters:
		if req.Method == http.MethodPost {
			return h.publish(ctx, req)
		}
	default:
		return textResponse(http.StatusNotFound), nil
	}
	return textResponse(http.StatusMethodNotAllowed), nil
}

func (h *apiHandler) subscribe(
	ctx context.Context, req *apiRequest,
) (*apiResponse, error) {
	form, err := parseForm(req)
	if err == nil {
		err = h.Agent.Subscribe(ctx, form.Get("name"), form.Get("email"))
	}
	return textResponse(statusFor(err)), err
}

func parseForm(req *apiRequest) (url.Values, error) {
	mediaType, _, err := mime.ParseMediaType(req.ContentType)
	if err != nil || mediaType != formContentType {
		const errFmt = "%w: expected content type %s, got: %q"
		return nil, fmt.Errorf(
			errFmt, ops.ErrValidation, formContentType, req.ContentType,
		)
	}

	form, err := url.ParseQuery(req.Body)
	if err != nil {
		const errFmt = "%w: failed to parse form: %w"
		return nil, fmt.Errorf(errFmt, ops.ErrValidation, err)
	}
	return form, nil
}

func (h *apiHandler) confirm(
	ctx context.Context, req *apiRequest,
) (*apiResponse, error) {
	var err error

	if !req.Query.Has(ops.TokenQueryParam) {
		const errFmt = "%w: missing %s query parameter"
		err = fmt.Errorf(errFmt, ops.ErrValidation, ops.TokenQueryParam)
	} else {
		err = h.Agent.Confirm(ctx, req.Query.Get(ops.TokenQueryParam))
	}
	return textResponse(statusFor(err)), err
}

func (h *apiHandler) publish(
	ctx context.Context, req *apiRequest,
) (*apiResponse, error) {
	var issue *ops.NewsletterIssue
	var result *ops.PublishResult
	var body []byte
	var err error

	issue, err = ops.ParseNewsletterIssue(strings.NewReader(req.Body))
	if err != nil {
		return textResponse(statusFor(err)), err
	} else if result, err = h.Agent.Publish(ctx, issue); err != nil {
		return textResponse(statusFor(err)), err
	} else if body, err = json.Marshal(result); err != nil {
		const errFmt = "%w: failed to encode publish result: %w"
		err = fmt.Errorf(errFmt, ops.ErrUnexpected, err)
		return textResponse(statusFor(err)), err
	}
	return &apiResponse{
		StatusCode:  http.StatusOK,
		ContentType: "application/json",
		Body:        string(body),
	}, nil
}

// statusFor maps an operation error to a status code. Error details appear
// only in the logs, never in the response body.
func statusFor(err error) int {
	switch ops.OutcomeOf(err) {
	case ops.Success:
		return http.StatusOK
	case ops.ValidationFailed:
		return http.StatusBadRequest
	case ops.TokenNotFound:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func textResponse(status int) *apiResponse {
	return &apiResponse{
		StatusCode:  status,
		ContentType: "text/plain; charset=utf-8",
		Body:        fmt.Sprintf("%d %s\n", status, http.StatusText(status)),
	}
}

func endpointLabel(path string) string {
	switch path {
	case ops.ApiPathHealthCheck,
		ops.ApiPathSubscriptions,
		ops.ApiPathConfirm,
		ops.ApiPathNewsletters:
		return path
	}
	return "other"
}

func logApiResponse(
	log *log.Logger, req *apiRequest, res *apiResponse, err error,
) {
	errMsg := ""

	if err != nil {
		errMsg = ": " + err.Error()
	}

	log.Printf(`%s: %s "%s %s %s" %d%s`,
		req.Id,
		req.SourceIp, req.Method, req.Path, req.Protocol, res.StatusCode,
		errMsg,
	)
}
