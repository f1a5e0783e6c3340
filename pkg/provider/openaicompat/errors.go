package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/tidwall/gjson"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 4096

// BackendError is the error detail found in a backend error body.
type BackendError struct {
	Message string
	Param   string
}

// MapHTTPError converts an HTTP response with a non-2xx status code into an
// APIError, using the backend's message and param when the body carries them.
func MapHTTPError(resp *http.Response) *api.APIError {
	detail := ParseErrorBody(resp.Body)
	message := detail.Message

	withDefault := func(fallback string) string {
		if message != "" {
			return message
		}
		return fallback
	}

	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return api.NewInvalidRequestError(detail.Param, withDefault("invalid request to backend"))

	case http.StatusUnauthorized, http.StatusForbidden:
		// Credentials belong to chatbridge, not to the caller.
		return api.NewServerError(withDefault("backend authentication failed"))

	case http.StatusNotFound:
		return api.NewNotFoundError(withDefault("backend resource not found"))

	case http.StatusTooManyRequests:
		msg := withDefault("backend rate limit exceeded")
		if after := resp.Header.Get("Retry-After"); after != "" {
			msg += " (retry after " + after + ")"
		}
		return api.NewTooManyRequestsError(msg)

	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return api.NewServerError(withDefault("backend request timed out"))

	default:
		return api.NewServerError(withDefault(fmt.Sprintf("backend error (HTTP %d)", resp.StatusCode)))
	}
}

// MapNetworkError converts a transport-level error (connection refused,
// timeout, DNS failure) into an APIError. Cancellation by the caller is
// returned as an error wrapping context.Canceled.
func MapNetworkError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("backend request canceled: %w", err)
	case errors.Is(err, context.DeadlineExceeded):
		return api.NewServerError("backend request timed out")
	default:
		return api.NewServerError(fmt.Sprintf("backend connection error: %s", err.Error()))
	}
}

// ParseErrorBody reads at most 4 KiB of body and extracts the error detail.
// It understands the shapes used by OpenAI-compatible servers:
//
//	{"error": {"message": "...", "param": "..."}}   OpenAI, LiteLLM
//	{"object": "error", "message": "..."}          vLLM
//	{"error": "..."}                               llama.cpp, TGI
//	{"detail": "..."}                              FastAPI validation
func ParseErrorBody(body io.Reader) BackendError {
	if body == nil {
		return BackendError{}
	}
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || !gjson.ValidBytes(data) {
		return BackendError{}
	}

	return backendErrorFrom(gjson.ParseBytes(data))
}

// backendErrorFrom extracts the message and param from a decoded error
// document. It is shared by HTTP error bodies and SSE error events.
func backendErrorFrom(res gjson.Result) BackendError {
	if e := res.Get("error"); e.IsObject() {
		return BackendError{
			Message: strings.TrimSpace(e.Get("message").String()),
			Param:   e.Get("param").String(),
		}
	}
	for _, path := range []string{"error", "message", "detail"} {
		if v := res.Get(path); v.Type == gjson.String {
			return BackendError{Message: strings.TrimSpace(v.String())}
		}
	}
	return BackendError{}
}
