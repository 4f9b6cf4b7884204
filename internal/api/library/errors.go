package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthorized is matched by APIErrors carrying 401 or 403
var ErrUnauthorized = errors.New("not authorized")

// ErrEmptyResponse is returned when the backend answers a submission with no body
var ErrEmptyResponse = errors.New("empty response from server")

// APIError is a non-2xx answer from the backend
type APIError struct {
	Method     string
	Endpoint   string
	StatusCode int
	// Detail is the backend's "detail" message, or the raw body when absent
	Detail string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: unexpected status code: %d", e.Method, e.Endpoint, e.StatusCode)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is lets errors.Is(err, ErrUnauthorized) match auth failures
func (e *APIError) Is(target error) bool {
	if target == ErrUnauthorized {
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

// Message returns the text worth showing to a user
func (e *APIError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return http.StatusText(e.StatusCode)
}

// UserMessage extracts a displayable message from any client error
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return err.Error()
}

func newAPIError(method, endpoint string, status int, body []byte) *APIError {
	return &APIError{
		Method:     method,
		Endpoint:   endpoint,
		StatusCode: status,
		Detail:     parseDetail(body),
	}
}

// parseDetail reads FastAPI style {"detail": ...} bodies
func parseDetail(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return truncate(trimmed, 200)
	}

	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		return detail
	}

	// validation errors arrive as a list of {"msg": ...}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil && len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return truncate(string(payload.Detail), 200)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
