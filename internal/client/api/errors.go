package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// Error is the normalized failure of a request. Status is zero when no
// response was received (network failure, timeout, cancelled context).
type Error struct {
	Method  string
	Path    string
	Status  int
	Message string
	// Fields holds per-field validation messages when the server sends them.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Timeout reports whether the request ran out of time.
func (e *Error) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// Retryable reports whether repeating the request may succeed: network
// failures and 5xx responses are, client errors are not.
func (e *Error) Retryable() bool {
	if e.Status == 0 {
		return !errors.Is(e.Err, context.Canceled)
	}
	return e.Status >= http.StatusInternalServerError
}

// UserMessage returns the server-provided text for 4xx responses and an
// empty string otherwise, so callers fall back to a generic message for
// network and server errors.
func (e *Error) UserMessage() string {
	if e.Status >= 400 && e.Status < 500 {
		return e.Message
	}
	return ""
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type errorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Errors  map[string]any `json:"errors"`
}

// decodeError builds an *Error from a non-2xx response. The message comes
// from a JSON "error"/"message" field, else the plain-text body, else the
// status text.
func decodeError(req *http.Request, resp *http.Response) *Error {
	e := &Error{
		Method: req.Method,
		Path:   req.URL.Path,
		Status: resp.StatusCode,
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		e.Message = body.Error
		if e.Message == "" {
			e.Message = body.Message
		}
		if len(body.Errors) > 0 {
			e.Fields = make(map[string]string, len(body.Errors))
			for k, v := range body.Errors {
				e.Fields[k] = fieldMessage(v)
			}
		}
	} else {
		e.Message = strings.TrimSpace(string(raw))
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}

func fieldMessage(v any) string {
	switch m := v.(type) {
	case string:
		return m
	case []any:
		parts := make([]string, 0, len(m))
		for _, p := range m {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(m)
	}
}
