package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// HTTPError represents an HTTP error response.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, truncate(string(e.Body), 500))
}

// IsBadRequest returns true for 400.
func (e *HTTPError) IsBadRequest() bool {
	return e.StatusCode == http.StatusBadRequest
}

// IsAuth returns true for 401 and 403.
func (e *HTTPError) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsRateLimited returns true if this is a rate limit error.
func (e *HTTPError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsServerError returns true if this is a server error.
func (e *HTTPError) IsServerError() bool {
	return e.StatusCode >= 500
}

// Pretty returns the body indented when it is JSON, otherwise the first
// limit bytes of text.
func (e *HTTPError) Pretty(limit int) string {
	var out bytes.Buffer
	if json.Valid(e.Body) && json.Indent(&out, e.Body, "", "  ") == nil {
		return out.String()
	}
	return truncate(string(e.Body), limit)
}

// Hint returns a short explanation for status codes that have a usual cause.
func (e *HTTPError) Hint() string {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return "request rejected by validation (check date window and required fields)"
	case http.StatusUnauthorized:
		return "token missing, expired or rejected"
	case http.StatusForbidden:
		return "token accepted but not allowed (check practice/organization mapping)"
	default:
		return ""
	}
}

// AsHTTPError unwraps err into an *HTTPError.
func AsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	if httpErr, ok := AsHTTPError(err); ok {
		return httpErr.StatusCode
	}
	return 0
}

// isRetryable determines if an error should be retried.
func isRetryable(err error) bool {
	if httpErr, ok := AsHTTPError(err); ok {
		return httpErr.IsRateLimited() || httpErr.IsServerError()
	}
	return false
}
