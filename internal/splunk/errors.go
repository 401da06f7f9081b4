package splunk

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an API failure so callers can map it to behavior
// (retry decisions, exit codes) without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindRateLimit
	KindSearchQuota
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not found"
	case KindRateLimit:
		return "rate limit"
	case KindSearchQuota:
		return "search quota"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// APIError is returned for any non-success response from splunkd.
type APIError struct {
	Kind       Kind
	StatusCode int
	Operation  string
	Message    string
}

func (e *APIError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("%s failed: %s (HTTP %d)", e.Operation, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

// ValidationError reports bad input caught before any request is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, a ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, a...)}
}

// classifyResponse maps an HTTP status and response body to an APIError.
func classifyResponse(status int, operation, body string) *APIError {
	kind := KindUnknown
	switch {
	case status == 400:
		kind = KindValidation
	case status == 401:
		kind = KindAuthentication
	case status == 403:
		if strings.Contains(strings.ToLower(body), "quota") {
			kind = KindSearchQuota
		} else {
			kind = KindAuthorization
		}
	case status == 404:
		kind = KindNotFound
	case status == 429:
		kind = KindRateLimit
	case status >= 500:
		kind = KindServer
	}

	msg := extractMessage(body)
	if msg == "" {
		msg = strings.TrimSpace(body)
	}
	if len(msg) > 500 {
		msg = msg[:500] + "..."
	}
	return &APIError{Kind: kind, StatusCode: status, Operation: operation, Message: msg}
}

// ErrorKind returns the classification of err, or KindUnknown when err is
// not an API or validation error.
func ErrorKind(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return KindValidation
	}
	return KindUnknown
}
