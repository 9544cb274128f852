package proxy

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the closed set of error kinds reported to callers.
type Kind string

const (
	KindValidation Kind = "VALIDATION_ERROR"
	KindUpstream   Kind = "UPSTREAM_ERROR"
	KindRateLimit  Kind = "RATE_LIMIT_ERROR"
	KindInternal   Kind = "INTERNAL_ERROR"
)

// Kinds lists every error kind.
var Kinds = []Kind{KindValidation, KindUpstream, KindRateLimit, KindInternal}

// Messages that never vary.
const (
	MessageInternal    = "Internal server error"
	MessageRateLimited = "Too many requests from this IP, please try again later"
	MessageUnreachable = "Upstream service unavailable"
	MessageTimeout     = "Upstream service timeout"
	MessageMalformed   = "Upstream returned a malformed response"
)

// Error is a taxonomy error attached to exactly one request.
// Details are diagnostic data; for KindInternal they never leave the server.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Details map[string]any

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// Public reports whether Details may be written to the response body.
func (e *Error) Public() bool { return e.Kind != KindInternal }

// Validation returns a VALIDATION_ERROR.
func Validation(message string, details map[string]any) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: message, Details: details}
}

// RateLimited returns a RATE_LIMIT_ERROR.
func RateLimited(details map[string]any) *Error {
	return &Error{Kind: KindRateLimit, Status: http.StatusTooManyRequests, Message: MessageRateLimited, Details: details}
}

// Internal returns an INTERNAL_ERROR with a fixed message. cause and details
// are kept for server-side logs only.
func Internal(cause error, details map[string]any) *Error {
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: MessageInternal, Details: details, cause: cause}
}

// Upstream failure sentinels. Adapters wrap these so Translate can classify
// the failure without knowing the transport.
var (
	ErrUnreachable = errors.New("upstream unreachable")
	ErrTimeout     = errors.New("upstream timeout")
	ErrMalformed   = errors.New("upstream response malformed")
)

// StatusError reports an upstream that answered with a non-2xx status.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream responded with status %d", e.Status)
}
