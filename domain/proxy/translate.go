package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/artpar/spacegate/domain/query"
)

// MaxBodyExcerpt bounds the upstream body kept in error details.
const MaxBodyExcerpt = 512

// Reasons recorded in details for upstream failures without a status.
const (
	ReasonUnreachable = "unreachable"
	ReasonTimeout     = "timeout"
	ReasonMalformed   = "malformed_response"
)

// Translate maps any failure into exactly one taxonomy error.
// It returns nil for a nil error.
func Translate(err error, endpoint string) *Error {
	if err == nil {
		return nil
	}

	var te *Error
	if errors.As(err, &te) {
		return te
	}

	var ve *query.ValidationError
	if errors.As(err, &ve) {
		details := map[string]any{"endpoint": endpoint, "rule": ve.Rule}
		if ve.Field != "" {
			details["field"] = ve.Field
		}
		return Validation(ve.Message, details)
	}

	var se *StatusError
	if errors.As(err, &se) {
		status := se.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		return &Error{
			Kind:    KindUpstream,
			Status:  status,
			Message: fmt.Sprintf("Upstream request failed with status %d", se.Status),
			Details: map[string]any{
				"endpoint":       endpoint,
				"upstreamStatus": se.Status,
				"body":           Excerpt(se.Body),
			},
			cause: err,
		}
	}

	if reason, msg, ok := classifyTransport(err); ok {
		return &Error{
			Kind:    KindUpstream,
			Status:  http.StatusBadGateway,
			Message: msg,
			Details: map[string]any{"endpoint": endpoint, "reason": reason},
			cause:   err,
		}
	}

	return Internal(err, map[string]any{"endpoint": endpoint})
}

func classifyTransport(err error) (reason, message string, ok bool) {
	var netErr net.Error
	switch {
	case errors.Is(err, ErrMalformed):
		return ReasonMalformed, MessageMalformed, true
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout, MessageTimeout, true
	case errors.As(err, &netErr) && netErr.Timeout():
		return ReasonTimeout, MessageTimeout, true
	case errors.Is(err, ErrUnreachable), errors.Is(err, context.Canceled), errors.As(err, &netErr):
		return ReasonUnreachable, MessageUnreachable, true
	}
	return "", "", false
}

// Excerpt returns at most MaxBodyExcerpt bytes of body as trimmed text,
// cut on a rune boundary.
func Excerpt(body []byte) string {
	if len(body) > MaxBodyExcerpt {
		body = body[:MaxBodyExcerpt]
		for i := 0; i < utf8.UTFMax-1 && len(body) > 0; i++ {
			if r, _ := utf8.DecodeLastRune(body); r != utf8.RuneError {
				break
			}
			body = body[:len(body)-1]
		}
	}
	return strings.TrimSpace(string(body))
}
