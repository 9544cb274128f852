// Package envelope provides the uniform reply wrapper returned by every
// endpoint, on success and on failure.
package envelope

import (
	"encoding/json"
	"time"
)

// ContentType is the media type of every envelope.
const ContentType = "application/json; charset=utf-8"

// TimestampLayout is ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Envelope is the top-level reply document.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"requestId"`
}

// Error is the failure body of an envelope.
type Error struct {
	Message string         `json:"message"`
	Status  int            `json:"status"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Success wraps a payload. Raw JSON payloads are passed through untouched.
func Success(data any, requestID string, now time.Time) Envelope {
	if raw, ok := data.([]byte); ok {
		data = json.RawMessage(raw)
	}
	return Envelope{
		Success:   true,
		Data:      data,
		Timestamp: Timestamp(now),
		RequestID: requestID,
	}
}

// Failure wraps an error body.
func Failure(err Error, requestID string, now time.Time) Envelope {
	return Envelope{
		Success:   false,
		Error:     &err,
		Timestamp: Timestamp(now),
		RequestID: requestID,
	}
}

// Timestamp formats t the way envelopes carry it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// StatusCode returns the HTTP status an envelope is written with.
func (e Envelope) StatusCode() int {
	if e.Error == nil || e.Error.Status == 0 {
		if e.Success {
			return 200
		}
		return 500
	}
	return e.Error.Status
}
