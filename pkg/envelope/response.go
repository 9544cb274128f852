package envelope

import (
	"encoding/json"
	"net/http"
)

// RequestIDHeader carries the correlation id in both directions.
const RequestIDHeader = "X-Request-ID"

// Write serializes env with its status code. The request id is echoed in
// RequestIDHeader.
func Write(w http.ResponseWriter, env Envelope) error {
	w.Header().Set("Content-Type", ContentType)
	if env.RequestID != "" {
		w.Header().Set(RequestIDHeader, env.RequestID)
	}
	w.WriteHeader(env.StatusCode())
	return json.NewEncoder(w).Encode(env)
}
