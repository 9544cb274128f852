// Package proxy provides the upstream call descriptor, the upstream response
// value and the closed error taxonomy returned to callers.
package proxy

import (
	"net/url"
	"strings"

	"github.com/artpar/spacegate/domain/query"
)

// CredentialParam is the query parameter carrying the upstream access key.
const CredentialParam = "api_key"

// Call describes one upstream request (value type).
// It is built fresh for every inbound request and never reused.
type Call struct {
	Endpoint string
	Path     string
	Query    url.Values
	TraceID  string
}

// Response represents an upstream response (value type).
type Response struct {
	Status int
	Body   []byte

	// Metadata (for logging)
	LatencyMs    int64
	UpstreamAddr string
}

// OK reports whether the upstream answered with a 2xx status.
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// BuildCall resolves the schema's upstream path template with the path
// parameters in p and passes every other parameter through as a query value,
// together with the access credential.
func BuildCall(s query.Schema, p query.Params, credential, traceID string) Call {
	path := s.Upstream
	var consumed []string
	for _, f := range s.Fields {
		if !f.PathParam {
			continue
		}
		v, ok := p.Get(f.Name)
		if !ok {
			continue
		}
		path = strings.ReplaceAll(path, "{"+f.Name+"}", url.PathEscape(v.Encode()))
		consumed = append(consumed, f.Name)
	}

	q := p.Values(consumed...)
	q.Set(CredentialParam, credential)

	return Call{
		Endpoint: s.Endpoint,
		Path:     path,
		Query:    q,
		TraceID:  traceID,
	}
}

// RedactedQuery returns the encoded query with the credential masked, for logs.
func (c Call) RedactedQuery() string {
	q := make(url.Values, len(c.Query))
	for k, v := range c.Query {
		q[k] = v
	}
	if q.Has(CredentialParam) {
		q.Set(CredentialParam, "REDACTED")
	}
	return q.Encode()
}
