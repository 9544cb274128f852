package http

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/artpar/spacegate/adapters/idgen"
	"github.com/artpar/spacegate/adapters/metrics"
	"github.com/artpar/spacegate/app"
	"github.com/artpar/spacegate/domain/proxy"
	"github.com/artpar/spacegate/domain/ratelimit"
	"github.com/artpar/spacegate/pkg/envelope"
	"github.com/artpar/spacegate/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Standard rate limit headers.
const (
	HeaderRateLimitLimit     = "RateLimit-Limit"
	HeaderRateLimitRemaining = "RateLimit-Remaining"
	HeaderRateLimitReset     = "RateLimit-Reset"
)

// NewRequestIDMiddleware takes the request id from X-Request-ID when the
// caller sent a usable one, else generates one. The id is stored under
// middleware.RequestIDKey and echoed in the response header.
func NewRequestIDMiddleware(gen ports.IDGenerator) func(next http.Handler) http.Handler {
	if gen == nil {
		gen = idgen.UUID{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(envelope.RequestIDHeader)
			if !idgen.Valid(id) {
				id = gen.New()
			}
			w.Header().Set(envelope.RequestIDHeader, id)
			ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewLoggingMiddleware creates a new logging middleware.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Skip logging for probes and scrapes
			if r.URL.Path == "/health" || r.URL.Path == "/health/ready" || r.URL.Path == "/metrics" {
				return
			}

			evt := logger.Info()
			if ww.Status() >= http.StatusInternalServerError {
				evt = logger.Warn()
			}
			evt.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("ip", clientAddr(r)).
				Str("user_agent", r.UserAgent()).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

// NewRecoveryMiddleware turns a panic into an INTERNAL_ERROR envelope.
func NewRecoveryMiddleware(clk ports.Clock, logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", rec)
				}
				logger.Error().
					Err(err).
					Bytes("stack", debug.Stack()).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("request_id", middleware.GetReqID(r.Context())).
					Msg("recovered from panic")

				writeError(w, r, proxy.Internal(err, nil), clk.Now(), logger)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// NewRateLimitMiddleware admits each request through the service's fixed
// window limiter, keyed by client address. m may be nil.
func NewRateLimitMiddleware(service *app.GatewayService, clk ports.Clock, m *metrics.Collector, logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, rerr := service.Admit(r.Context(), clientAddr(r))
			now := clk.Now()
			setRateLimitHeaders(w.Header(), decision, now)

			if rerr != nil {
				if m != nil {
					m.RateLimitHits.Inc()
				}
				w.Header().Set("Retry-After", strconv.Itoa(ceilSeconds(ratelimit.RetryAfter(decision, now))))
				logger.Info().
					Str("ip", clientAddr(r)).
					Str("path", r.URL.Path).
					Str("request_id", middleware.GetReqID(r.Context())).
					Msg("rate limit exceeded")
				writeError(w, r, rerr, now, logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(h http.Header, d ratelimit.Decision, now time.Time) {
	if d.Limit <= 0 {
		return
	}
	h.Set(HeaderRateLimitLimit, strconv.Itoa(d.Limit))
	h.Set(HeaderRateLimitRemaining, strconv.Itoa(d.Remaining))
	h.Set(HeaderRateLimitReset, strconv.Itoa(ceilSeconds(d.ResetAt.Sub(now))))
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// clientAddr returns the caller's IP without the port.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// NewMetricsMiddleware creates middleware that records request metrics.
// Requests are labelled by chi route pattern to keep cardinality bounded.
func NewMetricsMiddleware(m *metrics.Collector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := routePattern(r)
			m.RequestsTotal.WithLabelValues(route, metrics.StatusClass(ww.Status())).Inc()
			m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "unmatched"
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return "unmatched"
}
