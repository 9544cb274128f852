// Package app provides application services that orchestrate domain logic.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/artpar/spacegate/domain/proxy"
	"github.com/artpar/spacegate/domain/query"
	"github.com/artpar/spacegate/domain/ratelimit"
	"github.com/artpar/spacegate/ports"
	"github.com/rs/zerolog"
)

// DefaultCredential is the shared upstream key used when none is configured.
const DefaultCredential = "DEMO_KEY"

// DefaultTimeout bounds every upstream call.
const DefaultTimeout = 30 * time.Second

// GatewayService validates inbound queries and relays them to the upstream.
type GatewayService struct {
	upstream ports.Upstream
	limits   ports.RateLimitStore
	clock    ports.Clock
	logger   zerolog.Logger

	// Static configuration (requires restart)
	credential string
	timeout    time.Duration

	// Dynamic configuration (hot-reloadable)
	dynamicCfg atomic.Pointer[DynamicConfig]
}

// DynamicConfig contains hot-reloadable configuration.
type DynamicConfig struct {
	RateLimit ratelimit.Config
}

// GatewayDeps contains dependencies for GatewayService.
type GatewayDeps struct {
	Upstream  ports.Upstream
	RateLimit ports.RateLimitStore
	Clock     ports.Clock
	Logger    zerolog.Logger
}

// GatewayConfig contains configuration for GatewayService.
type GatewayConfig struct {
	Credential string
	Timeout    time.Duration
	RateLimit  ratelimit.Config
}

// NewGatewayService creates a new gateway service.
func NewGatewayService(deps GatewayDeps, cfg GatewayConfig) *GatewayService {
	if cfg.Credential == "" {
		cfg.Credential = DefaultCredential
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	s := &GatewayService{
		upstream:   deps.Upstream,
		limits:     deps.RateLimit,
		clock:      deps.Clock,
		logger:     deps.Logger.With().Str("service", "gateway").Logger(),
		credential: cfg.Credential,
		timeout:    cfg.Timeout,
	}
	s.UpdateConfig(cfg.RateLimit)

	return s
}

// UpdateConfig swaps the hot-reloadable configuration.
// This is thread-safe and can be called while handling requests.
func (s *GatewayService) UpdateConfig(rl ratelimit.Config) {
	s.dynamicCfg.Store(&DynamicConfig{RateLimit: rl})
}

// RateLimit returns the limiter configuration currently in force.
func (s *GatewayService) RateLimit() ratelimit.Config {
	return s.dynamicCfg.Load().RateLimit
}

// UsingDefaultCredential reports whether the shared demo key is in use.
func (s *GatewayService) UsingDefaultCredential() bool {
	return s.credential == DefaultCredential
}

// Request is one inbound operation call.
type Request struct {
	Endpoint  string
	Query     url.Values
	RequestID string
}

// Result is the outcome of Handle. Exactly one of Payload and Error is set.
type Result struct {
	Payload json.RawMessage
	Error   *proxy.Error

	// Metadata (for logging and metrics)
	Call           proxy.Call
	UpstreamStatus int
	LatencyMs      int64
}

// Handle validates req, fills defaults, calls the upstream once and returns
// its JSON payload or a taxonomy error.
func (s *GatewayService) Handle(ctx context.Context, req Request) Result {
	schema, ok := query.Lookup(req.Endpoint)
	if !ok {
		return Result{Error: proxy.Internal(
			fmt.Errorf("no schema registered for %q", req.Endpoint),
			map[string]any{"endpoint": req.Endpoint},
		)}
	}

	// 1. Validate (PURE)
	params, verr := query.Validate(schema, req.Query)
	if verr != nil {
		return Result{Error: proxy.Translate(verr, schema.Endpoint)}
	}

	// 2. Defaults (PURE, clock injected)
	params = query.ApplyDefaults(schema, params, s.clock.Now())

	// 3. Build the upstream call (PURE)
	call := proxy.BuildCall(schema, params, s.credential, req.RequestID)

	// 4. Call upstream (I/O)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.upstream.Get(ctx, call)
	result := Result{Call: call, UpstreamStatus: resp.Status, LatencyMs: resp.LatencyMs}
	if err != nil {
		result.Error = proxy.Translate(err, schema.Endpoint)
		s.logCall(req, call, result)
		return result
	}

	// 5. Classify the response (PURE)
	switch {
	case !resp.OK():
		result.Error = proxy.Translate(&proxy.StatusError{Status: resp.Status, Body: resp.Body}, schema.Endpoint)
	case !json.Valid(resp.Body):
		result.Error = proxy.Translate(fmt.Errorf("decode %s payload: %w", schema.Endpoint, proxy.ErrMalformed), schema.Endpoint)
	default:
		result.Payload = json.RawMessage(resp.Body)
	}

	s.logCall(req, call, result)
	return result
}

func (s *GatewayService) logCall(req Request, call proxy.Call, res Result) {
	evt := s.logger.Debug()
	if res.Error != nil {
		evt = s.logger.Warn().Err(res.Error)
	}
	evt.
		Str("request_id", req.RequestID).
		Str("endpoint", call.Endpoint).
		Str("path", call.Path).
		Str("query", call.RedactedQuery()).
		Int("upstream_status", res.UpstreamStatus).
		Int64("latency_ms", res.LatencyMs).
		Msg("upstream call")
}

// Admit counts one request from client against the rate limit window.
// A nil error means the request may proceed.
func (s *GatewayService) Admit(ctx context.Context, client string) (ratelimit.Decision, *proxy.Error) {
	cfg := s.RateLimit()
	if !cfg.Enabled() {
		return ratelimit.Decision{Allowed: true}, nil
	}

	now := s.clock.Now()
	decision, err := s.limits.Take(ctx, client, cfg, now)
	if err != nil {
		// The store is a local cache; a failure must not take the API down.
		s.logger.Error().Err(err).Str("client", client).Msg("rate limit store failed, admitting request")
		return ratelimit.Decision{Allowed: true, Limit: cfg.Limit, Remaining: cfg.Limit}, nil
	}
	if decision.Allowed {
		return decision, nil
	}

	return decision, proxy.RateLimited(map[string]any{
		"limit":      decision.Limit,
		"windowMs":   cfg.Window.Milliseconds(),
		"retryAfter": int64(ratelimit.RetryAfter(decision, now) / time.Second),
	})
}

// Ready reports whether the upstream answers at all.
func (s *GatewayService) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.upstream.HealthCheck(ctx); err != nil {
		if errors.Is(err, proxy.ErrTimeout) {
			return fmt.Errorf("upstream health check timed out: %w", err)
		}
		return fmt.Errorf("upstream health check: %w", err)
	}
	return nil
}
