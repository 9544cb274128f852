package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/artpar/spacegate/adapters/clock"
	apihttp "github.com/artpar/spacegate/adapters/http"
	"github.com/artpar/spacegate/adapters/idgen"
	"github.com/artpar/spacegate/adapters/memory"
	"github.com/artpar/spacegate/adapters/metrics"
	"github.com/artpar/spacegate/app"
	"github.com/artpar/spacegate/domain/ratelimit"
	"github.com/artpar/spacegate/pkg/envelope"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

var baseTime = time.Date(2024, 3, 30, 22, 15, 0, 0, time.UTC)

type testEnv struct {
	router   http.Handler
	upstream *httptest.Server
	metrics  *metrics.Collector

	mu   sync.Mutex
	hits map[string]string // upstream path -> raw query
}

func (e *testEnv) hit(path string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, ok := e.hits[path]
	return q, ok
}

func (e *testEnv) hitCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.hits)
}

type envOption func(*app.GatewayConfig, *apihttp.RouterConfig)

func withRateLimit(limit int) envOption {
	return func(g *app.GatewayConfig, _ *apihttp.RouterConfig) {
		g.RateLimit = ratelimit.Config{Limit: limit, Window: 15 * time.Minute}
	}
}

func withCORS(origins ...string) envOption {
	return func(_ *app.GatewayConfig, r *apihttp.RouterConfig) { r.CORSOrigins = origins }
}

// setupRouter wires the full HTTP stack against a fake upstream.
func setupRouter(t *testing.T, upstream http.HandlerFunc, opts ...envOption) *testEnv {
	t.Helper()

	env := &testEnv{hits: map[string]string{}}
	env.upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.mu.Lock()
		env.hits[r.URL.Path] = r.URL.RawQuery
		env.mu.Unlock()
		upstream(w, r)
	}))
	t.Cleanup(env.upstream.Close)

	client, err := apihttp.NewUpstreamClient(apihttp.UpstreamConfig{BaseURL: env.upstream.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewUpstreamClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	store := memory.NewRateLimitStore(memory.RateLimitConfig{})
	t.Cleanup(func() { store.Close() })

	clk := clock.NewFake(baseTime)
	logger := zerolog.Nop()
	env.metrics = metrics.NewWithRegistry(prometheus.NewRegistry())

	gcfg := app.GatewayConfig{Credential: "test-key"}
	rcfg := apihttp.RouterConfig{
		Metrics:        env.metrics,
		MetricsHandler: http.NotFoundHandler(),
		EnableOpenAPI:  true,
		IDGen:          idgen.NewSequential("req-"),
		Clock:          clk,
	}
	for _, opt := range opts {
		opt(&gcfg, &rcfg)
	}

	service := app.NewGatewayService(app.GatewayDeps{
		Upstream:  client,
		RateLimit: store,
		Clock:     clk,
		Logger:    logger,
	}, gcfg)

	env.router = apihttp.NewRouter(
		apihttp.NewGatewayHandler(service, clk, logger, env.metrics),
		apihttp.NewHealthHandler(service, clk, logger),
		service,
		logger,
		rcfg,
	)
	return env
}

func jsonUpstream(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func (e *testEnv) get(t *testing.T, target string, headers ...string) (*httptest.ResponseRecorder, envelope.Envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = "203.0.113.9:54321"
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope.Envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("invalid envelope %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func TestOperation_Success(t *testing.T) {
	e := setupRouter(t, jsonUpstream(`{"title":"Pillars of Creation"}`))

	rec, env := e.get(t, "/picture-of-day?date=2024-01-01")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !env.Success || env.Error != nil {
		t.Errorf("envelope = %+v", env)
	}
	data, _ := json.Marshal(env.Data)
	if string(data) != `{"title":"Pillars of Creation"}` {
		t.Errorf("data = %s", data)
	}
	if env.Timestamp != "2024-03-30T22:15:00.000Z" {
		t.Errorf("timestamp = %s", env.Timestamp)
	}
	if env.RequestID != "req-1" || rec.Header().Get("X-Request-ID") != "req-1" {
		t.Errorf("request id = %s / %s", env.RequestID, rec.Header().Get("X-Request-ID"))
	}
	if q, _ := e.hit("/planetary/apod"); !strings.Contains(q, "api_key=test-key") || !strings.Contains(q, "date=2024-01-01") {
		t.Errorf("upstream query = %s", q)
	}
}

func TestOperation_Routes(t *testing.T) {
	e := setupRouter(t, jsonUpstream(`{"ok":true}`))

	tests := []struct {
		target       string
		upstreamPath string
	}{
		{"/rover-photos?rover=curiosity", "/mars-photos/api/v1/rovers/curiosity/photos"},
		{"/api/rover-photos?rover=spirit", "/mars-photos/api/v1/rovers/spirit/photos"},
		{"/api/mars-photos?rover=opportunity", "/mars-photos/api/v1/rovers/opportunity/photos"},
		{"/api/apod", "/planetary/apod"},
		{"/api/neo", "/neo/rest/v1/feed"},
		{"/api/epic?type=enhanced", "/EPIC/api/enhanced"},
		{"/earth-imaging", "/EPIC/api/natural"},
		{"/near-earth-objects", "/neo/rest/v1/feed"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec, env := e.get(t, tt.target)
			if rec.Code != http.StatusOK || !env.Success {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
			if _, ok := e.hit(tt.upstreamPath); !ok {
				t.Errorf("upstream %s not called", tt.upstreamPath)
			}
		})
	}

	if q, _ := e.hit("/mars-photos/api/v1/rovers/curiosity/photos"); !strings.Contains(q, "sol=1000") {
		t.Errorf("default sol missing: %s", q)
	}
	if q, _ := e.hit("/neo/rest/v1/feed"); !strings.Contains(q, "start_date=2024-03-30") || !strings.Contains(q, "end_date=2024-04-06") {
		t.Errorf("default NEO window missing: %s", q)
	}
}

func TestOperation_ValidationError(t *testing.T) {
	e := setupRouter(t, jsonUpstream(`{}`))

	rec, env := e.get(t, "/near-earth-objects?start_date=2024-01-01&end_date=2024-01-10")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Success || env.Error == nil {
		t.Fatalf("envelope = %+v", env)
	}
	if env.Error.Code != "VALIDATION_ERROR" || env.Error.Status != 400 {
		t.Errorf("error = %+v", env.Error)
	}
	if env.Error.Message != "Date range cannot exceed 7 days" {
		t.Errorf("message = %q", env.Error.Message)
	}
	if e.hitCount() != 0 {
		t.Error("upstream must not be called")
	}
	if got := testutil.ToFloat64(e.metrics.ValidationFailures.WithLabelValues("near-earth-objects", "max_range")); got != 1 {
		t.Errorf("validation failure metric = %v, want 1", got)
	}
}

func TestOperation_UpstreamStatus(t *testing.T) {
	e := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"msg":"No data available for date"}`))
	})

	rec, env := e.get(t, "/earth-imaging?date=1990-01-01")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if env.Error.Code != "UPSTREAM_ERROR" {
		t.Errorf("code = %s", env.Error.Code)
	}
	if env.Error.Details["upstreamStatus"] != float64(404) {
		t.Errorf("details = %v", env.Error.Details)
	}
	if strings.Contains(env.Error.Message, "No data") {
		t.Errorf("message leaks upstream body: %q", env.Error.Message)
	}
}

func TestOperation_UpstreamDown(t *testing.T) {
	e := setupRouter(t, jsonUpstream(`{}`))
	e.upstream.Close()

	rec, env := e.get(t, "/picture-of-day")

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if env.Error.Code != "UPSTREAM_ERROR" || env.Error.Details["reason"] != "unreachable" {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestHealth_AlwaysSucceeds(t *testing.T) {
	e := setupRouter(t, jsonUpstream(`{}`))
	e.upstream.Close()

	for _, target := range []string{"/health", "/api/health"} {
		rec, env := e.get(t, target)
		if rec.Code != http.StatusOK || !env.Success {
			t.Errorf("%s: status = %d, success = %v", target, rec.Code, env.Success)
		}
		data := env.Data.(map[string]any)
		if data["status"] != "NASA Space Explorer API is running!" || data["apiKey"] != "Custom key configured" {
			t.Errorf("%s: data = %v", target, data)
		}
	}

	rec, env := e.get(t, "/health/ready")
	if rec.Code != http.StatusServiceUnavailable || env.Success {
		t.Errorf("ready with upstream down: status = %d", rec.Code)
	}
}

func TestHealth_Ready(t *testing.T) {
	e := setupRouter(t, jsonUpstream(`{}`))

	rec, env := e.get(t, "/health/ready")
	if rec.Code != http.StatusOK || !env.Success {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestRequestID(t *testing.T) {
	e := setupRouter(t, jsonUpstream(`{}`))

	rec, env := e.get(t, "/health", "X-Request-ID", "client-abc")
	if env.RequestID != "client-abc" || rec.Header().Get("X-Request-ID") != "client-abc" {
		t.Errorf("supplied id not echoed: %s", env.RequestID)
	}

	_, env = e.get(t, "/health", "X-Request-ID", "bad id with spaces")
	if env.RequestID != "req-1" {
		t.Errorf("unusable id should be replaced, got %s", env.RequestID)
	}

	e.get(t, "/picture-of-day", "X-Request-ID", "trace-9")
	if e.hitCount() != 1 {
		t.Fatalf("upstream hits = %d", e.hitCount())
	}
}

func TestNotFound(t *testing.T) {
	e := setupRouter(t, jsonUpstream(`{}`))

	rec, env := e.get(t, "/api/nope?x=1")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if env.Error.Message != "Route /api/nope?x=1 not found" || env.Error.Code != "" {
		t.Errorf("error = %+v", env.Error)
	}
	if env.RequestID == "" {
		t.Error("requestId missing")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	e := setupRouter(t, jsonUpstream(`{}`))

	req := httptest.NewRequest(http.MethodPost, "/picture-of-day", nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	var env envelope.Envelope
	json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Success || env.Error.Status != 405 {
		t.Errorf("envelope = %s", rec.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	e := setupRouter(t, jsonUpstream(`{}`), withRateLimit(2))

	for i := 0; i < 2; i++ {
		rec, _ := e.get(t, "/api/apod")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, rec.Code)
		}
		if rec.Header().Get(apihttp.HeaderRateLimitLimit) != "2" {
			t.Errorf("RateLimit-Limit = %s", rec.Header().Get(apihttp.HeaderRateLimitLimit))
		}
	}

	rec, env := e.get(t, "/api/apod")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if env.Error.Code != "RATE_LIMIT_ERROR" || env.Error.Message != "Too many requests from this IP, please try again later" {
		t.Errorf("error = %+v", env.Error)
	}
	if rec.Header().Get(apihttp.HeaderRateLimitRemaining) != "0" {
		t.Errorf("RateLimit-Remaining = %s", rec.Header().Get(apihttp.HeaderRateLimitRemaining))
	}
	// 22:15 aligned to a 15 minute window resets at 22:30.
	if rec.Header().Get(apihttp.HeaderRateLimitReset) != "900" || rec.Header().Get("Retry-After") != "900" {
		t.Errorf("reset = %s, retry-after = %s", rec.Header().Get(apihttp.HeaderRateLimitReset), rec.Header().Get("Retry-After"))
	}
	if testutil.ToFloat64(e.metrics.RateLimitHits) != 1 {
		t.Error("rate limit hit not counted")
	}

	// Health stays reachable.
	if rec, _ := e.get(t, "/health"); rec.Code != http.StatusOK {
		t.Errorf("/health limited: %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	e := setupRouter(t, jsonUpstream(`{}`), withCORS("http://localhost:3000"))

	rec, _ := e.get(t, "/health", "Origin", "http://localhost:3000")
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("allowed origin not echoed: %v", rec.Header())
	}

	rec, _ = e.get(t, "/health", "Origin", "http://evil.example")
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("foreign origin must not be allowed")
	}
}

func TestIndexAndVersion(t *testing.T) {
	e := setupRouter(t, jsonUpstream(`{}`))

	rec, env := e.get(t, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := env.Data.(map[string]any)
	if data["message"] != apihttp.ServiceName || len(data["endpoints"].([]any)) != 5 {
		t.Errorf("index = %v", data)
	}

	_, env = e.get(t, "/version")
	if env.Data.(map[string]any)["version"] != apihttp.BuildVersion {
		t.Errorf("version = %v", env.Data)
	}
}

func TestSecurityHeaders(t *testing.T) {
	e := setupRouter(t, jsonUpstream(`{}`))

	rec, _ := e.get(t, "/health")
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	mw := apihttp.NewRecoveryMiddleware(clock.NewFake(baseTime), zerolog.Nop())
	handler := apihttp.NewRequestIDMiddleware(idgen.NewSequential("p-"))(mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("secret failure detail")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret") {
		t.Errorf("panic detail leaked: %s", rec.Body.String())
	}
	var env envelope.Envelope
	json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Error.Code != "INTERNAL_ERROR" || env.Error.Message != "Internal server error" || env.Error.Details != nil {
		t.Errorf("error = %+v", env.Error)
	}
	if env.RequestID != "p-1" {
		t.Errorf("requestId = %s", env.RequestID)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	e := setupRouter(t, jsonUpstream(`{}`))

	e.get(t, "/api/apod")
	e.get(t, "/api/apod?count=0")

	if got := testutil.ToFloat64(e.metrics.RequestsTotal.WithLabelValues("/api/apod", "2xx")); got != 1 {
		t.Errorf("2xx = %v, want 1", got)
	}
	if got := testutil.ToFloat64(e.metrics.RequestsTotal.WithLabelValues("/api/apod", "4xx")); got != 1 {
		t.Errorf("4xx = %v, want 1", got)
	}
}
