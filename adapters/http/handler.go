// Package http provides the HTTP surface of the gateway.
package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/artpar/spacegate/adapters/metrics"
	"github.com/artpar/spacegate/app"
	_ "github.com/artpar/spacegate/docs/swagger" // swagger docs
	"github.com/artpar/spacegate/domain/proxy"
	"github.com/artpar/spacegate/domain/query"
	"github.com/artpar/spacegate/pkg/envelope"
	"github.com/artpar/spacegate/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Version information, set by the cmd package at startup.
var (
	BuildVersion = "dev"
	BuildCommit  = "unknown"
)

// ServiceName is reported by the index and version endpoints.
const ServiceName = "NASA Space Explorer API"

// VersionResponse represents the version endpoint payload.
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
	Commit  string `json:"commit" example:"a1b2c3d"`
	Service string `json:"service" example:"NASA Space Explorer API"`
}

// HealthResponse represents the liveness payload.
type HealthResponse struct {
	Status    string `json:"status" example:"NASA Space Explorer API is running!"`
	Timestamp string `json:"timestamp" example:"2024-03-30T22:15:00.000Z"`
	APIKey    string `json:"apiKey" example:"Using DEMO_KEY"`
}

// IndexResponse represents the service index payload.
type IndexResponse struct {
	Message       string   `json:"message" example:"NASA Space Explorer API"`
	Version       string   `json:"version" example:"1.0.0"`
	Documentation string   `json:"documentation" example:"/swagger/index.html"`
	Endpoints     []string `json:"endpoints"`
}

// GatewayHandler serves the four upstream operations.
type GatewayHandler struct {
	service *app.GatewayService
	clock   ports.Clock
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// NewGatewayHandler creates a handler. m may be nil.
func NewGatewayHandler(service *app.GatewayService, clk ports.Clock, logger zerolog.Logger, m *metrics.Collector) *GatewayHandler {
	return &GatewayHandler{
		service: service,
		clock:   clk,
		logger:  logger,
		metrics: m,
	}
}

// Operation returns the handler for one registered endpoint.
//
//	@Summary		Query an upstream operation
//	@Description	Validates the query, fills defaults and relays the call upstream
//	@Tags			Space
//	@Produce		json
//	@Success		200	{object}	envelope.Envelope
//	@Failure		400	{object}	envelope.Envelope	"VALIDATION_ERROR"
//	@Failure		429	{object}	envelope.Envelope	"RATE_LIMIT_ERROR"
//	@Failure		502	{object}	envelope.Envelope	"UPSTREAM_ERROR"
//	@Router			/picture-of-day [get]
//	@Router			/rover-photos [get]
//	@Router			/near-earth-objects [get]
//	@Router			/earth-imaging [get]
func (h *GatewayHandler) Operation(endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := app.Request{
			Endpoint:  endpoint,
			Query:     r.URL.Query(),
			RequestID: middleware.GetReqID(r.Context()),
		}

		result := h.service.Handle(r.Context(), req)
		h.observe(endpoint, result)

		if result.Error != nil {
			writeError(w, r, result.Error, h.clock.Now(), h.logger)
			return
		}
		write(w, r, envelope.Success(result.Payload, req.RequestID, h.clock.Now()), h.logger)
	}
}

func (h *GatewayHandler) observe(endpoint string, res app.Result) {
	if h.metrics == nil {
		return
	}
	if res.Error != nil && res.Error.Kind == proxy.KindValidation {
		rule, _ := res.Error.Details["rule"].(string)
		h.metrics.ValidationFailures.WithLabelValues(endpoint, rule).Inc()
		return
	}
	if res.Call.Path == "" {
		return
	}
	h.metrics.UpstreamDuration.
		WithLabelValues(endpoint, metrics.StatusClass(res.UpstreamStatus)).
		Observe(float64(res.LatencyMs) / 1000)
	if res.Error != nil {
		reason, _ := res.Error.Details["reason"].(string)
		if reason == "" {
			reason = "status"
		}
		h.metrics.UpstreamErrors.WithLabelValues(endpoint, reason).Inc()
	}
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	service *app.GatewayService
	clock   ports.Clock
	logger  zerolog.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(service *app.GatewayService, clk ports.Clock, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{service: service, clock: clk, logger: logger}
}

// Liveness reports that the process is serving. It never touches the upstream.
//
//	@Summary		Liveness check
//	@Description	Always succeeds while the service is running
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	envelope.Envelope{data=HealthResponse}
//	@Router			/health [get]
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	now := h.clock.Now()
	apiKey := "Custom key configured"
	if h.service.UsingDefaultCredential() {
		apiKey = "Using DEMO_KEY"
	}
	write(w, r, envelope.Success(HealthResponse{
		Status:    ServiceName + " is running!",
		Timestamp: envelope.Timestamp(now),
		APIKey:    apiKey,
	}, middleware.GetReqID(r.Context()), now), h.logger)
}

// Readiness checks that the upstream answers.
//
//	@Summary		Readiness check
//	@Description	Probes the upstream with a HEAD request
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	envelope.Envelope
//	@Failure		503	{object}	envelope.Envelope
//	@Router			/health/ready [get]
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	reqID := middleware.GetReqID(r.Context())
	if err := h.service.Ready(ctx); err != nil {
		h.logger.Warn().Err(err).Str("request_id", reqID).Msg("readiness check failed")
		write(w, r, envelope.Failure(envelope.Error{
			Message: proxy.MessageUnreachable,
			Status:  http.StatusServiceUnavailable,
			Code:    string(proxy.KindUpstream),
		}, reqID, h.clock.Now()), h.logger)
		return
	}
	write(w, r, envelope.Success(map[string]string{"status": "ready"}, reqID, h.clock.Now()), h.logger)
}

// Index lists the public operations.
//
//	@Summary		Service index
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	envelope.Envelope{data=IndexResponse}
//	@Router			/ [get]
func Index(clk ports.Clock, logger zerolog.Logger) http.HandlerFunc {
	endpoints := make([]string, 0, len(query.Endpoints())+1)
	for _, name := range query.Endpoints() {
		s, _ := query.Lookup(name)
		endpoints = append(endpoints, "GET /api/"+name+" - "+s.Summary)
	}
	endpoints = append(endpoints, "GET /api/health - Health Check")

	return func(w http.ResponseWriter, r *http.Request) {
		write(w, r, envelope.Success(IndexResponse{
			Message:       ServiceName,
			Version:       BuildVersion,
			Documentation: "/swagger/index.html",
			Endpoints:     endpoints,
		}, middleware.GetReqID(r.Context()), clk.Now()), logger)
	}
}

// Version returns the service version.
//
//	@Summary		Get service version
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	envelope.Envelope{data=VersionResponse}
//	@Router			/version [get]
func Version(clk ports.Clock, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		write(w, r, envelope.Success(VersionResponse{
			Version: BuildVersion,
			Commit:  BuildCommit,
			Service: ServiceName,
		}, middleware.GetReqID(r.Context()), clk.Now()), logger)
	}
}

// Aliases maps the legacy short paths under /api to endpoints.
var Aliases = map[string]string{
	"apod":        query.EndpointPictureOfDay,
	"mars-photos": query.EndpointRoverPhotos,
	"neo":         query.EndpointNearEarthObjects,
	"epic":        query.EndpointEarthImaging,
}

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Metrics        *metrics.Collector
	MetricsHandler http.Handler // Optional exporter handler; defaults to promhttp
	MetricsPath    string       // Defaults to /metrics
	EnableOpenAPI  bool
	CORSOrigins    []string // Allowed origins; empty disables CORS headers
	TrustProxy     bool     // Take the client address from X-Forwarded-For / X-Real-IP
	IDGen          ports.IDGenerator
	Clock          ports.Clock
}

// NewRouter creates the main HTTP router.
func NewRouter(gateway *GatewayHandler, health *HealthHandler, service *app.GatewayService, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	// Middleware
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(NewRequestIDMiddleware(cfg.IDGen))
	r.Use(NewLoggingMiddleware(logger))
	r.Use(NewRecoveryMiddleware(cfg.Clock, logger))
	r.Use(middleware.SetHeader("X-Content-Type-Options", "nosniff"))
	r.Use(middleware.SetHeader("X-Frame-Options", "DENY"))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization", envelope.RequestIDHeader},
			ExposedHeaders:   []string{envelope.RequestIDHeader, HeaderRateLimitLimit, HeaderRateLimitRemaining, HeaderRateLimitReset},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(middleware.GetHead)
	r.Use(middleware.Compress(5, "application/json"))

	// Metrics middleware (if enabled)
	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics))
	}

	r.NotFound(NotFound(cfg.Clock, logger))
	r.MethodNotAllowed(MethodNotAllowed(cfg.Clock, logger))

	// Health endpoints (never rate limited)
	r.Get("/health", health.Liveness)
	r.Get("/api/health", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Get("/", Index(cfg.Clock, logger))
	r.Get("/version", Version(cfg.Clock, logger))

	// Metrics endpoint (prefer custom exporter handler, fall back to promhttp)
	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	if cfg.MetricsHandler != nil {
		r.Handle(metricsPath, cfg.MetricsHandler)
	} else if cfg.Metrics != nil {
		r.Handle(metricsPath, promhttp.Handler())
	}

	// Swagger UI backed by the registered doc
	if cfg.EnableOpenAPI {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// Upstream operations
	r.Group(func(r chi.Router) {
		r.Use(NewRateLimitMiddleware(service, cfg.Clock, cfg.Metrics, logger))

		for _, name := range query.Endpoints() {
			h := gateway.Operation(name)
			r.Get("/"+name, h)
			r.Get("/api/"+name, h)
		}
		for alias, name := range Aliases {
			r.Get("/api/"+alias, gateway.Operation(name))
		}
	})

	return r
}

// NotFound writes a 404 envelope naming the requested route.
func NotFound(clk ports.Clock, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		write(w, r, envelope.Failure(envelope.Error{
			Message: "Route " + r.URL.RequestURI() + " not found",
			Status:  http.StatusNotFound,
		}, middleware.GetReqID(r.Context()), clk.Now()), logger)
	}
}

// MethodNotAllowed writes a 405 envelope.
func MethodNotAllowed(clk ports.Clock, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", strings.Join([]string{http.MethodGet, http.MethodHead}, ", "))
		write(w, r, envelope.Failure(envelope.Error{
			Message: "Method " + r.Method + " not allowed on " + r.URL.Path,
			Status:  http.StatusMethodNotAllowed,
		}, middleware.GetReqID(r.Context()), clk.Now()), logger)
	}
}

// write sends env, logging encoding failures.
func write(w http.ResponseWriter, r *http.Request, env envelope.Envelope, logger zerolog.Logger) {
	if err := envelope.Write(w, env); err != nil {
		logger.Error().Err(err).
			Str("path", r.URL.Path).
			Str("request_id", env.RequestID).
			Msg("failed to write response")
	}
}

// writeError converts a taxonomy error into its envelope. Internal details
// are logged and never sent.
func writeError(w http.ResponseWriter, r *http.Request, perr *proxy.Error, now time.Time, logger zerolog.Logger) {
	reqID := middleware.GetReqID(r.Context())
	body := envelope.Error{
		Message: perr.Message,
		Status:  perr.Status,
		Code:    string(perr.Kind),
	}
	if perr.Public() {
		body.Details = perr.Details
	} else {
		logger.Error().Err(perr).
			Interface("details", perr.Details).
			Str("path", r.URL.Path).
			Str("request_id", reqID).
			Msg("internal error")
	}
	write(w, r, envelope.Failure(body, reqID, now), logger)
}
