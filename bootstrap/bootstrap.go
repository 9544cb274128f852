// Package bootstrap wires all dependencies and starts the application.
// Configuration comes from a YAML file with environment overrides, or from
// the environment alone.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/artpar/spacegate/adapters/clock"
	apihttp "github.com/artpar/spacegate/adapters/http"
	"github.com/artpar/spacegate/adapters/idgen"
	"github.com/artpar/spacegate/adapters/memory"
	"github.com/artpar/spacegate/adapters/metrics"
	"github.com/artpar/spacegate/app"
	"github.com/artpar/spacegate/config"
	"github.com/artpar/spacegate/domain/ratelimit"
	"github.com/artpar/spacegate/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	HTTPServer *http.Server
	Metrics    *metrics.Collector
	Registry   *prometheus.Registry
	Gateway    *app.GatewayService

	// Adapters (for cleanup)
	holder    *config.Holder
	upstream  *apihttp.UpstreamClient
	limits    *memory.RateLimitStore
	logCloser io.Closer

	shutdownOnce sync.Once
	shutdownErr  error
}

// Options overrides infrastructure adapters. Zero values select the real ones.
type Options struct {
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Output io.Writer // Log destination, defaults to os.Stdout
}

// New creates the application from a loaded configuration.
func New(cfg *config.Config) (*App, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithHotReload loads path, builds the application and applies
// rate limit and log level changes whenever the file changes or SIGHUP arrives.
func NewWithHotReload(path string) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	a, err := NewWithOptions(cfg, Options{})
	if err != nil {
		return nil, err
	}

	holder, err := config.NewHolder(path, a.Logger)
	if err != nil {
		a.Shutdown()
		return nil, err
	}
	a.WatchConfig(holder)

	if err := holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("file watcher unavailable, SIGHUP reload only")
	}
	holder.WatchSignals()

	return a, nil
}

// NewWithOptions creates the application with custom adapters.
func NewWithOptions(cfg *config.Config, opts Options) (*App, error) {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.IDGen == nil {
		opts.IDGen = idgen.UUID{}
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	logger, closer := newLogger(cfg.Logging, opts.Output)
	a := &App{
		Logger:    logger,
		Config:    cfg,
		logCloser: closer,
	}

	logger.Info().
		Str("version", apihttp.BuildVersion).
		Str("upstream", cfg.Upstream.URL).
		Msg("initializing spacegate")

	upstream, err := apihttp.NewUpstreamClient(apihttp.UpstreamConfig{
		BaseURL:         cfg.Upstream.URL,
		Timeout:         cfg.Upstream.Timeout,
		UserAgent:       cfg.Upstream.UserAgent,
		MaxIdleConns:    cfg.Upstream.MaxIdleConns,
		IdleConnTimeout: cfg.Upstream.IdleConnTimeout,
	})
	if err != nil {
		a.closeLog()
		return nil, fmt.Errorf("init upstream: %w", err)
	}
	a.upstream = upstream
	a.limits = memory.NewRateLimitStore(memory.RateLimitConfig{})

	a.Gateway = app.NewGatewayService(app.GatewayDeps{
		Upstream:  upstream,
		RateLimit: a.limits,
		Clock:     opts.Clock,
		Logger:    logger,
	}, app.GatewayConfig{
		Credential: cfg.Upstream.APIKey,
		Timeout:    cfg.Upstream.Timeout,
		RateLimit:  RateLimitFrom(cfg.RateLimit),
	})
	if a.Gateway.UsingDefaultCredential() {
		logger.Warn().Msg("using DEMO_KEY, upstream quotas are shared and low")
	}

	routerCfg := apihttp.RouterConfig{
		EnableOpenAPI: cfg.OpenAPI.Enabled,
		CORSOrigins:   cfg.CORS.Origins,
		TrustProxy:    cfg.Server.TrustProxy,
		IDGen:         opts.IDGen,
		Clock:         opts.Clock,
	}
	if cfg.Metrics.Enabled {
		a.Registry = prometheus.NewRegistry()
		a.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.NewWithRegistry(a.Registry)
		routerCfg.Metrics = a.Metrics
		routerCfg.MetricsPath = cfg.Metrics.Path
		routerCfg.MetricsHandler = promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		})
		logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	router := apihttp.NewRouter(
		apihttp.NewGatewayHandler(a.Gateway, opts.Clock, logger, a.Metrics),
		apihttp.NewHealthHandler(a.Gateway, opts.Clock, logger),
		a.Gateway,
		logger,
		routerCfg,
	)

	a.HTTPServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	return a, nil
}

// RateLimitFrom converts file configuration to the limiter's configuration.
// A disabled limiter maps to the zero Config.
func RateLimitFrom(cfg config.RateLimitConfig) ratelimit.Config {
	if !cfg.IsEnabled() {
		return ratelimit.Config{}
	}
	return ratelimit.Config{Limit: cfg.MaxRequests, Window: cfg.Window}
}

// WatchConfig subscribes the application to holder's reloads.
func (a *App) WatchConfig(holder *config.Holder) {
	a.holder = holder
	holder.OnChange(a.applyConfig)
	holder.OnError(func(err error) {
		if a.Metrics != nil {
			a.Metrics.ConfigReloadErrors.Inc()
		}
	})
}

// applyConfig pushes the reloadable fields of cfg into running components.
func (a *App) applyConfig(cfg *config.Config) {
	a.Gateway.UpdateConfig(RateLimitFrom(cfg.RateLimit))

	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	if a.Metrics != nil {
		a.Metrics.ConfigReloads.Inc()
		a.Metrics.ConfigLastReload.SetToCurrentTime()
	}

	a.Logger.Info().
		Int("rate_limit", cfg.RateLimit.MaxRequests).
		Dur("window", cfg.RateLimit.Window).
		Str("log_level", cfg.Logging.Level).
		Msg("configuration applied")
}

// Run listens on the configured address and blocks until ctx is done,
// SIGINT/SIGTERM arrives or the server fails.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.HTTPServer.Addr)
	if err != nil {
		a.Shutdown()
		return fmt.Errorf("listen %s: %w", a.HTTPServer.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the HTTP server on ln until ctx is done or a signal arrives,
// then shuts everything down.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info().
			Str("addr", ln.Addr().String()).
			Msg("starting http server")
		if err := a.HTTPServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info().Msg("shutting down")
		return a.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully stops the application. It is safe to call more than once.
func (a *App) Shutdown() error {
	a.shutdownOnce.Do(func() {
		timeout := a.Config.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if a.holder != nil {
			a.holder.Stop()
		}

		if a.HTTPServer != nil {
			if err := a.HTTPServer.Shutdown(ctx); err != nil {
				a.Logger.Error().Err(err).Msg("http server shutdown error")
				a.shutdownErr = fmt.Errorf("http shutdown: %w", err)
			}
		}

		if a.limits != nil {
			a.limits.Close()
		}
		if a.upstream != nil {
			a.upstream.Close()
		}

		a.Logger.Info().Msg("shutdown complete")
		a.closeLog()
	})
	return a.shutdownErr
}

func (a *App) closeLog() {
	if a.logCloser != nil {
		a.logCloser.Close()
	}
}

// NewLogger builds the process logger from cfg, writing to stdout and,
// when cfg.File is set, to a rotating file. The returned closer flushes the
// file sink and may be nil.
func NewLogger(cfg config.LoggingConfig) (zerolog.Logger, io.Closer) {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg config.LoggingConfig, out io.Writer) (zerolog.Logger, io.Closer) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	var closer io.Closer
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(out, file)
		closer = file
	}

	return zerolog.New(out).With().Timestamp().Logger(), closer
}
