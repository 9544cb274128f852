package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/artpar/spacegate/domain/proxy"
	"github.com/artpar/spacegate/ports"
)

// MaxUpstreamBody bounds how much of an upstream body is read.
const MaxUpstreamBody = 10 << 20

// DefaultUserAgent identifies the gateway to the upstream.
const DefaultUserAgent = "NASA-Space-Explorer/1.0.0"

// UpstreamClient issues GET calls to the upstream API.
type UpstreamClient struct {
	client    *http.Client
	baseURL   *url.URL
	userAgent string
}

// UpstreamConfig contains configuration for the upstream client.
type UpstreamConfig struct {
	BaseURL         string
	Timeout         time.Duration
	UserAgent       string
	MaxIdleConns    int
	IdleConnTimeout time.Duration
}

// NewUpstreamClient creates a new upstream HTTP client.
func NewUpstreamClient(cfg UpstreamConfig) (*UpstreamClient, error) {
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q: scheme must be http or https", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	maxIdleConns := cfg.MaxIdleConns
	if maxIdleConns == 0 {
		maxIdleConns = 100
	}

	idleConnTimeout := cfg.IdleConnTimeout
	if idleConnTimeout == 0 {
		idleConnTimeout = 90 * time.Second
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConns,
		IdleConnTimeout:     idleConnTimeout,
	}

	return &UpstreamClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		baseURL:   baseURL,
		userAgent: userAgent,
	}, nil
}

// Get sends call to the upstream. Any status the upstream answers with is
// returned as a Response; only transport failures are errors.
func (u *UpstreamClient) Get(ctx context.Context, call proxy.Call) (proxy.Response, error) {
	start := time.Now()

	target := u.baseURL.JoinPath(call.Path)
	target.RawQuery = call.Query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return proxy.Response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", u.userAgent)
	req.Header.Set("Accept", "application/json")
	if call.TraceID != "" {
		req.Header.Set("X-Request-ID", call.TraceID)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return proxy.Response{}, fmt.Errorf("execute request: %w", classify(ctx, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxUpstreamBody+1))
	if err != nil {
		return proxy.Response{}, fmt.Errorf("read response: %w", classify(ctx, err))
	}
	if len(body) > MaxUpstreamBody {
		return proxy.Response{}, fmt.Errorf("body exceeds %d bytes: %w", MaxUpstreamBody, proxy.ErrMalformed)
	}

	return proxy.Response{
		Status:       resp.StatusCode,
		Body:         body,
		LatencyMs:    time.Since(start).Milliseconds(),
		UpstreamAddr: u.baseURL.Host,
	}, nil
}

// classify wraps a transport error with the matching proxy sentinel.
func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(proxy.ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Join(proxy.ErrTimeout, err)
	}
	return errors.Join(proxy.ErrUnreachable, err)
}

// HealthCheck verifies the upstream is reachable.
func (u *UpstreamClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.baseURL.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", u.userAgent)

	resp, err := u.client.Do(req)
	if err != nil {
		return classify(ctx, err)
	}
	resp.Body.Close()

	// Any response (even 404) means upstream is reachable
	return nil
}

// Host returns the upstream host for logs and the service index.
func (u *UpstreamClient) Host() string {
	return strings.TrimSuffix(u.baseURL.Host, ":443")
}

// Close closes the upstream client.
func (u *UpstreamClient) Close() error {
	u.client.CloseIdleConnections()
	return nil
}

// Ensure interface compliance.
var _ ports.Upstream = (*UpstreamClient)(nil)
