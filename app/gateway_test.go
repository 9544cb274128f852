package app_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/artpar/spacegate/adapters/clock"
	apihttp "github.com/artpar/spacegate/adapters/http"
	"github.com/artpar/spacegate/adapters/memory"
	"github.com/artpar/spacegate/app"
	"github.com/artpar/spacegate/domain/proxy"
	"github.com/artpar/spacegate/domain/query"
	"github.com/artpar/spacegate/domain/ratelimit"
	"github.com/rs/zerolog"
)

var baseTime = time.Date(2024, 3, 30, 22, 15, 0, 0, time.UTC)

// fakeUpstream records calls and answers with a canned response.
type fakeUpstream struct {
	mu     sync.Mutex
	calls  []proxy.Call
	resp   proxy.Response
	err    error
	health error
}

func (f *fakeUpstream) Get(ctx context.Context, call proxy.Call) (proxy.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.resp, f.err
}

func (f *fakeUpstream) HealthCheck(ctx context.Context) error { return f.health }

func (f *fakeUpstream) lastCall(t *testing.T) proxy.Call {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("upstream was not called")
	}
	return f.calls[len(f.calls)-1]
}

// failingStore always errors.
type failingStore struct{}

func (failingStore) Take(context.Context, string, ratelimit.Config, time.Time) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, errors.New("store down")
}

func newService(t *testing.T, up *fakeUpstream, rl ratelimit.Config) *app.GatewayService {
	t.Helper()
	store := memory.NewRateLimitStore(memory.RateLimitConfig{})
	t.Cleanup(func() { store.Close() })

	return app.NewGatewayService(app.GatewayDeps{
		Upstream:  up,
		RateLimit: store,
		Clock:     clock.NewFake(baseTime),
		Logger:    zerolog.Nop(),
	}, app.GatewayConfig{
		Credential: "secret",
		RateLimit:  rl,
	})
}

func okUpstream(body string) *fakeUpstream {
	return &fakeUpstream{resp: proxy.Response{Status: 200, Body: []byte(body), LatencyMs: 12}}
}

func request(endpoint, raw string) app.Request {
	q, _ := url.ParseQuery(raw)
	return app.Request{Endpoint: endpoint, Query: q, RequestID: "req-1"}
}

func TestHandle_Success(t *testing.T) {
	up := okUpstream(`{"title":"Pillars"}`)
	svc := newService(t, up, ratelimit.Config{})

	res := svc.Handle(context.Background(), request(query.EndpointPictureOfDay, "date=2024-01-01"))

	if res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	if string(res.Payload) != `{"title":"Pillars"}` {
		t.Errorf("Payload = %s", res.Payload)
	}
	if res.UpstreamStatus != 200 || res.LatencyMs != 12 {
		t.Errorf("metadata = %d/%d", res.UpstreamStatus, res.LatencyMs)
	}

	call := up.lastCall(t)
	if call.Path != "/planetary/apod" || call.Query.Get("date") != "2024-01-01" {
		t.Errorf("call = %+v", call)
	}
	if call.Query.Get(proxy.CredentialParam) != "secret" || call.TraceID != "req-1" {
		t.Errorf("credential/trace = %s/%s", call.Query.Get(proxy.CredentialParam), call.TraceID)
	}
}

func TestHandle_ValidationNeverCallsUpstream(t *testing.T) {
	tests := []struct {
		endpoint string
		raw      string
		message  string
	}{
		{query.EndpointPictureOfDay, "count=101", `"count" must be less than or equal to 100`},
		{query.EndpointPictureOfDay, "date=2024-01-01&count=5", "Cannot use count parameter with date parameters"},
		{query.EndpointRoverPhotos, "rover=bogus", `"rover" must be one of [curiosity, opportunity, spirit, perseverance]`},
		{query.EndpointRoverPhotos, "rover=curiosity&sol=-1", `"sol" must be greater than or equal to 0`},
		{query.EndpointRoverPhotos, "rover=curiosity&sol=10&earth_date=2020-01-01", "Cannot use both sol and earth_date parameters"},
		{query.EndpointNearEarthObjects, "start_date=2024-01-01&end_date=2024-01-10", "Date range cannot exceed 7 days"},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint+"?"+tt.raw, func(t *testing.T) {
			up := okUpstream(`{}`)
			svc := newService(t, up, ratelimit.Config{})

			res := svc.Handle(context.Background(), request(tt.endpoint, tt.raw))

			if res.Error == nil {
				t.Fatal("expected validation error")
			}
			if res.Error.Kind != proxy.KindValidation || res.Error.Status != 400 {
				t.Errorf("got %s/%d", res.Error.Kind, res.Error.Status)
			}
			if res.Error.Message != tt.message {
				t.Errorf("Message = %q, want %q", res.Error.Message, tt.message)
			}
			if len(up.calls) != 0 {
				t.Error("upstream must not be called for invalid input")
			}
		})
	}
}

func TestHandle_DefaultsReachUpstream(t *testing.T) {
	up := okUpstream(`{"photos":[]}`)
	svc := newService(t, up, ratelimit.Config{})

	svc.Handle(context.Background(), request(query.EndpointRoverPhotos, "rover=curiosity"))
	if got := up.lastCall(t).Query.Get("sol"); got != "1000" {
		t.Errorf("sol = %q, want 1000", got)
	}

	svc.Handle(context.Background(), request(query.EndpointNearEarthObjects, ""))
	call := up.lastCall(t)
	if call.Query.Get("start_date") != "2024-03-30" || call.Query.Get("end_date") != "2024-04-06" {
		t.Errorf("NEO window = %s..%s", call.Query.Get("start_date"), call.Query.Get("end_date"))
	}

	svc.Handle(context.Background(), request(query.EndpointEarthImaging, ""))
	if got := up.lastCall(t).Path; got != "/EPIC/api/natural" {
		t.Errorf("path = %s, want /EPIC/api/natural", got)
	}
}

func TestHandle_UpstreamStatusIsUpstreamError(t *testing.T) {
	for _, status := range []int{404, 500} {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			up := &fakeUpstream{resp: proxy.Response{Status: status, Body: []byte(`{"msg":"boom"}`)}}
			svc := newService(t, up, ratelimit.Config{})

			res := svc.Handle(context.Background(), request(query.EndpointEarthImaging, "type=natural"))

			if res.Error == nil || res.Error.Kind != proxy.KindUpstream {
				t.Fatalf("Error = %v, want UPSTREAM_ERROR", res.Error)
			}
			if res.Error.Status != status {
				t.Errorf("Status = %d, want %d", res.Error.Status, status)
			}
			if res.Error.Details["upstreamStatus"] != status {
				t.Errorf("details = %v", res.Error.Details)
			}
			if res.Payload != nil {
				t.Error("Payload must be empty on failure")
			}
		})
	}
}

func TestHandle_MalformedPayload(t *testing.T) {
	svc := newService(t, okUpstream(`<html>oops</html>`), ratelimit.Config{})

	res := svc.Handle(context.Background(), request(query.EndpointPictureOfDay, ""))

	if res.Error == nil || res.Error.Kind != proxy.KindUpstream || res.Error.Status != 502 {
		t.Fatalf("Error = %v, want UPSTREAM_ERROR/502", res.Error)
	}
	if res.Error.Details["reason"] != proxy.ReasonMalformed {
		t.Errorf("reason = %v", res.Error.Details["reason"])
	}
}

func TestHandle_TransportError(t *testing.T) {
	up := &fakeUpstream{err: fmt.Errorf("dial: %w", proxy.ErrUnreachable)}
	svc := newService(t, up, ratelimit.Config{})

	res := svc.Handle(context.Background(), request(query.EndpointPictureOfDay, ""))

	if res.Error == nil || res.Error.Status != 502 || res.Error.Message != proxy.MessageUnreachable {
		t.Fatalf("Error = %v", res.Error)
	}
}

func TestHandle_UnknownEndpoint(t *testing.T) {
	svc := newService(t, okUpstream(`{}`), ratelimit.Config{})

	res := svc.Handle(context.Background(), request("nope", ""))

	if res.Error == nil || res.Error.Kind != proxy.KindInternal {
		t.Fatalf("Error = %v, want INTERNAL_ERROR", res.Error)
	}
}

func TestHandle_TimeoutAgainstSlowUpstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	client, err := apihttp.NewUpstreamClient(apihttp.UpstreamConfig{BaseURL: server.URL, Timeout: time.Minute})
	if err != nil {
		t.Fatalf("NewUpstreamClient: %v", err)
	}
	defer client.Close()

	svc := app.NewGatewayService(app.GatewayDeps{
		Upstream:  client,
		RateLimit: failingStore{},
		Clock:     clock.NewFake(baseTime),
		Logger:    zerolog.Nop(),
	}, app.GatewayConfig{Timeout: 100 * time.Millisecond})

	start := time.Now()
	res := svc.Handle(context.Background(), request(query.EndpointPictureOfDay, ""))
	elapsed := time.Since(start)

	if res.Error == nil || res.Error.Kind != proxy.KindUpstream || res.Error.Status != 502 {
		t.Fatalf("Error = %v, want UPSTREAM_ERROR/502", res.Error)
	}
	if res.Error.Details["reason"] != proxy.ReasonTimeout {
		t.Errorf("reason = %v, want timeout", res.Error.Details["reason"])
	}
	if elapsed > 2*time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}
}

func TestHandle_IndependentCalls(t *testing.T) {
	up := okUpstream(`{}`)
	svc := newService(t, up, ratelimit.Config{})
	req := request(query.EndpointRoverPhotos, "rover=spirit&earth_date=2005-01-01")

	first := svc.Handle(context.Background(), req)
	second := svc.Handle(context.Background(), req)

	if len(up.calls) != 2 {
		t.Fatalf("upstream calls = %d, want 2 (no caching)", len(up.calls))
	}
	if first.Call.Path != second.Call.Path || first.Call.Query.Encode() != second.Call.Query.Encode() {
		t.Errorf("calls differ: %+v vs %+v", first.Call, second.Call)
	}
	first.Call.Query.Set("earth_date", "1999-01-01")
	if second.Call.Query.Get("earth_date") != "2005-01-01" {
		t.Error("calls must not share state")
	}
}

func TestAdmit(t *testing.T) {
	svc := newService(t, okUpstream(`{}`), ratelimit.Config{Limit: 2, Window: 15 * time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, rerr := svc.Admit(ctx, "203.0.113.7")
		if rerr != nil || !d.Allowed {
			t.Fatalf("request %d should be admitted: %v", i+1, rerr)
		}
	}

	d, rerr := svc.Admit(ctx, "203.0.113.7")
	if rerr == nil {
		t.Fatal("third request should be rejected")
	}
	if rerr.Kind != proxy.KindRateLimit || rerr.Status != 429 || rerr.Message != proxy.MessageRateLimited {
		t.Errorf("error = %s/%d/%q", rerr.Kind, rerr.Status, rerr.Message)
	}
	if d.Remaining != 0 || d.Limit != 2 {
		t.Errorf("decision = %+v", d)
	}

	if _, rerr := svc.Admit(ctx, "198.51.100.1"); rerr != nil {
		t.Error("another client must not be limited")
	}
}

func TestAdmit_Disabled(t *testing.T) {
	svc := newService(t, okUpstream(`{}`), ratelimit.Config{})

	for i := 0; i < 500; i++ {
		if _, rerr := svc.Admit(context.Background(), "x"); rerr != nil {
			t.Fatalf("disabled limiter rejected request %d", i)
		}
	}
}

func TestAdmit_UpdateConfig(t *testing.T) {
	svc := newService(t, okUpstream(`{}`), ratelimit.Config{Limit: 1, Window: time.Minute})
	ctx := context.Background()

	svc.Admit(ctx, "c")
	if _, rerr := svc.Admit(ctx, "c"); rerr == nil {
		t.Fatal("limit of 1 should reject the second request")
	}

	svc.UpdateConfig(ratelimit.Config{Limit: 5, Window: time.Minute})
	if svc.RateLimit().Limit != 5 {
		t.Errorf("RateLimit().Limit = %d, want 5", svc.RateLimit().Limit)
	}
	if _, rerr := svc.Admit(ctx, "c"); rerr != nil {
		t.Error("raised limit should admit again")
	}
}

func TestAdmit_StoreFailureAdmits(t *testing.T) {
	svc := app.NewGatewayService(app.GatewayDeps{
		Upstream:  okUpstream(`{}`),
		RateLimit: failingStore{},
		Clock:     clock.NewFake(baseTime),
		Logger:    zerolog.Nop(),
	}, app.GatewayConfig{RateLimit: ratelimit.Config{Limit: 1, Window: time.Minute}})

	if _, rerr := svc.Admit(context.Background(), "c"); rerr != nil {
		t.Errorf("store failure should admit, got %v", rerr)
	}
}

func TestReady(t *testing.T) {
	up := okUpstream(`{}`)
	svc := newService(t, up, ratelimit.Config{})
	if err := svc.Ready(context.Background()); err != nil {
		t.Errorf("Ready: %v", err)
	}

	up.health = fmt.Errorf("dial: %w", proxy.ErrUnreachable)
	if err := svc.Ready(context.Background()); !errors.Is(err, proxy.ErrUnreachable) {
		t.Errorf("Ready = %v, want ErrUnreachable", err)
	}
}

func TestUsingDefaultCredential(t *testing.T) {
	svc := app.NewGatewayService(app.GatewayDeps{Upstream: okUpstream(`{}`), Clock: clock.Real{}, Logger: zerolog.Nop()}, app.GatewayConfig{})
	if !svc.UsingDefaultCredential() {
		t.Error("empty credential should fall back to DEMO_KEY")
	}
	if newService(t, okUpstream(`{}`), ratelimit.Config{}).UsingDefaultCredential() {
		t.Error("configured credential reported as default")
	}
}
