// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/artpar/spacegate/domain/proxy"
	"github.com/artpar/spacegate/domain/ratelimit"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Upstream Port
// -----------------------------------------------------------------------------

// Upstream issues calls to the third-party API.
//
// Get returns the upstream response for any status the upstream answered
// with; non-2xx classification is the caller's job. Transport failures are
// returned as errors wrapping proxy.ErrUnreachable or proxy.ErrTimeout.
type Upstream interface {
	Get(ctx context.Context, call proxy.Call) (proxy.Response, error)

	// HealthCheck verifies the upstream is reachable.
	HealthCheck(ctx context.Context) error
}

// -----------------------------------------------------------------------------
// Rate Limit Port
// -----------------------------------------------------------------------------

// RateLimitStore keeps one fixed window per client address.
type RateLimitStore interface {
	// Take atomically counts one request for key and returns the decision.
	Take(ctx context.Context, key string, cfg ratelimit.Config, now time.Time) (ratelimit.Decision, error)
}
