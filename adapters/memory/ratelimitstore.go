// Package memory provides in-memory implementations of ports.
package memory

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/artpar/spacegate/domain/ratelimit"
	"github.com/artpar/spacegate/ports"
)

// rateLimitShard is a single shard of the rate limit store.
type rateLimitShard struct {
	mu      sync.Mutex
	windows map[string]ratelimit.Window
}

// RateLimitStore is a sharded in-memory window store keyed by client address.
// Sharding keeps lock contention low when many clients hit the gateway.
type RateLimitStore struct {
	shards  []*rateLimitShard
	cleanup *time.Ticker
	done    chan struct{}
	once    sync.Once
	now     func() time.Time
}

// RateLimitConfig configures the store.
type RateLimitConfig struct {
	NumShards       int           // Number of shards (default: 32)
	CleanupInterval time.Duration // How often expired windows are dropped (default: 5m)
}

// NewRateLimitStore creates a store and starts its cleanup goroutine.
// Call Close to stop it.
func NewRateLimitStore(cfg RateLimitConfig) *RateLimitStore {
	if cfg.NumShards <= 0 {
		cfg.NumShards = 32
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	s := &RateLimitStore{
		shards:  make([]*rateLimitShard, cfg.NumShards),
		cleanup: time.NewTicker(cfg.CleanupInterval),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	for i := range s.shards {
		s.shards[i] = &rateLimitShard{windows: make(map[string]ratelimit.Window)}
	}

	go s.cleanupLoop()
	return s
}

func (s *RateLimitStore) shard(key string) *rateLimitShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Take counts one request for key and returns the admission decision.
func (s *RateLimitStore) Take(ctx context.Context, key string, cfg ratelimit.Config, now time.Time) (ratelimit.Decision, error) {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	d, w := ratelimit.Check(sh.windows[key], cfg, now)
	sh.windows[key] = w
	return d, nil
}

func (s *RateLimitStore) cleanupLoop() {
	for {
		select {
		case <-s.cleanup.C:
			s.Sweep(s.now())
		case <-s.done:
			return
		}
	}
}

// Sweep drops every window that is over at now.
func (s *RateLimitStore) Sweep(now time.Time) {
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, w := range sh.windows {
			if w.Expired(now) {
				delete(sh.windows, key)
			}
		}
		sh.mu.Unlock()
	}
}

// Len returns the number of tracked clients.
func (s *RateLimitStore) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		total += len(sh.windows)
		sh.mu.Unlock()
	}
	return total
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (s *RateLimitStore) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.cleanup.Stop()
	})
	return nil
}

// Ensure interface compliance.
var _ ports.RateLimitStore = (*RateLimitStore)(nil)
