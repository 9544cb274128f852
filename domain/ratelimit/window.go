// Package ratelimit provides the fixed-window admission check applied per
// client address before any request reaches the gateway.
// Check is pure: the caller owns and persists the window state.
package ratelimit

import "time"

// Config holds the limiter settings (value type).
type Config struct {
	Limit  int           // Requests admitted per window
	Window time.Duration // Window length
}

// Enabled reports whether the config admits a finite number of requests.
func (c Config) Enabled() bool {
	return c.Limit > 0 && c.Window > 0
}

// Window is the counter for one client (value type).
type Window struct {
	Count int
	End   time.Time
}

// Expired reports whether the window is over at now.
func (w Window) Expired(now time.Time) bool {
	return w.End.IsZero() || !now.Before(w.End)
}

// Decision is the outcome of one admission check (value type).
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Check counts one request against w and returns the decision and the
// updated window. Windows are aligned to multiples of cfg.Window.
func Check(w Window, cfg Config, now time.Time) (Decision, Window) {
	if w.Expired(now) {
		w = Window{End: now.Truncate(cfg.Window).Add(cfg.Window)}
	}

	if w.Count >= cfg.Limit {
		return Decision{
			Allowed: false,
			Limit:   cfg.Limit,
			ResetAt: w.End,
		}, w
	}

	w.Count++
	return Decision{
		Allowed:   true,
		Limit:     cfg.Limit,
		Remaining: cfg.Limit - w.Count,
		ResetAt:   w.End,
	}, w
}

// RetryAfter returns how long a denied client should wait.
func RetryAfter(d Decision, now time.Time) time.Duration {
	if d.Allowed {
		return 0
	}
	if wait := d.ResetAt.Sub(now); wait > 0 {
		return wait
	}
	return 0
}
