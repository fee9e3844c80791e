// internal/aiquery/ratelimit.go
package aiquery

import (
	"sync"
	"time"
)

const (
	DefaultRateLimit       = 5
	DefaultRateLimitWindow = 60 * time.Second
)

type rateWindow struct {
	start time.Time
	count int
}

// RateLimiter is a fixed-window counter keyed by caller identity.
// Windows are swept lazily on each Allow call so abandoned keys do not
// accumulate.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	limit   int
	window  time.Duration
	now     func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateLimitWindow
	}
	return &RateLimiter{
		windows: make(map[string]*rateWindow),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (r *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	r.now = now
	return r
}

// Allow reports whether the caller identified by key may proceed, and
// counts the attempt when it may.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweep(now)

	w, ok := r.windows[key]
	if !ok || now.Sub(w.start) >= r.window {
		r.windows[key] = &rateWindow{start: now, count: 1}
		return true
	}
	if w.count >= r.limit {
		return false
	}
	w.count++
	return true
}

// sweep drops windows that have fully elapsed.
func (r *RateLimiter) sweep(now time.Time) {
	for key, w := range r.windows {
		if now.Sub(w.start) >= r.window {
			delete(r.windows, key)
		}
	}
}
