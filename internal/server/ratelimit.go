package server

import (
	"sync"
	"time"
)

// staleSweepThreshold triggers an inline purge of ended windows when the
// tracked key count reaches it.
const staleSweepThreshold = 1024

// rateLimiter is a process-wide fixed-window counter keyed by identity
// (or client IP for anonymous callers). Not shared across instances.
type rateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	window  time.Duration
	max     int
	clock   func() time.Time
}

type rateWindow struct {
	start time.Time
	count int
}

func newRateLimiter(window time.Duration, max int, clock func() time.Time) *rateLimiter {
	if clock == nil {
		clock = time.Now
	}
	return &rateLimiter{
		windows: make(map[string]*rateWindow),
		window:  window,
		max:     max,
		clock:   clock,
	}
}

// Allow records one request for key and reports whether it fits in the
// current window, with the remaining window time when it does not.
func (l *rateLimiter) Allow(key string) (bool, time.Duration) {
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.windows[key]
	if !ok || now.Sub(current.start) >= l.window {
		if len(l.windows) >= staleSweepThreshold {
			l.purgeStaleLocked(now)
		}
		l.windows[key] = &rateWindow{start: now, count: 1}
		return true, 0
	}
	if current.count >= l.max {
		return false, l.window - now.Sub(current.start)
	}
	current.count++
	return true, 0
}

// purgeStale drops windows that ended before now, keeping the map bounded
// by the set of keys active in the current window.
func (l *rateLimiter) purgeStale() {
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.purgeStaleLocked(now)
}

func (l *rateLimiter) purgeStaleLocked(now time.Time) {
	for key, current := range l.windows {
		if now.Sub(current.start) >= l.window {
			delete(l.windows, key)
		}
	}
}
