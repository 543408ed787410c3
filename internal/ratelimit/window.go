package ratelimit

import (
	"sync"
	"time"
)

// WindowLimiter caps the number of requests per key inside a rolling window.
// The gateway uses it for per-client-IP limiting.
type WindowLimiter struct {
	mu        sync.Mutex
	counts    map[string]*windowCount
	window    time.Duration
	max       int
	lastSweep time.Time
}

type windowCount struct {
	start time.Time
	n     int
}

// NewWindow creates a limiter allowing max requests per key per window
func NewWindow(window time.Duration, max int) *WindowLimiter {
	return &WindowLimiter{
		counts:    make(map[string]*windowCount),
		window:    window,
		max:       max,
		lastSweep: time.Now(),
	}
}

// Allow reports whether another request for key fits in the current window.
// Expired keys are swept at most once per window so the map stays bounded
// by the keys seen recently, not by every key ever seen.
func (l *WindowLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) >= l.window {
		for k, wc := range l.counts {
			if now.Sub(wc.start) >= l.window {
				delete(l.counts, k)
			}
		}
		l.lastSweep = now
	}

	wc, ok := l.counts[key]
	if !ok || now.Sub(wc.start) >= l.window {
		l.counts[key] = &windowCount{start: now, n: 1}
		return true
	}
	if wc.n >= l.max {
		return false
	}
	wc.n++
	return true
}
