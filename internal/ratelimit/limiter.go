package ratelimit

import (
	"sync"
	"time"
)

// Limiter enforces a minimum interval between requests to the same host
type Limiter struct {
	mu          sync.Mutex
	hosts       map[string]time.Time
	minInterval time.Duration
}

// New creates a limiter with the given minimum interval per host
func New(minInterval time.Duration) *Limiter {
	return &Limiter{
		hosts:       make(map[string]time.Time),
		minInterval: minInterval,
	}
}

// Allow reports whether a request to host may proceed now. A permitted
// request records the current time; a denied one leaves the record alone.
func (l *Limiter) Allow(host string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	last, ok := l.hosts[host]
	if ok && now.Sub(last) < l.minInterval {
		return false
	}
	l.hosts[host] = now
	return true
}

// Wait blocks until a request to host is permitted, then records it
func (l *Limiter) Wait(host string) {
	l.mu.Lock()
	last, ok := l.hosts[host]
	if !ok {
		l.hosts[host] = time.Now()
		l.mu.Unlock()
		return
	}
	remaining := l.minInterval - time.Since(last)
	if remaining <= 0 {
		l.hosts[host] = time.Now()
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	time.Sleep(remaining)

	l.mu.Lock()
	l.hosts[host] = time.Now()
	l.mu.Unlock()
}

// Reset forgets the last request time for host
func (l *Limiter) Reset(host string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.hosts, host)
}

// ResetAll forgets every recorded host
func (l *Limiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hosts = make(map[string]time.Time)
}
