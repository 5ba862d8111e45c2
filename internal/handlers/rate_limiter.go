package handlers

import (
	"net"
	"strings"
	"sync"
	"time"
)

// rateLimiter throttles session creation per client. Keys are client IPs;
// a nil limiter allows everything.
type rateLimiter interface {
	Allow(key string) bool
}

// simpleRateLimiter counts events per key inside a fixed window. Windows
// reset lazily on the next Allow call after expiry; stale keys are pruned
// opportunistically so the map does not grow with one-off clients.
type simpleRateLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time
	mu     sync.Mutex
	counts map[string]windowCount
}

type windowCount struct {
	seen    int
	resetAt time.Time
}

func newSimpleRateLimiter(limit int, window time.Duration, clock func() time.Time) rateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &simpleRateLimiter{
		limit:  limit,
		window: window,
		clock:  clock,
		counts: make(map[string]windowCount),
	}
}

func (l *simpleRateLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = clientKey(key)
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.counts[key]
	if !ok || now.After(current.resetAt) {
		l.counts[key] = windowCount{seen: 1, resetAt: now.Add(l.window)}
		l.pruneLocked(now)
		return true
	}
	if current.seen >= l.limit {
		return false
	}
	current.seen++
	l.counts[key] = current
	return true
}

// clientKey reduces a RemoteAddr-style value to its host part so that one
// client rotating ephemeral ports shares a single budget.
func clientKey(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "anonymous"
	}
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}

func (l *simpleRateLimiter) pruneLocked(now time.Time) {
	for key, current := range l.counts {
		if now.After(current.resetAt) {
			delete(l.counts, key)
		}
	}
}
