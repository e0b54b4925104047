// ABOUTME: Failed-login limiter keyed by submitted member number
// ABOUTME: Each key gets a token bucket; a failure spends a token, success clears the key

package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LoginLimiter tracks failed logins per member number.
// Keys are whatever was submitted, so unknown member numbers are limited the same way.
type LoginLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	burst   int
	refill  rate.Limit
	now     func() time.Time
}

// NewLoginLimiter allows burst failures, then one more per refill interval.
// A burst or refill of 0 disables limiting.
func NewLoginLimiter(burst int, refill time.Duration) *LoginLimiter {
	if refill <= 0 {
		burst = 0
	}
	return &LoginLimiter{
		entries: make(map[string]*limiterEntry),
		burst:   burst,
		refill:  rate.Every(refill),
		now:     time.Now,
	}
}

// Blocked reports whether key has no failed attempts left.
func (l *LoginLimiter) Blocked(key string) bool {
	if l == nil || l.burst <= 0 {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		return false
	}
	return e.limiter.TokensAt(l.now()) < 1
}

// Failure records a failed attempt for key.
func (l *LoginLimiter) Failure(key string) {
	if l == nil || l.burst <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.refill, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	e.limiter.AllowN(now, 1)
}

// Reset forgets key after a successful login.
func (l *LoginLimiter) Reset(key string) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Prune drops keys idle for longer than idle and returns how many were removed.
func (l *LoginLimiter) Prune(idle time.Duration) int {
	if l == nil {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idle)
	removed := 0
	for key, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *LoginLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
