// Package ratelimit implements a fixed-window request counter keyed by an
// arbitrary identifier.
package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// Limiter counts attempts per key in fixed windows. Bursts at a window
// boundary are accepted. The zero value is not usable; call New.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// New returns an empty limiter using the wall clock.
func New() *Limiter {
	return &Limiter{windows: make(map[string]*window), now: time.Now}
}

// WithClock replaces the limiter clock. Intended for tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
	return l
}

// IsAllowed counts one attempt for key and reports whether it fits in the
// current window. Once max is reached further attempts are refused without
// being counted, so the count never exceeds max.
func (l *Limiter) IsAllowed(key string, max int, length time.Duration) bool {
	if max <= 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		l.windows[key] = &window{count: 1, resetAt: now.Add(length)}
		return true
	}
	if w.count >= max {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many attempts key has left in its current window.
func (l *Limiter) Remaining(key string, max int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || l.now().After(w.resetAt) {
		return max
	}
	if left := max - w.count; left > 0 {
		return left
	}
	return 0
}

// ResetAt returns when the current window of key ends. The zero time means
// key has no open window.
func (l *Limiter) ResetAt(key string) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || l.now().After(w.resetAt) {
		return time.Time{}
	}
	return w.resetAt
}

// Reset forgets key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.windows, key)
	l.mu.Unlock()
}

// Cleanup drops every expired window and returns how many were removed.
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked windows, expired ones included.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
