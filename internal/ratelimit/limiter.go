package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"
)

// DefaultCooldown is the minimum interval between two refreshes of the same
// subject by the same requester.
const DefaultCooldown = time.Hour

// Limiter is a thread-safe in-memory cooldown table keyed by a hash of
// (requester, subject). Values are expiry instants.
type Limiter struct {
	mu       sync.Mutex
	entries  map[string]time.Time
	cooldown time.Duration
	now      func() time.Time // injectable for deterministic tests
}

// New creates a Limiter with the given cooldown. A non-positive cooldown
// falls back to DefaultCooldown.
func New(cooldown time.Duration) *Limiter {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Limiter{
		entries:  make(map[string]time.Time),
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Key returns the table key for (requester, subject).
func Key(requester, subject string) string {
	sum := sha256.Sum256([]byte(requester + "_" + subject))
	return hex.EncodeToString(sum[:])
}

// Check reports whether requester may refresh subject now. When it may not,
// retryAfter is the time left on the cooldown. Check does not lock.
func (l *Limiter) Check(requester, subject string) (allowed bool, retryAfter time.Duration) {
	key := Key(requester, subject)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	exp, ok := l.entries[key]
	if !ok {
		return true, 0
	}
	if !now.Before(exp) {
		delete(l.entries, key)
		return true, 0
	}
	return false, exp.Sub(now)
}

// Commit starts the cooldown for (requester, subject). Callers must only
// commit after a successful refresh.
func (l *Limiter) Commit(requester, subject string) {
	key := Key(requester, subject)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = l.now().Add(l.cooldown)
}

// Cooldown returns the configured cooldown.
func (l *Limiter) Cooldown() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cooldown
}

// SetCooldown changes the cooldown used by future commits. Locks already
// placed keep their expiry.
func (l *Limiter) SetCooldown(d time.Duration) {
	if d <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cooldown = d
}

// Count returns the number of entries currently held, including expired
// ones not yet evicted.
func (l *Limiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Evict removes entries whose expiry is at or before now.
// It returns the number of entries removed.
func (l *Limiter) Evict(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for k, exp := range l.entries {
		if !now.Before(exp) {
			delete(l.entries, k)
			removed++
		}
	}
	return removed
}

// Run starts the background eviction loop. It ticks at half the cooldown
// (minimum 1 second). Run blocks until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context) {
	interval := l.Cooldown() / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := l.Evict(now); n > 0 {
				slog.Debug("ratelimit: evicted expired locks", "count", n)
			}
		}
	}
}
