// Package rate provides a token bucket rate limiter and a per-source table
// of buckets keyed by (module, egress identity).
package rate

import (
	"context"
	"sync"
	"time"
)

// Limiter implements a token bucket rate limiter that controls the rate of
// operations. It supports both blocking (Wait) and non-blocking (Allow)
// modes.
type Limiter struct {
	rate   float64 // tokens per second
	burst  int     // maximum burst size (bucket capacity)
	mu     sync.Mutex
	tokens float64   // current number of tokens
	last   time.Time // last time tokens were updated
}

// New creates a new rate limiter with the specified refill rate (tokens per
// second) and burst size (bucket capacity). The bucket starts full, so a
// fresh limiter grants exactly `burst` immediate acquisitions.
func New(rate float64, burst int) *Limiter {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = 1
	}

	return &Limiter{
		rate:   rate,
		burst:  burst,
		tokens: float64(burst),
		last:   time.Now(),
	}
}

// Wait blocks until the limiter allows an operation to proceed or the
// context is canceled. The caller bounds the wait with a context deadline;
// only the calling worker suspends, never the pool.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		if l.Allow() {
			return nil
		}

		waitTime := l.waitDuration()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
			// re-check on next iteration
		}
	}
}

// Allow reports whether an operation can proceed immediately.
// It consumes one token from the bucket if available.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.advance(time.Now())

	if l.tokens >= 1 {
		l.tokens--
		return true
	}

	return false
}

// Tokens returns the current number of available tokens.
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.advance(time.Now())
	return l.tokens
}

// Rate returns the refill rate (tokens per second).
func (l *Limiter) Rate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rate
}

// Burst returns the bucket capacity.
func (l *Limiter) Burst() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.burst
}

// advance updates the number of tokens based on elapsed time.
// Must be called with l.mu held.
func (l *Limiter) advance(now time.Time) {
	elapsed := now.Sub(l.last).Seconds()

	l.tokens += elapsed * l.rate

	if l.tokens > float64(l.burst) {
		l.tokens = float64(l.burst)
	}

	l.last = now
}

// waitDuration calculates how long to wait for the next token.
func (l *Limiter) waitDuration() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.advance(time.Now())

	if l.tokens >= 1 {
		return 0
	}

	tokensNeeded := 1.0 - l.tokens
	secondsNeeded := tokensNeeded / l.rate

	return time.Duration(secondsNeeded * float64(time.Second))
}

// Table holds one bucket per source key. A source key is either the module
// name (shared bucket: the limit is tied to the destination) or
// "module@identity" (per-identity buckets: rotating egress regains
// throughput). The scheduler owns the keying decision; the table just
// lazily creates buckets.
type Table struct {
	mu      sync.Mutex
	buckets map[string]*Limiter
}

// NewTable creates an empty bucket table.
func NewTable() *Table {
	return &Table{buckets: make(map[string]*Limiter)}
}

// SourceKey builds the bucket key for a module and egress identity under
// the module's declared bucket scope.
func SourceKey(moduleID, identity string, shared bool) string {
	if shared {
		return moduleID
	}
	return moduleID + "@" + identity
}

// Acquire takes one token from the bucket for key, creating the bucket with
// the given rate and burst on first use. rate <= 0 means unlimited: the
// acquire succeeds immediately. Blocks until a token is available or the
// context deadline elapses.
func (t *Table) Acquire(ctx context.Context, key string, rate float64, burst int) error {
	if rate <= 0 {
		return ctx.Err()
	}
	return t.bucket(key, rate, burst).Wait(ctx)
}

// Bucket returns the limiter for key, creating it on first use. Exposed for
// tests and introspection.
func (t *Table) Bucket(key string, rate float64, burst int) *Limiter {
	return t.bucket(key, rate, burst)
}

func (t *Table) bucket(key string, rate float64, burst int) *Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if l, ok := t.buckets[key]; ok {
		return l
	}
	l := New(rate, burst)
	t.buckets[key] = l
	return l
}

// Len returns the number of live buckets.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buckets)
}
