// Package ratelimit throttles generate requests per client using token
// buckets. One bucket per client key, refilled continuously, idle
// buckets evicted lazily.
package ratelimit

import (
	"sync"
	"time"
)

// bucket is a continuously refilling token bucket.
type bucket struct {
	tokens     float64
	max        float64
	perSecond  float64
	lastRefill time.Time
}

func (b *bucket) take() bool {
	now := time.Now()
	b.tokens += now.Sub(b.lastRefill).Seconds() * b.perSecond
	if b.tokens > b.max {
		b.tokens = b.max
	}
	b.lastRefill = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// idleEviction is how long a client bucket survives without traffic.
const idleEviction = 10 * time.Minute

// Limiter tracks a token bucket per client key.
type Limiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	burst     float64
	perSecond float64
	lastSweep time.Time
}

// New creates a limiter allowing perMinute sustained requests with the
// given burst per client. Nil is returned when perMinute is zero so
// callers can treat "no limiter" uniformly.
func New(perMinute, burst float64) *Limiter {
	if perMinute <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		buckets:   make(map[string]*bucket),
		burst:     burst,
		perSecond: perMinute / 60,
		lastSweep: time.Now(),
	}
}

// Allow reports whether the client identified by key may proceed. A nil
// limiter always allows.
func (l *Limiter) Allow(key string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.maybeSweep()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, max: l.burst, perSecond: l.perSecond, lastRefill: time.Now()}
		l.buckets[key] = b
	}
	return b.take()
}

// maybeSweep drops buckets idle past the eviction window. Caller holds
// the lock.
func (l *Limiter) maybeSweep() {
	now := time.Now()
	if now.Sub(l.lastSweep) < idleEviction {
		return
	}
	l.lastSweep = now
	cutoff := now.Add(-idleEviction)
	for key, b := range l.buckets {
		if b.lastRefill.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}
