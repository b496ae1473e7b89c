// Package ratelimiter paces consecutive operations.
package ratelimiter

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a minimum interval between operations.
// The first Wait returns immediately. A zero interval never blocks.
type RateLimiter struct {
	interval time.Duration

	mu   sync.Mutex
	next time.Time
}

// New creates a RateLimiter allowing one operation per interval.
func New(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval}
}

// Wait blocks until the caller may proceed, or until ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil || r.interval <= 0 {
		return ctx.Err()
	}

	// Reserve a slot, then sleep until it comes up.
	r.mu.Lock()
	now := time.Now()
	slot := r.next
	if slot.Before(now) {
		slot = now
	}
	r.next = slot.Add(r.interval)
	r.mu.Unlock()

	delay := time.Until(slot)
	if delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Interval returns the configured gap between operations.
func (r *RateLimiter) Interval() time.Duration {
	if r == nil {
		return 0
	}
	return r.interval
}
