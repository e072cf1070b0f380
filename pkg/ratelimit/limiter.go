package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow reports whether a request may proceed right now
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
}

// TokenBucket refills one token every interval up to capacity
type TokenBucket struct {
	capacity   float64
	tokens     float64
	interval   time.Duration
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a bucket holding burst tokens that admits
// requestsPerPeriod requests per period on average
func NewTokenBucket(burst, requestsPerPeriod int, period time.Duration) *TokenBucket {
	if burst <= 0 {
		burst = 1
	}
	if requestsPerPeriod <= 0 {
		requestsPerPeriod = 1
	}
	return &TokenBucket{
		capacity:   float64(burst),
		tokens:     float64(burst),
		interval:   period / time.Duration(requestsPerPeriod),
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// PerHour builds a bucket for an hourly quota
func PerHour(requests, burst int) *TokenBucket {
	return NewTokenBucket(burst, requests, time.Hour)
}

// Allow checks if a request can proceed
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if tb.Allow() {
			return nil
		}

		timer := time.NewTimer(tb.untilNext())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Reset refills the bucket to capacity
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = tb.now()
}

func (tb *TokenBucket) untilNext() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	missing := 1 - tb.tokens
	if missing <= 0 {
		return 0
	}
	wait := time.Duration(missing * float64(tb.interval))
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}

// refill adds tokens for the time elapsed since the last refill
func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill)
	if elapsed <= 0 || tb.interval <= 0 {
		return
	}

	tb.tokens += float64(elapsed) / float64(tb.interval)
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}

// Unlimited never blocks
type Unlimited struct{}

func (Unlimited) Allow() bool                    { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
