// Package ratelimit provides a non-blocking token bucket for throttling
// outbound calls.
package ratelimit

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucket holds up to capacity tokens and refills them evenly over
// window. Refill is computed lazily from elapsed time on each call; there is
// no background goroutine. It is safe for concurrent use.
type TokenBucket struct {
	limiter  *rate.Limiter
	capacity int
	window   time.Duration
	now      func() time.Time
}

// Option configures a TokenBucket.
type Option func(*TokenBucket)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *TokenBucket) { b.now = now }
}

// New returns a full bucket. It panics if capacity or window is not positive.
func New(capacity int, window time.Duration, opts ...Option) *TokenBucket {
	if capacity <= 0 || window <= 0 {
		panic(fmt.Sprintf("ratelimit: invalid bucket capacity=%d window=%s", capacity, window))
	}
	b := &TokenBucket{
		capacity: capacity,
		window:   window,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	perSecond := rate.Limit(float64(capacity) / window.Seconds())
	b.limiter = rate.NewLimiter(perSecond, capacity)
	// Anchor the limiter's refill clock to ours; a fresh limiter starts full.
	b.limiter.AllowN(b.now(), 0)
	return b
}

// Acquire takes one token if one is available and reports whether it did.
// It never blocks.
func (b *TokenBucket) Acquire() bool {
	return b.limiter.AllowN(b.now(), 1)
}

// WaitTime returns how long until a token is available: zero when one is
// available now, otherwise the time until the next whole token, rounded up.
func (b *TokenBucket) WaitTime() time.Duration {
	tokens := b.limiter.TokensAt(b.now())
	if tokens >= 1 {
		return 0
	}
	nanos := (1 - tokens) * float64(b.window) / float64(b.capacity)
	return time.Duration(math.Ceil(nanos))
}

// Tokens returns the current, possibly fractional, token count.
func (b *TokenBucket) Tokens() float64 {
	return b.limiter.TokensAt(b.now())
}

// Capacity returns the maximum number of tokens.
func (b *TokenBucket) Capacity() int { return b.capacity }

// Window returns the time it takes to refill an empty bucket.
func (b *TokenBucket) Window() time.Duration { return b.window }
