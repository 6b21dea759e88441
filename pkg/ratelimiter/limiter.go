package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter wraps golang.org/x/time/rate.Limiter.
type RateLimiter struct {
	limiter *rate.Limiter
	rps     int
	burst   int
}

// New creates a token-bucket limiter from requests-per-second and burst.
func New(rps int, burst int) *RateLimiter {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = rps
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rps:     rps,
		burst:   burst,
	}
}

// Wait blocks until a token is available or the context is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}

// TryAcquire attempts to acquire a token without blocking.
func (rl *RateLimiter) TryAcquire() bool {
	return rl.limiter.Allow()
}

// Stats returns approximate available tokens and the configured limits.
func (rl *RateLimiter) Stats() (available, rps, burst int) {
	available = int(rl.limiter.Tokens())
	if available < 0 {
		available = 0
	}
	return available, rl.rps, rl.burst
}
