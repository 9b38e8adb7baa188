// Package ratelimit throttles requests sent to a Feldera instance.
package ratelimit

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket limiter. A nil limiter or one with a
// non-positive rate never blocks.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter releasing rps requests per second with
// bursts of up to bucketSize requests. The bucket holds at least one token.
func NewRateLimiter(rps float64, bucketSize float64) *RateLimiter {
	if rps <= 0 {
		return &RateLimiter{}
	}
	burst := max(1, int(math.Floor(bucketSize)))
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a token is available or the context is done. A waiter
// whose context ends gives its reservation back.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil || rl.limiter == nil {
		return nil
	}
	return rl.limiter.Wait(ctx)
}

// Burst returns the bucket size, or zero for an unlimited limiter.
func (rl *RateLimiter) Burst() int {
	if rl == nil || rl.limiter == nil {
		return 0
	}
	return rl.limiter.Burst()
}
