package lib

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter bounds request rate for one adapter instance: no more than
// requests acquisitions per trailing window. Backed by a token bucket with
// burst=requests refilled at requests/window.
type RateLimiter struct {
	limiter *rate.Limiter
}

func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	if requests < 1 {
		requests = 1
	}
	if window <= 0 {
		window = time.Second
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(float64(requests)/window.Seconds()), requests),
	}
}

// Acquire blocks until one more unit of work is permissible. The only
// failure mode is ctx cancellation.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
