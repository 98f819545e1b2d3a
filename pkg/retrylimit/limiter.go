// Package retrylimit provides an adaptive rate limiter and retry with
// exponential backoff for outbound API clients. HTTP status codes carried by
// errors (see HTTPError) drive the classification: 429 slows the limiter,
// 5xx is retried with backoff, other 4xx stop immediately.
//
//	lim := retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5)
//	err := retrylimit.WithRetry(ctx, logger, func() error {
//	    return doRequest(ctx)
//	}, lim)
package retrylimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// AdaptiveLimiter is a rate limit that grows on success and shrinks on
// rate-limit or server errors. Safe for concurrent use.
type AdaptiveLimiter struct {
	mu        sync.RWMutex
	limiter   *rate.Limiter
	minLimit  rate.Limit
	maxLimit  rate.Limit
	stepUp    rate.Limit
	stepDown  float64
	cooldown  time.Duration
	lastError time.Time
}

// NewAdaptiveLimiter creates an AdaptiveLimiter.
//
//   - initial: starting requests per second
//   - min, max: bounds for the rate
//   - stepUp: increment on success
//   - stepDown: multiplier applied on failure (0.5 halves the rate)
func NewAdaptiveLimiter(initial, min, max, stepUp rate.Limit, stepDown float64) *AdaptiveLimiter {
	if min <= 0 {
		min = 1
	}
	if initial < min {
		initial = min
	}
	if max < initial {
		max = initial
	}
	return &AdaptiveLimiter{
		limiter:  rate.NewLimiter(initial, burstFor(initial)),
		minLimit: min,
		maxLimit: max,
		stepUp:   stepUp,
		stepDown: stepDown,
		cooldown: 10 * time.Second,
	}
}

// Wait blocks until a token is available or ctx is done.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// Success raises the rate unless an error was seen during the cooldown window.
func (a *AdaptiveLimiter) Success() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if time.Since(a.lastError) > a.cooldown {
		a.adjust(a.limiter.Limit() + a.stepUp)
	}
}

// RateLimited lowers the rate after an overload signal.
func (a *AdaptiveLimiter) RateLimited() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastError = time.Now()
	a.adjust(rate.Limit(float64(a.limiter.Limit()) * a.stepDown))
}

// CurrentLimit returns the current requests per second.
func (a *AdaptiveLimiter) CurrentLimit() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return float64(a.limiter.Limit())
}

func (a *AdaptiveLimiter) adjust(limit rate.Limit) {
	switch {
	case limit > a.maxLimit:
		limit = a.maxLimit
	case limit < a.minLimit:
		limit = a.minLimit
	}
	if limit != a.limiter.Limit() {
		a.limiter.SetLimit(limit)
		a.limiter.SetBurst(burstFor(limit))
	}
}

func burstFor(l rate.Limit) int {
	return max(1, int(l))
}
