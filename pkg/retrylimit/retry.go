package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPError is implemented by errors that carry an HTTP status code.
type HTTPError interface {
	error
	StatusCode() int
}

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

func (e *StatusError) StatusCode() int { return e.Code }

// FatalError stops retries immediately.
type FatalError struct {
	Err error
}

func (f *FatalError) Error() string { return f.Err.Error() }
func (f *FatalError) Unwrap() error { return f.Err }

// Fatal marks err as not worth retrying. Fatal(nil) is nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// RetryConfig configures WithRetryConfig.
type RetryConfig struct {
	MaxAttempts    int           // 0 means the safety cap of 100
	InitialDelay   time.Duration // first backoff
	MaxDelay       time.Duration // backoff ceiling
	RateLimitDelay time.Duration // fixed wait after a 429
	Multiplier     float64
	Jitter         bool
	OnRetry        func(attempt int, err error)
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		RateLimitDelay: time.Second,
		Multiplier:     2.0,
		Jitter:         true,
	}
}

// WithRetry runs fn with DefaultRetryConfig.
func WithRetry(ctx context.Context, logger zerolog.Logger, fn func() error, lim *AdaptiveLimiter) error {
	return WithRetryConfig(ctx, logger, fn, lim, DefaultRetryConfig())
}

// WithRetryConfig runs fn until it succeeds, returns a fatal or client error,
// ctx ends or the attempts run out. lim may be nil.
func WithRetryConfig(ctx context.Context, logger zerolog.Logger, fn func() error, lim *AdaptiveLimiter, cfg RetryConfig) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 100
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return err
			}
		}

		err := fn()
		if err == nil {
			if lim != nil {
				lim.Success()
			}
			if attempt > 1 {
				logger.Debug().Int("attempt", attempt).Msg("request succeeded after retry")
			}
			return nil
		}
		lastErr = err

		if !Retryable(err) {
			return err
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		wait := delay
		switch {
		case isRateLimit(err):
			if lim != nil {
				lim.RateLimited()
			}
			wait = cfg.RateLimitDelay
			logger.Warn().Err(err).Int("attempt", attempt).Float64("limit_rps", limitOf(lim)).Msg("rate limited")
		case isServerError(err):
			if lim != nil {
				lim.RateLimited()
			}
			logger.Warn().Err(err).Int("attempt", attempt).Dur("backoff", wait).Msg("server error, retrying")
		default:
			logger.Warn().Err(err).Int("attempt", attempt).Dur("backoff", wait).Msg("request failed, retrying")
		}

		if cfg.Jitter {
			wait = addJitter(wait)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}

		delay = min(time.Duration(float64(delay)*cfg.Multiplier), cfg.MaxDelay)
	}

	return fmt.Errorf("max attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
}

// Retryable reports whether err is worth another attempt: not fatal, not a
// context error, and not a 4xx other than 429.
func Retryable(err error) bool {
	var fatal *FatalError
	if errors.As(err, &fatal) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	code, ok := statusOf(err)
	if !ok {
		return true
	}
	return code == http.StatusTooManyRequests || code >= 500
}

func statusOf(err error) (int, bool) {
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode(), true
	}
	return 0, false
}

func isRateLimit(err error) bool {
	code, ok := statusOf(err)
	return ok && code == http.StatusTooManyRequests
}

func isServerError(err error) bool {
	code, ok := statusOf(err)
	return ok && code >= 500 && code < 600
}

func limitOf(lim *AdaptiveLimiter) float64 {
	if lim == nil {
		return 0
	}
	return lim.CurrentLimit()
}

// addJitter adds up to 25% random jitter.
func addJitter(d time.Duration) time.Duration {
	if d < 4 {
		return d
	}
	return d + rand.N(d/4)
}
