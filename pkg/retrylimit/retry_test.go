package retrylimit_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/server-babel/pkg/retrylimit"
)

func fastConfig(attempts int) retrylimit.RetryConfig {
	return retrylimit.RetryConfig{
		MaxAttempts:    attempts,
		InitialDelay:   time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		RateLimitDelay: time.Millisecond,
		Multiplier:     2,
	}
}

func TestWithRetryConfig(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		errs      []error
		attempts  int
		wantCalls int
		wantErr   bool
	}{
		{
			name:      "server error then success",
			errs:      []error{&retrylimit.StatusError{Code: http.StatusBadGateway}, nil},
			attempts:  3,
			wantCalls: 2,
		},
		{
			name:      "rate limited then success",
			errs:      []error{&retrylimit.StatusError{Code: http.StatusTooManyRequests}, nil},
			attempts:  3,
			wantCalls: 2,
		},
		{
			name:      "client error stops immediately",
			errs:      []error{&retrylimit.StatusError{Code: http.StatusBadRequest}},
			attempts:  3,
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:      "fatal error stops immediately",
			errs:      []error{retrylimit.Fatal(errors.New("bad key"))},
			attempts:  3,
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name: "attempts exhausted",
			errs: []error{
				errors.New("dial"), errors.New("dial"), errors.New("dial"),
			},
			attempts:  3,
			wantCalls: 3,
			wantErr:   true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			fn := func() error {
				err := tc.errs[calls]
				calls++
				return err
			}

			lim := retrylimit.NewAdaptiveLimiter(100, 1, 100, 1, 0.5)
			err := retrylimit.WithRetryConfig(context.Background(), zerolog.Nop(), fn, lim, fastConfig(tc.attempts))

			assert.Equal(t, tc.wantCalls, calls)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.errs[len(tc.errs)-1])
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := retrylimit.WithRetry(ctx, zerolog.Nop(), func() error {
		calls++
		return nil
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestAdaptiveLimiter(t *testing.T) {
	t.Parallel()

	lim := retrylimit.NewAdaptiveLimiter(8, 2, 10, 1, 0.5)
	assert.InDelta(t, 8, lim.CurrentLimit(), 0.001)

	lim.RateLimited()
	assert.InDelta(t, 4, lim.CurrentLimit(), 0.001)

	lim.RateLimited()
	lim.RateLimited()
	assert.InDelta(t, 2, lim.CurrentLimit(), 0.001, "never below min")

	lim.Success()
	assert.InDelta(t, 2, lim.CurrentLimit(), 0.001, "no increase during cooldown")
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, retrylimit.Retryable(errors.New("eof")))
	assert.True(t, retrylimit.Retryable(&retrylimit.StatusError{Code: http.StatusServiceUnavailable}))
	assert.False(t, retrylimit.Retryable(&retrylimit.StatusError{Code: http.StatusForbidden}))
	assert.False(t, retrylimit.Retryable(retrylimit.Fatal(errors.New("x"))))
	assert.False(t, retrylimit.Retryable(context.DeadlineExceeded))
}
