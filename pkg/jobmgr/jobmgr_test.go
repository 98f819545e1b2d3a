package jobmgr_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/server-babel/pkg/jobmgr"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newManager(t *testing.T) (*jobmgr.Manager, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	m := jobmgr.NewManager(zerolog.New(out))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})
	return m, out
}

func TestManager_Go(t *testing.T) {
	t.Parallel()

	t.Run("runs after delay and ignores caller cancellation", func(t *testing.T) {
		t.Parallel()
		m, _ := newManager(t)

		parent, cancel := context.WithCancel(context.Background())
		var ran atomic.Bool
		start := time.Now()

		_, err := m.Go(parent, "delayed", 50*time.Millisecond, func(ctx context.Context) error {
			if ctx.Err() == nil {
				ran.Store(true)
			}
			return nil
		})
		require.NoError(t, err)
		cancel()

		require.Eventually(t, ran.Load, time.Second, 5*time.Millisecond)
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("keeps caller values", func(t *testing.T) {
		t.Parallel()
		m, _ := newManager(t)

		type key struct{}
		parent := context.WithValue(context.Background(), key{}, "v")
		got := make(chan any, 1)

		_, err := m.Go(parent, "values", 0, func(ctx context.Context) error {
			got <- ctx.Value(key{})
			return nil
		})
		require.NoError(t, err)

		select {
		case v := <-got:
			assert.Equal(t, "v", v)
		case <-time.After(time.Second):
			t.Fatal("job did not run")
		}
	})

	t.Run("logs failures", func(t *testing.T) {
		t.Parallel()
		m, out := newManager(t)

		_, err := m.Go(context.Background(), "failing", 0, func(context.Context) error {
			return errors.New("boom")
		})
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			s := out.String()
			return strings.Contains(s, "job failed") &&
				strings.Contains(s, "boom") &&
				strings.Contains(s, "failing")
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("recovers panics", func(t *testing.T) {
		t.Parallel()
		m, out := newManager(t)

		_, err := m.Go(context.Background(), "panicking", 0, func(context.Context) error {
			panic("kaboom")
		})
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return strings.Contains(out.String(), "panic: kaboom")
		}, time.Second, 5*time.Millisecond)
	})
}

func TestManager_Stop(t *testing.T) {
	t.Parallel()
	m, _ := newManager(t)

	var ran atomic.Bool
	id, err := m.Go(context.Background(), "pending", time.Hour, func(context.Context) error {
		ran.Store(true)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, m.List(), 1)
	assert.Equal(t, "Running jobs: pending", m.Status())

	require.NoError(t, m.Stop(id))
	assert.ErrorIs(t, m.Stop(id), jobmgr.ErrNotRunning)

	require.Eventually(t, func() bool { return len(m.List()) == 0 }, time.Second, 5*time.Millisecond)
	assert.False(t, ran.Load())
	assert.Equal(t, "No jobs are running.", m.Status())
}

func TestManager_Shutdown(t *testing.T) {
	t.Parallel()
	m := jobmgr.NewManager(zerolog.Nop())

	var ran atomic.Bool
	_, err := m.Go(context.Background(), "pending", time.Hour, func(context.Context) error {
		ran.Store(true)
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))
	assert.False(t, ran.Load())

	_, err = m.Go(context.Background(), "late", 0, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, jobmgr.ErrClosed)
}
