package cmd_test

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

	"github.com/keshon/server-babel/pkg/cmd"
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

func newDispatcher(t *testing.T, opts ...cmd.Option) (*cmd.Dispatcher, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	logger := zerolog.New(out)
	jobs := jobmgr.NewManager(logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = jobs.Shutdown(ctx)
	})
	return cmd.New(logger, jobs, opts...), out
}

type greet struct {
	Name  string   `validate:"required"`
	Tags  []string `validate:"max=2"`
	Times int      `validate:"gte=0,lte=3"`
}

type bypassGreet struct {
	Name string `validate:"required"`
}

func (bypassGreet) BypassBehaviors() []string { return []string{cmd.BehaviorValidation} }

type delayed struct {
	Delay time.Duration
	Fail  bool
}

func (c delayed) BackgroundDelay() (time.Duration, bool) { return c.Delay, true }

type detached struct{}

func (detached) BackgroundDelay() (time.Duration, bool) { return 0, false }

func TestSend(t *testing.T) {
	t.Parallel()

	t.Run("routes to the registered handler", func(t *testing.T) {
		t.Parallel()
		d, out := newDispatcher(t)
		cmd.Register(d, cmd.HandlerFunc[greet, string](func(_ context.Context, c greet) (string, error) {
			return "hello " + c.Name, nil
		}))

		got, err := cmd.Send[greet, string](context.Background(), d, greet{Name: "ann"})
		require.NoError(t, err)
		assert.Equal(t, "hello ann", got)

		logs := out.String()
		assert.Contains(t, logs, `"command":"cmd_test.greet"`)
		assert.Contains(t, logs, "executing")
		assert.Contains(t, logs, "executed, elapsed ")
	})

	t.Run("missing handler is an error", func(t *testing.T) {
		t.Parallel()
		d, _ := newDispatcher(t)

		_, err := cmd.Send[greet, string](context.Background(), d, greet{Name: "ann"})
		require.ErrorIs(t, err, cmd.ErrNoHandler)
		assert.Contains(t, err.Error(), "cmd_test.greet")
	})

	t.Run("handler errors propagate", func(t *testing.T) {
		t.Parallel()
		d, _ := newDispatcher(t)
		boom := errors.New("boom")
		cmd.Register(d, cmd.HandlerFunc[greet, string](func(context.Context, greet) (string, error) {
			return "", boom
		}))

		_, err := cmd.Send[greet, string](context.Background(), d, greet{Name: "ann"})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("handler panics become errors", func(t *testing.T) {
		t.Parallel()
		d, _ := newDispatcher(t)
		cmd.Register(d, cmd.HandlerFunc[greet, string](func(context.Context, greet) (string, error) {
			panic("kaboom")
		}))

		_, err := cmd.Send[greet, string](context.Background(), d, greet{Name: "ann"})
		assert.ErrorIs(t, err, cmd.ErrHandlerPanic)
	})

	t.Run("nil command", func(t *testing.T) {
		t.Parallel()
		d, _ := newDispatcher(t)

		_, err := d.SendAny(context.Background(), nil)
		assert.ErrorIs(t, err, cmd.ErrNilCommand)
	})
}

func TestRegister_DuplicatePanics(t *testing.T) {
	t.Parallel()
	d, _ := newDispatcher(t)
	h := cmd.HandlerFunc[greet, string](func(context.Context, greet) (string, error) { return "", nil })

	cmd.Register(d, h)
	assert.Panics(t, func() { cmd.Register(d, h) })
	assert.Equal(t, []string{"cmd_test.greet"}, d.Commands())
}

func TestValidationBehavior(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		cmd    greet
		fields []string
	}{
		{name: "missing required field", cmd: greet{}, fields: []string{"Name"}},
		{name: "too many items", cmd: greet{Name: "ann", Tags: []string{"a", "b", "c"}}, fields: []string{"Tags"}},
		{name: "several fields", cmd: greet{Times: 7}, fields: []string{"Name", "Times"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d, out := newDispatcher(t)

			var calls atomic.Int32
			cmd.Register(d, cmd.HandlerFunc[greet, string](func(context.Context, greet) (string, error) {
				calls.Add(1)
				return "", nil
			}))

			_, err := cmd.Send[greet, string](context.Background(), d, tc.cmd)
			require.ErrorIs(t, err, cmd.ErrValidation)

			var verr *cmd.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "cmd_test.greet", verr.Type)
			require.Len(t, verr.Fields, len(tc.fields))
			for _, f := range tc.fields {
				assert.True(t, verr.Has(f), "expected %s to fail", f)
			}

			assert.Zero(t, calls.Load())
			assert.NotContains(t, out.String(), "executing")
		})
	}

	t.Run("message wording", func(t *testing.T) {
		t.Parallel()
		d, _ := newDispatcher(t)
		cmd.Register(d, cmd.HandlerFunc[greet, string](func(context.Context, greet) (string, error) { return "", nil }))

		_, err := cmd.Send[greet, string](context.Background(), d, greet{Tags: []string{"a", "b", "c"}})
		require.Error(t, err)
		assert.Equal(t, "validation failed for cmd_test.greet: Name is required; Tags must be at most 2 items", err.Error())
	})

	t.Run("bypassed per command type", func(t *testing.T) {
		t.Parallel()
		d, _ := newDispatcher(t)
		cmd.Register(d, cmd.HandlerFunc[bypassGreet, cmd.Unit](func(context.Context, bypassGreet) (cmd.Unit, error) {
			return cmd.Unit{}, nil
		}))

		_, err := cmd.Send[bypassGreet, cmd.Unit](context.Background(), d, bypassGreet{})
		assert.NoError(t, err)
	})
}

func TestBackgroundBehavior(t *testing.T) {
	t.Parallel()

	t.Run("returns immediately and runs after the delay", func(t *testing.T) {
		t.Parallel()
		d, out := newDispatcher(t)

		const delay = 300 * time.Millisecond
		var ranAt atomic.Int64
		cmd.Register(d, cmd.HandlerFunc[delayed, string](func(context.Context, delayed) (string, error) {
			ranAt.Store(time.Now().UnixNano())
			return "ignored", nil
		}))

		ctx, cancel := context.WithCancel(context.Background())
		start := time.Now()
		got, err := cmd.Send[delayed, string](ctx, d, delayed{Delay: delay})
		returned := time.Since(start)
		cancel()

		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Less(t, returned, 100*time.Millisecond)
		assert.Zero(t, ranAt.Load())
		assert.Contains(t, out.String(), `"message":"sent"`)

		require.Eventually(t, func() bool { return ranAt.Load() != 0 }, 2*time.Second, 10*time.Millisecond)
		assert.GreaterOrEqual(t, time.Duration(ranAt.Load()-start.UnixNano()), delay)
	})

	t.Run("without delay still detaches", func(t *testing.T) {
		t.Parallel()
		d, _ := newDispatcher(t)

		release := make(chan struct{})
		var done atomic.Bool
		cmd.Register(d, cmd.HandlerFunc[detached, cmd.Unit](func(context.Context, detached) (cmd.Unit, error) {
			<-release
			done.Store(true)
			return cmd.Unit{}, nil
		}))

		_, err := cmd.Send[detached, cmd.Unit](context.Background(), d, detached{})
		require.NoError(t, err)
		assert.False(t, done.Load())

		close(release)
		require.Eventually(t, done.Load, time.Second, 5*time.Millisecond)
	})

	t.Run("non-positive delay fails synchronously", func(t *testing.T) {
		t.Parallel()
		d, _ := newDispatcher(t)

		var calls atomic.Int32
		cmd.Register(d, cmd.HandlerFunc[delayed, string](func(context.Context, delayed) (string, error) {
			calls.Add(1)
			return "", nil
		}))

		for _, delay := range []time.Duration{0, -time.Second} {
			_, err := cmd.Send[delayed, string](context.Background(), d, delayed{Delay: delay})
			assert.ErrorIs(t, err, cmd.ErrInvalidDelay)
		}
		time.Sleep(20 * time.Millisecond)
		assert.Zero(t, calls.Load())
	})

	t.Run("detached failures are logged, not returned", func(t *testing.T) {
		t.Parallel()
		d, out := newDispatcher(t)
		cmd.Register(d, cmd.HandlerFunc[delayed, string](func(context.Context, delayed) (string, error) {
			return "", errors.New("detached boom")
		}))

		_, err := cmd.Send[delayed, string](context.Background(), d, delayed{Delay: time.Millisecond, Fail: true})
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			s := out.String()
			return strings.Contains(s, "job failed") && strings.Contains(s, "detached boom")
		}, time.Second, 5*time.Millisecond)
	})
}
