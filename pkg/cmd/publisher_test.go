package cmd_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/server-babel/pkg/cmd"
	"github.com/keshon/server-babel/pkg/jobmgr"
)

type joined struct {
	GuildID string `validate:"required"`
}

type logged struct {
	Message string
}

func TestConcurrentPublisher(t *testing.T) {
	t.Parallel()

	t.Run("isolates failing handlers and waits for all", func(t *testing.T) {
		t.Parallel()
		d, out := newDispatcher(t)

		var first, last atomic.Bool
		cmd.Subscribe(d, "first", cmd.EventHandlerFunc[joined](func(context.Context, joined) error {
			time.Sleep(30 * time.Millisecond)
			first.Store(true)
			return nil
		}))
		cmd.Subscribe(d, "failing", cmd.EventHandlerFunc[joined](func(context.Context, joined) error {
			return errors.New("handler boom")
		}))
		cmd.Subscribe(d, "panicking", cmd.EventHandlerFunc[joined](func(context.Context, joined) error {
			panic("kaboom")
		}))
		cmd.Subscribe(d, "last", cmd.EventHandlerFunc[joined](func(context.Context, joined) error {
			time.Sleep(30 * time.Millisecond)
			last.Store(true)
			return nil
		}))

		err := cmd.Publish(context.Background(), d, joined{GuildID: "g1"})
		require.NoError(t, err)

		assert.True(t, first.Load())
		assert.True(t, last.Load())

		logs := out.String()
		assert.Contains(t, logs, `"handler":"failing"`)
		assert.Contains(t, logs, "handler boom")
		assert.Contains(t, logs, `"handler":"panicking"`)
		assert.Contains(t, logs, "kaboom")
		assert.Equal(t, []string{"cmd_test.joined"}, d.Events())
	})

	t.Run("no subscribers is a no-op", func(t *testing.T) {
		t.Parallel()
		d, _ := newDispatcher(t)
		assert.NoError(t, cmd.Publish(context.Background(), d, joined{}))
	})

	t.Run("uninstrumented events skip timing logs", func(t *testing.T) {
		t.Parallel()
		out := &syncBuffer{}
		logger := zerolog.New(out)
		jobs := jobmgr.NewManager(logger)
		defer func() { _ = jobs.Shutdown(context.Background()) }()

		d := cmd.New(logger, jobs, cmd.WithPublisher(
			cmd.NewConcurrentPublisher(logger, cmd.WithUninstrumented(logged{})),
		))
		cmd.Subscribe(d, "forward", cmd.EventHandlerFunc[logged](func(context.Context, logged) error { return nil }))
		cmd.Subscribe(d, "audit", cmd.EventHandlerFunc[joined](func(context.Context, joined) error { return nil }))

		require.NoError(t, cmd.Publish(context.Background(), d, logged{Message: "hi"}))
		assert.NotContains(t, out.String(), "handling event")

		require.NoError(t, cmd.Publish(context.Background(), d, joined{GuildID: "g1"}))
		assert.Contains(t, out.String(), "handling event")
		assert.Contains(t, out.String(), `"handler":"audit"`)
	})
}

func TestBackgroundPublisher(t *testing.T) {
	t.Parallel()

	newBackground := func(t *testing.T) (*cmd.Dispatcher, *syncBuffer) {
		t.Helper()
		out := &syncBuffer{}
		logger := zerolog.New(out)
		jobs := jobmgr.NewManager(logger)
		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = jobs.Shutdown(ctx)
		})
		p := cmd.NewBackgroundPublisher(logger, jobs, cmd.WithEventValidation(cmd.NewValidator()))
		return cmd.New(logger, jobs, cmd.WithPublisher(p)), out
	}

	t.Run("invalid event propagates before any handler", func(t *testing.T) {
		t.Parallel()
		d, _ := newBackground(t)

		var calls atomic.Int32
		cmd.Subscribe(d, "counter", cmd.EventHandlerFunc[joined](func(context.Context, joined) error {
			calls.Add(1)
			return nil
		}))

		err := cmd.Publish(context.Background(), d, joined{})
		var verr *cmd.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.True(t, verr.Has("GuildID"))

		time.Sleep(20 * time.Millisecond)
		assert.Zero(t, calls.Load())
	})

	t.Run("returns without waiting and logs failures", func(t *testing.T) {
		t.Parallel()
		d, out := newBackground(t)

		release := make(chan struct{})
		var slowDone atomic.Bool
		cmd.Subscribe(d, "slow", cmd.EventHandlerFunc[joined](func(context.Context, joined) error {
			<-release
			slowDone.Store(true)
			return nil
		}))
		cmd.Subscribe(d, "failing", cmd.EventHandlerFunc[joined](func(context.Context, joined) error {
			return errors.New("background boom")
		}))

		require.NoError(t, cmd.Publish(context.Background(), d, joined{GuildID: "g1"}))
		assert.False(t, slowDone.Load())

		close(release)
		require.Eventually(t, slowDone.Load, time.Second, 5*time.Millisecond)
		require.Eventually(t, func() bool {
			s := out.String()
			return strings.Contains(s, "background boom") && strings.Contains(s, "cmd_test.joined/failing")
		}, time.Second, 5*time.Millisecond)
	})
}
