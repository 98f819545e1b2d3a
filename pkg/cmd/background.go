package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/keshon/server-babel/pkg/jobmgr"
)

// BackgroundBehavior detaches commands implementing Background. The caller
// gets an empty result at once; failures of the detached run are logged by
// the job manager.
type BackgroundBehavior struct {
	logger zerolog.Logger
	jobs   *jobmgr.Manager
}

func NewBackgroundBehavior(logger zerolog.Logger, jobs *jobmgr.Manager) *BackgroundBehavior {
	return &BackgroundBehavior{logger: logger, jobs: jobs}
}

func (b *BackgroundBehavior) Name() string { return BehaviorBackground }

func (b *BackgroundBehavior) Handle(ctx context.Context, req Request, next Next) (any, error) {
	bg, ok := req.Command.(Background)
	if !ok {
		return next(ctx)
	}

	delay, delayed := bg.BackgroundDelay()
	if delayed && delay <= 0 {
		return nil, fmt.Errorf("%w: %s has delay %s", ErrInvalidDelay, req.Name, delay)
	}
	if !delayed {
		delay = 0
	}

	_, err := b.jobs.Go(ctx, req.Name, delay, func(ctx context.Context) error {
		_, err := next(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("detach %s: %w", req.Name, err)
	}

	ev := b.logger.Info().Str("command", req.Name)
	if delay > 0 {
		ev = ev.Dur("delay", delay)
	}
	ev.Msg("sent")

	return nil, nil
}
