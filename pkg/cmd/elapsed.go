package cmd

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ElapsedBehavior logs command start and duration. It never changes the outcome.
type ElapsedBehavior struct {
	logger zerolog.Logger
}

func NewElapsedBehavior(logger zerolog.Logger) *ElapsedBehavior {
	return &ElapsedBehavior{logger: logger}
}

func (b *ElapsedBehavior) Name() string { return BehaviorElapsed }

func (b *ElapsedBehavior) Handle(ctx context.Context, req Request, next Next) (any, error) {
	l := b.logger.With().Str("command", req.Name).Logger()

	start := time.Now()
	l.Debug().Msg("executing")

	out, err := next(ctx)

	ms := time.Since(start).Milliseconds()
	l.Info().Err(err).Int64("elapsed_ms", ms).Msgf("executed, elapsed %dms", ms)
	return out, err
}
