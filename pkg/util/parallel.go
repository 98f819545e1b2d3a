package util

import (
	"context"
	"errors"
	"sync"
)

// Parallel calls fn for every input using at most workerLimit goroutines.
// The first error cancels the context handed to the remaining calls and is
// returned once every worker has stopped. Items not yet started are skipped.
func Parallel[T any](ctx context.Context, inputs []T, workerLimit int, fn func(context.Context, T) error) error {
	if len(inputs) == 0 {
		return nil
	}
	workerLimit = max(1, min(workerLimit, len(inputs)))

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	tasks := make(chan T)

	var wg sync.WaitGroup
	wg.Add(workerLimit)
	for range workerLimit {
		go func() {
			defer wg.Done()
			for item := range tasks {
				if err := fn(ctx, item); err != nil {
					cancel(err)
					return
				}
			}
		}()
	}

feed:
	for _, item := range inputs {
		select {
		case <-ctx.Done():
			break feed
		case tasks <- item:
		}
	}
	close(tasks)
	wg.Wait()

	if err := context.Cause(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}
