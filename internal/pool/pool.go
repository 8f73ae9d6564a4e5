// Package pool runs indexed work units on a fixed number of workers and
// stops at the first failure.
package pool

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ErrInvalidWorkers is returned when the worker count is below one.
var ErrInvalidWorkers = errors.New("pool: worker count must be >= 1")

// Run calls fn(ctx, i) for every i in [0, n) using at most workers
// goroutines. The first error cancels ctx for the remaining units and is
// returned once all started units have finished. Units that have not
// started when the context is cancelled are skipped.
func Run(ctx context.Context, workers, n int, fn func(ctx context.Context, i int) error) error {
	if workers < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, workers)
	}
	if n <= 0 {
		return nil
	}
	if workers > n {
		workers = n
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	// The parent context may have been cancelled before any unit failed.
	return ctx.Err()
}
