// Package worker runs independent tasks on a bounded set of goroutines.
package worker

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Run calls fn once for every task using at most workers goroutines and
// returns the results in task order, regardless of completion order.
//
// The first error returned by fn cancels the context handed to the other
// calls, stops dispatching new tasks and is returned; no partial results are
// returned in that case.
func Run[T, R any](ctx context.Context, tasks []T, workers int, fn func(ctx context.Context, task T) (R, error)) ([]R, error) {
	if workers < 1 {
		workers = 1
	}
	workers = min(workers, len(tasks))

	results := make([]R, len(tasks))
	jobs := make(chan int)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for idx := range jobs {
				res, err := fn(gctx, tasks[idx])
				if err != nil {
					return err
				}
				results[idx] = res
			}
			return nil
		})
	}

feed:
	for i := range tasks {
		select {
		case jobs <- i:
		case <-gctx.Done():
			break feed
		}
	}
	close(jobs)

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
