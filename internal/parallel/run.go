// Package parallel fans a worker function out over a job list with a
// bounded number of goroutines.
package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type result[D any] struct {
	idx int
	d   D
	e   error
}

// Run executes fn over jobs.
//
// With limit <= 1 jobs run strictly sequentially in list order, each call
// fully completing before the next starts, and the first error returns
// immediately.
//
// With limit > 1 jobs run on a bounded worker pool with no ordering
// guarantee among themselves. Run does not return until every started job
// has settled; the first error observed (in job order) is returned after
// the drain. Side effects of already-completed jobs are never rolled
// back, and there are no retries.
//
// Results are returned indexed by job position regardless of completion
// order, so callers can merge per-job outputs after the join instead of
// sharing a mutable accumulator across workers.
func Run[E, D any](ctx context.Context, limit int, jobs []E, fn func(context.Context, E) (D, error)) ([]D, error) {
	out := make([]D, len(jobs))

	if limit <= 1 {
		for i, job := range jobs {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			d, err := fn(ctx, job)
			if err != nil {
				return out, err
			}
			out[i] = d
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(limit)

	results := make(chan result[D], len(jobs))
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				// scheduling stops once the caller's context is gone,
				// already-started jobs are left to finish
				results <- result[D]{idx: i, e: err}
				return nil
			}
			d, err := fn(gctx, job)
			results <- result[D]{idx: i, d: d, e: err}
			return nil
		})
	}

	_ = g.Wait()
	close(results)

	errs := make([]error, len(jobs))
	for r := range results {
		out[r.idx] = r.d
		errs[r.idx] = r.e
	}
	for _, err := range errs {
		if err != nil {
			return out, err
		}
	}
	return out, nil
}
