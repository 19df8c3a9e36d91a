// SPDX-License-Identifier: MPL-2.0

package scan

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Outcome is the result of one job. Exactly one of Value and Err is
// meaningful.
type Outcome[R any] struct {
	Value R
	Err   error
}

// DefaultWorkers is the pool size used when none is configured.
func DefaultWorkers() int {
	return runtime.NumCPU()
}

// Run applies fn to every job on at most workers goroutines. Results are
// written to the slot matching the job's index, so the output order equals
// the input order and workers share no state.
//
// A job error is recorded in its Outcome and never stops the other jobs.
// When ctx is cancelled, Run stops scheduling, waits for running jobs and
// returns ctx.Err() with no outcomes.
func Run[J, R any](ctx context.Context, jobs []J, workers int, fn func(context.Context, J) (R, error)) ([]Outcome[R], error) {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	out := make([]Outcome[R], len(jobs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i].Err = err
				return nil
			}
			v, err := fn(ctx, job)
			out[i] = Outcome[R]{Value: v, Err: err}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return errors

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
