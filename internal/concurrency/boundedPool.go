package concurrency

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunBounded calls job for every arg with at most limit calls in flight.
// Every job runs regardless of failures, the returned slice holds one error (or nil) per arg.
func RunBounded[T any](ctx context.Context, limit int, jobArgs []T, job func(ctx context.Context, arg T) error) []error {
	errs := make([]error, len(jobArgs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, limit))
	for i, arg := range jobArgs {
		i, arg := i, arg
		g.Go(func() error {
			errs[i] = job(gctx, arg)
			// swallowed so one failure doesn't cancel the rest
			return nil
		})
	}
	_ = g.Wait()

	return errs
}
