package concurrency

import (
	"context"
	"time"
)

// ThrottledWorker runs jobs one at a time with a fixed gap after each job
type ThrottledWorker[T any] struct {
	jobCallback func(ctx context.Context, arg T) error
	gap         time.Duration
	sleep       func(time.Duration)
}

func NewThrottledWorker[T any](gap time.Duration, jobCallback func(ctx context.Context, arg T) error) *ThrottledWorker[T] {
	return &ThrottledWorker[T]{jobCallback: jobCallback, gap: gap, sleep: time.Sleep}
}

// WithSleep replaces the function used to wait between jobs
func (w *ThrottledWorker[T]) WithSleep(sleep func(time.Duration)) *ThrottledWorker[T] {
	if sleep != nil {
		w.sleep = sleep
	}
	return w
}

// Run stops at the first failing job and returns its error
func (w *ThrottledWorker[T]) Run(ctx context.Context, jobArgs []T) error {
	for _, arg := range jobArgs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.jobCallback(ctx, arg); err != nil {
			return err
		}
		w.sleep(w.gap)
	}
	return nil
}
