package provision

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by FirstOf when the timer wins.
var ErrTimeout = errors.New("operation timed out")

type outcome[T any] struct {
	val T
	err error
}

// FirstOf runs op and returns whichever settles first: op or a timer of d.
// When the timer wins, op's context is cancelled and its late result is dropped.
func FirstOf[T any](ctx context.Context, d time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		v, err := op(opCtx)
		done <- outcome[T]{val: v, err: err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	var zero T
	select {
	case o := <-done:
		return o.val, o.err
	case <-timer.C:
		return zero, ErrTimeout
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
