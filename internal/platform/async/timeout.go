// Package async provides small concurrency helpers shared by the store layer.
package async

import (
	"context"
	"errors"
	"time"
)

// ErrTimedOut is returned when an operation exceeds its deadline and the
// fallback value is served instead.
var ErrTimedOut = errors.New("async: operation timed out")

type outcome[T any] struct {
	value T
	err   error
}

// WithTimeout runs op under a deadline derived from ctx. When the deadline
// fires first, fallback is returned with ErrTimedOut and the abandoned
// operation's eventual result is discarded; the buffered channel guarantees
// the late goroutine can always complete its send and exit.
func WithTimeout[T any](ctx context.Context, d time.Duration, op func(context.Context) (T, error), fallback T) (T, error) {
	if d <= 0 {
		return op(ctx)
	}

	opCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		value, err := op(opCtx)
		done <- outcome[T]{value: value, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-opCtx.Done():
		if ctx.Err() != nil {
			return fallback, ctx.Err()
		}
		return fallback, ErrTimedOut
	}
}
