package util

import (
	"context"
	"errors"
)

// RetryWithContext calls fn up to maxTries times until it returns a nil error,
// or until ctx is done. If maxTries <= 0, it defaults to 1.
// Returns ctx.Err() if the context is canceled, otherwise returns the last error.
func RetryWithContext[T any](ctx context.Context, maxTries int, fn func(context.Context) (T, error)) (T, error) {
	if maxTries <= 0 {
		maxTries = 1
	}
	var lastErr error
	var zero T
	for i := 0; i < maxTries; i++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if isContextErr(err) {
			return zero, err
		}
		lastErr = err
	}
	return zero, lastErr
}

// RetryErrWithContext is RetryWithContext for functions that only return an error.
func RetryErrWithContext(ctx context.Context, maxTries int, fn func(context.Context) error) error {
	_, err := RetryWithContext(ctx, maxTries, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RetryUntil calls fn up to maxTries times and stops at the first result that
// accept reports as usable. Errors abort immediately; retrying is driven only
// by unacceptable results. When no attempt is accepted, the last result is
// returned with a nil error. The number of attempts made is always returned.
func RetryUntil[T any](
	ctx context.Context,
	maxTries int,
	fn func(ctx context.Context, attempt int) (T, error),
	accept func(T) bool,
) (T, int, error) {
	if maxTries <= 0 {
		maxTries = 1
	}
	var last T
	attempts := 0
	for i := 1; i <= maxTries; i++ {
		if ctx.Err() != nil {
			return last, attempts, ctx.Err()
		}
		attempts++
		result, err := fn(ctx, i)
		if err != nil {
			return result, attempts, err
		}
		last = result
		if accept(result) {
			return result, attempts, nil
		}
	}
	return last, attempts, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
