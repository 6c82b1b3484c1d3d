package app

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// PanicError is returned by Parallel2 when one of its calls panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in parallel call: %v", e.Value)
}

// Parallel2 runs two independent calls concurrently and returns both
// results, or the first error. The shared context is canceled as soon as
// either call fails. A panic in either call is returned as a *PanicError
// so a misbehaving store adapter cannot take the process down.
func Parallel2[T1, T2 any](
	ctx context.Context,
	fn1 func(context.Context) (T1, error),
	fn2 func(context.Context) (T2, error),
) (T1, T2, error) {
	var (
		result1 T1
		result2 T2
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		defer recoverInto(&err)

		result1, err = fn1(ctx)

		return err
	})

	g.Go(func() (err error) {
		defer recoverInto(&err)

		result2, err = fn2(ctx)

		return err
	})

	if err := g.Wait(); err != nil {
		var (
			zero1 T1
			zero2 T2
		)

		return zero1, zero2, err
	}

	return result1, result2, nil
}

func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = &PanicError{Value: r, Stack: debug.Stack()}
	}
}
