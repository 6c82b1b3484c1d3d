package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallel2_BothSucceed(t *testing.T) {
	date, quote, err := Parallel2(context.Background(),
		func(context.Context) (string, error) { return "Tue Mar 05 2024", nil },
		func(context.Context) (string, error) { return "Stay hungry.", nil },
	)

	require.NoError(t, err)
	assert.Equal(t, "Tue Mar 05 2024", date)
	assert.Equal(t, "Stay hungry.", quote)
}

func TestParallel2_RunsConcurrently(t *testing.T) {
	// Each call waits for the other to start; run sequentially they would
	// deadlock until the context deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	started1, started2 := make(chan struct{}), make(chan struct{})

	wait := func(mine, other chan struct{}) func(context.Context) (int, error) {
		return func(ctx context.Context) (int, error) {
			close(mine)
			select {
			case <-other:
				return 1, nil
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}
	}

	a, b, err := Parallel2(ctx, wait(started1, started2), wait(started2, started1))

	require.NoError(t, err)
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestParallel2_ErrorCancelsSibling(t *testing.T) {
	diskErr := errors.New("disk I/O error")

	var siblingErr error

	date, quote, err := Parallel2(context.Background(),
		func(context.Context) (string, error) { return "", diskErr },
		func(ctx context.Context) (string, error) {
			<-ctx.Done()
			siblingErr = ctx.Err()

			return "ignored", siblingErr
		},
	)

	require.ErrorIs(t, err, diskErr)
	assert.ErrorIs(t, siblingErr, context.Canceled)
	assert.Empty(t, date)
	assert.Empty(t, quote)
}

func TestParallel2_PanicBecomesError(t *testing.T) {
	_, quote, err := Parallel2(context.Background(),
		func(context.Context) (string, error) { panic("nil map write") },
		func(context.Context) (string, error) { return "Stay hungry.", nil },
	)

	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "nil map write", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)
	assert.Contains(t, err.Error(), "nil map write")
	assert.Empty(t, quote)
}
