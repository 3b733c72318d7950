package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fast = Policy{WarmUp: time.Millisecond, Interval: time.Millisecond, MaxAttempts: 5}

func TestDo_SucceedsEventually(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsBudget(t *testing.T) {
	notYet := errors.New("not yet")
	calls := 0
	err := Do(context.Background(), fast, func(context.Context) error {
		calls++
		return notYet
	})
	assert.ErrorIs(t, err, notYet)
	assert.Contains(t, err.Error(), "gave up after 5 attempts")
	assert.Equal(t, 5, calls)
}

func TestDo_PermanentStops(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	err := Do(context.Background(), fast, func(context.Context) error {
		calls++
		return Permanent(fatal)
	})
	assert.Equal(t, fatal, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Policy{Interval: time.Hour, MaxAttempts: 3}, func(context.Context) error {
		calls++
		cancel()
		return errors.New("not yet")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "interrupted after 1 attempts")
	assert.Equal(t, 1, calls)
}

func TestValue(t *testing.T) {
	n := 0
	got, err := Value(context.Background(), fast, func(context.Context) (int, error) {
		n++
		if n == 2 {
			return 42, nil
		}
		return 0, errors.New("not yet")
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}
