package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cuemby/burrow/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  10 * time.Millisecond,
		Rand:        func() float64 { return 0.5 },
		Sleep:       func(context.Context, time.Duration) {},
	}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), testPolicy(),
		func(context.Context) (int, error) { return 42, nil },
		func(_ context.Context, h int) error {
			calls++
			if calls < 3 {
				return types.Transient(errors.New("connection reset"))
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoNeverRetriesApplicationErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"already provisioned", types.ErrAlreadyProvisioned},
		{"not provisioned", types.ErrNotProvisioned},
		{"overload", types.Overloaded(errors.New("too many requests"))},
		{"plain error", errors.New("bug")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), testPolicy(),
				func(context.Context) (struct{}, error) { return struct{}{}, nil },
				func(context.Context, struct{}) error {
					calls++
					return tt.err
				})

			assert.ErrorIs(t, err, tt.err, "error must surface unchanged")
			assert.Equal(t, 1, calls)
		})
	}
}

func TestDoExhaustsBudgetAndReturnsLastError(t *testing.T) {
	calls := 0
	last := types.Transient(errors.New("still down"))
	err := Do(context.Background(), testPolicy(),
		func(context.Context) (struct{}, error) { return struct{}{}, nil },
		func(context.Context, struct{}) error {
			calls++
			return last
		})

	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, last)
}

func TestDoAcquiresFreshHandlePerAttempt(t *testing.T) {
	acquired := 0
	var seen []int
	err := Do(context.Background(), testPolicy(),
		func(context.Context) (int, error) {
			acquired++
			return acquired, nil
		},
		func(_ context.Context, h int) error {
			seen = append(seen, h)
			if h < 2 {
				return types.Transient(errors.New("broken handle"))
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen, "each attempt must use a new handle")
}

func TestDoRetriesTransientAcquireFailures(t *testing.T) {
	acquires := 0
	err := Do(context.Background(), testPolicy(),
		func(context.Context) (struct{}, error) {
			acquires++
			if acquires == 1 {
				return struct{}{}, types.Transient(errors.New("resolver down"))
			}
			return struct{}{}, nil
		},
		func(context.Context, struct{}) error { return nil })

	require.NoError(t, err)
	assert.Equal(t, 2, acquires)
}

func TestBackoffIsJitteredAndCapped(t *testing.T) {
	p := Policy{
		BaseBackoff: 100 * time.Millisecond,
		MaxBackoff:  time.Second,
		Rand:        func() float64 { return 1.0 },
	}

	// base * 2^n, monotone until the cap.
	assert.Equal(t, 100*time.Millisecond, p.Backoff(0))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 400*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 800*time.Millisecond, p.Backoff(3))
	assert.Equal(t, time.Second, p.Backoff(4), "capped")
	assert.Equal(t, time.Second, p.Backoff(10), "still capped")

	// Zero jitter zeroes everything.
	p.Rand = func() float64 { return 0 }
	assert.Equal(t, time.Duration(0), p.Backoff(5))
}
