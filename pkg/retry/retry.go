package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/types"
)

// Policy bounds the harness. Jitter spreads retries from many tenants
// failing at once so they do not land on the dependency in lockstep.
type Policy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	// Rand returns a value in [0,1). Defaults to math/rand; injected in
	// tests for deterministic backoff assertions.
	Rand func() float64

	// Sleep pauses between attempts. Defaults to a ctx-aware sleep.
	Sleep func(ctx context.Context, d time.Duration)
}

// DefaultPolicy returns the production retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseBackoff: 250 * time.Millisecond,
		MaxBackoff:  5 * time.Second,
	}
}

// Backoff computes the jittered delay before attempt (0-based):
// min(MaxBackoff, BaseBackoff * 2^attempt * rand[0,1)).
func (p Policy) Backoff(attempt int) time.Duration {
	r := rand.Float64
	if p.Rand != nil {
		r = p.Rand
	}
	d := time.Duration(float64(p.BaseBackoff) * math.Pow(2, float64(attempt)) * r())
	if d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	return d
}

func (p Policy) sleep(ctx context.Context, d time.Duration) {
	if p.Sleep != nil {
		p.Sleep(ctx, d)
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// Do runs one logical operation with bounded retries. Each attempt gets a
// fresh handle from acquire: a handle that failed once must not be reused.
// Only errors marked infrastructure-transient are retried; application
// errors and overload signals surface unchanged on the first attempt, and
// exhausting the budget re-raises the last error unchanged.
func Do[H any](ctx context.Context, p Policy, acquire func(ctx context.Context) (H, error), op func(ctx context.Context, h H) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			metrics.RetriesTotal.Inc()
			p.sleep(ctx, p.Backoff(attempt-1))
			if ctx.Err() != nil {
				return lastErr
			}
		}

		h, err := acquire(ctx)
		if err == nil {
			err = op(ctx, h)
		}
		if err == nil {
			return nil
		}
		lastErr = err
		if !types.IsRetryable(err) {
			return lastErr
		}
	}
	return lastErr
}
