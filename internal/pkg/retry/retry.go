// Package retry implements the bounded-retry policy the ingestion
// orchestrator applies to storage writes: a small number of attempts with
// exponential backoff, short-circuited for errors that are not transient.
package retry

import (
	"context"
	"math/rand"
	"time"

	apperrors "github.com/agenttrace/agenttrace/api/internal/pkg/errors"
)

// Policy configures retry behavior.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64 // 0-1, adds randomness to the delay
}

// DefaultPolicy is 3 attempts with exponential backoff starting at 50ms.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.2,
	}
}

// Do runs fn, retrying up to MaxAttempts times with exponential backoff.
// Retries stop early once fn returns a non-transient error (validation,
// conflict, not-found) or once the context is cancelled.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	var lastErr error
	delay := policy.InitialDelay

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !apperrors.IsTransient(err) {
			return err
		}
		if attempt == policy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(withJitter(delay, policy.Jitter)):
		}
		delay = nextDelay(delay, policy)
	}

	return lastErr
}

func nextDelay(current time.Duration, policy Policy) time.Duration {
	next := time.Duration(float64(current) * policy.Multiplier)
	if next > policy.MaxDelay {
		return policy.MaxDelay
	}
	return next
}

func withJitter(d time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return d
	}
	delta := float64(d) * jitter
	return d + time.Duration(rand.Float64()*delta*2-delta)
}
