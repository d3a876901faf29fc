// Package retry provides an exponential-backoff retry combinator for
// fallible operations such as backend CLI invocations.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Policy configures retry behavior.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultPolicy returns the retry policy used for backend queries.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// normalize fills in sane values for zero or nonsensical fields.
func (p Policy) normalize() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 1 * time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.Multiplier <= 1.0 {
		p.Multiplier = 2.0
	}
	return p
}

// Delay returns the backoff delay before the given attempt (1-based).
// The first attempt has no delay.
func (p Policy) Delay(attempt int) time.Duration {
	p = p.normalize()
	if attempt <= 1 {
		return 0
	}

	// delay = initial * multiplier^(attempt-2), capped at MaxDelay
	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-2))
	if delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// Do invokes op until it succeeds or the policy's attempts are exhausted,
// sleeping the backoff delay between attempts. The last error is returned
// once attempts run out. Context cancellation aborts the wait.
func Do(ctx context.Context, p Policy, op func() error) error {
	p = p.normalize()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if delay := p.Delay(attempt); delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if lastErr = op(); lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", p.MaxAttempts, lastErr)
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, p, func() error {
		var opErr error
		result, opErr = op()
		return opErr
	})
	return result, err
}
