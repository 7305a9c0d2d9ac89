// Package retry provides the retry-with-fallback combinator used by every
// LLM-backed pipeline stage.
package retry

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
)

// Policy defines retry behavior for a stage
type Policy struct {
	MaxAttempts  int
	BackoffType  string // "fibonacci", "exponential", "linear"
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultPolicy returns the default retry policy
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		BackoffType:  "fibonacci",
		InitialDelay: time.Second,
		MaxDelay:     60 * time.Second,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BackoffType == "" {
		p.BackoffType = "fibonacci"
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 60 * time.Second
	}
	return p
}

// Do executes call up to policy.MaxAttempts times. A call error or a
// validation error counts as a transient failure and triggers another
// attempt with the same input. After the final attempt fails, fallback
// resolves the stage; a nil fallback propagates the last error.
func Do[T any](
	ctx context.Context,
	logger ectologger.Logger,
	stage string,
	policy Policy,
	call func(context.Context) (T, error),
	validate func(T) error,
	fallback func(error) (T, error),
) (T, error) {
	policy = policy.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		result, err := call(ctx)
		if err == nil && validate != nil {
			err = validate(result)
		}
		if err == nil {
			return result, nil
		}

		lastErr = err
		logger.WithContext(ctx).WithError(err).Warnf("Stage %s attempt %d/%d failed", stage, attempt, policy.MaxAttempts)

		if attempt < policy.MaxAttempts {
			delay := CalculateBackoff(policy, attempt)
			select {
			case <-ctx.Done():
				var zero T
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	if fallback != nil {
		logger.WithContext(ctx).Infof("Stage %s exhausted %d attempts, using fallback", stage, policy.MaxAttempts)
		return fallback(lastErr)
	}

	var zero T
	return zero, lastErr
}

// CalculateBackoff calculates the backoff delay for a retry
func CalculateBackoff(policy Policy, attempt int) time.Duration {
	policy = policy.withDefaults()

	var delay time.Duration
	switch policy.BackoffType {
	case "exponential":
		delay = exponentialBackoff(policy.InitialDelay, attempt)
	case "linear":
		delay = linearBackoff(policy.InitialDelay, attempt)
	default:
		delay = fibonacciBackoff(policy.InitialDelay, attempt)
	}

	if delay > policy.MaxDelay {
		delay = policy.MaxDelay
	}

	return delay
}

// fibonacciBackoff calculates Fibonacci backoff delay
func fibonacciBackoff(initial time.Duration, attempt int) time.Duration {
	if attempt <= 1 {
		return initial
	}
	a, b := 1, 1
	for i := 2; i < attempt; i++ {
		a, b = b, a+b
	}
	return initial * time.Duration(b)
}

// exponentialBackoff calculates exponential backoff delay
func exponentialBackoff(initial time.Duration, attempt int) time.Duration {
	multiplier := 1
	for i := 1; i < attempt; i++ {
		multiplier *= 2
	}
	return initial * time.Duration(multiplier)
}

// linearBackoff calculates linear backoff delay
func linearBackoff(initial time.Duration, attempt int) time.Duration {
	return initial * time.Duration(attempt)
}
