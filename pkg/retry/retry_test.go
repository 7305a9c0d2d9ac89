package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		BackoffType:  "linear",
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), testLogger(), "gate", fastPolicy(),
		func(ctx context.Context) (string, error) {
			calls++
			return "PROCEED", nil
		},
		nil,
		nil,
	)

	require.NoError(t, err)
	assert.Equal(t, "PROCEED", result)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientFailures(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), testLogger(), "synthesize", fastPolicy(),
		func(ctx context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("provider error")
			}
			return "briefing", nil
		},
		nil,
		nil,
	)

	require.NoError(t, err)
	assert.Equal(t, "briefing", result)
	assert.Equal(t, 3, calls)
}

func TestDo_NeverExceedsMaxAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), testLogger(), "draft", fastPolicy(),
		func(ctx context.Context) (string, error) {
			calls++
			return "", errors.New("provider error")
		},
		nil,
		nil,
	)

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ValidationFailureCountsAsTransient(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), testLogger(), "gate", fastPolicy(),
		func(ctx context.Context) (string, error) {
			calls++
			return "MAYBE", nil
		},
		func(s string) error {
			if s != "PROCEED" && s != "DISCARD" {
				return errors.New("malformed verdict")
			}
			return nil
		},
		func(err error) (string, error) {
			return "DISCARD", nil
		},
	)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "DISCARD", result)
}

func TestDo_FallbackEngagesAfterExhaustion(t *testing.T) {
	var fallbackErr error
	result, err := Do(context.Background(), testLogger(), "curate", fastPolicy(),
		func(ctx context.Context) ([]string, error) {
			return nil, errors.New("provider error")
		},
		nil,
		func(err error) ([]string, error) {
			fallbackErr = err
			return []string{"top-1", "top-2", "top-3"}, nil
		},
	)

	require.NoError(t, err)
	assert.Equal(t, []string{"top-1", "top-2", "top-3"}, result)
	assert.EqualError(t, fallbackErr, "provider error")
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := fastPolicy()
	policy.InitialDelay = time.Second
	policy.MaxDelay = time.Second

	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Do(ctx, testLogger(), "search", policy,
		func(ctx context.Context) (string, error) {
			calls++
			return "", errors.New("provider error")
		},
		nil,
		nil,
	)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		name     string
		policy   Policy
		attempt  int
		expected time.Duration
	}{
		{
			name:     "fibonacci first attempt",
			policy:   Policy{BackoffType: "fibonacci", InitialDelay: time.Second, MaxDelay: time.Minute, MaxAttempts: 3},
			attempt:  1,
			expected: time.Second,
		},
		{
			name:     "fibonacci fourth attempt",
			policy:   Policy{BackoffType: "fibonacci", InitialDelay: time.Second, MaxDelay: time.Minute, MaxAttempts: 3},
			attempt:  4,
			expected: 2 * time.Second,
		},
		{
			name:     "exponential third attempt",
			policy:   Policy{BackoffType: "exponential", InitialDelay: time.Second, MaxDelay: time.Minute, MaxAttempts: 3},
			attempt:  3,
			expected: 4 * time.Second,
		},
		{
			name:     "linear second attempt",
			policy:   Policy{BackoffType: "linear", InitialDelay: time.Second, MaxDelay: time.Minute, MaxAttempts: 3},
			attempt:  2,
			expected: 2 * time.Second,
		},
		{
			name:     "capped at max delay",
			policy:   Policy{BackoffType: "exponential", InitialDelay: time.Second, MaxDelay: 3 * time.Second, MaxAttempts: 3},
			attempt:  10,
			expected: 3 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CalculateBackoff(tt.policy, tt.attempt))
		})
	}
}
