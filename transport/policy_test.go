package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), "test", func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), "test", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsBudget(t *testing.T) {
	p := Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), "test", func(ctx context.Context) error {
		calls++
		return errors.New("still down")
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Contains(t, err.Error(), "still down")
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, "test", func(ctx context.Context) error {
			calls++
			return errors.New("transient")
		})
	}()

	cancel()
	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
	assert.LessOrEqual(t, calls, 2)
}

func TestBackoffIsCapped(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: 4 * time.Second}

	assert.Equal(t, time.Second, p.backoff(1))
	assert.Equal(t, 2*time.Second, p.backoff(2))
	assert.Equal(t, 4*time.Second, p.backoff(3))
	assert.Equal(t, 4*time.Second, p.backoff(6))
}

func TestDoZeroAttemptsStillRunsOnce(t *testing.T) {
	p := Policy{}

	calls := 0
	_ = p.Do(context.Background(), "test", func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.Equal(t, 1, calls)
}
