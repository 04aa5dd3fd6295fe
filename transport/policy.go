package transport

import (
	"context"
	"errors"
	"time"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"go.uber.org/zap"
)

// Policy executes an outbound collaborator call with bounded retries,
// a per-attempt timeout and exponential backoff. Every outbound call in
// the pipeline goes through one Policy instead of per-call-site retry
// loops.
type Policy struct {
	MaxAttempts int           // total attempts, including the first
	Timeout     time.Duration // per-attempt timeout, 0 disables
	BaseDelay   time.Duration // backoff after the first failure
	MaxDelay    time.Duration // backoff cap
}

// Default is tuned for short control-plane calls (run state, metadata).
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		Timeout:     30 * time.Second,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}
}

// Uploads move file bytes and need a longer attempt window.
func Uploads() Policy {
	return Policy{
		MaxAttempts: 3,
		Timeout:     2 * time.Minute,
		BaseDelay:   time.Second,
		MaxDelay:    15 * time.Second,
	}
}

// Do runs fn until it succeeds, the attempt budget is exhausted, or ctx is
// cancelled. The last error is returned.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if p.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		}

		lastErr = fn(callCtx)
		if cancel != nil {
			cancel()
		}

		if lastErr == nil {
			return nil
		}

		if errors.Is(lastErr, context.Canceled) || ctx.Err() != nil {
			return lastErr
		}

		if attempt == attempts {
			break
		}

		wait := p.backoff(attempt)
		logger.Info("Retrying outbound call",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(lastErr))

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}

func (p Policy) backoff(attempt int) time.Duration {
	wait := p.BaseDelay * time.Duration(1<<uint(attempt-1))
	if p.MaxDelay > 0 && wait > p.MaxDelay {
		wait = p.MaxDelay
	}
	if wait <= 0 {
		wait = time.Second
	}
	return wait
}
