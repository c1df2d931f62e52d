package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Policy controls retry attempts and exponential backoff timing.
type Policy struct {
	// MaxAttempts includes the first try. Values below 1 behave as 1.
	MaxAttempts int
	// BaseDelay is the wait after the first failure; it doubles per attempt.
	BaseDelay time.Duration
	// MaxDelay caps the backoff. Zero means uncapped.
	MaxDelay time.Duration
	// Sleeper overrides how waits are performed. Tests inject a recorder.
	Sleeper func(time.Duration)
}

// DefaultDownloadPolicy mirrors the audio fetch defaults: three attempts
// with a sixty second base doubling per attempt.
func DefaultDownloadPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 60 * time.Second, MaxDelay: 10 * time.Minute}
}

// Retry runs op until it succeeds, the error classifies as terminal, the
// attempts are exhausted, or the context is done. The final error is returned
// wrapped with the attempt count when retries were exhausted.
func Retry(ctx context.Context, logger *slog.Logger, policy Policy, label string, op func(context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts || !Retryable(lastErr) {
			break
		}
		delay := policy.delay(attempt)
		if logger != nil {
			logger.Warn("retrying after failure",
				slog.String("operation", label),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", attempts),
				slog.Duration("delay", delay),
				slog.Any("error", lastErr),
			)
		}
		if err := sleep(ctx, policy.Sleeper, delay); err != nil {
			return err
		}
	}

	if Retryable(lastErr) && attempts > 1 {
		return fmt.Errorf("%s: failed after %d attempts: %w", label, attempts, lastErr)
	}
	return lastErr
}

func (p Policy) delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		if p.MaxDelay > 0 && delay > p.MaxDelay/2 {
			return p.MaxDelay
		}
		delay *= 2
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

func sleep(ctx context.Context, sleeper func(time.Duration), delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx == nil {
		return errors.New("retry: nil context")
	}
	if sleeper != nil {
		sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
