package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"mediadigest/internal/services"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	var delays []time.Duration
	policy := services.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Sleeper:     func(d time.Duration) { delays = append(delays, d) },
	}

	calls := 0
	err := services.Retry(context.Background(), nil, policy, "download", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky network")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Fatalf("unexpected backoff delays: %v", delays)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	policy := services.Policy{MaxAttempts: 5, BaseDelay: time.Second, Sleeper: func(time.Duration) {}}

	calls := 0
	permanent := services.Wrap(services.ErrPrecondition, "audio", "download", "no audio url", nil)
	err := services.Retry(context.Background(), nil, policy, "download", func(context.Context) error {
		calls++
		return permanent
	})
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt for a permanent error, got %d", calls)
	}
}

func TestRetryExhaustionWrapsAttemptCount(t *testing.T) {
	policy := services.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, Sleeper: func(time.Duration) {}}

	err := services.Retry(context.Background(), nil, policy, "download", func(context.Context) error {
		return errors.New("still down")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got := err.Error(); got != "download: failed after 2 attempts: still down" {
		t.Fatalf("unexpected error message: %q", got)
	}
}

func TestRetryDelayCapped(t *testing.T) {
	var delays []time.Duration
	policy := services.Policy{
		MaxAttempts: 4,
		BaseDelay:   time.Minute,
		MaxDelay:    90 * time.Second,
		Sleeper:     func(d time.Duration) { delays = append(delays, d) },
	}

	_ = services.Retry(context.Background(), nil, policy, "download", func(context.Context) error {
		return errors.New("down")
	})
	for _, d := range delays {
		if d > 90*time.Second {
			t.Fatalf("delay %v exceeds cap", d)
		}
	}
}
