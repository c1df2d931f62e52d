package services_test

import (
	"context"
	"errors"
	"testing"

	"mediadigest/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrPrecondition, "audio", "download", "missing url", base)
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected precondition marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error, got %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "summarize", "rate", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestRetryableClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"precondition", services.Wrap(services.ErrPrecondition, "audio", "", "no audio url", nil), false},
		{"validation", services.Wrap(services.ErrValidation, "config", "", "bad value", nil), false},
		{"not found", services.Wrap(services.ErrNotFound, "store", "", "unknown guid", nil), false},
		{"canceled", context.Canceled, false},
		{"http 401", &services.HTTPStatusError{StatusCode: 401}, false},
		{"http 404", &services.HTTPStatusError{StatusCode: 404}, false},
		{"http 408", &services.HTTPStatusError{StatusCode: 408}, true},
		{"http 429", &services.HTTPStatusError{StatusCode: 429}, true},
		{"http 500", &services.HTTPStatusError{StatusCode: 500}, true},
		{"plain error", errors.New("connection reset"), true},
		{"transient marker", services.Wrap(services.ErrTransient, "llm", "", "flaky", nil), true},
	}
	for _, tc := range cases {
		if got := services.Retryable(tc.err); got != tc.want {
			t.Errorf("%s: Retryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}
