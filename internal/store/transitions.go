package store

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a status change is not in the legal
// transition table. Callers must treat it as a bug or a stale read, never
// ignore it.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrNotCompleted is returned when a summary is saved for an item whose
// status is not completed. The eligibility queries should make this
// unreachable; hitting it means an upstream invariant broke.
var ErrNotCompleted = errors.New("item is not completed")

// ErrUnknownItem is returned for operations against an identity the store
// has never seen.
var ErrUnknownItem = errors.New("unknown item")

// legalTransitions is the full lifecycle: pending -> in_progress ->
// completed, failures from either pre-terminal state, explicit retry of
// failed items, and manual skip of anything not yet completed.
var legalTransitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusFailed, StatusSkipped},
	StatusInProgress: {StatusCompleted, StatusFailed, StatusSkipped},
	StatusFailed:     {StatusPending, StatusSkipped},
	StatusCompleted:  {},
	StatusSkipped:    {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func validateTransition(from, to Status) error {
	if _, ok := statusSet[to]; !ok {
		return fmt.Errorf("%w: unknown target status %q", ErrInvalidTransition, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
