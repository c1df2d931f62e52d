package store

import "testing"

func TestCanTransitionTable(t *testing.T) {
	legal := []struct{ from, to Status }{
		{StatusPending, StatusInProgress},
		{StatusPending, StatusFailed},
		{StatusPending, StatusSkipped},
		{StatusInProgress, StatusCompleted},
		{StatusInProgress, StatusFailed},
		{StatusInProgress, StatusSkipped},
		{StatusFailed, StatusPending},
		{StatusFailed, StatusSkipped},
	}
	for _, tc := range legal {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be legal", tc.from, tc.to)
		}
	}

	illegal := []struct{ from, to Status }{
		{StatusPending, StatusCompleted},
		{StatusPending, StatusPending},
		{StatusInProgress, StatusPending},
		{StatusInProgress, StatusInProgress},
		{StatusFailed, StatusInProgress},
		{StatusFailed, StatusCompleted},
		{StatusCompleted, StatusPending},
		{StatusCompleted, StatusInProgress},
		{StatusCompleted, StatusFailed},
		{StatusCompleted, StatusSkipped},
		{StatusSkipped, StatusPending},
		{StatusSkipped, StatusInProgress},
		{StatusSkipped, StatusFailed},
	}
	for _, tc := range illegal {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, terminal := range []Status{StatusCompleted, StatusSkipped} {
		for _, target := range AllStatuses() {
			if CanTransition(terminal, target) {
				t.Errorf("terminal status %s must not transition to %s", terminal, target)
			}
		}
	}
}

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"pending", StatusPending, true},
		{"  In_Progress ", StatusInProgress, true},
		{"COMPLETED", StatusCompleted, true},
		{"failed", StatusFailed, true},
		{"skipped", StatusSkipped, true},
		{"", "", false},
		{"done", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseStatus(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseStatus(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
