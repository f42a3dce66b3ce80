package entity

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from int32
		to   int32
		want bool
	}{
		{PaymentStatusPending, PaymentStatusCompleted, true},
		{PaymentStatusPending, PaymentStatusDelayed, true},
		{PaymentStatusPending, PaymentStatusCancelled, true},
		{PaymentStatusDelayed, PaymentStatusCompleted, true},
		{PaymentStatusDelayed, PaymentStatusPending, false},
		{PaymentStatusCompleted, PaymentStatusCancelled, false},
		{PaymentStatusCancelled, PaymentStatusCompleted, false},
		// An error verdict may be superseded by a confirmed status query.
		{PaymentStatusError, PaymentStatusCompleted, true},
		{PaymentStatusError, PaymentStatusCancelled, true},
		{PaymentStatusError, PaymentStatusPending, false},
		// Same-state transitions are idempotent no-ops.
		{PaymentStatusCompleted, PaymentStatusCompleted, true},
		{PaymentStatusCancelled, PaymentStatusCancelled, true},
	}
	for _, tt := range tests {
		r := &PaymentRecord{Status: tt.from}
		if got := r.CanTransition(tt.to); got != tt.want {
			t.Fatalf("CanTransition(%s -> %s) = %v, want %v", StatusName(tt.from), StatusName(tt.to), got, tt.want)
		}
	}
}

func TestIsTimeToCheck(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		status  int32
		added   time.Duration
		updated time.Duration
		want    bool
	}{
		{"never checked since creation", PaymentStatusPending, 10 * time.Minute, 10 * time.Minute, true},
		{"young and fresh", PaymentStatusPending, 30 * time.Minute, 5 * time.Minute, false},
		{"young and stale", PaymentStatusPending, 30 * time.Minute, 25 * time.Minute, true},
		{"too young for first window", PaymentStatusPending, 3 * time.Minute, 2 * time.Minute, false},
		{"mid age and fresh", PaymentStatusPending, 5 * time.Hour, 1 * time.Hour, false},
		{"mid age and stale", PaymentStatusPending, 5 * time.Hour, 3 * time.Hour, true},
		{"old catch-all stale", PaymentStatusDelayed, 3 * 24 * time.Hour, 20 * time.Hour, true},
		{"old catch-all fresh", PaymentStatusDelayed, 3 * 24 * time.Hour, 6 * time.Hour, false},
		{"beyond max age", PaymentStatusPending, 8 * 24 * time.Hour, 20 * time.Hour, false},
		{"terminal never checked", PaymentStatusCompleted, 30 * time.Minute, 25 * time.Minute, false},
	}
	for _, tt := range tests {
		r := &PaymentRecord{
			Status:      tt.status,
			DateAdded:   now.Add(-tt.added),
			DateUpdated: now.Add(-tt.updated),
		}
		if got := r.IsTimeToCheck(now); got != tt.want {
			t.Fatalf("%s: IsTimeToCheck = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, status := range []int32{PaymentStatusCompleted, PaymentStatusCancelled, PaymentStatusError} {
		if !(&PaymentRecord{Status: status}).IsTerminal() {
			t.Fatalf("expected %s terminal", StatusName(status))
		}
	}
	for _, status := range []int32{PaymentStatusPending, PaymentStatusDelayed} {
		if (&PaymentRecord{Status: status}).IsTerminal() {
			t.Fatalf("expected %s open", StatusName(status))
		}
	}
}

func TestStatusName(t *testing.T) {
	if StatusName(PaymentStatusPending) != "pending" || StatusName(99) != "unknown" {
		t.Fatal("unexpected status names")
	}
}
