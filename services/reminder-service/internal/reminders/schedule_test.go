package reminders

import (
	"testing"
	"time"
)

func TestDeriveRemindAts(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	start := now.Add(30 * time.Hour)

	got := DeriveRemindAts(start, []int{24, 2}, now)
	if len(got) != 2 {
		t.Fatalf("expected 2 reminders, got %d", len(got))
	}
	if !got[0].Equal(start.Add(-24 * time.Hour)) {
		t.Fatalf("first reminder at %v", got[0])
	}
	if !got[1].Equal(start.Add(-2 * time.Hour)) {
		t.Fatalf("second reminder at %v", got[1])
	}
	if !got[0].Before(got[1]) {
		t.Fatal("reminders must be ascending")
	}
}

func TestDeriveRemindAtsSkipsPastOffsets(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	start := now.Add(3 * time.Hour)

	got := DeriveRemindAts(start, []int{24, 2}, now)
	if len(got) != 1 {
		t.Fatalf("24h offset is already past, expected 1 reminder, got %d", len(got))
	}
	if !got[0].Equal(start.Add(-2 * time.Hour)) {
		t.Fatalf("reminder at %v", got[0])
	}

	if got := DeriveRemindAts(now.Add(time.Hour), []int{24, 2}, now); len(got) != 0 {
		t.Fatalf("last-minute booking should get no reminders, got %d", len(got))
	}
}

func TestDeriveRemindAtsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	start := now.Add(48 * time.Hour)

	first := DeriveRemindAts(start, []int{24, 24, 2, 0, -5}, now)
	second := DeriveRemindAts(start, []int{24, 24, 2, 0, -5}, now)
	if len(first) != 2 {
		t.Fatalf("duplicate and non-positive offsets should collapse, got %d", len(first))
	}
	if len(first) != len(second) {
		t.Fatal("derivation must be deterministic")
	}
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Fatalf("instant %d differs between runs", i)
		}
	}
}
