package timeutil

import (
	"errors"
	"testing"
	"time"
)

func TestLocalDateTime(t *testing.T) {
	got, err := LocalDateTime("2026-03-02", "09:30", "Europe/Berlin")
	if err != nil {
		t.Fatalf("LocalDateTime failed: %v", err)
	}
	if got.UTC() != time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC) {
		t.Fatalf("unexpected instant: %s", got.UTC().Format(time.RFC3339))
	}
}

func TestLocalDateTimeDST(t *testing.T) {
	// Berlin switches to CEST on 2026-03-29; the same wall-clock time is one
	// hour earlier in UTC after the transition.
	before, err := LocalDateTime("2026-03-28", "12:00", "Europe/Berlin")
	if err != nil {
		t.Fatalf("LocalDateTime failed: %v", err)
	}
	after, err := LocalDateTime("2026-03-30", "12:00", "Europe/Berlin")
	if err != nil {
		t.Fatalf("LocalDateTime failed: %v", err)
	}
	if before.UTC().Hour() != 11 {
		t.Fatalf("expected 11:00 UTC before transition, got %d", before.UTC().Hour())
	}
	if after.UTC().Hour() != 10 {
		t.Fatalf("expected 10:00 UTC after transition, got %d", after.UTC().Hour())
	}
}

func TestLocalDateTimeMalformed(t *testing.T) {
	if _, err := LocalDateTime("2026-03-02", "9h30", "Europe/Berlin"); !errors.Is(err, ErrInvalidTimeFormat) {
		t.Fatalf("expected ErrInvalidTimeFormat, got %v", err)
	}
	if _, err := LocalDateTime("02.03.2026", "09:30", "Europe/Berlin"); !errors.Is(err, ErrInvalidTimeFormat) {
		t.Fatalf("expected ErrInvalidTimeFormat, got %v", err)
	}
	if _, err := LocalDateTime("2026-03-02", "09:30", "Mars/Olympus"); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
