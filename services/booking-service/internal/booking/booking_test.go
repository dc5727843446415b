package booking

import (
	"errors"
	"testing"
	"time"

	"github.com/slotwise/slotwise/services/booking-service/internal/slots"
)

func TestStatusTransitions(t *testing.T) {
	if err := CanConfirm(StatusPending); err != nil {
		t.Fatalf("pending should be confirmable: %v", err)
	}
	if err := CanConfirm(StatusConfirmed); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("confirmed should not be confirmable again, got %v", err)
	}
	if err := CanComplete(StatusConfirmed); err != nil {
		t.Fatalf("confirmed should be completable: %v", err)
	}
	if err := CanComplete(StatusPending); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("pending should not be completable, got %v", err)
	}
	for _, s := range []Status{StatusPending, StatusConfirmed} {
		if err := CanMutate(s); err != nil {
			t.Fatalf("%s should allow cancel/reschedule: %v", s, err)
		}
	}
	for _, s := range []Status{StatusCompleted, StatusCancelled} {
		if err := CanMutate(s); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("%s is terminal, got %v", s, err)
		}
	}
}

func TestCheckAlignment(t *testing.T) {
	open := time.Date(2026, 4, 6, 9, 0, 0, 0, time.UTC)
	win := slots.Window{Date: "2026-04-06", Start: open, End: open.Add(3 * time.Hour)}
	covering := []slots.Window{win}

	if err := CheckAlignment(covering, open); err != nil {
		t.Fatalf("window start should be on the grid: %v", err)
	}
	if err := CheckAlignment(covering, open.Add(30*time.Minute)); err != nil {
		t.Fatalf("09:30 should be on the grid: %v", err)
	}
	if err := CheckAlignment(covering, open.Add(5*time.Minute)); !errors.Is(err, ErrMisalignedStart) {
		t.Fatalf("09:05 block start is off the 10m grid, got %v", err)
	}
	if err := CheckAlignment(covering, open.Add(10*time.Minute+time.Second)); !errors.Is(err, ErrMisalignedStart) {
		t.Fatalf("sub-minute offset should be misaligned, got %v", err)
	}
	if err := CheckAlignment(nil, open); !errors.Is(err, ErrMisalignedStart) {
		t.Fatalf("no covering window can put a start on any grid, got %v", err)
	}
}

// A window that does not start on a clean clock boundary, or a per-window
// step override, moves the grid with it.
func TestCheckAlignmentFollowsWindowGrid(t *testing.T) {
	open := time.Date(2026, 4, 6, 9, 15, 0, 0, time.UTC)
	win := slots.Window{Date: "2026-04-06", Start: open, End: open.Add(3 * time.Hour)}

	if err := CheckAlignment([]slots.Window{win}, open.Add(20*time.Minute)); err != nil {
		t.Fatalf("09:35 is on the grid anchored at 09:15: %v", err)
	}
	if err := CheckAlignment([]slots.Window{win}, open.Add(15*time.Minute)); !errors.Is(err, ErrMisalignedStart) {
		t.Fatalf("09:30 is off the grid anchored at 09:15, got %v", err)
	}

	stepped := win
	stepped.StepMins = 45
	if err := CheckAlignment([]slots.Window{stepped}, open.Add(90*time.Minute)); err != nil {
		t.Fatalf("two 45m steps from the window start should pass: %v", err)
	}
	if err := CheckAlignment([]slots.Window{stepped}, open.Add(30*time.Minute)); !errors.Is(err, ErrMisalignedStart) {
		t.Fatalf("30m offset is off a 45m grid, got %v", err)
	}

	// Before the window start there is no candidate, so no grid hit either.
	if err := CheckAlignment([]slots.Window{win}, open.Add(-10*time.Minute)); !errors.Is(err, ErrMisalignedStart) {
		t.Fatalf("negative offset should be misaligned, got %v", err)
	}
}

// Every slot the generator offers must be reservable: with a 5-minute buffer
// the first service start over a 09:00 window lands on 09:05, and the block
// it occupies still sits on the window's walk.
func TestGeneratedSlotsPassAlignment(t *testing.T) {
	open := time.Date(2026, 4, 6, 9, 0, 0, 0, time.UTC)
	win := slots.Window{Date: "2026-04-06", Start: open, End: open.Add(3 * time.Hour)}
	cfg := slots.Config{
		Duration:     30 * time.Minute,
		BufferBefore: 5 * time.Minute,
		Step:         SlotAlignment,
	}

	offered := slots.Generate(cfg, []slots.Window{win}, nil, open.Add(-24*time.Hour))
	if len(offered) == 0 {
		t.Fatal("expected slots over a 3h window")
	}
	if want := open.Add(5 * time.Minute); !offered[0].Start.Equal(want) {
		t.Fatalf("first offered start = %s, want %s", offered[0].Start, want)
	}
	for _, s := range offered {
		blockStart := s.Start.Add(-cfg.BufferBefore)
		if err := CheckAlignment([]slots.Window{win}, blockStart); err != nil {
			t.Fatalf("offered slot %s not reservable: %v", s.Start, err)
		}
	}
}

func TestCheckNotice(t *testing.T) {
	now := time.Date(2026, 4, 6, 8, 0, 0, 0, time.UTC)
	if err := CheckNotice(now.Add(time.Hour), now, time.Hour); err != nil {
		t.Fatalf("start exactly at notice boundary should pass: %v", err)
	}
	if err := CheckNotice(now.Add(59*time.Minute), now, time.Hour); !errors.Is(err, ErrInsufficientNotice) {
		t.Fatalf("start inside notice should fail, got %v", err)
	}
}

func TestCheckCancelPolicy(t *testing.T) {
	now := time.Date(2026, 4, 6, 8, 0, 0, 0, time.UTC)
	if err := CheckCancelPolicy(now.Add(13*time.Hour), now, 12); err != nil {
		t.Fatalf("13h ahead with 12h policy should pass: %v", err)
	}
	if err := CheckCancelPolicy(now.Add(11*time.Hour), now, 12); !errors.Is(err, ErrPolicyViolation) {
		t.Fatalf("11h ahead with 12h policy should fail, got %v", err)
	}
	if err := CheckCancelPolicy(now.Add(time.Minute), now, 0); err != nil {
		t.Fatalf("zero policy hours disables the check: %v", err)
	}
}

func TestApplyFirstVisitDiscount(t *testing.T) {
	if got := ApplyFirstVisitDiscount("100.00", 20); got != "80.00" {
		t.Fatalf("expected 80.00, got %s", got)
	}
	if got := ApplyFirstVisitDiscount("35.50", 10); got != "31.95" {
		t.Fatalf("expected 31.95, got %s", got)
	}
	if got := ApplyFirstVisitDiscount("100.00", 0); got != "100.00" {
		t.Fatalf("zero percent should be a no-op, got %s", got)
	}
	if got := ApplyFirstVisitDiscount("not-a-price", 20); got != "not-a-price" {
		t.Fatalf("malformed price should pass through, got %s", got)
	}
}

func TestAddPrices(t *testing.T) {
	if got := AddPrices("100.00", "35.50"); got != "135.50" {
		t.Fatalf("expected 135.50, got %s", got)
	}
	if got := AddPrices("10", "0.05"); got != "10.05" {
		t.Fatalf("expected 10.05, got %s", got)
	}
	if got := AddPrices("oops", "35.50"); got != "35.50" {
		t.Fatalf("malformed operand should not poison the sum, got %s", got)
	}
}
