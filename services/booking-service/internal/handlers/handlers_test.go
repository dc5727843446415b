package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/slotwise/slotwise/services/booking-service/internal/booking"
	"github.com/slotwise/slotwise/services/booking-service/internal/model"
)

func TestDomainStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{booking.ErrServiceNotFound, http.StatusNotFound},
		{booking.ErrMisalignedStart, http.StatusUnprocessableEntity},
		{booking.ErrInsufficientNotice, http.StatusUnprocessableEntity},
		{booking.ErrOutsideAvailability, http.StatusUnprocessableEntity},
		{booking.ErrPolicyViolation, http.StatusUnprocessableEntity},
		{booking.ErrActiveBookingLimit, http.StatusTooManyRequests},
		{booking.ErrSlotConflict, http.StatusConflict},
		{booking.ErrInvalidState, http.StatusConflict},
	}
	for _, c := range cases {
		status, ok := domainStatus(c.err)
		if !ok {
			t.Fatalf("%v should be a domain error", c.err)
		}
		if status != c.status {
			t.Fatalf("%v: got status %d, want %d", c.err, status, c.status)
		}
	}
	if _, ok := domainStatus(http.ErrBodyNotAllowed); ok {
		t.Fatal("unrelated error should not map to a domain status")
	}
}

func TestSplitIDs(t *testing.T) {
	got := splitIDs(" a, b ,,c ")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected ids: %v", got)
	}
}

func TestTotalDurationAndTrailingBuffer(t *testing.T) {
	primary := model.Service{DurationMins: 60, BufferBefore: 10, BufferAfter: 15}
	extras := []model.Service{
		{DurationMins: 30, BufferAfter: 5},
	}
	if d := totalDuration(primary, extras); d != 90*time.Minute {
		t.Fatalf("total duration = %v, want 90m", d)
	}
	if b := bufferAfter(primary, extras); b != 5*time.Minute {
		t.Fatalf("trailing buffer = %v, want 5m (last service wins)", b)
	}
	if b := bufferAfter(primary, nil); b != 15*time.Minute {
		t.Fatalf("trailing buffer = %v, want 15m", b)
	}
}

func TestDateAndTimeValidation(t *testing.T) {
	if !validDate("2026-03-01") || validDate("2026-3-1") || validDate("") {
		t.Fatal("date validation mismatch")
	}
	if !validHM("09:30") || validHM("9:30") || validHM("24:00") {
		t.Fatal("HH:MM validation mismatch")
	}
}
