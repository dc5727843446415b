package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/slotwise/slotwise/services/booking-service/internal/booking"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// domainStatus maps reservation-protocol errors to HTTP statuses. Anything
// unmapped is a server fault.
func domainStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, booking.ErrServiceNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, booking.ErrMisalignedStart),
		errors.Is(err, booking.ErrInsufficientNotice),
		errors.Is(err, booking.ErrOutsideAvailability),
		errors.Is(err, booking.ErrPolicyViolation):
		return http.StatusUnprocessableEntity, true
	case errors.Is(err, booking.ErrActiveBookingLimit):
		return http.StatusTooManyRequests, true
	case errors.Is(err, booking.ErrSlotConflict),
		errors.Is(err, booking.ErrInvalidState):
		return http.StatusConflict, true
	}
	return 0, false
}

func writeDomainError(w http.ResponseWriter, err error) bool {
	if status, ok := domainStatus(err); ok {
		http.Error(w, err.Error(), status)
		return true
	}
	return false
}
