package booking

import (
	"errors"
	"time"

	"github.com/slotwise/slotwise/services/booking-service/internal/slots"
)

// Error kinds surfaced by the reservation protocol. Handlers map these onto
// HTTP statuses; SlotConflict is deliberately the same error whether it came
// from the application pre-check or the database exclusion constraint.
var (
	ErrServiceNotFound    = errors.New("service not found")
	ErrMisalignedStart    = errors.New("start time is not aligned to the slot grid")
	ErrInsufficientNotice = errors.New("start time is inside the minimum booking notice")
	ErrOutsideAvailability = errors.New("requested span is outside open availability")
	ErrActiveBookingLimit = errors.New("active booking limit reached for this master")
	ErrSlotConflict       = errors.New("slot is already booked")
	ErrInvalidState       = errors.New("booking is in a terminal state")
	ErrPolicyViolation    = errors.New("cancellation policy window has passed")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ActiveBookingCap is the per-client anti-spam throttle: at most this many
// future pending/confirmed bookings with one master.
const ActiveBookingCap = 3

// SlotAlignment is the default candidate step for windows without a
// per-window override, the same default the slot generator walks with.
const SlotAlignment = 10 * time.Minute

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func CanConfirm(s Status) error {
	if s != StatusPending {
		return ErrInvalidState
	}
	return nil
}

func CanComplete(s Status) error {
	if s != StatusConfirmed {
		return ErrInvalidState
	}
	return nil
}

// CanMutate guards cancel and reschedule: both are allowed from any
// non-terminal state.
func CanMutate(s Status) error {
	if s.Terminal() {
		return ErrInvalidState
	}
	return nil
}

// CheckAlignment verifies the requested block starts on the candidate walk
// of at least one window covering it. Buffers and per-window step overrides
// shift that walk, so alignment is relative to the window start, not to a
// wall-clock boundary: every slot the generator offers must pass here.
func CheckAlignment(covering []slots.Window, blockStart time.Time) error {
	for _, w := range covering {
		if w.OnCandidateGrid(blockStart, SlotAlignment) {
			return nil
		}
	}
	return ErrMisalignedStart
}

// CheckNotice enforces the master's minimum booking notice.
func CheckNotice(start, now time.Time, minNotice time.Duration) error {
	if start.Before(now.Add(minNotice)) {
		return ErrInsufficientNotice
	}
	return nil
}

// CheckCancelPolicy rejects mutations of bookings that start within the
// master's cancellation window.
func CheckCancelPolicy(start, now time.Time, policyHours int) error {
	if policyHours <= 0 {
		return nil
	}
	if start.Sub(now) < time.Duration(policyHours)*time.Hour {
		return ErrPolicyViolation
	}
	return nil
}

// ApplyFirstVisitDiscount returns price reduced by percent, formatted with
// two decimals. price is a decimal string as stored; a malformed price is
// returned unchanged rather than failing the booking.
func ApplyFirstVisitDiscount(price string, percent int) string {
	if percent <= 0 || percent > 100 {
		return price
	}
	cents, ok := parsePriceCents(price)
	if !ok {
		return price
	}
	discounted := cents * int64(100-percent) / 100
	return formatPriceCents(discounted)
}
