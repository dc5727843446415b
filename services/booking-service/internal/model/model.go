package model

import "time"

type Master struct {
	ID        string
	Slug      string
	Name      string
	Timezone  string
	CreatedAt time.Time
}

type Client struct {
	ID        string
	ChatID    string
	Name      string
	CreatedAt time.Time
}

// Service is a bookable offering. Buffers pad the calendar around the billable
// duration; deactivation hides the service from slot generation without
// touching booking history.
type Service struct {
	ID            string
	MasterID      string
	Name          string
	DurationMins  int
	BufferBefore  int
	BufferAfter   int
	Price         string
	Active        bool
	CreatedAt     time.Time
}

// AvailabilityRule is the recurring weekly template (weekday 0=Sunday..6).
// Times are local wall-clock "HH:MM" in the master's timezone.
type AvailabilityRule struct {
	ID        string
	MasterID  string
	Weekday   int
	StartTime string
	EndTime   string
	StepMins  int
}

// AvailabilityWindow is an explicit per-date open interval; it augments the
// weekly rules for masters doing ad-hoc scheduling.
type AvailabilityWindow struct {
	ID        string
	MasterID  string
	Date      string // YYYY-MM-DD local
	StartTime string
	EndTime   string
}

// Exclusion removes a whole date from availability regardless of rules or
// windows. Unique per (master, date).
type Exclusion struct {
	ID       string
	MasterID string
	Date     string
}

// Block is a manually declared busy interval not tied to a client booking.
// Source distinguishes master-entered blocks from intervals mirrored in by
// calendar sync.
type Block struct {
	ID        string
	MasterID  string
	StartTime time.Time
	EndTime   time.Time
	Reason    string
	Source    string // "manual" | "calendar"
	CreatedAt time.Time
}

type Booking struct {
	ID              string
	MasterID        string
	ServiceID       string
	ExtraServiceIDs []string
	ClientID        string
	StartTime       time.Time
	EndTime         time.Time
	Status          string
	Source          string // "client" | "admin"
	ClientNote      string
	MasterNote      string
	Price           string
	CancelledAt     *time.Time
	CreatedAt       time.Time
}

// MasterSettings carries per-master policy knobs. Zero-valued fields fall
// back to the defaults in DefaultSettings.
type MasterSettings struct {
	MasterID             string
	ReminderOffsetsHours []int
	QuietStart           string // local "HH:MM"; empty disables quiet hours
	QuietEnd             string
	MinNoticeMins        int
	CancelPolicyHours    int
	FirstVisitDiscount   int // percent
	CalendarFeedEnabled  bool
}

func DefaultSettings(masterID string) MasterSettings {
	return MasterSettings{
		MasterID:             masterID,
		ReminderOffsetsHours: []int{24, 2},
		MinNoticeMins:        60,
		CancelPolicyHours:    12,
	}
}
