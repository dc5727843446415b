package timeutil

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidTimeFormat = errors.New("invalid time format")

// LocalDateTime converts a local wall-clock date ("2006-01-02") and time
// ("15:04") in the named IANA zone to an absolute instant. DST transitions
// are handled by the zone database, not an offset table.
func LocalDateTime(date, hm, tz string) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+hm, loc)
	if err != nil {
		return time.Time{}, ErrInvalidTimeFormat
	}
	return t, nil
}

// ParseDate parses a local calendar date in the named zone, at midnight.
func ParseDate(date, tz string) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	t, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, ErrInvalidTimeFormat
	}
	return t, nil
}
