package reminders

import "time"

// InQuietHours reports whether the instant falls in the master's local quiet
// window. The window may wrap midnight (start > end means "quiet from start
// until end the next day"); the end bound is exclusive. Empty bounds disable
// the check.
func InQuietHours(at time.Time, startHM, endHM string, loc *time.Location) bool {
	start, okS := minuteOfDay(startHM)
	end, okE := minuteOfDay(endHM)
	if !okS || !okE || start == end {
		return false
	}
	local := at.In(loc)
	m := local.Hour()*60 + local.Minute()
	if start < end {
		return m >= start && m < end
	}
	return m >= start || m < end
}

// QuietWindowEnd returns the next instant at or after `at` where the quiet
// window closes, used to defer a reminder instead of dropping it.
func QuietWindowEnd(at time.Time, startHM, endHM string, loc *time.Location) time.Time {
	end, ok := minuteOfDay(endHM)
	if !ok {
		return at
	}
	local := at.In(loc)
	candidate := time.Date(local.Year(), local.Month(), local.Day(), end/60, end%60, 0, 0, loc)
	if !candidate.After(local) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

func minuteOfDay(hm string) (int, bool) {
	t, err := time.Parse("15:04", hm)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
