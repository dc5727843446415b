package slots

import (
	"time"

	"github.com/slotwise/slotwise/services/booking-service/internal/model"
	"github.com/slotwise/slotwise/services/booking-service/internal/timeutil"
)

// BuildWindows resolves the open windows for every local date in [from, to]
// (inclusive, YYYY-MM-DD) from the weekly rules plus explicit per-date
// windows, in the master's timezone. Excluded dates contribute no windows at
// all; that filter runs before window lookup, not after generation.
func BuildWindows(
	rules []model.AvailabilityRule,
	explicit []model.AvailabilityWindow,
	exclusions []model.Exclusion,
	from, to string,
	tz string,
) ([]Window, error) {
	fromDay, err := timeutil.ParseDate(from, tz)
	if err != nil {
		return nil, err
	}
	toDay, err := timeutil.ParseDate(to, tz)
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]struct{}, len(exclusions))
	for _, e := range exclusions {
		excluded[e.Date] = struct{}{}
	}

	rulesByWeekday := make(map[int][]model.AvailabilityRule)
	for _, r := range rules {
		rulesByWeekday[r.Weekday] = append(rulesByWeekday[r.Weekday], r)
	}
	explicitByDate := make(map[string][]model.AvailabilityWindow)
	for _, w := range explicit {
		explicitByDate[w.Date] = append(explicitByDate[w.Date], w)
	}

	var out []Window
	for day := fromDay; !day.After(toDay); day = day.AddDate(0, 0, 1) {
		date := day.Format("2006-01-02")
		if _, skip := excluded[date]; skip {
			continue
		}

		for _, r := range rulesByWeekday[int(day.Weekday())] {
			win, err := windowFor(date, r.StartTime, r.EndTime, tz, r.StepMins)
			if err != nil {
				return nil, err
			}
			out = append(out, win)
		}
		for _, w := range explicitByDate[date] {
			win, err := windowFor(date, w.StartTime, w.EndTime, tz, 0)
			if err != nil {
				return nil, err
			}
			out = append(out, win)
		}
	}
	return out, nil
}

func windowFor(date, startHM, endHM, tz string, stepMins int) (Window, error) {
	start, err := timeutil.LocalDateTime(date, startHM, tz)
	if err != nil {
		return Window{}, err
	}
	end, err := timeutil.LocalDateTime(date, endHM, tz)
	if err != nil {
		return Window{}, err
	}
	return Window{Date: date, Start: start, End: end, StepMins: stepMins}, nil
}

// Covering returns every window that fully contains [start, end). Overlapping
// windows are legal, so a span can be covered more than once, each time with
// its own candidate grid.
func Covering(windows []Window, start, end time.Time) []Window {
	var out []Window
	for _, w := range windows {
		if !start.Before(w.Start) && !end.After(w.End) {
			out = append(out, w)
		}
	}
	return out
}

// CoversSpan reports whether [start, end) falls entirely inside at least one
// of the windows.
func CoversSpan(windows []Window, start, end time.Time) bool {
	return len(Covering(windows, start, end)) > 0
}
