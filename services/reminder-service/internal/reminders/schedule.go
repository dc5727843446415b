package reminders

import (
	"sort"
	"time"
)

// DeriveRemindAts computes the reminder instants for a booking start from
// the configured hours-before offsets. Offsets that already lie in the past
// are skipped, not back-filled: a last-minute booking simply gets fewer
// reminders. Output is ascending and duplicate-free.
func DeriveRemindAts(start time.Time, offsetsHours []int, now time.Time) []time.Time {
	seen := make(map[int64]struct{}, len(offsetsHours))
	var out []time.Time
	for _, h := range offsetsHours {
		if h <= 0 {
			continue
		}
		at := start.Add(-time.Duration(h) * time.Hour)
		if !at.After(now) {
			continue
		}
		key := at.UnixMilli()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, at)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
