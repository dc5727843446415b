package slots

import "time"

type Interval struct {
	Start time.Time
	End   time.Time
}

// Window is an open-for-business interval on a specific local date. StepMins
// overrides the generation step for this window when > 0.
type Window struct {
	Date     string // YYYY-MM-DD local
	Start    time.Time
	End      time.Time
	StepMins int
}

func (w Window) step(def time.Duration) time.Duration {
	if w.StepMins > 0 {
		return time.Duration(w.StepMins) * time.Minute
	}
	return def
}

// OnCandidateGrid reports whether blockStart sits on the walk Generate runs
// for this window: w.Start + k*step, k >= 0. defaultStep applies when the
// window carries no step override.
func (w Window) OnCandidateGrid(blockStart time.Time, defaultStep time.Duration) bool {
	step := w.step(defaultStep)
	if step <= 0 {
		return false
	}
	offset := blockStart.Sub(w.Start)
	return offset >= 0 && offset%step == 0
}

// Slot is a candidate bookable interval. Start/End bound the billable
// service time; the buffers around it still block the calendar but are not
// surfaced to the client.
type Slot struct {
	Date  string
	Start time.Time
	End   time.Time
}

// Config describes one generation pass. Multi-service appointments are
// handled by the caller substituting the summed duration; the generator is
// unaware of service composition.
type Config struct {
	Duration     time.Duration
	BufferBefore time.Duration
	BufferAfter  time.Duration
	Step         time.Duration
	MinLead      time.Duration
}

// Generate walks candidate block-start instants through each window and
// returns the surviving slots in window order, deduplicated on service
// start. All times are absolute instants; busy holds existing bookings and
// blocks as half-open [start, end) intervals.
//
// A candidate occupies [candidate, candidate+bufferBefore+duration+bufferAfter)
// on the calendar and is discarded when any busy interval overlaps that full
// span, not just the billable part.
func Generate(cfg Config, windows []Window, busy []Interval, now time.Time) []Slot {
	if cfg.Duration <= 0 || cfg.Step <= 0 {
		return nil
	}
	totalSpan := cfg.BufferBefore + cfg.Duration + cfg.BufferAfter
	earliest := now.Add(cfg.MinLead)

	var out []Slot
	seen := make(map[int64]struct{})
	for _, win := range windows {
		step := win.step(cfg.Step)
		// A window shorter than the total span yields no candidates.
		for c := win.Start; !c.Add(totalSpan).After(win.End); c = c.Add(step) {
			serviceStart := c.Add(cfg.BufferBefore)
			serviceEnd := serviceStart.Add(cfg.Duration)
			blockEnd := serviceEnd.Add(cfg.BufferAfter)

			if serviceStart.Before(earliest) {
				continue
			}
			if overlapsAny(c, blockEnd, busy) {
				continue
			}
			key := serviceStart.UnixMilli()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, Slot{Date: win.Date, Start: serviceStart, End: serviceEnd})
		}
	}
	return out
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		// Half-open intervals: [start,end) overlaps [b.Start,b.End) iff start < b.End && b.Start < end.
		if b.Start.Before(end) && b.End.After(start) {
			return true
		}
	}
	return false
}
