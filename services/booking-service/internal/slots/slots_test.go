package slots

import (
	"testing"
	"time"
)

func day(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC) // a Monday
}

func window(t *testing.T, startHour, endHour int) Window {
	t.Helper()
	d := day(t)
	return Window{
		Date:  d.Format("2006-01-02"),
		Start: d.Add(time.Duration(startHour) * time.Hour),
		End:   d.Add(time.Duration(endHour) * time.Hour),
	}
}

func TestGenerate_CandidateCount(t *testing.T) {
	// floor((window - totalSpan)/step) + 1 candidates when nothing filters.
	cfg := Config{
		Duration:     45 * time.Minute,
		BufferBefore: 5 * time.Minute,
		BufferAfter:  10 * time.Minute,
		Step:         15 * time.Minute,
	}
	win := window(t, 9, 12) // 180 min, totalSpan 60 min
	got := Generate(cfg, []Window{win}, nil, day(t))
	if len(got) != 9 { // floor(120/15)+1
		t.Fatalf("expected 9 candidates, got %d", len(got))
	}
	if !got[0].Start.Equal(win.Start.Add(5 * time.Minute)) {
		t.Fatalf("first service start should honor bufferBefore, got %s", got[0].Start)
	}
}

func TestGenerate_WindowShorterThanSpan(t *testing.T) {
	cfg := Config{Duration: 2 * time.Hour, Step: 15 * time.Minute}
	got := Generate(cfg, []Window{window(t, 9, 10)}, nil, day(t))
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %d", len(got))
	}
}

func TestGenerate_BufferZoneBlocks(t *testing.T) {
	// Busy interval touches only the after-buffer of the 09:00 candidate: the
	// candidate occupies [09:00, 10:15) with buffers, service is 09:00-10:00.
	cfg := Config{
		Duration:    time.Hour,
		BufferAfter: 15 * time.Minute,
		Step:        time.Hour,
	}
	d := day(t)
	busy := []Interval{{Start: d.Add(10 * time.Hour), End: d.Add(10*time.Hour + 10*time.Minute)}}
	got := Generate(cfg, []Window{window(t, 9, 12)}, busy, d)
	for _, s := range got {
		if s.Start.Equal(d.Add(9 * time.Hour)) {
			t.Fatalf("09:00 slot should be excluded by its after-buffer overlap")
		}
	}
}

func TestGenerate_LeadTimeBoundary(t *testing.T) {
	cfg := Config{Duration: time.Hour, Step: time.Hour, MinLead: 2 * time.Hour}
	d := day(t)

	// serviceStart == now + minLead is bookable.
	now := d.Add(7 * time.Hour)
	got := Generate(cfg, []Window{window(t, 9, 10)}, nil, now)
	if len(got) != 1 {
		t.Fatalf("slot exactly at lead-time boundary should be included, got %d", len(got))
	}

	// One millisecond later it is not.
	got = Generate(cfg, []Window{window(t, 9, 10)}, nil, now.Add(time.Millisecond))
	if len(got) != 0 {
		t.Fatalf("slot 1ms inside lead time should be excluded, got %d", len(got))
	}
}

func TestGenerate_OverlappingWindowsDeduplicate(t *testing.T) {
	cfg := Config{Duration: time.Hour, Step: time.Hour}
	got := Generate(cfg, []Window{window(t, 9, 12), window(t, 10, 12)}, nil, day(t))
	seen := map[int64]bool{}
	for _, s := range got {
		if seen[s.Start.Unix()] {
			t.Fatalf("duplicate slot at %s", s.Start)
		}
		seen[s.Start.Unix()] = true
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 distinct slots, got %d", len(got))
	}
}

func TestGenerate_EndToEndScenario(t *testing.T) {
	// Monday 09:00-12:00, 60-minute service, 60-minute step, no buffers.
	cfg := Config{Duration: time.Hour, Step: time.Hour}
	d := day(t)
	win := []Window{window(t, 9, 12)}

	got := Generate(cfg, win, nil, d)
	wantStarts := []int{9, 10, 11}
	if len(got) != len(wantStarts) {
		t.Fatalf("expected %d slots, got %d", len(wantStarts), len(got))
	}
	for i, h := range wantStarts {
		if !got[i].Start.Equal(d.Add(time.Duration(h) * time.Hour)) {
			t.Fatalf("slot %d: expected %02d:00, got %s", i, h, got[i].Start)
		}
		if !got[i].End.Equal(got[i].Start.Add(time.Hour)) {
			t.Fatalf("slot %d: wrong end %s", i, got[i].End)
		}
	}

	// Booking 10:00 removes exactly the middle slot.
	busy := []Interval{{Start: d.Add(10 * time.Hour), End: d.Add(11 * time.Hour)}}
	got = Generate(cfg, win, busy, d)
	if len(got) != 2 {
		t.Fatalf("expected 2 slots after booking, got %d", len(got))
	}
	if !got[0].Start.Equal(d.Add(9*time.Hour)) || !got[1].Start.Equal(d.Add(11*time.Hour)) {
		t.Fatalf("expected 09:00 and 11:00, got %s and %s", got[0].Start, got[1].Start)
	}

	// Cancelling it restores all three.
	got = Generate(cfg, win, nil, d)
	if len(got) != 3 {
		t.Fatalf("expected 3 slots after cancellation, got %d", len(got))
	}
}

func TestGenerate_PerWindowStep(t *testing.T) {
	cfg := Config{Duration: 30 * time.Minute, Step: 30 * time.Minute}
	win := window(t, 9, 10)
	win.StepMins = 15
	got := Generate(cfg, []Window{win}, nil, day(t))
	if len(got) != 3 { // 09:00, 09:15, 09:30
		t.Fatalf("expected 3 slots with 15-minute step, got %d", len(got))
	}
}
