package slots

import (
	"testing"
	"time"

	"github.com/slotwise/slotwise/services/booking-service/internal/model"
)

func TestBuildWindows_RulesAndExclusions(t *testing.T) {
	rules := []model.AvailabilityRule{
		{Weekday: 1, StartTime: "09:00", EndTime: "12:00", StepMins: 60}, // Mondays
	}
	exclusions := []model.Exclusion{{Date: "2026-04-13"}}

	// 2026-04-06 and 2026-04-13 are Mondays; the latter is excluded.
	wins, err := BuildWindows(rules, nil, exclusions, "2026-04-06", "2026-04-14", "UTC")
	if err != nil {
		t.Fatalf("BuildWindows failed: %v", err)
	}
	if len(wins) != 1 {
		t.Fatalf("expected 1 window, got %d", len(wins))
	}
	if wins[0].Date != "2026-04-06" {
		t.Fatalf("unexpected window date %s", wins[0].Date)
	}
	if wins[0].StepMins != 60 {
		t.Fatalf("rule step not carried, got %d", wins[0].StepMins)
	}
	want := time.Date(2026, 4, 6, 9, 0, 0, 0, time.UTC)
	if !wins[0].Start.Equal(want) {
		t.Fatalf("unexpected window start %s", wins[0].Start)
	}
}

func TestBuildWindows_ExplicitWindowAugmentsRules(t *testing.T) {
	rules := []model.AvailabilityRule{
		{Weekday: 1, StartTime: "09:00", EndTime: "12:00"},
	}
	explicit := []model.AvailabilityWindow{
		{Date: "2026-04-06", StartTime: "14:00", EndTime: "16:00"},
	}
	wins, err := BuildWindows(rules, explicit, nil, "2026-04-06", "2026-04-06", "UTC")
	if err != nil {
		t.Fatalf("BuildWindows failed: %v", err)
	}
	if len(wins) != 2 {
		t.Fatalf("expected rule + explicit windows, got %d", len(wins))
	}
}

func TestBuildWindows_MasterTimezone(t *testing.T) {
	rules := []model.AvailabilityRule{
		{Weekday: 1, StartTime: "09:00", EndTime: "10:00"},
	}
	wins, err := BuildWindows(rules, nil, nil, "2026-04-06", "2026-04-06", "Europe/Berlin")
	if err != nil {
		t.Fatalf("BuildWindows failed: %v", err)
	}
	if len(wins) != 1 {
		t.Fatalf("expected 1 window, got %d", len(wins))
	}
	if wins[0].Start.UTC().Hour() != 7 { // CEST in April
		t.Fatalf("expected 07:00 UTC start, got %s", wins[0].Start.UTC())
	}
}

func TestCoversSpan(t *testing.T) {
	d := time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC)
	wins := []Window{{Start: d.Add(9 * time.Hour), End: d.Add(12 * time.Hour)}}

	if !CoversSpan(wins, d.Add(9*time.Hour), d.Add(12*time.Hour)) {
		t.Fatal("full window span should be covered")
	}
	if CoversSpan(wins, d.Add(11*time.Hour), d.Add(12*time.Hour+time.Minute)) {
		t.Fatal("span past window end should not be covered")
	}
	if CoversSpan(wins, d.Add(8*time.Hour+59*time.Minute), d.Add(10*time.Hour)) {
		t.Fatal("span before window start should not be covered")
	}
}
