package reminders

import (
	"testing"
	"time"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 1, hour, min, 0, 0, time.UTC)
}

func TestInQuietHoursSameDayWindow(t *testing.T) {
	if !InQuietHours(at(13, 0), "12:00", "14:00", time.UTC) {
		t.Fatal("13:00 is inside 12:00-14:00")
	}
	if InQuietHours(at(14, 0), "12:00", "14:00", time.UTC) {
		t.Fatal("end bound is exclusive")
	}
	if !InQuietHours(at(12, 0), "12:00", "14:00", time.UTC) {
		t.Fatal("start bound is inclusive")
	}
	if InQuietHours(at(11, 59), "12:00", "14:00", time.UTC) {
		t.Fatal("11:59 is before the window")
	}
}

func TestInQuietHoursWrapsMidnight(t *testing.T) {
	if !InQuietHours(at(23, 30), "22:00", "08:00", time.UTC) {
		t.Fatal("23:30 is inside 22:00-08:00")
	}
	if !InQuietHours(at(3, 0), "22:00", "08:00", time.UTC) {
		t.Fatal("03:00 is inside 22:00-08:00")
	}
	if InQuietHours(at(8, 0), "22:00", "08:00", time.UTC) {
		t.Fatal("08:00 is the exclusive end")
	}
	if InQuietHours(at(12, 0), "22:00", "08:00", time.UTC) {
		t.Fatal("noon is outside 22:00-08:00")
	}
}

func TestInQuietHoursDisabled(t *testing.T) {
	if InQuietHours(at(3, 0), "", "", time.UTC) {
		t.Fatal("empty bounds disable quiet hours")
	}
	if InQuietHours(at(3, 0), "10:00", "10:00", time.UTC) {
		t.Fatal("equal bounds disable quiet hours")
	}
}

func TestInQuietHoursUsesLocalZone(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// 22:30 UTC is 23:30 in Berlin (winter).
	instant := time.Date(2026, 1, 10, 22, 30, 0, 0, time.UTC)
	if !InQuietHours(instant, "23:00", "07:00", berlin) {
		t.Fatal("quiet hours must be evaluated in the master's zone")
	}
	if InQuietHours(instant, "23:00", "07:00", time.UTC) {
		t.Fatal("22:30 UTC is outside 23:00-07:00 UTC")
	}
}

func TestQuietWindowEnd(t *testing.T) {
	got := QuietWindowEnd(at(23, 30), "22:00", "08:00", time.UTC)
	want := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("deferred to %v, want %v", got, want)
	}

	got = QuietWindowEnd(at(3, 0), "22:00", "08:00", time.UTC)
	want = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("deferred to %v, want %v", got, want)
	}
}
