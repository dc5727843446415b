package reminders

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/slotwise/slotwise/services/reminder-service/internal/notify"
	"github.com/slotwise/slotwise/services/reminder-service/internal/storage"
)

type fakeStore struct {
	due        []storage.Claimed
	unclaimed  map[int64]time.Time
	unclaimErr map[int64]error
}

func (s *fakeStore) ClaimDue(_ context.Context, _ time.Time) ([]storage.Claimed, error) {
	out := s.due
	s.due = nil
	return out, nil
}

func (s *fakeStore) Unclaim(_ context.Context, id int64, remindAt time.Time) error {
	if err := s.unclaimErr[id]; err != nil {
		return err
	}
	if s.unclaimed == nil {
		s.unclaimed = map[int64]time.Time{}
	}
	s.unclaimed[id] = remindAt
	return nil
}

type fakeSender struct {
	sent []string
	err  error
}

func (s *fakeSender) Send(_ context.Context, chatID, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, chatID)
	return nil
}

func (s *fakeSender) ProviderID() string { return "fake" }

func claimedReminder(id int64, chatID, status string, remindAt time.Time) storage.Claimed {
	return storage.Claimed{
		Reminder: storage.Reminder{ID: id, BookingID: "b1", RemindAt: remindAt, Sent: true},
		Booking: storage.BookingSnapshot{
			BookingID:   "b1",
			ChatID:      chatID,
			ServiceName: "Haircut",
			StartTime:   remindAt.Add(24 * time.Hour),
			Timezone:    "UTC",
			Status:      status,
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestTickDeliversDueReminders(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{due: []storage.Claimed{claimedReminder(1, "chat-1", "confirmed", now)}}
	sender := &fakeSender{}
	w := NewWorker(store, sender, testLogger(), WorkerConfig{})

	processed, err := w.Tick(context.Background(), now)
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "chat-1" {
		t.Fatalf("unexpected deliveries: %v", sender.sent)
	}
}

func TestTickSkipsCancelledBooking(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{due: []storage.Claimed{claimedReminder(1, "chat-1", "cancelled", now)}}
	sender := &fakeSender{}
	w := NewWorker(store, sender, testLogger(), WorkerConfig{})

	processed, err := w.Tick(context.Background(), now)
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("cancelled booking should not be delivered, got %v", sender.sent)
	}
}

func TestTickDefersDuringQuietHours(t *testing.T) {
	now := time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)
	c := claimedReminder(1, "chat-1", "confirmed", now)
	c.Booking.QuietStart = "22:00"
	c.Booking.QuietEnd = "08:00"
	store := &fakeStore{due: []storage.Claimed{c}}
	sender := &fakeSender{}
	w := NewWorker(store, sender, testLogger(), WorkerConfig{})

	if _, err := w.Tick(context.Background(), now); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatal("quiet-hours reminder should not be delivered")
	}
	deferred, ok := store.unclaimed[1]
	if !ok {
		t.Fatal("reminder should be unclaimed for later")
	}
	want := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	if !deferred.Equal(want) {
		t.Fatalf("deferred to %v, want %v", deferred, want)
	}
}

func TestTickUnclaimsOnRetryableFailure(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	c := claimedReminder(1, "chat-1", "confirmed", now)
	store := &fakeStore{due: []storage.Claimed{c}}
	sender := &fakeSender{err: notify.Retryable(errors.New("gateway timeout"))}
	w := NewWorker(store, sender, testLogger(), WorkerConfig{})

	processed, err := w.Tick(context.Background(), now)
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if processed != 0 {
		t.Fatalf("processed = %d, want 0", processed)
	}
	deferred, ok := store.unclaimed[1]
	if !ok {
		t.Fatal("retryable failure should unclaim the reminder")
	}
	if !deferred.Equal(c.RemindAt) {
		t.Fatalf("unclaimed at %v, want original %v", deferred, c.RemindAt)
	}
}

// One reminder whose unclaim fails must not strand the rest of the claimed
// batch: later rows still get delivered, the failed row stays claimed for
// operator attention.
func TestTickContinuesPastUnclaimFailure(t *testing.T) {
	now := time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)
	quiet := claimedReminder(1, "chat-1", "confirmed", now)
	quiet.Booking.QuietStart = "22:00"
	quiet.Booking.QuietEnd = "08:00"
	deliverable := claimedReminder(2, "chat-2", "confirmed", now)
	deliverable.Booking.BookingID = "b2"

	store := &fakeStore{
		due:        []storage.Claimed{quiet, deliverable},
		unclaimErr: map[int64]error{1: errors.New("connection reset")},
	}
	sender := &fakeSender{}
	w := NewWorker(store, sender, testLogger(), WorkerConfig{})

	processed, err := w.Tick(context.Background(), now)
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "chat-2" {
		t.Fatalf("second reminder should still be delivered, got %v", sender.sent)
	}
	if len(store.unclaimed) != 0 {
		t.Fatalf("failed unclaim should leave nothing rescheduled, got %v", store.unclaimed)
	}
}

func TestTickPermanentFailureStaysClaimed(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{due: []storage.Claimed{claimedReminder(1, "chat-1", "confirmed", now)}}
	sender := &fakeSender{err: errors.New("unknown chat")}
	w := NewWorker(store, sender, testLogger(), WorkerConfig{})

	processed, err := w.Tick(context.Background(), now)
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}
	if len(store.unclaimed) != 0 {
		t.Fatal("permanent failure should not unclaim")
	}
}
