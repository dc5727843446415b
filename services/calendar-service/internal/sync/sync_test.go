package sync

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/slotwise/slotwise/services/calendar-service/internal/gcal"
	"github.com/slotwise/slotwise/services/calendar-service/internal/storage"
)

type fakeStore struct {
	bindings map[string]storage.Binding
	mappings map[string]storage.Mapping
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bindings: map[string]storage.Binding{},
		mappings: map[string]storage.Mapping{},
	}
}

func (f *fakeStore) GetBinding(_ context.Context, masterID string) (storage.Binding, error) {
	b, ok := f.bindings[masterID]
	if !ok {
		return storage.Binding{}, pgx.ErrNoRows
	}
	return b, nil
}

func (f *fakeStore) GetMapping(_ context.Context, bookingID string) (storage.Mapping, error) {
	m, ok := f.mappings[bookingID]
	if !ok {
		return storage.Mapping{}, pgx.ErrNoRows
	}
	return m, nil
}

func (f *fakeStore) UpsertMapping(_ context.Context, m storage.Mapping) error {
	f.mappings[m.BookingID] = m
	return nil
}

func (f *fakeStore) DeleteMapping(_ context.Context, bookingID string) error {
	delete(f.mappings, bookingID)
	return nil
}

type fakeRemote struct {
	creates int
	updates int
	deletes int
	nextID  string
}

func (f *fakeRemote) CreateEvent(_ context.Context, _ *storage.Binding, _ gcal.Event) (string, error) {
	f.creates++
	return f.nextID, nil
}

func (f *fakeRemote) UpdateEvent(_ context.Context, _ *storage.Binding, _ string, _ gcal.Event) error {
	f.updates++
	return nil
}

func (f *fakeRemote) DeleteEvent(_ context.Context, _ *storage.Binding, _ string) error {
	f.deletes++
	return nil
}

func testView() BookingView {
	return BookingView{
		BookingID:   "b1",
		MasterID:    "m1",
		ServiceName: "Haircut",
		Start:       time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		End:         time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
		Status:      "confirmed",
	}
}

func newTestSyncer(store *fakeStore, remote *fakeRemote) *Syncer {
	return NewSyncer(store, remote, slog.Default())
}

func TestContentHashSensitivity(t *testing.T) {
	v := testView()
	base := ContentHash(v.Start, v.End, v.Status, v.ServiceName)
	if ContentHash(v.Start, v.End, v.Status, v.ServiceName) != base {
		t.Fatal("hash must be deterministic")
	}
	if ContentHash(v.Start.Add(time.Minute), v.End, v.Status, v.ServiceName) == base {
		t.Fatal("start change must change the hash")
	}
	if ContentHash(v.Start, v.End, "cancelled", v.ServiceName) == base {
		t.Fatal("status change must change the hash")
	}
	if ContentHash(v.Start, v.End, v.Status, "Massage") == base {
		t.Fatal("service name change must change the hash")
	}
}

func TestSyncBookingCreatesThenSkips(t *testing.T) {
	store := newFakeStore()
	store.bindings["m1"] = storage.Binding{MasterID: "m1", CalendarID: "cal"}
	remote := &fakeRemote{nextID: "ev-1"}
	s := newTestSyncer(store, remote)
	ctx := context.Background()

	if err := s.SyncBooking(ctx, testView()); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if remote.creates != 1 {
		t.Fatalf("expected 1 create, got %d", remote.creates)
	}
	if store.mappings["b1"].RemoteEventID != "ev-1" {
		t.Fatal("mapping not recorded")
	}

	// Same state again: the stored hash matches and no remote call happens.
	if err := s.SyncBooking(ctx, testView()); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if remote.creates != 1 || remote.updates != 0 {
		t.Fatalf("unchanged booking must be a no-op, creates=%d updates=%d", remote.creates, remote.updates)
	}
}

func TestSyncBookingUpdatesOnChange(t *testing.T) {
	store := newFakeStore()
	store.bindings["m1"] = storage.Binding{MasterID: "m1", CalendarID: "cal"}
	remote := &fakeRemote{nextID: "ev-1"}
	s := newTestSyncer(store, remote)
	ctx := context.Background()

	if err := s.SyncBooking(ctx, testView()); err != nil {
		t.Fatalf("create: %v", err)
	}

	moved := testView()
	moved.Start = moved.Start.Add(time.Hour)
	moved.End = moved.End.Add(time.Hour)
	if err := s.SyncBooking(ctx, moved); err != nil {
		t.Fatalf("update: %v", err)
	}
	if remote.updates != 1 {
		t.Fatalf("expected 1 update, got %d", remote.updates)
	}
	want := ContentHash(moved.Start, moved.End, moved.Status, moved.ServiceName)
	if store.mappings["b1"].ContentHash != want {
		t.Fatal("stored hash must follow the update")
	}
}

func TestSyncBookingWithoutBindingIsNoop(t *testing.T) {
	store := newFakeStore()
	remote := &fakeRemote{}
	s := newTestSyncer(store, remote)

	if err := s.SyncBooking(context.Background(), testView()); err != nil {
		t.Fatalf("unbound master must be a no-op: %v", err)
	}
	if remote.creates != 0 {
		t.Fatal("no remote call expected without a binding")
	}
}

func TestRemoveBooking(t *testing.T) {
	store := newFakeStore()
	store.bindings["m1"] = storage.Binding{MasterID: "m1", CalendarID: "cal"}
	store.mappings["b1"] = storage.Mapping{BookingID: "b1", MasterID: "m1", RemoteEventID: "ev-1"}
	remote := &fakeRemote{}
	s := newTestSyncer(store, remote)
	ctx := context.Background()

	if err := s.RemoveBooking(ctx, "m1", "b1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if remote.deletes != 1 {
		t.Fatalf("expected 1 delete, got %d", remote.deletes)
	}
	if _, ok := store.mappings["b1"]; ok {
		t.Fatal("mapping must be dropped")
	}

	// No mapping left: removing again is already done.
	if err := s.RemoveBooking(ctx, "m1", "b1"); err != nil {
		t.Fatalf("idempotent remove: %v", err)
	}
	if remote.deletes != 1 {
		t.Fatal("no second remote delete expected")
	}
}
