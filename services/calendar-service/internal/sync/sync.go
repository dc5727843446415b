package sync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/slotwise/slotwise/services/calendar-service/internal/gcal"
	"github.com/slotwise/slotwise/services/calendar-service/internal/storage"
)

// BookingView is the slice of a booking that the remote event displays.
type BookingView struct {
	BookingID   string
	MasterID    string
	ServiceName string
	Start       time.Time
	End         time.Time
	Status      string
}

// ContentHash fingerprints the display-relevant fields. Equal hashes mean
// the remote event already shows this state and the push can be skipped.
func ContentHash(start, end time.Time, status, serviceName string) string {
	h := sha256.New()
	h.Write([]byte(start.UTC().Format(time.RFC3339)))
	h.Write([]byte("|"))
	h.Write([]byte(end.UTC().Format(time.RFC3339)))
	h.Write([]byte("|"))
	h.Write([]byte(status))
	h.Write([]byte("|"))
	h.Write([]byte(serviceName))
	return hex.EncodeToString(h.Sum(nil))
}

// Remote is the external calendar surface the syncer drives.
type Remote interface {
	CreateEvent(ctx context.Context, binding *storage.Binding, ev gcal.Event) (string, error)
	UpdateEvent(ctx context.Context, binding *storage.Binding, eventID string, ev gcal.Event) error
	DeleteEvent(ctx context.Context, binding *storage.Binding, eventID string) error
}

// Store is the subset of the repository the syncer needs.
type Store interface {
	GetBinding(ctx context.Context, masterID string) (storage.Binding, error)
	GetMapping(ctx context.Context, bookingID string) (storage.Mapping, error)
	UpsertMapping(ctx context.Context, m storage.Mapping) error
	DeleteMapping(ctx context.Context, bookingID string) error
}

type Syncer struct {
	store  Store
	remote Remote
	logger *slog.Logger
}

func NewSyncer(store Store, remote Remote, logger *slog.Logger) *Syncer {
	return &Syncer{store: store, remote: remote, logger: logger}
}

// SyncBooking pushes the booking state to the bound calendar. No binding
// means the master never connected a calendar and the call is a no-op; an
// unchanged content hash skips the remote write entirely.
func (s *Syncer) SyncBooking(ctx context.Context, v BookingView) error {
	binding, err := s.store.GetBinding(ctx, v.MasterID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil
		}
		return err
	}

	hash := ContentHash(v.Start, v.End, v.Status, v.ServiceName)
	ev := gcal.Event{
		Summary: v.ServiceName,
		Start:   v.Start,
		End:     v.End,
	}

	mapping, err := s.store.GetMapping(ctx, v.BookingID)
	if err != nil {
		if !storage.IsNotFound(err) {
			return err
		}
		remoteID, err := s.remote.CreateEvent(ctx, &binding, ev)
		if err != nil {
			return err
		}
		s.logger.Info("calendar event created", "booking_id", v.BookingID, "remote_event_id", remoteID)
		return s.store.UpsertMapping(ctx, storage.Mapping{
			BookingID:     v.BookingID,
			MasterID:      v.MasterID,
			RemoteEventID: remoteID,
			ContentHash:   hash,
		})
	}

	if mapping.ContentHash == hash {
		return nil
	}

	if err := s.remote.UpdateEvent(ctx, &binding, mapping.RemoteEventID, ev); err != nil {
		return err
	}
	s.logger.Info("calendar event updated", "booking_id", v.BookingID, "remote_event_id", mapping.RemoteEventID)
	mapping.ContentHash = hash
	return s.store.UpsertMapping(ctx, mapping)
}

// RemoveBooking deletes the remote event and drops the mapping. A missing
// mapping or an already-deleted remote event both count as done.
func (s *Syncer) RemoveBooking(ctx context.Context, masterID, bookingID string) error {
	mapping, err := s.store.GetMapping(ctx, bookingID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil
		}
		return err
	}

	binding, err := s.store.GetBinding(ctx, masterID)
	if err != nil {
		if storage.IsNotFound(err) {
			return s.store.DeleteMapping(ctx, bookingID)
		}
		return err
	}

	if err := s.remote.DeleteEvent(ctx, &binding, mapping.RemoteEventID); err != nil {
		return err
	}
	s.logger.Info("calendar event removed", "booking_id", bookingID, "remote_event_id", mapping.RemoteEventID)
	return s.store.DeleteMapping(ctx, bookingID)
}
