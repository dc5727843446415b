package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/slotwise/slotwise/services/calendar-service/internal/sync"
)

const (
	TopicBookingConfirmed   = "booking.confirmed.v1"
	TopicBookingRescheduled = "booking.rescheduled.v1"
	TopicBookingCancelled   = "booking.cancelled.v1"
	TopicBookingCompleted   = "booking.completed.v1"
)

func LifecycleTopics() []string {
	return []string{
		TopicBookingConfirmed,
		TopicBookingRescheduled,
		TopicBookingCancelled,
		TopicBookingCompleted,
	}
}

type lifecyclePayload struct {
	BookingID   string    `json:"booking_id"`
	MasterID    string    `json:"master_id"`
	ServiceName string    `json:"service_name"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Status      string    `json:"status"`
}

// LifecycleHandler mirrors booking transitions into the bound calendar:
// confirmed/rescheduled/completed push the current state, cancelled removes
// the remote event. Sync failures propagate so the inbox row is the only
// barrier against reprocessing, never against retried delivery.
func LifecycleHandler(syncer *sync.Syncer, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var p lifecyclePayload
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			logger.Error("invalid lifecycle payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if p.BookingID == "" || p.MasterID == "" {
			logger.Error("lifecycle payload missing ids", "topic", msg.Topic)
			return nil
		}

		switch msg.Topic {
		case TopicBookingCancelled:
			return syncer.RemoveBooking(ctx, p.MasterID, p.BookingID)
		case TopicBookingConfirmed, TopicBookingRescheduled, TopicBookingCompleted:
			return syncer.SyncBooking(ctx, sync.BookingView{
				BookingID:   p.BookingID,
				MasterID:    p.MasterID,
				ServiceName: p.ServiceName,
				Start:       p.StartTime,
				End:         p.EndTime,
				Status:      p.Status,
			})
		default:
			logger.Warn("unexpected topic", "topic", msg.Topic)
			return nil
		}
	}
}
