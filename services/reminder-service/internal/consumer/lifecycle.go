package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/slotwise/slotwise/services/reminder-service/internal/reminders"
	"github.com/slotwise/slotwise/services/reminder-service/internal/storage"
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
	BookingID            string    `json:"booking_id"`
	MasterID             string    `json:"master_id"`
	ClientChatID         string    `json:"client_chat_id"`
	ServiceName          string    `json:"service_name"`
	StartTime            time.Time `json:"start_time"`
	Status               string    `json:"status"`
	Timezone             string    `json:"timezone"`
	ReminderOffsetsHours []int     `json:"reminder_offsets_hours"`
	QuietStart           string    `json:"quiet_start"`
	QuietEnd             string    `json:"quiet_end"`
}

// LifecycleHandler keeps the local booking projection current and drives the
// reminder rows. confirmed/rescheduled drop the unsent rows and re-derive
// from the fresh start; cancelled/completed just drop them.
func LifecycleHandler(repo *storage.Repository, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var p lifecyclePayload
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			logger.Error("invalid lifecycle payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if p.BookingID == "" {
			logger.Error("lifecycle payload missing booking_id", "topic", msg.Topic)
			return nil
		}

		switch msg.Topic {
		case TopicBookingConfirmed, TopicBookingRescheduled:
			if err := repo.UpsertBooking(ctx, storage.BookingSnapshot{
				BookingID:   p.BookingID,
				MasterID:    p.MasterID,
				ChatID:      p.ClientChatID,
				ServiceName: p.ServiceName,
				StartTime:   p.StartTime,
				Timezone:    p.Timezone,
				QuietStart:  p.QuietStart,
				QuietEnd:    p.QuietEnd,
				Status:      p.Status,
			}); err != nil {
				return err
			}
			if err := repo.DeleteUnsent(ctx, p.BookingID); err != nil {
				return err
			}
			for _, at := range reminders.DeriveRemindAts(p.StartTime, p.ReminderOffsetsHours, time.Now()) {
				if err := repo.Insert(ctx, p.BookingID, at); err != nil {
					return err
				}
			}
		case TopicBookingCancelled, TopicBookingCompleted:
			if err := repo.SetBookingStatus(ctx, p.BookingID, p.Status); err != nil {
				return err
			}
			if err := repo.DeleteUnsent(ctx, p.BookingID); err != nil {
				return err
			}
		default:
			logger.Warn("unexpected topic", "topic", msg.Topic)
		}
		return nil
	}
}
