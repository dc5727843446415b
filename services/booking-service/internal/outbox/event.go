package outbox

import (
	"encoding/json"
	"time"

	"github.com/slotwise/slotwise/services/booking-service/internal/model"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (production-style: event per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	// EventBookingCreated fires for reservations that land pending. It is
	// the master-notification trigger; reminder scheduling keys off
	// confirmation, not creation.
	EventBookingCreated     = "booking.created.v1"
	EventBookingConfirmed   = "booking.confirmed.v1"
	EventBookingRescheduled = "booking.rescheduled.v1"
	EventBookingCancelled   = "booking.cancelled.v1"
	EventBookingCompleted   = "booking.completed.v1"
)

// CreationEventType picks the lifecycle event a fresh reservation emits:
// created when it lands pending, confirmed when the admin books directly.
func CreationEventType(status string) string {
	if status == "confirmed" {
		return EventBookingConfirmed
	}
	return EventBookingCreated
}

// BookingPayload carries everything downstream consumers need so they never
// have to call back into this service. Reminder policy is snapshotted at
// publish time.
type BookingPayload struct {
	BookingID            string    `json:"booking_id"`
	MasterID             string    `json:"master_id"`
	ClientID             string    `json:"client_id"`
	ClientChatID         string    `json:"client_chat_id"`
	ServiceID            string    `json:"service_id"`
	ServiceName          string    `json:"service_name"`
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	OldStartTime         time.Time `json:"old_start_time"`
	Status               string    `json:"status"`
	Price                string    `json:"price"`
	Timezone             string    `json:"timezone"`
	ReminderOffsetsHours []int     `json:"reminder_offsets_hours"`
	QuietStart           string    `json:"quiet_start,omitempty"`
	QuietEnd             string    `json:"quiet_end,omitempty"`
}

// BookingEvent builds the envelope for a booking lifecycle transition.
// oldStart is zero except on reschedule, where consumers need the previous
// start to drop stale reminders.
func BookingEvent(eventType string, b model.Booking, client model.Client, serviceName, tz string, settings model.MasterSettings, oldStart time.Time) (Event, error) {
	payload, err := json.Marshal(BookingPayload{
		BookingID:            b.ID,
		MasterID:             b.MasterID,
		ClientID:             b.ClientID,
		ClientChatID:         client.ChatID,
		ServiceID:            b.ServiceID,
		ServiceName:          serviceName,
		StartTime:            b.StartTime,
		EndTime:              b.EndTime,
		OldStartTime:         oldStart,
		Status:               b.Status,
		Price:                b.Price,
		Timezone:             tz,
		ReminderOffsetsHours: settings.ReminderOffsetsHours,
		QuietStart:           settings.QuietStart,
		QuietEnd:             settings.QuietEnd,
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "booking",
		AggregateID:   b.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
