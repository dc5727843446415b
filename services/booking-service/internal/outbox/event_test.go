package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/slotwise/slotwise/services/booking-service/internal/model"
)

func TestCreationEventType(t *testing.T) {
	if got := CreationEventType("pending"); got != EventBookingCreated {
		t.Fatalf("pending create should emit %s, got %s", EventBookingCreated, got)
	}
	if got := CreationEventType("confirmed"); got != EventBookingConfirmed {
		t.Fatalf("direct admin booking should emit %s, got %s", EventBookingConfirmed, got)
	}
}

func TestBookingEventForPendingCreate(t *testing.T) {
	start := time.Date(2026, 4, 6, 9, 5, 0, 0, time.UTC)
	b := model.Booking{
		ID:        "bk-1",
		MasterID:  "m-1",
		ClientID:  "c-1",
		ServiceID: "s-1",
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		Status:    "pending",
		Price:     "45.00",
	}
	client := model.Client{ID: "c-1", ChatID: "chat-1"}
	settings := model.MasterSettings{ReminderOffsetsHours: []int{24, 2}}

	evt, err := BookingEvent(CreationEventType(b.Status), b, client, "Manicure", "Europe/Berlin", settings, time.Time{})
	if err != nil {
		t.Fatalf("BookingEvent failed: %v", err)
	}
	if evt.EventType != EventBookingCreated {
		t.Fatalf("event type = %s, want %s", evt.EventType, EventBookingCreated)
	}
	if evt.AggregateID != "bk-1" || evt.AggregateType != "booking" {
		t.Fatalf("unexpected aggregate %s/%s", evt.AggregateType, evt.AggregateID)
	}

	var p BookingPayload
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		t.Fatalf("payload not valid json: %v", err)
	}
	if p.Status != "pending" || p.ClientChatID != "chat-1" {
		t.Fatalf("payload snapshot wrong: status=%s chat=%s", p.Status, p.ClientChatID)
	}
	if !p.StartTime.Equal(start) {
		t.Fatalf("payload start = %s, want %s", p.StartTime, start)
	}
}
