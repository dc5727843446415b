package outbox

import (
	"encoding/json"
	"time"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (production-style: event per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const EventBusyImported = "calendar.busy.imported.v1"

type BusySpan struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// BusyImportedPayload carries one pull's worth of remote busy intervals plus
// the horizon they cover, so consumers can replace their mirror wholesale.
type BusyImportedPayload struct {
	MasterID string     `json:"master_id"`
	From     time.Time  `json:"from"`
	To       time.Time  `json:"to"`
	Busy     []BusySpan `json:"busy"`
}

func BusyImportedEvent(p BusyImportedPayload) (Event, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "calendar_binding",
		AggregateID:   p.MasterID,
		EventType:     EventBusyImported,
		Payload:       payload,
	}, nil
}
