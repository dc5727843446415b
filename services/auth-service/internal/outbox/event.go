package outbox

import (
	"encoding/json"
	"time"
)

// Topic names double as event types: the publisher writes each event to the
// topic named after its type.
const EventMasterRegistered = "master.registered.v1"

type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type MasterRegisteredPayload struct {
	MasterID     string    `json:"master_id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	Timezone     string    `json:"timezone"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}

func MasterRegisteredEvent(p MasterRegisteredPayload) (Event, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "master",
		AggregateID:   p.MasterID,
		EventType:     EventMasterRegistered,
		Payload:       raw,
	}, nil
}
