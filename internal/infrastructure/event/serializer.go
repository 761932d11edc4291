package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/crm/dashboard/internal/domain/shared"
	"github.com/google/uuid"
)

// Envelope is the wire format for domain events leaving the process
type Envelope struct {
	EventID     uuid.UUID       `json:"event_id"`
	EventType   string          `json:"event_type"`
	AggregateID uuid.UUID       `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Source      string          `json:"source"`
	Payload     json.RawMessage `json:"payload"`
}

// EventSerializer handles JSON serialization of domain events
type EventSerializer struct {
	source string
}

// NewEventSerializer creates a new event serializer stamping envelopes with source
func NewEventSerializer(source string) *EventSerializer {
	return &EventSerializer{source: source}
}

// Serialize wraps the event in an Envelope and encodes it as JSON
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	if event == nil {
		return nil, fmt.Errorf("cannot serialize nil event")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	return json.Marshal(Envelope{
		EventID:     event.EventID(),
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt().UTC(),
		Source:      s.source,
		Payload:     payload,
	})
}

// deserialize decodes an Envelope; the payload is left raw for the consumer
func (s *EventSerializer) deserialize(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if env.EventType == "" {
		return nil, fmt.Errorf("event envelope has no event_type")
	}
	return &env, nil
}
