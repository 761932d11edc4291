package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents an event that occurred in the domain
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
}

// BaseDomainEvent provides common fields for all domain events
type BaseDomainEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	AggID     uuid.UUID `json:"aggregate_id"`
}

// NewBaseDomainEvent creates the common part of an event
func NewBaseDomainEvent(eventType string, aggregateID uuid.UUID, at time.Time) BaseDomainEvent {
	return BaseDomainEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: at,
		AggID:     aggregateID,
	}
}

// EventID returns the unique event identifier
func (e BaseDomainEvent) EventID() uuid.UUID { return e.ID }

// EventType returns the type of the event
func (e BaseDomainEvent) EventType() string { return e.Type }

// OccurredAt returns when the event occurred
func (e BaseDomainEvent) OccurredAt() time.Time { return e.Timestamp }

// AggregateID returns the ID of the aggregate that produced this event
func (e BaseDomainEvent) AggregateID() uuid.UUID { return e.AggID }

// EventPublisher delivers domain events to interested parties
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}
