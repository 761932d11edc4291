package purchase

import (
	"time"

	"github.com/crm/dashboard/internal/domain/shared"
	"github.com/google/uuid"
)

// EventTypeStatusChanged is the routing key used for status change events
const EventTypeStatusChanged = "purchase.status_changed"

// StatusChangedEvent is raised when a purchase changes status
type StatusChangedEvent struct {
	shared.BaseDomainEvent
	PurchaseID uuid.UUID `json:"purchase_id"`
	Number     string    `json:"purchase_number"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
}

// NewStatusChangedEvent creates a StatusChangedEvent for p
func NewStatusChangedEvent(p *Purchase, from Status, at time.Time) *StatusChangedEvent {
	return &StatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStatusChanged, p.ID, at),
		PurchaseID:      p.ID,
		Number:          p.Number,
		From:            from,
		To:              p.Status,
	}
}
