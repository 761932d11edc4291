package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the identity and timestamps embedded in every aggregate
type Entity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewEntity assigns a fresh ID stamped at now
func NewEntity(now time.Time) Entity {
	return Entity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// Touch records a modification at now
func (e *Entity) Touch(now time.Time) {
	e.UpdatedAt = now
}
