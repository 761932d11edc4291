package models

import (
	"time"

	"github.com/crm/dashboard/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Row holds the key and timestamps every table carries
type Row struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// NewRow returns a Row created and updated at at
func NewRow(id uuid.UUID, at time.Time) Row {
	return Row{ID: id, CreatedAt: at, UpdatedAt: at}
}

// BeforeCreate assigns an ID when none was set
func (r *Row) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Entity converts the row to the domain identity
func (r Row) Entity() shared.Entity {
	return shared.Entity{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

func rowOf(e shared.Entity) Row {
	return Row{ID: e.ID, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
}

// All lists every model in dependency order. Only the SQLite mock backend
// auto-migrates these; real databases use the SQL migrations.
func All() []any {
	return []any{
		&UserModel{},
		&ProductModel{},
		&OrderModel{},
		&OrderItemModel{},
		&ExpenseModel{},
		&PurchaseModel{},
	}
}
