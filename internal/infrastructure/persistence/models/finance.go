package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExpenseModel is the persistence model for recorded expenses.
// Expenses are append-only, so there is no updated_at column.
type ExpenseModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Category    string          `gorm:"type:varchar(100);not null;index" json:"category"`
	Description string          `gorm:"type:text" json:"description"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency    string          `gorm:"type:varchar(3);not null" json:"currency"`
	SpentAt     time.Time       `gorm:"not null" json:"spent_at"`
	CreatedBy   *uuid.UUID      `gorm:"type:uuid" json:"created_by,omitempty"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
}

// TableName returns the table name for GORM
func (ExpenseModel) TableName() string {
	return "expenses"
}

// BeforeCreate assigns an ID when none was set
func (m *ExpenseModel) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
