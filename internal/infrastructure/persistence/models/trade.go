package models

import (
	"github.com/crm/dashboard/internal/domain/purchase"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderModel is the persistence model for customer orders.
type OrderModel struct {
	Row
	OrderNumber   string           `gorm:"type:varchar(64);not null;uniqueIndex" json:"order_number"`
	CustomerName  string           `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerEmail string           `gorm:"type:varchar(255)" json:"customer_email"`
	Status        string           `gorm:"type:varchar(32);not null" json:"status"`
	TotalAmount   decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Currency      string           `gorm:"type:varchar(3);not null" json:"currency"`
	Items         []OrderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is a line of an order.
type OrderItemModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null" json:"product_id"`
	Quantity  int64           `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// BeforeCreate assigns an ID when none was set
func (m *OrderItemModel) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// PurchaseModel is the persistence model for the Purchase domain entity.
type PurchaseModel struct {
	Row
	PurchaseNumber string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	Supplier       string          `gorm:"type:varchar(255);not null"`
	ProductName    string          `gorm:"type:varchar(255);not null"`
	Quantity       int64           `gorm:"not null"`
	UnitPrice      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency       string          `gorm:"type:varchar(3);not null"`
	Status         string          `gorm:"type:varchar(32);not null;index"`
	Notes          string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PurchaseModel) TableName() string {
	return "purchases"
}

// ToDomain converts the persistence model to a domain Purchase.
func (m *PurchaseModel) ToDomain() *purchase.Purchase {
	return &purchase.Purchase{
		Entity:      m.Row.Entity(),
		Number:      m.PurchaseNumber,
		Supplier:    m.Supplier,
		ProductName: m.ProductName,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		TotalAmount: m.TotalAmount,
		Currency:    m.Currency,
		Status:      purchase.Status(m.Status),
		Notes:       m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Purchase.
func (m *PurchaseModel) FromDomain(p *purchase.Purchase) {
	m.Row = rowOf(p.Entity)
	m.PurchaseNumber = p.Number
	m.Supplier = p.Supplier
	m.ProductName = p.ProductName
	m.Quantity = p.Quantity
	m.UnitPrice = p.UnitPrice
	m.TotalAmount = p.TotalAmount
	m.Currency = p.Currency
	m.Status = p.Status.String()
	m.Notes = p.Notes
}

// PurchaseModelFromDomain creates a new persistence model from a domain Purchase.
func PurchaseModelFromDomain(p *purchase.Purchase) *PurchaseModel {
	m := &PurchaseModel{}
	m.FromDomain(p)
	return m
}
