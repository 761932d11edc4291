package models

import "github.com/shopspring/decimal"

// ProductModel is the persistence model for catalog products.
type ProductModel struct {
	Row
	SKU      string          `gorm:"column:sku;type:varchar(64);not null;uniqueIndex" json:"sku"`
	Name     string          `gorm:"type:varchar(255);not null" json:"name"`
	Price    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Currency string          `gorm:"type:varchar(3);not null" json:"currency"`
	Stock    int64           `gorm:"not null" json:"stock"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}
