package purchase

import (
	"time"

	"github.com/crm/dashboard/internal/domain/purchase"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreatePurchaseRequest represents a request to record a purchase
type CreatePurchaseRequest struct {
	Supplier    string          `json:"supplier" binding:"required,min=1,max=200"`
	ProductName string          `json:"product_name" binding:"required,min=1,max=200"`
	Quantity    int64           `json:"quantity" binding:"required,gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Currency    string          `json:"currency" binding:"omitempty,iso4217"`
	Notes       string          `json:"notes" binding:"max=1000"`
}

// ChangeStatusRequest represents a request to move a purchase to a new status
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListPurchasesQuery carries list filters from the query string
type ListPurchasesQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// PurchaseResponse is the API representation of a purchase
type PurchaseResponse struct {
	ID          uuid.UUID       `json:"id"`
	Number      string          `json:"purchase_number"`
	Supplier    string          `json:"supplier"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ToPurchaseResponse converts a domain purchase to its response DTO
func ToPurchaseResponse(p *purchase.Purchase) PurchaseResponse {
	return PurchaseResponse{
		ID:          p.ID,
		Number:      p.Number,
		Supplier:    p.Supplier,
		ProductName: p.ProductName,
		Quantity:    p.Quantity,
		UnitPrice:   p.UnitPrice,
		TotalAmount: p.TotalAmount,
		Currency:    p.Currency,
		Status:      p.Status.String(),
		Notes:       p.Notes,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ToPurchaseResponses converts a slice of purchases
func ToPurchaseResponses(items []*purchase.Purchase) []PurchaseResponse {
	out := make([]PurchaseResponse, 0, len(items))
	for _, p := range items {
		out = append(out, ToPurchaseResponse(p))
	}
	return out
}
