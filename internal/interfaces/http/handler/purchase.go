package handler

import (
	"context"

	apppurchase "github.com/crm/dashboard/internal/application/purchase"
	"github.com/crm/dashboard/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PurchaseService is the application service behind the purchase routes
type PurchaseService interface {
	Create(ctx context.Context, req apppurchase.CreatePurchaseRequest) (*apppurchase.PurchaseResponse, error)
	List(ctx context.Context, query apppurchase.ListPurchasesQuery) ([]apppurchase.PurchaseResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*apppurchase.PurchaseResponse, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, req apppurchase.ChangeStatusRequest) (*apppurchase.PurchaseResponse, error)
}

// PurchaseHandler serves purchases from the local store
type PurchaseHandler struct {
	BaseHandler
	service PurchaseService
}

// NewPurchaseHandler creates a new PurchaseHandler
func NewPurchaseHandler(service PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{service: service}
}

// List handles GET /api/purchases
func (h *PurchaseHandler) List(c *gin.Context) {
	var query apppurchase.ListPurchasesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	items, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, items, len(items))
}

// Create handles POST /api/purchases
func (h *PurchaseHandler) Create(c *gin.Context) {
	var req apppurchase.CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, created)
}

// Get handles GET /api/purchases/:id
func (h *PurchaseHandler) Get(c *gin.Context) {
	id, ok := h.purchaseID(c)
	if !ok {
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// ChangeStatus handles PATCH /api/purchases/:id/status
func (h *PurchaseHandler) ChangeStatus(c *gin.Context) {
	id, ok := h.purchaseID(c)
	if !ok {
		return
	}

	var req apppurchase.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	updated, err := h.service.ChangeStatus(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, updated)
}

// purchaseID parses the :id parameter. A malformed id cannot name a
// stored purchase, so it is answered with 404.
func (h *PurchaseHandler) purchaseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.NotFound(c, "Purchase not found")
		return uuid.Nil, false
	}
	return id, true
}
