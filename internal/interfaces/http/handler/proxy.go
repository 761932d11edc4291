package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/crm/dashboard/internal/infrastructure/upstream"
	"github.com/crm/dashboard/internal/interfaces/http/dto"
	"github.com/crm/dashboard/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"golang.org/x/text/currency"
)

// Forwarder sends a request to the backend origin
type Forwarder interface {
	Forward(ctx context.Context, req upstream.Request) (*upstream.Response, error)
}

// ProxyHandler relays dashboard API calls to the backend origin.
// Status code and body are passed through unchanged.
type ProxyHandler struct {
	BaseHandler
	upstream Forwarder
}

// NewProxyHandler creates a new ProxyHandler
func NewProxyHandler(up Forwarder) *ProxyHandler {
	return &ProxyHandler{upstream: up}
}

// bodyRewriter transforms a request body before it is forwarded
type bodyRewriter func([]byte) ([]byte, error)

// ListOrders handles GET /api/orders
func (h *ProxyHandler) ListOrders(c *gin.Context) {
	h.forward(c, "/api/orders", "Failed to fetch orders", nil)
}

// CreateOrder handles POST /api/orders
func (h *ProxyHandler) CreateOrder(c *gin.Context) {
	h.forward(c, "/api/orders", "Failed to create order", nil)
}

// ListProducts handles GET /api/products
func (h *ProxyHandler) ListProducts(c *gin.Context) {
	h.forward(c, "/api/products", "Failed to fetch products", nil)
}

// CreateProduct handles POST /api/products
func (h *ProxyHandler) CreateProduct(c *gin.Context) {
	h.forward(c, "/api/products", "Failed to create product", nil)
}

// UpdateStock handles PATCH and PUT /api/products/:id/stock.
// The dashboard sends "stock"; the backend expects "quantity".
func (h *ProxyHandler) UpdateStock(c *gin.Context) {
	path := "/api/products/" + c.Param("id") + "/stock"
	h.forward(c, path, "Failed to update stock", renameStockField)
}

// ListExpenses handles GET /api/expenses
func (h *ProxyHandler) ListExpenses(c *gin.Context) {
	h.forward(c, "/api/expenses", "Failed to fetch expenses", nil)
}

// CreateExpense handles POST /api/expenses
func (h *ProxyHandler) CreateExpense(c *gin.Context) {
	h.forward(c, "/api/expenses", "Failed to create expense", nil)
}

// CurrencyRates handles GET /api/currency/rates. An optional base query
// parameter must be an ISO 4217 code.
func (h *ProxyHandler) CurrencyRates(c *gin.Context) {
	if base, ok := c.GetQuery("base"); ok {
		if _, err := currency.ParseISO(base); err != nil {
			h.Fail(c, http.StatusBadRequest, dto.ErrCodeInvalidInput,
				"Invalid base currency", "base must be an ISO 4217 currency code, got "+base)
			return
		}
	}
	h.forward(c, "/api/currency/rates", "Failed to fetch currency rates", nil)
}

func (h *ProxyHandler) forward(c *gin.Context, path, failure string, rewrite bodyRewriter) {
	var body []byte
	if c.Request.Body != nil {
		var err error
		body, err = io.ReadAll(c.Request.Body)
		if err != nil {
			if limit, ok := middleware.BodyLimitExceeded(err); ok {
				middleware.AbortBodyTooLarge(c, limit)
				return
			}
			h.BadRequest(c, "Failed to read request body")
			return
		}
	}

	if rewrite != nil && len(body) > 0 {
		rewritten, err := rewrite(body)
		if err != nil {
			h.Fail(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid JSON body", err.Error())
			return
		}
		body = rewritten
	}

	resp, err := h.upstream.Forward(c.Request.Context(), upstream.Request{
		Method:   c.Request.Method,
		Path:     path,
		Route:    c.FullPath(),
		RawQuery: c.Request.URL.RawQuery,
		Header:   c.Request.Header,
		Body:     body,
	})
	if err != nil {
		h.Fail(c, http.StatusInternalServerError, dto.ErrCodeUpstream, failure, err.Error())
		return
	}

	if loc := resp.Header.Get("Location"); loc != "" {
		c.Header("Location", loc)
	}
	c.Data(resp.StatusCode, resp.ContentType(), resp.Body)
}

// renameStockField moves a top-level "stock" value to "quantity" unless the
// body already carries a quantity. Bodies that are not JSON objects are
// forwarded unchanged.
func renameStockField(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return body, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, err
	}

	stock, hasStock := fields["stock"]
	if _, hasQuantity := fields["quantity"]; !hasStock || hasQuantity {
		return body, nil
	}

	fields["quantity"] = stock
	delete(fields, "stock")
	return json.Marshal(fields)
}
