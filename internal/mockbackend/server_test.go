package mockbackend

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/crm/dashboard/internal/infrastructure/persistence/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Meta    *struct {
		Total int `json:"total"`
	} `json:"meta"`
}

func newTestServer(t *testing.T) (*Server, *Store, http.Handler) {
	t.Helper()
	store, _ := newSeededStore(t)
	srv := NewServer(store, zap.NewNop())
	srv.now = store.now
	return srv, store, srv.Engine()
}

func call(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestServer_Orders(t *testing.T) {
	_, store, h := newTestServer(t)

	w, env := call(t, h, http.MethodGet, "/api/orders?status=shipped", "")
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 1, env.Meta.Total)

	w, _ = call(t, h, http.MethodGet, "/api/orders?limit=0", "")
	assert.Equal(t, http.StatusOK, w.Code, "zero limit is omitted")

	w, env = call(t, h, http.MethodGet, "/api/orders?limit=9999", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)

	blender := productBySKU(t, store, "SKU-1003")
	w, env = call(t, h, http.MethodPost, "/api/orders",
		`{"customer_name":"Anna","items":[{"product_id":"`+blender.ID.String()+`","quantity":2}]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var order models.OrderModel
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, "ORD-0004", order.OrderNumber)
	assert.Len(t, order.Items, 1)

	w, env = call(t, h, http.MethodPost, "/api/orders",
		`{"customer_name":"Anna","items":[{"product_id":"`+blender.ID.String()+`","quantity":1000}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "ERR_INVALID_STATE", env.Code)

	w, _ = call(t, h, http.MethodPost, "/api/orders", `{"customer_name":"Anna","items":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_Products(t *testing.T) {
	_, store, h := newTestServer(t)

	w, env := call(t, h, http.MethodGet, "/api/products", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, env.Meta.Total)

	w, _ = call(t, h, http.MethodPost, "/api/products", `{"sku":"SKU-3001","name":"Весы","price":"1290","stock":3}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w, env = call(t, h, http.MethodPost, "/api/products", `{"sku":"SKU-3001","name":"Весы","price":"1290"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ERR_ALREADY_EXISTS", env.Code)

	toaster := productBySKU(t, store, "SKU-1004")
	for _, method := range []string{http.MethodPatch, http.MethodPut} {
		t.Run(method+" stock", func(t *testing.T) {
			w, env := call(t, h, method, "/api/products/"+toaster.ID.String()+"/stock", `{"quantity":0}`)
			require.Equal(t, http.StatusOK, w.Code)
			var p models.ProductModel
			require.NoError(t, json.Unmarshal(env.Data, &p))
			assert.EqualValues(t, 0, p.Stock)
		})
	}

	w, _ = call(t, h, http.MethodPatch, "/api/products/"+toaster.ID.String()+"/stock", `{"stock":5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "quantity is required")

	w, _ = call(t, h, http.MethodPatch, "/api/products/not-a-uuid/stock", `{"quantity":5}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Expenses(t *testing.T) {
	_, _, h := newTestServer(t)

	w, _ := call(t, h, http.MethodPost, "/api/expenses", `{"category":"rent","amount":"5000","spent_at":"2024-05-30T10:00:00Z"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w, env := call(t, h, http.MethodGet, "/api/expenses?category=rent", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, env.Meta.Total)

	w, _ = call(t, h, http.MethodPost, "/api/expenses", `{"category":"rent","amount":"-1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_CurrencyRates(t *testing.T) {
	_, _, h := newTestServer(t)

	w, env := call(t, h, http.MethodGet, "/api/currency/rates?base=EUR", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var table RateTable
	require.NoError(t, json.Unmarshal(env.Data, &table))
	assert.Equal(t, "EUR", table.Base)
	assert.Contains(t, table.Rates, "RUB")

	w, _ = call(t, h, http.MethodGet, "/api/currency/rates?base=JPY", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Analytics(t *testing.T) {
	_, store, h := newTestServer(t)

	w, env := call(t, h, http.MethodGet, "/api/analytics/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var health AnalyticsHealth
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Nil(t, health.LastRefresh)

	w, env = call(t, h, http.MethodPost, "/api/analytics/refresh", `{"scope":"daily"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var res RefreshResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "daily", res.Scope)
	assert.EqualValues(t, 3, res.Summary.Orders)

	w, _ = call(t, h, http.MethodPost, "/api/analytics/refresh", "")
	assert.Equal(t, http.StatusOK, w.Code, "empty body is a full refresh")

	w, _ = call(t, h, http.MethodPost, "/api/analytics/refresh", `{"scope":"weekly"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, env = call(t, h, http.MethodGet, "/api/analytics/health", "")
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.Equal(t, 2, health.Refreshes)
	require.NotNil(t, health.LastRefresh)
	assert.Equal(t, "full", health.LastRefresh.Scope)

	t.Run("database down", func(t *testing.T) {
		sqlDB, err := store.db.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())

		w, env := call(t, h, http.MethodGet, "/api/analytics/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.False(t, env.Success)
		assert.Equal(t, "ERR_SERVICE_UNAVAILABLE", env.Code)
	})
}
