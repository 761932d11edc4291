package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/crm/dashboard/internal/infrastructure/upstream"
	"github.com/crm/dashboard/internal/interfaces/http/dto"
	"github.com/crm/dashboard/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// capturedRequest is what the fake backend received
type capturedRequest struct {
	Method      string
	Path        string
	RawQuery    string
	Body        string
	ContentType string
	Auth        string
	RequestID   string
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []capturedRequest
	status   int
	body     string
	ctype    string
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, capturedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		RawQuery:    r.URL.RawQuery,
		Body:        string(body),
		ContentType: r.Header.Get("Content-Type"),
		Auth:        r.Header.Get("Authorization"),
		RequestID:   r.Header.Get("X-Request-ID"),
	})
	status, respBody, ctype := f.status, f.body, f.ctype
	f.mu.Unlock()

	if ctype != "" {
		w.Header().Set("Content-Type", ctype)
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(respBody))
}

func (f *fakeBackend) last(t *testing.T) capturedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func (f *fakeBackend) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newProxyRouter(t *testing.T, origin string) *gin.Engine {
	t.Helper()
	client, err := upstream.NewClient(origin, 2*time.Second, nil)
	require.NoError(t, err)

	h := NewProxyHandler(client)
	router := gin.New()
	router.Use(middleware.RequestID())
	api := router.Group("/api")
	api.GET("/orders", h.ListOrders)
	api.POST("/orders", h.CreateOrder)
	api.GET("/products", h.ListProducts)
	api.POST("/products", h.CreateProduct)
	api.PATCH("/products/:id/stock", h.UpdateStock)
	api.PUT("/products/:id/stock", h.UpdateStock)
	api.GET("/expenses", h.ListExpenses)
	api.POST("/expenses", h.CreateExpense)
	api.GET("/currency/rates", h.CurrencyRates)
	return router
}

func startBackend(t *testing.T, status int, body, ctype string) (*fakeBackend, *gin.Engine) {
	t.Helper()
	backend := &fakeBackend{status: status, body: body, ctype: ctype}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	return backend, newProxyRouter(t, srv.URL)
}

func TestProxy_ForwardsVerbatim(t *testing.T) {
	cases := []struct {
		name   string
		method string
		path   string
		query  string
		body   string
		want   string
	}{
		{"list orders", http.MethodGet, "/api/orders", "page=2&status=paid", "", "/api/orders"},
		{"create order", http.MethodPost, "/api/orders", "", `{"customer_name":"Ivan","items":[{"sku":"A-1","qty":2}]}`, "/api/orders"},
		{"list products", http.MethodGet, "/api/products", "q=%D1%87%D0%B0%D0%B9&sort=-price", "", "/api/products"},
		{"create product", http.MethodPost, "/api/products", "", `{"sku":"TEA-1","price":"199.90"}`, "/api/products"},
		{"list expenses", http.MethodGet, "/api/expenses", "from=2026-01-01&to=2026-01-31", "", "/api/expenses"},
		{"create expense", http.MethodPost, "/api/expenses", "", `{"category":"rent","amount":"50000"}`, "/api/expenses"},
		{"currency rates", http.MethodGet, "/api/currency/rates", "base=USD&symbols=RUB,EUR", "", "/api/currency/rates"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend, router := startBackend(t, http.StatusOK, `{"success":true,"data":[]}`, "application/json")

			target := tc.path
			if tc.query != "" {
				target += "?" + tc.query
			}
			req := httptest.NewRequest(tc.method, target, strings.NewReader(tc.body))
			if tc.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			req.Header.Set("Authorization", "Bearer abc")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())

			got := backend.last(t)
			assert.Equal(t, tc.method, got.Method)
			assert.Equal(t, tc.want, got.Path)
			assert.Equal(t, tc.query, got.RawQuery)
			assert.Equal(t, tc.body, got.Body)
			assert.Equal(t, "Bearer abc", got.Auth)
			assert.NotEmpty(t, got.RequestID)
			assert.Equal(t, 1, backend.count())
		})
	}
}

func TestProxy_PropagatesUpstreamStatus(t *testing.T) {
	statuses := []int{
		http.StatusCreated,
		http.StatusNoContent,
		http.StatusBadRequest,
		http.StatusNotFound,
		http.StatusConflict,
		http.StatusUnprocessableEntity,
		http.StatusInternalServerError,
		http.StatusBadGateway,
	}
	for _, status := range statuses {
		t.Run(http.StatusText(status), func(t *testing.T) {
			body := `{"success":false,"error":"backend says no"}`
			if status == http.StatusNoContent {
				body = ""
			}
			_, router := startBackend(t, status, body, "application/json")

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{}`)))

			assert.Equal(t, status, w.Code)
			assert.Equal(t, body, w.Body.String())
		})
	}
}

func TestProxy_RelaysContentType(t *testing.T) {
	_, router := startBackend(t, http.StatusOK, "sku,name\nA-1,Tea\n", "text/csv")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products?format=csv", nil))

	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, "sku,name\nA-1,Tea\n", w.Body.String())
}

func TestProxy_UpstreamUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	origin := srv.URL
	srv.Close()
	router := newProxyRouter(t, origin)

	cases := []struct {
		method string
		path   string
		error  string
	}{
		{http.MethodGet, "/api/orders", "Failed to fetch orders"},
		{http.MethodPost, "/api/orders", "Failed to create order"},
		{http.MethodGet, "/api/products", "Failed to fetch products"},
		{http.MethodPost, "/api/products", "Failed to create product"},
		{http.MethodPatch, "/api/products/7/stock", "Failed to update stock"},
		{http.MethodPut, "/api/products/7/stock", "Failed to update stock"},
		{http.MethodGet, "/api/expenses", "Failed to fetch expenses"},
		{http.MethodPost, "/api/expenses", "Failed to create expense"},
		{http.MethodGet, "/api/currency/rates", "Failed to fetch currency rates"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{"stock":1}`)))

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tc.error, resp.Error)
			assert.Contains(t, resp.Message, upstream.ErrUnreachable.Error())
			assert.Equal(t, dto.ErrCodeUpstream, resp.Code)
		})
	}
}

func TestProxy_UpdateStock(t *testing.T) {
	cases := []struct {
		name   string
		method string
		body   string
		want   string
	}{
		{"renames stock", http.MethodPatch, `{"stock": 15}`, `{"quantity":15}`},
		{"keeps other fields", http.MethodPut, `{"stock": 3, "reason": "recount"}`, `{"quantity":3,"reason":"recount"}`},
		{"quantity wins", http.MethodPatch, `{"stock": 3, "quantity": 9}`, `{"stock": 3, "quantity": 9}`},
		{"no stock field", http.MethodPatch, `{"quantity": 4}`, `{"quantity": 4}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend, router := startBackend(t, http.StatusOK, `{"success":true}`, "application/json")

			req := httptest.NewRequest(tc.method, "/api/products/42/stock", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			got := backend.last(t)
			assert.Equal(t, tc.method, got.Method)
			assert.Equal(t, "/api/products/42/stock", got.Path)
			assert.JSONEq(t, tc.want, got.Body)
		})
	}

	t.Run("rejects malformed json", func(t *testing.T) {
		backend, router := startBackend(t, http.StatusOK, `{}`, "application/json")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/api/products/42/stock", strings.NewReader(`{"stock":`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, 0, backend.count())
	})
}

func TestRenameStockField(t *testing.T) {
	out, err := renameStockField([]byte(`[1,2]`))
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, string(out))

	out, err = renameStockField([]byte(`  {"stock":"7"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"quantity":"7"}`, string(out))
}

func TestProxy_CurrencyRatesBase(t *testing.T) {
	t.Run("valid base forwarded", func(t *testing.T) {
		backend, router := startBackend(t, http.StatusOK, `{"base":"EUR"}`, "application/json")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/currency/rates?base=EUR", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "base=EUR", backend.last(t).RawQuery)
	})

	for _, base := range []string{"", "EU", "EURO", "12$"} {
		t.Run("invalid base "+base, func(t *testing.T) {
			backend, router := startBackend(t, http.StatusOK, `{}`, "application/json")

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/currency/rates?base="+base, nil))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, "Invalid base currency", resp.Error)
			assert.Equal(t, 0, backend.count())
		})
	}
}

func TestProxy_RelaysRedirect(t *testing.T) {
	var followed int
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orders", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Location", "/elsewhere")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/elsewhere", func(w http.ResponseWriter, _ *http.Request) {
		followed++
		_, _ = w.Write([]byte(`{"redirected":true}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	router := newProxyRouter(t, srv.URL)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"customer_name":"Ivan"}`)))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/elsewhere", w.Header().Get("Location"))
	assert.NotContains(t, w.Body.String(), "redirected")
	assert.Zero(t, followed)
}
