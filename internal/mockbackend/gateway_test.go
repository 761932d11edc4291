package mockbackend

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apppurchase "github.com/crm/dashboard/internal/application/purchase"
	"github.com/crm/dashboard/internal/infrastructure/auth"
	"github.com/crm/dashboard/internal/infrastructure/cache"
	"github.com/crm/dashboard/internal/infrastructure/config"
	"github.com/crm/dashboard/internal/infrastructure/persistence/models"
	"github.com/crm/dashboard/internal/infrastructure/scheduler"
	"github.com/crm/dashboard/internal/infrastructure/upstream"
	"github.com/crm/dashboard/internal/interfaces/http/handler"
	"github.com/crm/dashboard/internal/interfaces/http/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// The dashboard gateway in front of the mock backend, wired as in cmd/server.
func newGateway(t *testing.T) (http.Handler, *Store) {
	t.Helper()
	_, store, mock := newTestServer(t)
	origin := httptest.NewServer(mock)
	t.Cleanup(origin.Close)

	client, err := upstream.NewClient(origin.URL, 5*time.Second, zap.NewNop())
	require.NoError(t, err)

	authCfg := config.AuthConfig{Username: "admin", Password: "admin123", Role: "admin",
		JWTSecret: "gateway-test-secret-0123456789abcdef", TokenExpiration: time.Hour, Issuer: "crm"}
	purchases := apppurchase.NewService(cache.NewInMemoryPurchaseStore(), zap.NewNop())

	engine := router.NewEngine(router.EngineConfig{Env: "test"}, zap.NewNop(), router.Handlers{
		Proxy:    handler.NewProxyHandler(client),
		Purchase: handler.NewPurchaseHandler(purchases),
		Health:   handler.NewHealthHandler("crm", map[string]handler.Pinger{"purchases": purchases}),
		Auth:     handler.NewAuthHandler(auth.NewCredentialChecker(authCfg), auth.NewJWTService(authCfg)),
	})
	return engine, store
}

func TestGateway_StockUpdateReachesBackend(t *testing.T) {
	gw, store := newGateway(t)
	toaster := productBySKU(t, store, "SKU-1004")

	w, env := call(t, gw, http.MethodPatch, "/api/products/"+toaster.ID.String()+"/stock", `{"stock":9}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, env.Success)
	assert.EqualValues(t, 9, productBySKU(t, store, "SKU-1004").Stock)
}

func TestGateway_PropagatesBackendErrors(t *testing.T) {
	gw, _ := newGateway(t)

	w, env := call(t, gw, http.MethodPost, "/api/products", `{"sku":"SKU-1001","name":"dup","price":"1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ERR_ALREADY_EXISTS", env.Code)

	w, _ = call(t, gw, http.MethodGet, "/api/currency/rates?base=JPY", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGateway_ListsThroughProxy(t *testing.T) {
	gw, _ := newGateway(t)

	w, env := call(t, gw, http.MethodGet, "/api/orders?status=pending", "")
	require.Equal(t, http.StatusOK, w.Code)
	var orders []models.OrderModel
	require.NoError(t, json.Unmarshal(env.Data, &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, "ORD-0002", orders[0].OrderNumber)
}

func TestScheduler_AgainstBackend(t *testing.T) {
	srv, _, mock := newTestServer(t)
	origin := httptest.NewServer(mock)
	defer origin.Close()

	cfg := scheduler.DefaultSchedulerConfig()
	executor := scheduler.NewHTTPExecutor(origin.URL, origin.Client(), 5*time.Second, zap.NewNop())
	s, err := scheduler.NewScheduler(cfg, executor, zap.NewNop())
	require.NoError(t, err)

	for _, job := range []string{scheduler.JobDailyRefresh, scheduler.JobPeriodicRefresh, scheduler.JobHealthCheck} {
		res, err := s.RunNow(t.Context(), job)
		require.NoError(t, err, job)
		assert.Equal(t, http.StatusOK, res.StatusCode)
	}

	srv.mu.RLock()
	defer srv.mu.RUnlock()
	assert.Equal(t, 2, srv.refreshes)
	require.NotNil(t, srv.last)
	assert.Equal(t, "incremental", srv.last.Scope)
}
