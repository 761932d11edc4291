package router

import (
	"net/http"

	"github.com/crm/dashboard/internal/infrastructure/config"
	"github.com/crm/dashboard/internal/infrastructure/logger"
	"github.com/crm/dashboard/internal/infrastructure/telemetry"
	"github.com/crm/dashboard/internal/interfaces/http/handler"
	"github.com/crm/dashboard/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers are the dashboard route handlers
type Handlers struct {
	Proxy    *handler.ProxyHandler
	Purchase *handler.PurchaseHandler
	Health   *handler.HealthHandler
	Auth     *handler.AuthHandler
}

// DashboardGroups returns the /api route groups
func DashboardGroups(h Handlers) []*DomainGroup {
	orders := NewDomainGroup("orders", "/orders").
		GET("", h.Proxy.ListOrders).
		POST("", h.Proxy.CreateOrder)

	products := NewDomainGroup("products", "/products").
		GET("", h.Proxy.ListProducts).
		POST("", h.Proxy.CreateProduct).
		Handle("/:id/stock", h.Proxy.UpdateStock, http.MethodPatch, http.MethodPut)

	purchases := NewDomainGroup("purchases", "/purchases").
		GET("", h.Purchase.List).
		POST("", h.Purchase.Create).
		GET("/:id", h.Purchase.Get).
		PATCH("/:id/status", h.Purchase.ChangeStatus)

	expenses := NewDomainGroup("expenses", "/expenses").
		GET("", h.Proxy.ListExpenses).
		POST("", h.Proxy.CreateExpense)

	currency := NewDomainGroup("currency", "/currency").
		GET("/rates", h.Proxy.CurrencyRates)

	system := NewDomainGroup("system", "").
		GET("/health", h.Health.Health).
		POST("/login", h.Auth.Login)

	return []*DomainGroup{orders, products, purchases, expenses, currency, system}
}

// EngineConfig configures the gateway engine
type EngineConfig struct {
	HTTP    config.HTTPConfig
	Env     string
	Tracing middleware.TracingConfig
	Metrics *telemetry.Metrics // nil disables /metrics
}

// NewEngine builds the gin engine with the middleware stack and all
// dashboard routes mounted
func NewEngine(cfg EngineConfig, log *zap.Logger, h Handlers) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.Env == "production"

	// Order matters: the request id must exist before tracing and logging
	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(cfg.Tracing), middleware.SpanErrorMarker())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if cfg.Metrics != nil {
		engine.Use(middleware.Metrics(cfg.Metrics))
	}
	engine.Use(middleware.Secure(security))
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfigFromHTTP(cfg.HTTP)))
	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}

	if cfg.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	r := NewRouter(engine)
	for _, group := range DashboardGroups(h) {
		r.Register(group)
	}
	routes := r.Setup()
	for _, route := range routes {
		log.Debug("Route mounted",
			zap.String("group", route.Group),
			zap.String("method", route.Method),
			zap.String("path", route.Path),
		)
	}
	log.Info("Dashboard routes mounted", zap.Int("count", len(routes)))

	return engine
}
