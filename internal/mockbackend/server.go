package mockbackend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/crm/dashboard/internal/infrastructure/logger"
	"github.com/crm/dashboard/internal/infrastructure/persistence"
	"github.com/crm/dashboard/internal/infrastructure/persistence/models"
	"github.com/crm/dashboard/internal/interfaces/http/dto"
	"github.com/crm/dashboard/internal/interfaces/http/handler"
	"github.com/crm/dashboard/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// OpenSQLite opens dsn and creates the tables from the GORM models.
// In-memory databases live as long as their single connection.
func OpenSQLite(dsn string, zl *zap.Logger) (*persistence.Database, error) {
	db, err := persistence.NewSQLiteDatabase(dsn, zl, gormlogger.Warn)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := db.DB.AutoMigrate(models.All()...); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create mock tables: %w", err)
	}
	return db, nil
}

// RefreshResult is the outcome of the last analytics refresh
type RefreshResult struct {
	Scope       string    `json:"scope"`
	RefreshedAt time.Time `json:"refreshed_at"`
	Took        string    `json:"took"`
	Summary     Summary   `json:"summary"`
}

// AnalyticsHealth is the GET /api/analytics/health payload
type AnalyticsHealth struct {
	Status      string         `json:"status"`
	Database    string         `json:"database"`
	Refreshes   int            `json:"refreshes"`
	LastRefresh *RefreshResult `json:"last_refresh,omitempty"`
}

// Server serves the backend origin API
type Server struct {
	handler.BaseHandler
	store  *Store
	logger *zap.Logger
	now    func() time.Time

	mu        sync.RWMutex
	last      *RefreshResult
	refreshes int
}

// NewServer creates a Server over store
func NewServer(store *Store, zl *zap.Logger) *Server {
	if zl == nil {
		zl = zap.NewNop()
	}
	return &Server{store: store, logger: zl, now: time.Now}
}

// Engine returns the gin engine with every mock route mounted
func (s *Server) Engine() *gin.Engine {
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(s.logger))
	engine.Use(logger.GinMiddleware(s.logger))

	api := engine.Group("/api")
	api.GET("/orders", s.listOrders)
	api.POST("/orders", s.createOrder)
	api.GET("/products", s.listProducts)
	api.POST("/products", s.createProduct)
	api.PATCH("/products/:id/stock", s.updateStock)
	api.PUT("/products/:id/stock", s.updateStock)
	api.GET("/expenses", s.listExpenses)
	api.POST("/expenses", s.createExpense)
	api.GET("/currency/rates", s.currencyRates)
	api.POST("/analytics/refresh", s.refreshAnalytics)
	api.GET("/analytics/health", s.analyticsHealth)

	return engine
}

type listOrdersQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

func (s *Server) listOrders(c *gin.Context) {
	var q listOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	orders, err := s.store.ListOrders(c.Request.Context(), q.Status, q.Limit)
	if err != nil {
		s.HandleError(c, err)
		return
	}
	s.SuccessList(c, orders, len(orders))
}

func (s *Server) createOrder(c *gin.Context) {
	var in CreateOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	order, err := s.store.CreateOrder(c.Request.Context(), in)
	if err != nil {
		s.HandleError(c, err)
		return
	}
	s.Created(c, order)
}

func (s *Server) listProducts(c *gin.Context) {
	products, err := s.store.ListProducts(c.Request.Context())
	if err != nil {
		s.HandleError(c, err)
		return
	}
	s.SuccessList(c, products, len(products))
}

func (s *Server) createProduct(c *gin.Context) {
	var in CreateProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	p, err := s.store.CreateProduct(c.Request.Context(), in)
	if err != nil {
		s.HandleError(c, err)
		return
	}
	s.Created(c, p)
}

type stockUpdate struct {
	Quantity *int64 `json:"quantity" binding:"required"`
}

func (s *Server) updateStock(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.NotFound(c, "Product not found")
		return
	}
	var in stockUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	p, err := s.store.SetStock(c.Request.Context(), id, *in.Quantity)
	if err != nil {
		s.HandleError(c, err)
		return
	}
	s.Success(c, p)
}

func (s *Server) listExpenses(c *gin.Context) {
	expenses, err := s.store.ListExpenses(c.Request.Context(), c.Query("category"))
	if err != nil {
		s.HandleError(c, err)
		return
	}
	s.SuccessList(c, expenses, len(expenses))
}

func (s *Server) createExpense(c *gin.Context) {
	var in CreateExpenseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	e, err := s.store.CreateExpense(c.Request.Context(), in)
	if err != nil {
		s.HandleError(c, err)
		return
	}
	s.Created(c, e)
}

func (s *Server) currencyRates(c *gin.Context) {
	table, err := Rates(c.Query("base"), s.now())
	if err != nil {
		s.HandleError(c, err)
		return
	}
	s.Success(c, table)
}

type refreshRequest struct {
	Scope string `json:"scope" binding:"omitempty,oneof=daily incremental full"`
}

func (s *Server) refreshAnalytics(c *gin.Context) {
	var in refreshRequest
	if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
		middleware.HandleValidationError(c, err)
		return
	}
	if in.Scope == "" {
		in.Scope = "full"
	}

	start := s.now()
	summary, err := s.store.Summarize(c.Request.Context())
	if err != nil {
		s.HandleError(c, err)
		return
	}

	result := &RefreshResult{
		Scope:       in.Scope,
		RefreshedAt: start.UTC(),
		Took:        s.now().Sub(start).String(),
		Summary:     summary,
	}
	s.mu.Lock()
	s.last = result
	s.refreshes++
	s.mu.Unlock()

	logger.GetGinLogger(c).Info("Analytics refreshed",
		zap.String("scope", in.Scope),
		zap.Int64("orders", summary.Orders),
		zap.String("revenue", summary.Revenue.String()),
	)
	s.Success(c, result)
}

func (s *Server) analyticsHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	s.mu.RLock()
	health := AnalyticsHealth{
		Status:      "ok",
		Database:    "ok",
		Refreshes:   s.refreshes,
		LastRefresh: s.last,
	}
	s.mu.RUnlock()

	if err := s.store.Ping(ctx); err != nil {
		logger.GetGinLogger(c).Warn("Analytics health check failed", zap.Error(err))
		health.Status = "degraded"
		health.Database = "error"
		c.JSON(http.StatusServiceUnavailable, dto.Response{
			Success:   false,
			Data:      health,
			Error:     "Service degraded",
			Code:      dto.ErrCodeUnavailable,
			RequestID: middleware.GetRequestID(c),
		})
		return
	}
	s.Success(c, health)
}
