package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "/api", r.BasePath())
	assert.Empty(t, r.Setup())
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	var hits int
	r.Use(func(c *gin.Context) {
		hits++
		c.Next()
	})

	r.Register(
		NewDomainGroup("orders", "/orders").GET("", func(c *gin.Context) { c.String(http.StatusOK, "orders") }),
		NewDomainGroup("system", "").GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") }),
	)
	routes := r.Setup()

	assert.Equal(t, []RouteInfo{
		{Group: "system", Method: http.MethodGet, Path: "/api/health"},
		{Group: "orders", Method: http.MethodGet, Path: "/api/orders"},
	}, routes)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "orders", w.Body.String())
	assert.Equal(t, 1, hits)
}

func TestDomainGroup_Handle(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("products", "/products").
		Handle("/:id/stock", func(c *gin.Context) {
			c.String(http.StatusOK, c.Request.Method+" "+c.Param("id"))
		}, http.MethodPatch, http.MethodPut)

	routes := g.RegisterRoutes(engine.Group("/api"))
	require.Len(t, routes, 2)
	assert.Equal(t, "/api/products/:id/stock", routes[0].Path)
	assert.Equal(t, "products", routes[1].Group)

	for _, method := range []string{http.MethodPatch, http.MethodPut} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(method, "/api/products/42/stock", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, method+" 42", w.Body.String())
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/products/42/stock", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDomainGroup_Middleware(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("purchases", "/purchases").
		Use(func(c *gin.Context) {
			c.Header("X-Group", "purchases")
			c.Next()
		}).
		POST("", func(c *gin.Context) { c.Status(http.StatusCreated) })
	g.RegisterRoutes(engine.Group("/api"))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/purchases", nil))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "purchases", w.Header().Get("X-Group"))
	assert.Equal(t, "purchases", g.Name())
}
