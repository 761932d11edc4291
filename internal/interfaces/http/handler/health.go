package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/crm/dashboard/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the /api/health payload
type HealthResponse struct {
	Status  string            `json:"status"` // ok or degraded
	Time    time.Time         `json:"time"`
	Service string            `json:"service"`
	Uptime  string            `json:"uptime"`
	Checks  map[string]string `json:"checks"`
}

// HealthHandler reports local service health
type HealthHandler struct {
	BaseHandler
	service   string
	checks    map[string]Pinger
	timeout   time.Duration
	startTime time.Time
	now       func() time.Time
}

// NewHealthHandler creates a HealthHandler running checks by name
func NewHealthHandler(service string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		service:   service,
		checks:    checks,
		timeout:   2 * time.Second,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// Health handles GET /api/health. Any failing check answers 503.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{
		Status:  "ok",
		Time:    h.now().UTC(),
		Service: h.service,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
		Checks:  make(map[string]string, len(names)),
	}
	for _, name := range names {
		if err := h.checks[name].Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = "error: " + err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	if resp.Status != "ok" {
		c.JSON(http.StatusServiceUnavailable, dto.Response{
			Success: false,
			Data:    resp,
			Error:   "Service degraded",
			Code:    dto.ErrCodeUnavailable,
		})
		return
	}
	h.Success(c, resp)
}
