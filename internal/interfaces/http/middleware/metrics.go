package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPObserver records handled requests, implemented by telemetry.Metrics
type HTTPObserver interface {
	ObserveHTTPRequest(method, route string, status int, elapsed time.Duration)
}

// Metrics records request count and latency per route template.
// Unmatched paths are reported with an empty route so raw URLs never
// become label values.
func Metrics(observer HTTPObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if observer == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		observer.ObserveHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
