package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tarakiga/ccas/internal/service"
)

// Metrics records duration and status for every API request. The route
// template (e.g. /shipments/:id) keeps label cardinality bounded; only
// unmatched 404s fall back to the raw path.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
