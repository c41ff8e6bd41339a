package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/haneul-lab/storybook-api/internal/service"
)

// Metrics records duration and count for every served request, labeled by the
// route pattern rather than the raw URL so student names in path params do
// not explode label cardinality.
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
			// Unmatched routes collapse into one label.
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
