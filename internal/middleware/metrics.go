package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dept-timetable-api/internal/service"
)

// Metrics records request counts and latencies per route template. Probe
// and scrape endpoints are excluded so they do not drown out the API
// traffic they exist to observe.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	skip := map[string]struct{}{
		"/health":  {},
		"/ready":   {},
		"/metrics": {},
	}

	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if _, excluded := skip[path]; excluded {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
