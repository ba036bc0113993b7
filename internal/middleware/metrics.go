package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/service"
)

// unmatchedRoute labels requests that hit no registered route so raw URLs
// carrying class or teacher ids never become label values.
const unmatchedRoute = "unmatched"

var probeRoutes = map[string]struct{}{
	"/health":  {},
	"/ready":   {},
	"/metrics": {},
}

// Metrics records latency and status per route template. Probe and scrape
// endpoints are not observed.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if _, probe := probeRoutes[route]; metricsSvc == nil || probe {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
