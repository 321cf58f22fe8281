package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/haeminmoon/grvtgate/internal/pkg/metrics"
)

// MetricsMiddleware records latency and a status class count per route
// template, so path parameters never become label values.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		class := strconv.Itoa(c.Writer.Status()/100) + "xx"
		metrics.GatewayRequests.WithLabelValues(route, class).Inc()
		metrics.LatencyBucket.WithLabelValues("gateway:" + route).Observe(time.Since(start).Seconds())
	}
}
