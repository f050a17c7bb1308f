package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"signalhub-backend/pkg/metrics"
)

// Prometheus records request count and latency per route. c.FullPath keeps
// the label cardinality bounded to registered routes.
func Prometheus() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		metrics.HTTPRequestDurationSeconds.WithLabelValues(
			c.Request.Method,
			path,
		).Observe(time.Since(start).Seconds())
	}
}
