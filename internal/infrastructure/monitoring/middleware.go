package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// GinMiddleware records request counts, latency and response codes for
// every route. The route template (not the raw URL) labels the series so
// path parameters do not explode cardinality.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		HTTPRequestsTotal.WithLabelValues(method, path).Inc()
		HTTPLatency.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		HTTPResponses.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
