package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avgwguard/internal/observability"
)

// HTTPMetrics returns a middleware that records request metrics.
func HTTPMetrics(metrics *observability.Metrics) gin.HandlerFunc {
	if metrics == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		metrics.IncrementActiveRequests(method)
		defer metrics.DecrementActiveRequests(method)

		c.Next()

		// FullPath is the registered route pattern. Unmatched requests
		// collapse into a single label to keep cardinality bounded.
		route := c.FullPath()
		if route == "" {
			route = observability.UnmatchedRoute
		}

		requestSize := c.Request.ContentLength
		if requestSize < 0 {
			requestSize = 0
		}
		responseSize := int64(c.Writer.Size())
		if responseSize < 0 {
			responseSize = 0
		}

		metrics.RecordRequest(method, route, c.Writer.Status(), time.Since(start), requestSize, responseSize)
	}
}
