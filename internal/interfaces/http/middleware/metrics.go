package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPRecorder observes completed requests.
type HTTPRecorder interface {
	HTTPRequest(method, path string, status int, elapsed time.Duration)
}

// Metrics records every request under its route template, so path
// parameters do not explode label cardinality.
func Metrics(recorder HTTPRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		recorder.HTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
