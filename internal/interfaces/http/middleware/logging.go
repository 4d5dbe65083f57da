package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/billing/internal/shared/logger"
)

// Logger writes one line per API call. Health and metrics endpoints are
// scraped every few seconds and are only logged when they fail.
func Logger(log logger.Interface, quietPaths ...string) gin.HandlerFunc {
	quiet := make(map[string]bool, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = true
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if quiet[c.Request.URL.Path] && status < 500 {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := []any{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		// Subscription and plan change routes share the :sid parameter.
		if sid := c.Param("sid"); sid != "" {
			fields = append(fields, "sid", sid)
		}
		if requestID := c.GetHeader("X-Request-ID"); requestID != "" {
			fields = append(fields, "request_id", requestID)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.Last().Error())
		}

		switch {
		case status >= 500:
			log.Errorw("request failed", fields...)
		case status >= 400:
			log.Warnw("request rejected", fields...)
		default:
			log.Infow("request served", fields...)
		}
	}
}
