package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"enricher/internal/logger"
	"enricher/internal/metrics"
)

// Logger writes one structured line per request and records request metrics.
func Logger(logger *logger.Logger) gin.HandlerFunc {
	zl := logger.Zerolog()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		status := c.Writer.Status()
		metrics.RecordRequest(c.Request.Method, endpoint, status, latency)

		event := zl.Info()
		if status >= 500 {
			event = zl.Error()
		} else if status >= 400 {
			event = zl.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}
