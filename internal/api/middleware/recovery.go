package middleware

import (
	"errors"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"enricher/internal/logger"
)

// Recovery turns a handler panic into a 500. Panics caused by a client that
// went away only abort the request.
func Recovery(logger *logger.Logger) gin.HandlerFunc {
	zl := logger.Zerolog()
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		if err, ok := recovered.(error); ok && brokenConnection(err) {
			c.Abort()
			return
		}

		event := zl.Error().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Interface("panic", recovered)
		if gin.IsDebugging() {
			event = event.Str("stack", string(debug.Stack()))
		}
		event.Msg("panic recovered")

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	})
}

func brokenConnection(err error) bool {
	var ne *net.OpError
	if !errors.As(err, &ne) {
		return false
	}
	var se *os.SyscallError
	if !errors.As(ne.Err, &se) {
		return false
	}
	msg := strings.ToLower(se.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}
