package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/awkns-projects/rom-gateway/internal/logging"
)

const RequestIDKey = "request_id"
const LoggerKey = "logger"

// RequestID injects a request ID into the context and logger for each
// request, honoring an inbound X-Request-ID when present.
func RequestID(baseLogger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Set(RequestIDKey, reqID)
		c.Writer.Header().Set("X-Request-ID", reqID)

		logger := logging.WithRequestID(baseLogger, reqID)
		c.Set(LoggerKey, logger)

		c.Next()
	}
}

// RequestLogger returns the per-request logger, falling back to a no-op
// logger when the middleware did not run.
func RequestLogger(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(LoggerKey); ok {
		if logger, ok := v.(*zap.Logger); ok {
			return logger
		}
	}
	return zap.NewNop()
}
