package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger returns a middleware that logs every request with logrus. Bodies are
// deliberately not captured: this service fronts credential and token
// traffic, and secrets must never reach the access log.
func Logger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)

		fields := logrus.Fields{
			"status":     strconv.Itoa(c.Writer.Status()),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"host":       c.Request.Host,
			"ip":         c.ClientIP(),
			"duration":   duration.String(),
			"user_agent": c.Request.UserAgent(),
		}

		if requestID := c.GetString(RequestIDKey); requestID != "" {
			fields["request_id"] = requestID
		}
		if agentKey := c.Request.Header.Get("x-agent-key"); agentKey != "" {
			fields["agent_key"] = agentKey
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		statusCode := c.Writer.Status()
		switch {
		case statusCode >= 500:
			log.WithFields(fields).Error("Server error")
		case statusCode >= 400:
			log.WithFields(fields).Warn("Client error")
		case statusCode >= 300:
			log.WithFields(fields).Info("Redirection")
		default:
			log.WithFields(fields).Info("Success")
		}
	}
}
