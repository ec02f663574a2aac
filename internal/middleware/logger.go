package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/carehospital/admin-api/pkg/logger"
)

// Logger logs one line per request. Bodies are never logged since they
// carry patient data.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		if raw != "" {
			path = path + "?" + raw
		}

		l := logger.FromContext(c.Request.Context())
		var event *zerolog.Event
		var msg string
		switch {
		case statusCode >= 500:
			event, msg = l.Error(), "Server error"
		case statusCode >= 400:
			event, msg = l.Warn(), "Client error"
		default:
			event, msg = l.Info(), "Request processed"
		}

		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Str("route", c.FullPath()).
			Str("ip", c.ClientIP()).
			Int("status", statusCode).
			Dur("latency", latency).
			Str("user_agent", c.Request.UserAgent()).
			Msg(msg)
	}
}
