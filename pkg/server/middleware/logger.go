package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/praxy-health/zkid-service/pkg/server/framework"
)

// Logger logs request info before and after a handler runs, tagging both lines
// with a per-request trace id.
func Logger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := uuid.NewString()
		c.Set(framework.TraceIDKey.String(), traceID)
		start := time.Now()

		log.WithFields(logrus.Fields{
			"traceId": traceID,
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"remote":  c.ClientIP(),
		}).Info("request started")

		c.Next()

		log.WithFields(logrus.Fields{
			"traceId": traceID,
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"remote":  c.ClientIP(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Info("request completed")
	}
}
