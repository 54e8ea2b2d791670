package middleware

import (
	"os"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/praxy-health/zkid-service/pkg/server/framework"
)

// Errors handles errors coming out of the call stack. It detects safe application
// errors (aka SafeError) that are used to respond to the requester in a
// normalized way. Unexpected errors (status >= 500) are logged.
func Errors(shutdown chan os.Signal) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		for _, ginErr := range c.Errors {
			// check if there's a shutdown-worthy error
			if framework.IsShutdown(ginErr.Err) {
				logrus.WithError(ginErr.Err).Error("unsafe error, shutting down")
				shutdown <- syscall.SIGTERM
				return
			}

			// otherwise just log the errors and return to the caller
			logrus.WithError(ginErr.Err).Error("request error")
		}
	}
}
