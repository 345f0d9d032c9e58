package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/labang-online/portal/internal/logger"
)

// Recovery turns a panic into a 500 response and logs the stack.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				requestLogger := GetLogger(c)
				if requestLogger == nil {
					requestLogger = log
				}

				requestLogger.Error("Panic recovered", fmt.Errorf("panic: %v", err), map[string]interface{}{
					"request_id": GetRequestID(c),
					"method":     c.Request.Method,
					"path":       c.Request.URL.Path,
					"stack":      string(debug.Stack()),
				})

				abortJSON(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An unexpected error occurred", nil)
			}
		}()

		c.Next()
	}
}

// abortJSON writes the standard error body. Handlers use the errors package;
// middleware cannot import it without a cycle.
func abortJSON(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	body := gin.H{
		"code":       code,
		"message":    message,
		"request_id": GetRequestID(c),
	}
	if details != nil {
		body["details"] = details
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}
