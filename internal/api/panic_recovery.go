package api

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/developer-mesh/task-manager/pkg/observability"
)

// CustomRecoveryMiddleware turns panics into 500 responses and logs the stack.
// Panic details are only returned to the client when exposeDetails is set.
func CustomRecoveryMiddleware(logger observability.Logger, exposeDetails bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered", map[string]any{
					"error":      fmt.Sprintf("%v", err),
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
					"request_id": c.GetString(RequestIDKey),
					"stack":      string(debug.Stack()),
				})

				if exposeDetails {
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
						"error": fmt.Sprintf("Internal server error: %v", err),
						"type":  "panic",
					})
					return
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "An internal server error occurred",
				})
			}
		}()
		c.Next()
	}
}
