package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/factory_backend/utils"
)

// RequireSession rejects requests that did not resolve to a user. Mounted on
// the mutating routes; SessionMiddleware lets tokenless requests through so
// read-only routes and health checks stay open, and this closes the gap for
// writes. The System actor fallback stays reserved for the simulator's
// internal ticks.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := utils.GetUserIdFromContext(c.Request.Context()); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
