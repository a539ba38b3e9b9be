// README: Minimum-role route guard; a single numeric comparison on the hierarchy.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"porter/internal/types"
)

func RequireRole(min types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CallerRole(c).AtLeast(min) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}
