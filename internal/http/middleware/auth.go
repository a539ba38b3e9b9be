// README: Cookie-token auth middleware; resolves tokens to users and attaches caller identity.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"porter/internal/modules/auth"
	"porter/internal/types"
)

const (
	callerIDKey   = "caller_id"
	callerRoleKey = "caller_role"
)

// Authenticator resolves an opaque token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.User, error)
}

// Auth reads the auth cookie (falling back to an Authorization bearer header)
// and rejects the request when no valid, unexpired token maps to an active user.
func Auth(authn Authenticator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if cookie, err := c.Cookie(cookieName); err == nil {
			token = cookie
		} else if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		}

		u, err := authn.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		c.Set(callerIDKey, u.ID)
		c.Set(callerRoleKey, u.Role)
		c.Next()
	}
}

func CallerID(c *gin.Context) types.ID {
	if v, ok := c.Get(callerIDKey); ok {
		if id, ok := v.(types.ID); ok {
			return id
		}
	}
	return ""
}

func CallerRole(c *gin.Context) types.Role {
	if v, ok := c.Get(callerRoleKey); ok {
		if r, ok := v.(types.Role); ok {
			return r
		}
	}
	return 0
}
