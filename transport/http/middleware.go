package http

import (
	"net/http"
	"strings"

	"github.com/acmebet/gatekeeper/service"
	"github.com/gin-gonic/gin"
)

// identityKey is the gin context key holding the caller identity set by
// AuthMiddleware.
const identityKey = "gatekeeper.identity"

// AuthMiddleware validates the bearer access token and injects the caller
// identity used by logout and reset-password.
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  http.StatusUnauthorized,
				"message": "Invalid authorization header",
			})
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		identity, err := authService.Identify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  http.StatusUnauthorized,
				"message": "Invalid token",
			})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}
