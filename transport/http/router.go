package http

import (
	"github.com/acmebet/gatekeeper/ports"
	"github.com/acmebet/gatekeeper/service"
	"github.com/gin-gonic/gin"
)

// SetupRouter sets up the gin router. Logout and reset-password sit behind
// the access-token middleware that supplies the caller identity.
func SetupRouter(authService *service.AuthService, messages ports.MessageSource) *gin.Engine {
	router := gin.Default()

	handlers := NewAuthHandlers(authService, messages)

	auth := router.Group("/auth")
	{
		auth.POST("/challenge", handlers.Challenge)
		auth.POST("/sign-up", handlers.SignUp)
		auth.POST("/sign-in", handlers.SignIn)
		auth.POST("/refresh-token", handlers.RefreshToken)
	}

	authed := router.Group("/auth")
	authed.Use(AuthMiddleware(authService))
	{
		authed.POST("/logout", handlers.Logout)
		authed.POST("/reset-password", handlers.ResetPassword)
	}

	return router
}
