// internal/app/router.go
package app

import (
	authHandler "frontdesk-gateway/internal/handlers/auth"
	pagesHandler "frontdesk-gateway/internal/handlers/pages"
	proxyHandler "frontdesk-gateway/internal/handlers/proxy"
	wsHandler "frontdesk-gateway/internal/handlers/websocket"
	"frontdesk-gateway/internal/middleware"

	"github.com/gin-gonic/gin"
)

// proxiedResources are forwarded to the backend with the session's token.
var proxiedResources = []string{
	"clients",
	"tasks",
	"users",
	"quotations",
	"products",
	"maintenance",
	"profile",
	"reports",
}

type Handlers struct {
	AuthHandler    *authHandler.AuthHandler
	ProxyHandler   *proxyHandler.ProxyHandler
	PagesHandler   *pagesHandler.PagesHandler
	WSHandler      *wsHandler.WebSocketHandler
	Health         *healthHandler
	AuthMiddleware *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api")

	// ==================== Health Check ====================
	api.GET("/health", h.Health.Handle)

	// ==================== WebSocket ====================
	r.GET("/ws", h.AuthMiddleware.Auth(), h.WSHandler.HandleConnection)

	// ==================== Session ====================
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signin", h.AuthHandler.SignIn)
		authGroup.POST("/signout", h.AuthMiddleware.OptionalAuth(), h.AuthHandler.SignOut)
		authGroup.GET("/session", h.AuthMiddleware.OptionalAuth(), h.AuthHandler.GetSession)
		authGroup.PATCH("/session", h.AuthMiddleware.Auth(), h.AuthHandler.UpdateSession)
		authGroup.POST("/refresh", h.AuthMiddleware.OptionalAuth(), h.AuthHandler.Refresh)
		authGroup.GET("/csrf", h.AuthMiddleware.OptionalAuth(), h.AuthHandler.CSRFToken)

		// Anonymous account flows go straight to the backend
		authGroup.POST("/register", h.ProxyHandler.ForwardPublic)
		authGroup.Any("/password-reset/*path", h.ProxyHandler.ForwardPublic)
	}

	// ==================== Backend Resources ====================
	for _, resource := range proxiedResources {
		base := "/" + resource
		api.Any(base, h.AuthMiddleware.Auth(), h.ProxyHandler.Forward)
		api.Any(base+"/*path", h.AuthMiddleware.Auth(), h.ProxyHandler.Forward)
	}

	// ==================== Admin ====================
	admin := api.Group("/admin")
	admin.Use(h.AuthMiddleware.AdminOnly()...)
	{
		admin.GET("/ws/stats", h.WSHandler.GetStats)
	}

	// ==================== Pages ====================
	r.NoRoute(h.PagesHandler.Serve)
}
