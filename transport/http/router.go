package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
	"github.com/layer-3/walletauth/service"
)

// SetupRouter sets up the Gin router for the standard realm and, when adminService is set, the elevated realm
func SetupRouter(authService, adminService *service.AuthService, store ports.Store, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	router.GET("/healthz", Health(store))

	userHandlers, _ := mountRealm(router.Group("/auth"), router.Group("/api"), authService, logger)
	if adminService != nil {
		_, adminAPI := mountRealm(router.Group("/admin/auth"), router.Group("/admin/api"), adminService, logger)

		// Operators end standard-realm sessions through the admin API
		adminAPI.DELETE("/families/:familyId", RequireRoles(core.RoleAdmin), userHandlers.RevokeFamily)
	}

	return router
}

func mountRealm(auth, api *gin.RouterGroup, svc *service.AuthService, logger *slog.Logger) (*AuthHandlers, *gin.RouterGroup) {
	handlers := NewAuthHandlers(svc, logger)
	guard := AuthMiddleware(svc.Guard(), logger)

	auth.POST("/nonce", handlers.Nonce)
	auth.POST("/verify", handlers.Verify)
	auth.POST("/refresh", handlers.Refresh)
	auth.POST("/logout", guard, handlers.Logout)

	api.Use(guard)
	{
		api.GET("/me", handlers.Me)
	}

	return handlers, api
}
