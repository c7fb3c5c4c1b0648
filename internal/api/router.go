package api

import (
	"log/slog"

	"tuyabridge/internal/api/handlers"
	"tuyabridge/internal/api/middleware"
	"tuyabridge/internal/devices"
	"tuyabridge/internal/tuya/auth"

	"github.com/gin-gonic/gin"
)

// RouterConfig holds dependencies for the API router
type RouterConfig struct {
	Service    devices.StateService
	StateCache handlers.StateCache // Optional: nil when the poller is disabled
	Manager    *auth.Manager
	Linker     handlers.Linker // Optional: only the sharing protocol supports QR linking
	UserCode   string
	APIKey     string
	Logger     *slog.Logger
}

// NewRouter creates and configures the Gin router
func NewRouter(config RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(config.Logger))
	router.Use(middleware.Logging(config.Logger))
	router.Use(middleware.ContentType())

	// Health check (no auth)
	healthHandler := handlers.NewHealthHandler()
	router.GET("/health", healthHandler.GetHealth)

	// API v1 routes (with authentication)
	v1 := router.Group("/v1")
	v1.Use(middleware.APIKeyAuth(config.APIKey))
	{
		devicesHandler := handlers.NewDevicesHandler(
			config.Service,
			config.StateCache,
			config.Logger,
		)
		v1.GET("/devices", devicesHandler.ListDevices)
		v1.GET("/devices/:id/state", devicesHandler.GetState)
		v1.POST("/devices/:id/command", devicesHandler.SendCommand)

		authHandler := handlers.NewAuthHandler(
			config.Manager,
			config.Linker,
			config.UserCode,
			config.Logger,
		)
		v1.GET("/auth/status", authHandler.GetStatus)
		v1.POST("/auth/link", authHandler.StartLink)
		v1.POST("/auth/refresh", authHandler.Refresh)
	}

	return router
}
