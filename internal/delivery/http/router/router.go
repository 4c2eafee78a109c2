// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"pulse/internal/delivery/http/middleware"
	"pulse/internal/delivery/http/router/handler"
	"pulse/internal/domain/entity"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	StreamHandler       *handler.StreamHandler
	PollHandler         *handler.PollHandler
	PushHandler         *handler.PushHandler
	StatusHandler       *handler.StatusHandler
	DeviceHandler       *handler.DeviceHandler
	HandoffHandler      *handler.HandoffHandler
	NotificationHandler *handler.NotificationHandler
	AuthMiddleware      *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	params RouterParams
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{params: params}
}

// RegisterRoutes sets up all the API routes for the gateway.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Backend ingest: Pub/Sub pushes order events here
	e.POST("/push", r.params.PushHandler.HandlePush)

	// Realtime endpoints: role scope comes from the X-Pulse-Role header
	realtimeGroup := e.Group("/realtime")
	realtimeGroup.Use(r.params.AuthMiddleware.Authenticate)
	{
		realtimeGroup.GET("/ws", r.params.StreamHandler.Stream)
		realtimeGroup.GET("/poll", r.params.PollHandler.Poll)
	}

	// Courier routes that require authentication and the "courier" role
	courierGroup := e.Group("/courier")
	courierGroup.Use(r.params.AuthMiddleware.Authenticate)
	courierGroup.Use(r.params.AuthMiddleware.RequireRole(entity.RoleCourier))
	{
		courierGroup.POST("/status", r.params.StatusHandler.ReportStatus)
		courierGroup.POST("/devices", r.params.DeviceHandler.RegisterDevice)
		courierGroup.DELETE("/devices/:id", r.params.DeviceHandler.UnregisterDevice)
		courierGroup.GET("/orders/:id/handoff-qr", r.params.HandoffHandler.HandoffQR)
	}

	// Admin routes
	adminGroup := e.Group("/admin")
	adminGroup.Use(r.params.AuthMiddleware.Authenticate)
	adminGroup.Use(r.params.AuthMiddleware.RequireRole(entity.RoleAdmin))
	{
		adminGroup.GET("/orders/:id/notifications", r.params.NotificationHandler.ListByOrder)
	}
}
