// Package handler contains the HTTP handlers for the gateway.
package handler

import (
	"log/slog"
	"net/http"

	"pulse/internal/delivery/http/middleware"
	domainerrors "pulse/internal/domain/errors"
	"pulse/internal/infra/hub"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// StreamHandler upgrades realtime connections to websocket and attaches
// them to the fan-out hub.
type StreamHandler struct {
	logger   *slog.Logger
	hub      *hub.Hub
	upgrader websocket.Upgrader
}

// NewStreamHandler is the constructor for StreamHandler, injected by Fx.
func NewStreamHandler(logger *slog.Logger, h *hub.Hub) *StreamHandler {
	return &StreamHandler{
		logger: logger,
		hub:    h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The gateway serves first-party apps on many origins; the
			// bearer token is the actual access control.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Stream handles GET /realtime/ws. The connection is scoped to one role of
// the authenticated session and stays open until either side closes it.
func (h *StreamHandler) Stream(c echo.Context) error {
	role, err := middleware.ConnectionRole(c)
	if err != nil {
		return err
	}
	userID := middleware.SessionUserID(c)

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the failure response.
		h.logger.Warn("websocket upgrade failed",
			slog.String("user_id", userID.String()),
			slog.Any("error", err))

		return domainerrors.ErrChannelUpgradeFailed
	}

	h.logger.Info("realtime client connected",
		slog.String("user_id", userID.String()),
		slog.String("role", role.String()))

	// Serve blocks until the connection drops; echo allows a handler to
	// hold its goroutine for the connection lifetime.
	hub.NewClient(h.hub, conn, userID, role).Serve()

	h.logger.Info("realtime client disconnected",
		slog.String("user_id", userID.String()),
		slog.String("role", role.String()))

	return nil
}
