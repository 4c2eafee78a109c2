package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"pulse/internal/delivery/http/response"
	"pulse/internal/domain/repository"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// NotificationHandler exposes the per-order notification history to the
// admin dashboard.
type NotificationHandler struct {
	logger           *slog.Logger
	notificationRepo repository.NotificationRepository
}

// NewNotificationHandler is the constructor for NotificationHandler, injected by Fx.
func NewNotificationHandler(logger *slog.Logger, notificationRepo repository.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{logger: logger, notificationRepo: notificationRepo}
}

// ListByOrder handles GET /orders/:id/notifications?limit=N&offset=N.
func (h *NotificationHandler) ListByOrder(c echo.Context) error {
	orderID := c.Param("id")
	if orderID == "" {
		return response.BadRequest(c, "INVALID_INPUT", "缺少訂單識別碼")
	}

	limit := queryInt(c, "limit", defaultHistoryLimit)
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	offset := queryInt(c, "offset", 0)

	logs, err := h.notificationRepo.FindLogsByOrder(c.Request().Context(), orderID, limit, offset)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, logs, "")
}

func queryInt(c echo.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || v < 0 {
		return fallback
	}

	return v
}
