package handler

import (
	"log/slog"
	"net/http"

	deliverycontext "pulse/internal/delivery/context"
	"pulse/internal/delivery/http/middleware"
	"pulse/internal/delivery/http/response"
	"pulse/internal/domain/service"
	"pulse/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// ReportStatusInput is a courier delivery progress report.
type ReportStatusInput struct {
	OrderID   string  `json:"order_id" validate:"required"`
	Status    string  `json:"status" validate:"required"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// StatusHandler accepts courier progress reports and publishes them back
// to the backend topic.
type StatusHandler struct {
	logger *slog.Logger
	fanout usecase.FanoutUsecase
}

// NewStatusHandler is the constructor for StatusHandler, injected by Fx.
func NewStatusHandler(logger *slog.Logger, fanout usecase.FanoutUsecase) *StatusHandler {
	return &StatusHandler{logger: logger, fanout: fanout}
}

// ReportStatus handles POST /courier/status. The courier identity comes
// from the session, never from the request body.
func (h *StatusHandler) ReportStatus(c echo.Context) error {
	var input ReportStatusInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "無效的狀態回報內容")
	}
	if err := c.Validate(&input); err != nil {
		return err
	}

	ctx := c.Request().Context()
	event := &service.DeliveryStatusEvent{
		RequestID: deliverycontext.GetRequestIDFromContext(ctx),
		OrderID:   input.OrderID,
		CourierID: middleware.SessionUserID(c).String(),
		Status:    input.Status,
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
	}

	if err := h.fanout.ReportDeliveryStatus(ctx, event); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusAccepted, nil, "狀態回報已送出")
}
