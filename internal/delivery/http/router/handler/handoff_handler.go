package handler

import (
	"log/slog"
	"net/http"

	"pulse/internal/delivery/http/response"
	domainerrors "pulse/internal/domain/errors"
	"pulse/internal/domain/service"

	"github.com/labstack/echo/v4"
)

// HandoffHandler renders the hand-off QR code a courier presents to the
// customer at the door.
type HandoffHandler struct {
	logger    *slog.Logger
	qrcodeSvc service.QRCodeService
}

// NewHandoffHandler is the constructor for HandoffHandler, injected by Fx.
func NewHandoffHandler(logger *slog.Logger, qrcodeSvc service.QRCodeService) *HandoffHandler {
	return &HandoffHandler{logger: logger, qrcodeSvc: qrcodeSvc}
}

// HandoffQR handles GET /orders/:id/handoff-qr and responds with a PNG.
func (h *HandoffHandler) HandoffQR(c echo.Context) error {
	orderID := c.Param("id")
	if orderID == "" {
		return response.BadRequest(c, "INVALID_INPUT", "缺少訂單識別碼")
	}

	png, err := h.qrcodeSvc.GenerateHandoffQR(orderID)
	if err != nil {
		h.logger.Error("handoff QR generation failed",
			slog.String("order_id", orderID),
			slog.Any("error", err))

		return domainerrors.ErrQRCodeGenerationFailed
	}

	return c.Blob(http.StatusOK, "image/png", png)
}
