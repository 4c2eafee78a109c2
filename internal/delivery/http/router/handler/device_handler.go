package handler

import (
	"log/slog"
	"net/http"
	"time"

	"pulse/internal/delivery/http/middleware"
	"pulse/internal/delivery/http/response"
	"pulse/internal/domain/entity"
	domainerrors "pulse/internal/domain/errors"
	"pulse/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// RegisterDeviceInput registers or refreshes a courier device for FCM push.
type RegisterDeviceInput struct {
	DeviceID string `json:"device_id" validate:"required"`
	FCMToken string `json:"fcm_token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=ios android"`
}

// DeviceHandler manages the courier devices used for the FCM push fallback.
type DeviceHandler struct {
	logger     *slog.Logger
	deviceRepo repository.DeviceRepository
}

// NewDeviceHandler is the constructor for DeviceHandler, injected by Fx.
func NewDeviceHandler(logger *slog.Logger, deviceRepo repository.DeviceRepository) *DeviceHandler {
	return &DeviceHandler{logger: logger, deviceRepo: deviceRepo}
}

// RegisterDevice handles POST /courier/devices.
func (h *DeviceHandler) RegisterDevice(c echo.Context) error {
	var input RegisterDeviceInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "無效的裝置註冊內容")
	}
	if err := c.Validate(&input); err != nil {
		return err
	}

	now := time.Now()
	device := &entity.CourierDevice{
		ID:        uuid.New(),
		CourierID: middleware.SessionUserID(c),
		FCMToken:  input.FCMToken,
		DeviceID:  input.DeviceID,
		Platform:  input.Platform,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.deviceRepo.UpsertDevice(c.Request().Context(), device); err != nil {
		return domainerrors.ErrDeviceRegisterFailed.WrapMessage(err.Error())
	}

	return response.Success(c, http.StatusCreated, device, "裝置註冊成功")
}

// UnregisterDevice handles DELETE /courier/devices/:id.
func (h *DeviceHandler) UnregisterDevice(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "無效的裝置識別碼")
	}

	if err := h.deviceRepo.DeleteDevice(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return domainerrors.ErrDeviceNotFound
		}

		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "裝置已移除")
}
