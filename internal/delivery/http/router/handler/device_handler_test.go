package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pulse/internal/delivery/http/validator"
	"pulse/internal/domain/entity"
	domainerrors "pulse/internal/domain/errors"
	"pulse/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeviceRepo struct {
	upserted []*entity.CourierDevice
	deleted  []uuid.UUID
	err      error
}

func (f *fakeDeviceRepo) UpsertDevice(_ context.Context, device *entity.CourierDevice) error {
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, device)

	return nil
}

func (f *fakeDeviceRepo) FindActiveDevicesForCouriers(context.Context, []uuid.UUID) ([]*entity.CourierDevice, error) {
	return nil, nil
}

func (f *fakeDeviceRepo) DeleteDevice(_ context.Context, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)

	return nil
}

var _ repository.DeviceRepository = (*fakeDeviceRepo)(nil)

func newDeviceContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder, uuid.UUID) {
	e := echo.New()
	e.Validator = validator.New()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	courierID := uuid.New()
	c.Set("userID", courierID)

	return c, rec, courierID
}

func TestDeviceHandler_RegisterDevice(t *testing.T) {
	repo := &fakeDeviceRepo{}
	h := NewDeviceHandler(testLogger(), repo)

	c, rec, courierID := newDeviceContext(http.MethodPost, "/courier/devices",
		`{"device_id":"dev-1","fcm_token":"tok-1","platform":"android"}`)

	require.NoError(t, h.RegisterDevice(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, repo.upserted, 1)
	device := repo.upserted[0]
	assert.Equal(t, courierID, device.CourierID)
	assert.Equal(t, "dev-1", device.DeviceID)
	assert.Equal(t, "tok-1", device.FCMToken)
	assert.True(t, device.IsActive)
}

func TestDeviceHandler_RegisterRejectsUnknownPlatform(t *testing.T) {
	repo := &fakeDeviceRepo{}
	h := NewDeviceHandler(testLogger(), repo)

	c, _, _ := newDeviceContext(http.MethodPost, "/courier/devices",
		`{"device_id":"dev-1","fcm_token":"tok-1","platform":"windows"}`)

	err := h.RegisterDevice(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	assert.Empty(t, repo.upserted)
}

func TestDeviceHandler_UnregisterDevice(t *testing.T) {
	repo := &fakeDeviceRepo{}
	h := NewDeviceHandler(testLogger(), repo)
	deviceID := uuid.New()

	c, rec, _ := newDeviceContext(http.MethodDelete, "/courier/devices/"+deviceID.String(), "")
	c.SetParamNames("id")
	c.SetParamValues(deviceID.String())

	require.NoError(t, h.UnregisterDevice(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uuid.UUID{deviceID}, repo.deleted)
}

func TestDeviceHandler_UnregisterUnknownDevice(t *testing.T) {
	repo := &fakeDeviceRepo{err: repository.ErrDeviceNotFound}
	h := NewDeviceHandler(testLogger(), repo)

	c, _, _ := newDeviceContext(http.MethodDelete, "/courier/devices/x", "")
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.UnregisterDevice(c)

	assert.ErrorIs(t, err, domainerrors.ErrDeviceNotFound)
}
