package repository

import (
	"context"
	"errors"

	"pulse/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrDeviceNotFound is returned when a courier device is not found.
var ErrDeviceNotFound = errors.New("device not found")

// DeviceRepository defines the interface for courier device database operations.
type DeviceRepository interface {
	// UpsertDevice registers or refreshes a courier device by its client device ID.
	UpsertDevice(ctx context.Context, device *entity.CourierDevice) error

	// FindActiveDevicesForCouriers retrieves all active devices for the given couriers.
	FindActiveDevicesForCouriers(ctx context.Context, courierIDs []uuid.UUID) ([]*entity.CourierDevice, error)

	// DeleteDevice soft-deletes a device whose FCM token was reported invalid.
	DeleteDevice(ctx context.Context, id uuid.UUID) error
}
