package postgres

import (
	"context"

	"pulse/internal/domain/entity"
	domainerrors "pulse/internal/domain/errors"
	"pulse/internal/domain/repository"
	"pulse/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// deviceRepository implements the repository.DeviceRepository interface.
type deviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository is the constructor for deviceRepository.
func NewDeviceRepository(db *gorm.DB) repository.DeviceRepository {
	return &deviceRepository{
		db: db,
	}
}

// UpsertDevice registers or refreshes a courier device by its client device ID.
// A re-register from the same device updates the FCM token instead of
// stacking dead rows.
func (repo *deviceRepository) UpsertDevice(ctx context.Context, device *entity.CourierDevice) error {
	deviceM := fromDeviceDomain(device)

	if err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"courier_id", "fcm_token", "platform", "is_active", "updated_at"}),
		}).
		Create(deviceM).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return domainerrors.ErrDeviceRegisterFailed.WrapMessage("invalid courier reference")
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrDeviceRegisterFailed.WrapMessage("missing required device information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to upsert device")
	}

	// Update the entity with generated values
	device.ID = deviceM.ID
	device.CreatedAt = deviceM.CreatedAt
	device.UpdatedAt = deviceM.UpdatedAt

	return nil
}

// FindActiveDevicesForCouriers retrieves all active devices for the given couriers.
func (repo *deviceRepository) FindActiveDevicesForCouriers(ctx context.Context, courierIDs []uuid.UUID) ([]*entity.CourierDevice, error) {
	if len(courierIDs) == 0 {
		return nil, nil
	}

	var deviceModels []*model.CourierDeviceModel

	if err := repo.db.WithContext(ctx).
		Where("courier_id IN ? AND is_active = ?", courierIDs, true).
		Order("created_at DESC").
		Find(&deviceModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find active devices for couriers")
	}

	devices := make([]*entity.CourierDevice, 0, len(deviceModels))
	for _, deviceM := range deviceModels {
		devices = append(devices, toDeviceDomain(deviceM))
	}

	return devices, nil
}

// DeleteDevice soft-deletes a device whose FCM token was reported invalid.
func (repo *deviceRepository) DeleteDevice(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.CourierDeviceModel{})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete device")
	}

	if result.RowsAffected == 0 {
		return repository.ErrDeviceNotFound
	}

	return nil
}

// --- Mapper Functions ---

// toDeviceDomain converts a GORM CourierDeviceModel to a domain CourierDevice entity.
func toDeviceDomain(data *model.CourierDeviceModel) *entity.CourierDevice {
	if data == nil {
		return nil
	}

	return &entity.CourierDevice{
		ID:        data.ID,
		CourierID: data.CourierID,
		FCMToken:  data.FCMToken,
		DeviceID:  data.DeviceID,
		Platform:  data.Platform,
		IsActive:  data.IsActive,
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
	}
}

// fromDeviceDomain converts a domain CourierDevice entity to a GORM CourierDeviceModel.
func fromDeviceDomain(data *entity.CourierDevice) *model.CourierDeviceModel {
	if data == nil {
		return nil
	}

	return &model.CourierDeviceModel{
		ID:        data.ID,
		CourierID: data.CourierID,
		FCMToken:  data.FCMToken,
		DeviceID:  data.DeviceID,
		Platform:  data.Platform,
		IsActive:  data.IsActive,
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
	}
}
