package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CourierDeviceModel is the GORM-specific struct for the 'courier_devices'
// table. It represents a courier's device registered for FCM push.
type CourierDeviceModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	CourierID uuid.UUID `gorm:"type:uuid;not null;index"`
	FCMToken  string    `gorm:"type:varchar(255);not null"`
	DeviceID  string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_courier_device"`
	Platform  string    `gorm:"type:varchar(50);not null"`
	IsActive  bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName explicitly sets the table name for GORM.
func (CourierDeviceModel) TableName() string {
	return "courier_devices"
}
