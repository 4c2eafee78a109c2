// Package model holds the GORM-specific table structs of the persistence layer.
package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderNotificationLogModel is the GORM-specific struct for the
// 'order_notification_logs' table. Each row records one notification the
// gateway fanned out for an order event.
type OrderNotificationLogModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	OrderID   string    `gorm:"type:text;not null;index"`
	EventKind string    `gorm:"type:text;not null"`
	Role      string    `gorm:"type:text;not null"`
	Title     string    `gorm:"type:text;not null"`
	Message   string    `gorm:"type:text;not null"`
	Transport string    `gorm:"type:varchar(50);not null"`
	Status    string    `gorm:"type:text;not null;default:'sent'"`
	Error     string    `gorm:"type:text"`
	SentAt    time.Time `gorm:"index"`
}

// TableName explicitly sets the table name for GORM.
func (OrderNotificationLogModel) TableName() string {
	return "order_notification_logs"
}
