// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"
	"errors"

	"pulse/internal/domain/entity"
)

// Domain-specific errors for notification persistence.
var (
	// ErrNotificationLogNotFound is returned when a notification log is not found.
	ErrNotificationLogNotFound = errors.New("notification log not found")
)

// NotificationRepository defines the interface for notification-history database operations.
type NotificationRepository interface {
	// CreateLog persists a single notification log entry.
	CreateLog(ctx context.Context, log *entity.OrderNotificationLog) error

	// BatchCreateLogs persists multiple notification log entries in a batch for better performance.
	BatchCreateLogs(ctx context.Context, logs []*entity.OrderNotificationLog) error

	// FindLogsByOrder retrieves notification logs for an order, newest first.
	FindLogsByOrder(ctx context.Context, orderID string, limit, offset int) ([]*entity.OrderNotificationLog, error)
}
