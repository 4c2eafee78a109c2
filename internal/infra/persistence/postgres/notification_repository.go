package postgres

import (
	"context"

	"pulse/internal/domain/entity"
	domainerrors "pulse/internal/domain/errors"
	"pulse/internal/domain/repository"
	"pulse/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// notificationRepository implements the repository.NotificationRepository interface.
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository is the constructor for notificationRepository.
func NewNotificationRepository(db *gorm.DB) repository.NotificationRepository {
	return &notificationRepository{
		db: db,
	}
}

// CreateLog persists a single notification log entry.
func (repo *notificationRepository) CreateLog(ctx context.Context, log *entity.OrderNotificationLog) error {
	logM := fromNotificationLogDomain(log)

	if err := repo.db.WithContext(ctx).Create(logM).Error; err != nil {
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrNotificationSendFailed.WrapMessage("missing required log information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create notification log")
	}

	// Update the entity with generated values
	log.ID = logM.ID
	log.SentAt = logM.SentAt

	return nil
}

// BatchCreateLogs persists multiple notification log entries in a batch for better performance.
func (repo *notificationRepository) BatchCreateLogs(ctx context.Context, logs []*entity.OrderNotificationLog) error {
	if len(logs) == 0 {
		return nil
	}

	logModels := make([]*model.OrderNotificationLogModel, 0, len(logs))
	for _, log := range logs {
		logModels = append(logModels, fromNotificationLogDomain(log))
	}

	if err := repo.db.WithContext(ctx).CreateInBatches(logModels, 100).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to batch create notification logs")
	}

	for idx, logM := range logModels {
		logs[idx].ID = logM.ID
		logs[idx].SentAt = logM.SentAt
	}

	return nil
}

// FindLogsByOrder retrieves notification logs for an order, newest first.
func (repo *notificationRepository) FindLogsByOrder(ctx context.Context, orderID string, limit, offset int) ([]*entity.OrderNotificationLog, error) {
	var logModels []*model.OrderNotificationLogModel

	query := repo.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("sent_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&logModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find notification logs by order")
	}

	logs := make([]*entity.OrderNotificationLog, 0, len(logModels))
	for _, logM := range logModels {
		logs = append(logs, toNotificationLogDomain(logM))
	}

	return logs, nil
}

// --- Mapper Functions ---

// toNotificationLogDomain converts a GORM OrderNotificationLogModel to a domain entity.
func toNotificationLogDomain(data *model.OrderNotificationLogModel) *entity.OrderNotificationLog {
	if data == nil {
		return nil
	}

	return &entity.OrderNotificationLog{
		ID:        data.ID,
		OrderID:   data.OrderID,
		EventKind: entity.EventKind(data.EventKind),
		Role:      entity.Role(data.Role),
		Title:     data.Title,
		Message:   data.Message,
		Transport: data.Transport,
		Status:    data.Status,
		Error:     data.Error,
		SentAt:    data.SentAt,
	}
}

// fromNotificationLogDomain converts a domain entity to a GORM OrderNotificationLogModel.
func fromNotificationLogDomain(data *entity.OrderNotificationLog) *model.OrderNotificationLogModel {
	if data == nil {
		return nil
	}

	return &model.OrderNotificationLogModel{
		ID:        data.ID,
		OrderID:   data.OrderID,
		EventKind: data.EventKind.String(),
		Role:      data.Role.String(),
		Title:     data.Title,
		Message:   data.Message,
		Transport: data.Transport,
		Status:    data.Status,
		Error:     data.Error,
		SentAt:    data.SentAt,
	}
}
