package impl

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pulse/internal/domain/constants"
	"pulse/internal/domain/entity"
	"pulse/internal/domain/repository"
	"pulse/internal/domain/service"
	"pulse/internal/errors"
	"pulse/internal/infra/hub"
	"pulse/internal/usecase"
)

// fanoutService distributes ingested order events to the live realtime
// clients and falls back to FCM push for couriers that are offline when a
// delivery is assigned to them.
type fanoutService struct {
	logger           *slog.Logger
	hub              *hub.Hub
	push             service.PushService
	publisher        service.EventPublisher
	notificationRepo repository.NotificationRepository
	deviceRepo       repository.DeviceRepository
}

// NewFanoutService creates the gateway fanout use case. push may be nil when
// FCM is not configured; assignment events then reach only online couriers.
func NewFanoutService(
	logger *slog.Logger,
	h *hub.Hub,
	push service.PushService,
	publisher service.EventPublisher,
	notificationRepo repository.NotificationRepository,
	deviceRepo repository.DeviceRepository,
) usecase.FanoutUsecase {
	return &fanoutService{
		logger:           logger,
		hub:              h,
		push:             push,
		publisher:        publisher,
		notificationRepo: notificationRepo,
		deviceRepo:       deviceRepo,
	}
}

// HandleOrderEvent fans one ingested order event out to the hub and records
// the notification history. The broadcast never blocks on persistence: log
// failures are reported but do not fail the ingest.
func (s *fanoutService) HandleOrderEvent(ctx context.Context, event *entity.OrderEvent) error {
	if err := event.Validate(); err != nil {
		return errors.Wrap(err, "reject order event")
	}

	roles := entity.RolesForEvent(event.Kind)
	if len(roles) == 0 {
		s.logger.Debug("order event has no subscriber roles, skipping",
			slog.String("event", event.Kind.String()))

		return nil
	}

	payload := []byte(event.Raw)
	if len(payload) == 0 {
		encoded, err := json.Marshal(event)
		if err != nil {
			return errors.Wrap(err, "encode order event")
		}
		payload = encoded
	}

	// Customers only see events for their own orders; the other roles are
	// scoped by role alone.
	customerID := uuid.Nil
	if event.Order != nil {
		customerID = event.Order.CustomerID
	}

	seq := s.hub.Broadcast(roles, customerID, payload)
	s.logger.Info("order event broadcast",
		slog.String("event", event.Kind.String()),
		slog.String("order_id", event.TargetOrderID()),
		slog.Uint64("seq", seq))

	logs := make([]*entity.OrderNotificationLog, 0, len(roles))
	now := time.Now()
	for _, role := range roles {
		logs = append(logs, &entity.OrderNotificationLog{
			OrderID:   event.TargetOrderID(),
			EventKind: event.Kind,
			Role:      role,
			Title:     event.Kind.String(),
			Message:   event.TargetOrderID(),
			Transport: constants.TransportWebsocket,
			Status:    "sent",
			SentAt:    now,
		})
	}

	if event.Kind == entity.EventDeliveryAssigned {
		if fcmLog := s.pushAssignedCourier(ctx, event); fcmLog != nil {
			logs = append(logs, fcmLog)
		}
	}

	if err := s.notificationRepo.BatchCreateLogs(ctx, logs); err != nil {
		s.logger.Error("failed to record notification logs",
			slog.String("order_id", event.TargetOrderID()),
			slog.Any("error", err))
	}

	return nil
}

// pushAssignedCourier sends the FCM fallback for a deliveryAssigned event
// when the target courier has no live channel. Returns a history log entry
// for the push attempt, or nil when no push was needed.
func (s *fanoutService) pushAssignedCourier(ctx context.Context, event *entity.OrderEvent) *entity.OrderNotificationLog {
	if s.push == nil || event.CourierID == "" {
		return nil
	}

	courierID, err := uuid.Parse(event.CourierID)
	if err != nil {
		s.logger.Warn("deliveryAssigned event carries malformed courier id",
			slog.String("courier_id", event.CourierID))

		return nil
	}

	if s.hub.IsUserOnline(courierID) {
		return nil
	}

	log := &entity.OrderNotificationLog{
		OrderID:   event.TargetOrderID(),
		EventKind: event.Kind,
		Role:      entity.RoleCourier,
		Title:     "新配送任務",
		Message:   "訂單 " + event.TargetOrderID() + " 已指派給你",
		Transport: constants.TransportFCM,
		Status:    "sent",
		SentAt:    time.Now(),
	}

	devices, err := s.deviceRepo.FindActiveDevicesForCouriers(ctx, []uuid.UUID{courierID})
	if err != nil {
		s.logger.Error("failed to load courier devices",
			slog.String("courier_id", courierID.String()), slog.Any("error", err))
		log.Status = "failed"
		log.Error = err.Error()

		return log
	}
	if len(devices) == 0 {
		s.logger.Info("offline courier has no registered devices",
			slog.String("courier_id", courierID.String()))
		log.Status = "failed"
		log.Error = "no registered devices"

		return log
	}

	tokens := make([]string, 0, len(devices))
	tokenDevice := make(map[string]uuid.UUID, len(devices))
	for _, device := range devices {
		tokens = append(tokens, device.FCMToken)
		tokenDevice[device.FCMToken] = device.ID
	}

	data := map[string]string{
		"event":    event.Kind.String(),
		"order_id": event.TargetOrderID(),
	}
	success, failure, invalidTokens, err := s.push.SendBatchNotification(ctx, tokens, log.Title, log.Message, data)
	if err != nil {
		s.logger.Error("FCM push failed",
			slog.String("courier_id", courierID.String()), slog.Any("error", err))
		log.Status = "failed"
		log.Error = err.Error()

		return log
	}

	s.logger.Info("FCM fallback push sent",
		slog.String("courier_id", courierID.String()),
		slog.Int("success", success),
		slog.Int("failure", failure))

	// Prune devices FCM reported as dead so they stop eating batch quota.
	for _, token := range invalidTokens {
		if deviceID, ok := tokenDevice[token]; ok {
			if err := s.deviceRepo.DeleteDevice(ctx, deviceID); err != nil {
				s.logger.Warn("failed to prune invalid device",
					slog.String("device_id", deviceID.String()), slog.Any("error", err))
			}
		}
	}

	if success == 0 {
		log.Status = "failed"
		log.Error = "no device accepted the push"
	}

	return log
}

// ReportDeliveryStatus accepts a courier progress report and publishes it to
// the backend topic.
func (s *fanoutService) ReportDeliveryStatus(ctx context.Context, event *service.DeliveryStatusEvent) error {
	if event.OrderID == "" || event.CourierID == "" || event.Status == "" {
		return errors.New("delivery status report requires order, courier and status")
	}

	if err := s.publisher.PublishDeliveryStatus(ctx, event); err != nil {
		return errors.Wrap(err, "publish delivery status")
	}

	return nil
}
