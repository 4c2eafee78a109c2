package usecase

import (
	"context"

	"pulse/internal/domain/entity"
	"pulse/internal/domain/service"
)

// FanoutUsecase is the gateway-side counterpart of the channel manager: it
// takes order events ingested from the backend and distributes them to the
// connected role-scoped realtime clients, with FCM push as the fallback for
// couriers that are offline.
type FanoutUsecase interface {
	// HandleOrderEvent validates and fans an ingested order event out to the
	// hub, pushing FCM to offline couriers for deliveryAssigned events, and
	// records the notification history.
	HandleOrderEvent(ctx context.Context, event *entity.OrderEvent) error

	// ReportDeliveryStatus accepts a courier progress report and publishes it
	// back to the backend topic.
	ReportDeliveryStatus(ctx context.Context, event *service.DeliveryStatusEvent) error
}
