package service

import (
	"context"
)

// DeliveryStatusEvent is a courier progress report published back to the
// backend topic after the gateway accepts it.
type DeliveryStatusEvent struct {
	RequestID string `json:"request_id,omitempty"` // For distributed tracing
	OrderID   string `json:"order_id"`
	CourierID string `json:"courier_id"`
	Status    string `json:"status"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// PublishDeliveryStatus publishes a courier delivery status event for async processing
	PublishDeliveryStatus(ctx context.Context, event *DeliveryStatusEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
