package entity

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// EventKind identifies an order event pushed by the backend. The names are
// the wire contract shared with the backend and must not be renamed.
type EventKind string

const (
	// EventOrderCreated is pushed when a customer places a new order.
	EventOrderCreated EventKind = "orderCreated"
	// EventOrderStatusUpdated is pushed when the order lifecycle status changes.
	EventOrderStatusUpdated EventKind = "orderStatusUpdated"
	// EventOrderUpdated is pushed when non-status order fields change.
	EventOrderUpdated EventKind = "orderUpdated"
	// EventOrderCancelled is pushed when an order is cancelled.
	EventOrderCancelled EventKind = "orderCancelled"
	// EventDeliveryAssigned is pushed when a courier is assigned to an order.
	EventDeliveryAssigned EventKind = "deliveryAssigned"
	// EventDeliveryStatusUpdated is pushed when the courier reports progress.
	EventDeliveryStatusUpdated EventKind = "deliveryStatusUpdated"
)

// IsValid checks if the EventKind is part of the wire contract.
func (k EventKind) IsValid() bool {
	switch k {
	case EventOrderCreated, EventOrderStatusUpdated, EventOrderUpdated,
		EventOrderCancelled, EventDeliveryAssigned, EventDeliveryStatusUpdated:
		return true
	default:
		return false
	}
}

// String returns the string representation of the EventKind.
func (k EventKind) String() string {
	return string(k)
}

// Validation errors for inbound event envelopes. Malformed events are
// dropped and logged by the channel manager; they never reach the views.
var (
	// ErrEventKindUnknown is returned when the kind is missing or not part of the contract.
	ErrEventKindUnknown = errors.New("event kind is missing or unknown")
	// ErrEventOrderIDMissing is returned when the envelope carries no order reference.
	ErrEventOrderIDMissing = errors.New("event order id is missing")
)

// OrderEvent is a single push event as delivered by the transport. It is
// ephemeral: applied to the local order collection, translated into a
// notification request, then discarded.
type OrderEvent struct {
	Kind       EventKind       `json:"event"`
	OrderID    string          `json:"orderId"`
	Status     OrderStatus     `json:"status,omitempty"`
	CourierID  string          `json:"courierId,omitempty"`
	Order      *Order          `json:"order,omitempty"`
	ReceivedAt time.Time       `json:"-"`
	Raw        json.RawMessage `json:"-"`
}

// Validate performs the minimal shape check required before an event may be
// applied: a known kind and an order reference.
func (e *OrderEvent) Validate() error {
	if !e.Kind.IsValid() {
		return ErrEventKindUnknown
	}
	if e.OrderID == "" && (e.Order == nil || e.Order.ID == "") {
		return ErrEventOrderIDMissing
	}

	return nil
}

// TargetOrderID resolves the order the event refers to, preferring the
// explicit orderId field over the embedded order payload.
func (e *OrderEvent) TargetOrderID() string {
	if e.OrderID != "" {
		return e.OrderID
	}
	if e.Order != nil {
		return e.Order.ID
	}

	return ""
}

// ParseOrderEvent decodes and shape-checks a wire payload.
func ParseOrderEvent(data []byte) (*OrderEvent, error) {
	var event OrderEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, errors.Wrap(err, "failed to decode order event")
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}

	event.ReceivedAt = time.Now()
	event.Raw = data

	return &event, nil
}
