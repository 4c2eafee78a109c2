package entity

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents the delivery lifecycle status of an order.
type OrderStatus string

const (
	// OrderStatusPending indicates the order is waiting for store confirmation.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed indicates the store accepted the order.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusPreparing indicates the order is being prepared.
	OrderStatusPreparing OrderStatus = "preparing"
	// OrderStatusOnTheWay indicates a courier picked the order up.
	OrderStatusOnTheWay OrderStatus = "on_the_way"
	// OrderStatusDelivered indicates the order reached the customer.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled indicates the order was cancelled.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// String returns the string representation of the OrderStatus.
func (s OrderStatus) String() string {
	return string(s)
}

// Order is the in-memory view row kept by the realtime channel manager.
// It is never persisted by the client core; the backend owns the durable copy.
type Order struct {
	ID           string      `json:"id"`            // Backend-issued order identifier.
	CustomerID   uuid.UUID   `json:"customer_id"`   // The ID of the customer who placed the order.
	CustomerName string      `json:"customer_name"` // Display name of the customer.
	StoreID      uuid.UUID   `json:"store_id"`      // The ID of the store the order belongs to.
	Status       OrderStatus `json:"status"`        // Current delivery lifecycle status.
	TotalPrice   float64     `json:"total_price"`   // Order total, in the store currency.
	CourierID    *uuid.UUID  `json:"courier_id"`    // Assigned courier, nil until deliveryAssigned.
	PickupLat    float64     `json:"pickup_lat"`    // Pickup point latitude, for the courier trip hint.
	PickupLng    float64     `json:"pickup_lng"`    // Pickup point longitude.
	DropoffLat   float64     `json:"dropoff_lat"`   // Delivery destination latitude.
	DropoffLng   float64     `json:"dropoff_lng"`   // Delivery destination longitude.
	Cancelled    bool        `json:"cancelled"`     // Set when an orderCancelled event arrives.
	CreatedAt    time.Time   `json:"created_at"`    // Timestamp the order was created on the backend.
	UpdatedAt    time.Time   `json:"updated_at"`    // Timestamp of the last event applied locally.
}
