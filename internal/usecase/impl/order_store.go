// Package impl contains the concrete implementations of the use cases.
package impl

import (
	"log/slog"
	"sync"
	"time"

	"pulse/internal/domain/entity"

	"github.com/google/uuid"
)

// OrderStore is the in-memory order collection the realtime channel manager
// maintains for the view layers. The channel manager is its only writer;
// views take read-only snapshots.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]*entity.Order
	seq    []string // insertion order, newest last
	logger *slog.Logger
}

// NewOrderStore creates an empty order store.
func NewOrderStore(logger *slog.Logger) *OrderStore {
	return &OrderStore{
		orders: make(map[string]*entity.Order),
		logger: logger,
	}
}

// Apply mutates the collection for one validated event. Patch events whose
// target order is unknown are ignored and logged as an anomaly: the store
// relies on in-order delivery and never fails on a dropped update.
func (s *OrderStore) Apply(event *entity.OrderEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orderID := event.TargetOrderID()

	switch event.Kind {
	case entity.EventOrderCreated:
		s.append(orderID, event)
	case entity.EventOrderStatusUpdated, entity.EventOrderUpdated, entity.EventDeliveryStatusUpdated:
		s.patch(orderID, event)
	case entity.EventDeliveryAssigned:
		s.assign(orderID, event)
	case entity.EventOrderCancelled:
		s.cancel(orderID, event)
	}
}

func (s *OrderStore) append(orderID string, event *entity.OrderEvent) {
	if _, exists := s.orders[orderID]; exists {
		// Replays happen after a reconnect; refresh in place.
		s.patch(orderID, event)

		return
	}

	order := &entity.Order{ID: orderID, Status: entity.OrderStatusPending, CreatedAt: time.Now()}
	if event.Order != nil {
		copied := *event.Order
		copied.ID = orderID
		order = &copied
		if order.Status == "" {
			order.Status = entity.OrderStatusPending
		}
		if order.CreatedAt.IsZero() {
			order.CreatedAt = time.Now()
		}
	}
	order.UpdatedAt = time.Now()

	s.orders[orderID] = order
	s.seq = append(s.seq, orderID)
}

func (s *OrderStore) patch(orderID string, event *entity.OrderEvent) {
	order, ok := s.orders[orderID]
	if !ok {
		s.logger.Warn("patch for unknown order ignored",
			slog.String("orderId", orderID),
			slog.String("kind", event.Kind.String()))

		return
	}

	if event.Status != "" {
		order.Status = event.Status
	}
	if event.Order != nil {
		if event.Order.CustomerName != "" {
			order.CustomerName = event.Order.CustomerName
		}
		if event.Order.TotalPrice != 0 {
			order.TotalPrice = event.Order.TotalPrice
		}
		if event.Order.Status != "" {
			order.Status = event.Order.Status
		}
	}
	order.UpdatedAt = time.Now()
}

func (s *OrderStore) assign(orderID string, event *entity.OrderEvent) {
	order, ok := s.orders[orderID]
	if !ok {
		s.logger.Warn("delivery assignment for unknown order ignored",
			slog.String("orderId", orderID))

		return
	}

	if event.CourierID != "" {
		if courierID, err := uuid.Parse(event.CourierID); err == nil {
			order.CourierID = &courierID
		}
	}
	order.Status = entity.OrderStatusOnTheWay
	if event.Status != "" {
		order.Status = event.Status
	}
	order.UpdatedAt = time.Now()
}

func (s *OrderStore) cancel(orderID string, event *entity.OrderEvent) {
	order, ok := s.orders[orderID]
	if !ok {
		s.logger.Warn("cancellation for unknown order ignored",
			slog.String("orderId", orderID))

		return
	}

	order.Cancelled = true
	order.Status = entity.OrderStatusCancelled
	order.UpdatedAt = time.Now()
}

// Snapshot returns the orders in insertion order. The returned values are
// copies; mutating them does not affect the store.
func (s *OrderStore) Snapshot() []*entity.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entity.Order, 0, len(s.seq))
	for _, id := range s.seq {
		copied := *s.orders[id]
		out = append(out, &copied)
	}

	return out
}

// Get returns a copy of one order, if present.
func (s *OrderStore) Get(orderID string) (*entity.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, false
	}
	copied := *order

	return &copied, true
}

// Len reports the number of tracked orders.
func (s *OrderStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.orders)
}

// Reset drops all tracked orders. Used when a new session connects.
func (s *OrderStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders = make(map[string]*entity.Order)
	s.seq = nil
}
