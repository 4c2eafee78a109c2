// Package hub is the gateway-side fanout: it tracks the live realtime
// connections per role, broadcasts order events to them, and keeps a short
// replay ring so long-poll clients can catch up from a cursor.
package hub

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"pulse/config"
	"pulse/internal/domain/entity"
)

// ringCapacity bounds the replay window. Pollers further behind than this
// resume from the live edge and miss the gap; the client store tolerates
// that by treating patches for unknown orders as no-ops.
const ringCapacity = 1024

// storedEvent is one broadcast payload with its role scope and sequence.
// customer, when set, restricts the customer role to the order's owner;
// admin and courier scoping is by role alone.
type storedEvent struct {
	seq      uint64
	roles    map[entity.Role]struct{}
	customer uuid.UUID
	payload  []byte
}

// visibleTo reports whether the event may be delivered to a connection.
func (e *storedEvent) visibleTo(role entity.Role, userID uuid.UUID) bool {
	if _, ok := e.roles[role]; !ok {
		return false
	}
	if role == entity.RoleCustomer && e.customer != uuid.Nil && e.customer != userID {
		return false
	}

	return true
}

// Hub owns all live gateway connections and the replay ring.
type Hub struct {
	cfg    config.HubConfig
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}
	ring    []storedEvent
	nextSeq uint64
	wake    chan struct{}
}

// New creates the hub.
func New(cfg *config.HubConfig, logger *slog.Logger) *Hub {
	return &Hub{
		cfg:     cfg.Normalized(),
		logger:  logger,
		clients: make(map[*Client]struct{}),
		ring:    make([]storedEvent, 0, ringCapacity),
		nextSeq: 1,
		wake:    make(chan struct{}),
	}
}

// Config exposes the normalized connection tuning for client setup.
func (h *Hub) Config() config.HubConfig {
	return h.cfg
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("realtime client connected",
		slog.String("role", c.role.String()),
		slog.String("user_id", c.userID.String()),
		slog.Int("total", count))
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()

		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	c.closeSend()

	h.logger.Info("realtime client disconnected",
		slog.String("role", c.role.String()),
		slog.Int("total", count))
}

// Broadcast sends a payload to every connected client whose role is in the
// scope, records it in the replay ring, and wakes waiting pollers. It
// returns the sequence number assigned to the event.
// customerID, when not uuid.Nil, restricts the customer role to that one
// user; pass uuid.Nil for events every subscriber of the role may see.
func (h *Hub) Broadcast(roles entity.Roles, customerID uuid.UUID, payload []byte) uint64 {
	scope := make(map[entity.Role]struct{}, len(roles))
	for _, role := range roles {
		scope[role] = struct{}{}
	}
	event := storedEvent{roles: scope, customer: customerID, payload: payload}

	h.mu.Lock()
	event.seq = h.nextSeq
	h.nextSeq++

	if len(h.ring) == ringCapacity {
		copy(h.ring, h.ring[1:])
		h.ring = h.ring[:ringCapacity-1]
	}
	h.ring = append(h.ring, event)

	// Wake pollers by closing the broadcast channel and arming a new one.
	close(h.wake)
	h.wake = make(chan struct{})

	var slow []*Client
	for c := range h.clients {
		if !event.visibleTo(c.role, c.userID) {
			continue
		}
		select {
		case c.send <- payload:
		default:
			// A client that cannot drain its buffer is dropped rather than
			// allowed to stall the broadcast.
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow realtime client", slog.String("role", c.role.String()))
		h.Unregister(c)
	}

	return event.seq
}

// EventsSince returns the ring events past cursor visible to the connection,
// capped at the poll batch limit, plus the cursor to resume from.
func (h *Hub) EventsSince(cursor uint64, role entity.Role, userID uuid.UUID) ([][]byte, uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	next := cursor
	var out [][]byte
	for _, ev := range h.ring {
		if ev.seq <= cursor {
			continue
		}
		next = ev.seq
		if ev.visibleTo(role, userID) {
			out = append(out, ev.payload)
			if len(out) == h.cfg.PollBatchMax {
				break
			}
		}
	}

	return out, next
}

// Wait returns a channel closed on the next broadcast. Pollers select on it
// together with their deadline.
func (h *Hub) Wait() <-chan struct{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.wake
}

// LatestSeq returns the sequence of the newest event, 0 when none.
func (h *Hub) LatestSeq() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.nextSeq - 1
}

// IsUserOnline reports whether any live connection belongs to the user. The
// fanout uses it to decide when a courier needs the FCM fallback.
func (h *Hub) IsUserOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.userID == userID {
			return true
		}
	}

	return false
}

// ConnectionCount reports the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
