package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pulse/internal/domain/entity"
)

// Client is one live websocket connection registered with the hub. The
// stream is one-way: the gateway pushes events down, the client only
// answers pings.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	role   entity.Role
	userID uuid.UUID
	send   chan []byte

	sendOnce sync.Once
}

// NewClient wraps an upgraded websocket connection for the given subscriber.
func NewClient(h *Hub, conn *websocket.Conn, userID uuid.UUID, role entity.Role) *Client {
	return &Client{
		hub:    h,
		conn:   conn,
		role:   role,
		userID: userID,
		send:   make(chan []byte, h.cfg.SendBuffer),
	}
}

// Serve registers the client and blocks pumping the connection until it
// drops. It must be called from the HTTP handler goroutine.
func (c *Client) Serve() {
	c.hub.Register(c)

	go c.writePump()
	c.readPump()
}

func (c *Client) closeSend() {
	c.sendOnce.Do(func() { close(c.send) })
}

// readPump discards inbound frames and tracks pong liveness; gorilla needs a
// reader running for control frames to be processed.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	cfg := c.hub.cfg
	c.conn.SetReadLimit(cfg.MaxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump drains the send buffer and keeps the connection alive with
// pings. One goroutine per connection owns all writes.
func (c *Client) writePump() {
	cfg := c.hub.cfg
	pingPeriod := (cfg.PongWait * 9) / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)

				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
