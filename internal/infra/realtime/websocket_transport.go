// Package realtime implements the client-side transports of the push
// channel: a websocket stream and a long-poll fallback, both authenticated
// with a bearer credential in the handshake.
package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pulse/internal/domain/constants"
	"pulse/internal/domain/entity"
	"pulse/internal/domain/service"
	"pulse/internal/errors"
)

const (
	// Header carrying the subscriber role for server-side event scoping.
	roleHeader = "X-Pulse-Role"

	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsMaxMsgSize = 1 << 20
)

// WebsocketDialer opens websocket transports against the gateway stream
// endpoint.
type WebsocketDialer struct {
	baseURL string
	logger  *slog.Logger
}

// NewWebsocketDialer creates the streaming dialer. baseURL is the gateway
// base, e.g. wss://gateway.example.com.
func NewWebsocketDialer(baseURL string, logger *slog.Logger) *WebsocketDialer {
	return &WebsocketDialer{baseURL: baseURL, logger: logger}
}

var _ service.TransportDialer = (*WebsocketDialer)(nil)

func (d *WebsocketDialer) Name() string {
	return constants.TransportWebsocket
}

// Dial performs the websocket handshake. The credential travels in the
// Authorization header, never in the URL.
func (d *WebsocketDialer) Dial(ctx context.Context, credential string, role entity.Role) (service.Transport, error) {
	endpoint, err := url.JoinPath(d.baseURL, "realtime", "ws")
	if err != nil {
		return nil, errors.Wrap(err, "build stream endpoint")
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+credential)
	header.Set(roleHeader, role.String())

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "websocket handshake rejected: %s", resp.Status)
		}

		return nil, errors.Wrap(err, "websocket dial")
	}

	t := &websocketTransport{
		conn:   conn,
		logger: d.logger,
		events: make(chan []byte, 32),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
	go t.readPump()
	go t.pingLoop()

	return t, nil
}

type websocketTransport struct {
	conn   *websocket.Conn
	logger *slog.Logger
	events chan []byte
	errs   chan error
	done   chan struct{}

	closeOnce sync.Once
	writeMu   sync.Mutex
}

func (t *websocketTransport) Name() string {
	return constants.TransportWebsocket
}

func (t *websocketTransport) Events() <-chan []byte {
	return t.events
}

func (t *websocketTransport) Errors() <-chan error {
	return t.errs
}

func (t *websocketTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)

		t.writeMu.Lock()
		_ = t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(wsWriteWait))
		t.writeMu.Unlock()

		t.conn.Close()
	})

	return nil
}

// readPump owns all reads; gorilla allows at most one concurrent reader.
func (t *websocketTransport) readPump() {
	defer close(t.events)

	t.conn.SetReadLimit(wsMaxMsgSize)
	_ = t.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	t.conn.SetPongHandler(func(string) error {
		return t.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		msgType, payload, err := t.conn.ReadMessage()
		if err != nil {
			select {
			case <-t.done:
				// Deliberate close, not a transport failure.
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					t.errs <- errors.Wrap(err, "websocket read")
				}
			}

			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}

		select {
		case t.events <- payload:
		case <-t.done:
			return
		}
	}
}

func (t *websocketTransport) pingLoop() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.writeMu.Lock()
			err := t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
			t.writeMu.Unlock()
			if err != nil {
				t.logger.Debug("websocket ping failed", slog.Any("error", err))

				return
			}
		}
	}
}
