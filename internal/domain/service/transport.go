package service

import (
	"context"

	"pulse/internal/domain/entity"
)

// Transport is one live push channel to the gateway. Implementations hand
// raw event payloads to the channel manager in the exact order the server
// delivered them.
type Transport interface {
	// Name identifies the transport mode (websocket, poll).
	Name() string

	// Events yields inbound event payloads. The channel is closed when the
	// transport drops.
	Events() <-chan []byte

	// Errors yields the terminal transport error, if any, after Events closes.
	Errors() <-chan error

	// Close releases the underlying connection. Safe to call more than once.
	Close() error
}

// TransportDialer opens one transport connection authenticated with a bearer
// credential. The channel manager tries dialers in preference order, falling
// back from the streaming mode to the polling mode.
type TransportDialer interface {
	// Name identifies the transport mode this dialer produces.
	Name() string

	// Dial opens and handshakes a connection. The credential is carried in
	// the handshake, never in the URL.
	Dial(ctx context.Context, credential string, role entity.Role) (Transport, error)
}
