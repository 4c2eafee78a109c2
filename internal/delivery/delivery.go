// Package delivery defines the interface every transport server implements
// so the application entrypoint can start them uniformly.
package delivery

import "context"

// Delivery is a servable transport endpoint (HTTP gateway, worker, ...).
type Delivery interface {
	// Serve starts the server and blocks until it stops.
	Serve(ctx context.Context) error
}
