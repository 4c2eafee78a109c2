// Package usecase defines the application use case interfaces.
package usecase

import (
	"context"

	"pulse/internal/domain/entity"

	"github.com/google/uuid"
)

// AuthState is the in-process "auth state changed" broadcast payload. It
// decouples "is the session valid" from "is the channel open": login and
// logout drive the realtime channel without touching the transport directly.
type AuthState struct {
	UserID          uuid.UUID
	Credential      string
	Role            entity.Role
	IsAuthenticated bool
}

// ChannelUsecase owns the single realtime push channel of a session. It is
// the only mutator of the in-memory order collection; views read derived
// state and never register transport listeners of their own.
//
// Connect and Disconnect never return transport errors: dial and reconnect
// failures are absorbed by the bounded retry policy and are observable only
// through State and the admin connectivity alert.
type ChannelUsecase interface {
	// Connect opens the channel for the given session credential and role.
	// It is idempotent: an existing connection is torn down first. It is a
	// silent no-op when the credential is empty.
	Connect(ctx context.Context, credential string, role entity.Role)

	// Disconnect closes the channel and synchronously stops all further
	// event processing. Always safe to call, including when disconnected.
	Disconnect()

	// State reports the current connection state.
	State() entity.ConnectionState

	// Orders returns a snapshot of the in-memory order collection.
	Orders() []*entity.Order

	// HandleAuthStateChanged reacts to the in-process auth broadcast:
	// authentication connects, invalidation disconnects.
	HandleAuthStateChanged(ctx context.Context, state AuthState)

	// HandleVisibilityChanged reacts to the app window being hidden or
	// shown, applying the role-specific hidden-disconnect policy and
	// reconnecting on regained visibility.
	HandleVisibilityChanged(ctx context.Context, visible bool)
}
