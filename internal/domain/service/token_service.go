// Package service defines the interfaces for external collaborators and
// platform capabilities consumed by the use cases.
package service

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"pulse/internal/domain/entity"
)

// Claims defines the custom claims carried by the bearer tokens the
// realtime handshake authenticates with.
type Claims struct {
	UserID uuid.UUID
	Roles  entity.Roles
	jwt.RegisteredClaims
}

// TokenService validates the bearer credential presented during the
// realtime handshake and on the poll endpoint. Token issuance belongs to
// the session backend and is out of scope; generation here exists for the
// gateway's own integration tests and tooling.
type TokenService interface {
	// GenerateToken creates a signed access token for a user and their roles.
	GenerateToken(userID uuid.UUID, roles entity.Roles) (string, error)

	// ValidateToken checks the validity of a token string and returns its claims.
	ValidateToken(tokenString string) (*Claims, error)
}
