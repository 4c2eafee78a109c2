package middleware

import (
	"strings"

	"pulse/internal/domain/entity"
	domainerrors "pulse/internal/domain/errors"
	"pulse/internal/domain/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	// HeaderRole is the role the client wants this connection scoped to.
	// A session may carry several roles; the header picks one of them.
	HeaderRole = "X-Pulse-Role"

	keyUserID = "userID"
	keyRoles  = "roles"
)

// AuthMiddleware provides middleware for JWT authentication and authorization.
type AuthMiddleware struct {
	tokenSvc service.TokenService
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(tokenSvc service.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc}
}

// Authenticate validates the bearer access token. The realtime endpoints
// also accept the token as a query parameter because browser websocket
// clients cannot set an Authorization header.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			return domainerrors.ErrTokenMissing
		}

		claims, err := m.tokenSvc.ValidateToken(tokenString)
		if err != nil {
			return domainerrors.ErrTokenInvalid
		}

		c.Set(keyUserID, claims.UserID)
		c.Set(keyRoles, claims.Roles)

		return next(c)
	}
}

// RequireRole is a middleware factory that checks if the session holds a
// specific role. It must be used AFTER the Authenticate middleware.
func (m *AuthMiddleware) RequireRole(required entity.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !SessionRoles(c).Contains(required) {
				return domainerrors.ErrRoleForbidden
			}

			return next(c)
		}
	}
}

// SessionUserID returns the authenticated user ID set by Authenticate.
func SessionUserID(c echo.Context) uuid.UUID {
	if id, ok := c.Get(keyUserID).(uuid.UUID); ok {
		return id
	}

	return uuid.Nil
}

// SessionRoles returns the authenticated session roles set by Authenticate.
func SessionRoles(c echo.Context) entity.Roles {
	if roles, ok := c.Get(keyRoles).(entity.Roles); ok {
		return roles
	}

	return nil
}

// ConnectionRole resolves the role the realtime connection should be scoped
// to: the X-Pulse-Role header, checked against the session's granted roles.
func ConnectionRole(c echo.Context) (entity.Role, error) {
	role := entity.Role(c.Request().Header.Get(HeaderRole))
	if !role.IsValid() {
		return "", domainerrors.ErrBadRequest.WithDetails("missing or unknown " + HeaderRole + " header")
	}
	if !SessionRoles(c).Contains(role) {
		return "", domainerrors.ErrRoleForbidden
	}

	return role, nil
}

// bearerToken extracts the credential from the Authorization header. The
// credential travels only in the handshake header, never in the URL, so it
// cannot leak through access logs or referrers.
func bearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return ""
	}

	return token
}
