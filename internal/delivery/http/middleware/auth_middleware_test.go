package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"pulse/internal/domain/entity"
	domainerrors "pulse/internal/domain/errors"
	"pulse/internal/domain/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokenService struct {
	claims *service.Claims
	err    error
}

func (f *fakeTokenService) GenerateToken(uuid.UUID, entity.Roles) (string, error) {
	return "tok", nil
}

func (f *fakeTokenService) ValidateToken(string) (*service.Claims, error) {
	return f.claims, f.err
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func authedContext(t *testing.T, m *AuthMiddleware, header string) (echo.Context, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	return c, m.Authenticate(okHandler)(c)
}

func TestAuthenticate(t *testing.T) {
	userID := uuid.New()
	claims := &service.Claims{UserID: userID, Roles: entity.Roles{entity.RoleCourier}}

	t.Run("valid bearer token populates session", func(t *testing.T) {
		m := NewAuthMiddleware(&fakeTokenService{claims: claims})
		c, err := authedContext(t, m, "Bearer good-token")

		require.NoError(t, err)
		assert.Equal(t, userID, SessionUserID(c))
		assert.True(t, SessionRoles(c).Contains(entity.RoleCourier))
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		m := NewAuthMiddleware(&fakeTokenService{claims: claims})
		_, err := authedContext(t, m, "")

		assert.ErrorIs(t, err, domainerrors.ErrTokenMissing)
	})

	t.Run("non-bearer header is rejected", func(t *testing.T) {
		m := NewAuthMiddleware(&fakeTokenService{claims: claims})
		_, err := authedContext(t, m, "Basic abc")

		assert.ErrorIs(t, err, domainerrors.ErrTokenMissing)
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		m := NewAuthMiddleware(&fakeTokenService{err: assert.AnError})
		_, err := authedContext(t, m, "Bearer bad-token")

		assert.ErrorIs(t, err, domainerrors.ErrTokenInvalid)
	})

	t.Run("query token is not an accepted credential", func(t *testing.T) {
		m := NewAuthMiddleware(&fakeTokenService{claims: claims})

		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/?access_token=good-token", nil)
		c := e.NewContext(req, httptest.NewRecorder())

		assert.ErrorIs(t, m.Authenticate(okHandler)(c), domainerrors.ErrTokenMissing)
	})
}

func TestRequireRole(t *testing.T) {
	claims := &service.Claims{UserID: uuid.New(), Roles: entity.Roles{entity.RoleCustomer}}
	m := NewAuthMiddleware(&fakeTokenService{claims: claims})

	run := func(t *testing.T, required entity.Role) error {
		t.Helper()

		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		c := e.NewContext(req, httptest.NewRecorder())

		return m.Authenticate(m.RequireRole(required)(okHandler))(c)
	}

	assert.NoError(t, run(t, entity.RoleCustomer))
	assert.ErrorIs(t, run(t, entity.RoleAdmin), domainerrors.ErrRoleForbidden)
}

func TestConnectionRole(t *testing.T) {
	tests := []struct {
		name       string
		headerRole string
		granted    entity.Roles
		wantRole   entity.Role
		wantErr    error
	}{
		{
			name:       "header role within session",
			headerRole: "courier",
			granted:    entity.Roles{entity.RoleCourier, entity.RoleCustomer},
			wantRole:   entity.RoleCourier,
		},
		{
			name:       "header role outside session",
			headerRole: "admin",
			granted:    entity.Roles{entity.RoleCustomer},
			wantErr:    domainerrors.ErrRoleForbidden,
		},
		{
			name:    "missing header",
			granted: entity.Roles{entity.RoleCustomer},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.headerRole != "" {
				req.Header.Set(HeaderRole, tt.headerRole)
			}
			c := e.NewContext(req, httptest.NewRecorder())
			c.Set(keyRoles, tt.granted)

			role, err := ConnectionRole(c)

			if tt.wantRole != "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantRole, role)

				return
			}
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
