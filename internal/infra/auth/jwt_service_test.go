package auth

import (
	"testing"

	"pulse/config"
	"pulse/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func testConfig(secret string) *config.Config {
	cfg := &config.Config{}
	cfg.SecretKey.Access = secret

	return cfg
}

func TestJWTService_GenerateAndValidateToken(t *testing.T) {
	jwtService, err := NewJWTService(testConfig("test_access_secret_key_very_long_for_testing"))
	assert.NoError(t, err)
	assert.NotNil(t, jwtService)

	userID := uuid.New()
	roles := entity.Roles{entity.RoleCourier, entity.RoleCustomer}

	token, err := jwtService.GenerateToken(userID, roles)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	assert.NoError(t, err)
	assert.NotNil(t, claims)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, roles, claims.Roles)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestJWTService_InvalidToken(t *testing.T) {
	jwtService, err := NewJWTService(testConfig("test_access_secret_key_very_long_for_testing"))
	assert.NoError(t, err)

	claims, err := jwtService.ValidateToken("clearly-not-a-jwt-token-format")
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestJWTService_WrongSecret(t *testing.T) {
	issuer, err := NewJWTService(testConfig("issuer_secret_key_very_long_for_testing"))
	assert.NoError(t, err)
	verifier, err := NewJWTService(testConfig("another_secret_key_very_long_for_testing"))
	assert.NoError(t, err)

	token, err := issuer.GenerateToken(uuid.New(), entity.Roles{entity.RoleAdmin})
	assert.NoError(t, err)

	claims, err := verifier.ValidateToken(token)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestJWTService_MissingSecret(t *testing.T) {
	jwtService, err := NewJWTService(testConfig(""))
	assert.Error(t, err)
	assert.Nil(t, jwtService)
}
