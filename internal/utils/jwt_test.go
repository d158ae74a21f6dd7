package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/kos-api/internal/models"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret")

	token, err := svc.GenerateToken(1, models.RoleAdmin)
	require.NoError(t, err)

	userID, role, err := svc.ExtractIdentity(token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), userID)
	assert.Equal(t, models.RoleAdmin, role)
}

func TestJWTService_WrongSecret(t *testing.T) {
	token, err := NewJWTService("secret").GenerateToken(1, models.RoleSeller)
	require.NoError(t, err)

	_, _, err = NewJWTService("other").ExtractIdentity(token)
	assert.Error(t, err)
}

func TestJWTService_Expired(t *testing.T) {
	svc := &JWTService{secretKey: "secret", ttl: -time.Minute}
	token, err := svc.GenerateToken(1, models.RoleRenter)
	require.NoError(t, err)

	_, _, err = svc.ExtractIdentity(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsUnknownRole(t *testing.T) {
	svc := NewJWTService("secret")
	token, err := svc.GenerateToken(1, models.Role("ROOT"))
	require.NoError(t, err)

	_, _, err = svc.ExtractIdentity(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsOtherAlgorithm(t *testing.T) {
	claims := Claims{UserID: 1, Role: models.RoleAdmin}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, _, err = NewJWTService("secret").ExtractIdentity(token)
	assert.Error(t, err)
}
