//go:build unit

package jwt_test

import (
	"testing"
	"time"

	"placement-engine/internal/domain/user"
	"placement-engine/internal/pkg/jwt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_ValidateToken(t *testing.T) {
	svc := jwt.NewService("secret", time.Hour)
	userID, tenantID := uuid.New(), uuid.New()

	t.Run("round trip keeps tenant and role", func(t *testing.T) {
		token, err := svc.GenerateToken(userID, tenantID, user.RoleAdmin)
		require.NoError(t, err)

		claims, err := svc.ValidateToken(token)

		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, tenantID, claims.TenantID)
		assert.Equal(t, "admin", claims.Role)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := jwt.NewService("secret", -time.Minute)
		token, err := expired.GenerateToken(userID, tenantID, user.RoleTenant)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)

		assert.ErrorIs(t, err, jwt.ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := jwt.NewService("other", time.Hour)
		token, err := other.GenerateToken(userID, tenantID, user.RoleTenant)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)

		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("missing tenant", func(t *testing.T) {
		token, err := svc.GenerateToken(userID, uuid.Nil, user.RoleTenant)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)

		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})
}
