//go:build unit || e2e

package authtest

import (
	"net/http"

	"placement-engine/internal/domain/user"
	"placement-engine/internal/handler/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func NewTenant() user.Principal {
	return user.Principal{UserID: uuid.New(), TenantID: uuid.New(), Role: user.RoleTenant}
}

func NewAdmin() user.Principal {
	return user.Principal{UserID: uuid.New(), TenantID: uuid.New(), Role: user.RoleAdmin}
}

// FakeAuth stands in for RequireAuth in handler tests: any bearer header
// authenticates as p.
func FakeAuth(p user.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "unauthenticated", "message": "Unauthorized"}})
			return
		}
		middleware.SetPrincipal(c, p)
		c.Next()
	}
}
