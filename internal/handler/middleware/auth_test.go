//go:build unit

package middleware_test

import (
	"errors"
	"net/http"
	"testing"

	"placement-engine/internal/domain/user"
	"placement-engine/internal/handler/httperr"
	"placement-engine/internal/handler/middleware"
	"placement-engine/tests/common/authtest"
	"placement-engine/tests/common/httptest"
	usecasemock "placement-engine/tests/mock/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func newRouter(t *testing.T) (*gin.Engine, *usecasemock.MockTokenValidator) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	validator := usecasemock.NewMockTokenValidator(ctrl)
	auth := middleware.NewAuthMiddleware(validator)

	r := gin.New()
	r.GET("/me", auth.RequireAuth(), func(c *gin.Context) {
		p, _ := middleware.GetPrincipal(c)
		c.JSON(http.StatusOK, gin.H{"tenant_id": p.TenantID.String()})
	})
	r.GET("/admin", auth.RequireAuth(), auth.RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r, validator
}

func TestRequireAuth(t *testing.T) {
	t.Run("valid token sets the principal", func(t *testing.T) {
		r, validator := newRouter(t)
		tenant := authtest.NewTenant()
		validator.EXPECT().ValidateToken("good").Return(tenant, nil)

		rec := httptest.PerformRequest(t, r, http.MethodGet, "/me", nil, "good")

		var body map[string]string
		httptest.AssertSuccessResponse(t, rec, http.StatusOK, &body)
		assert.Equal(t, tenant.TenantID.String(), body["tenant_id"])
	})

	t.Run("missing header", func(t *testing.T) {
		r, _ := newRouter(t)
		rec := httptest.PerformRequest(t, r, http.MethodGet, "/me", nil, "")
		httptest.AssertErrorCode(t, rec, http.StatusUnauthorized, httperr.CodeUnauthenticated)
	})

	t.Run("invalid token", func(t *testing.T) {
		r, validator := newRouter(t)
		validator.EXPECT().ValidateToken("expired").Return(user.Principal{}, errors.New("token is expired"))

		rec := httptest.PerformRequest(t, r, http.MethodGet, "/me", nil, "expired")
		httptest.AssertErrorCode(t, rec, http.StatusUnauthorized, httperr.CodeUnauthenticated)
	})
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name      string
		principal user.Principal
		want      int
	}{
		{name: "admin passes", principal: authtest.NewAdmin(), want: http.StatusNoContent},
		{name: "tenant is forbidden", principal: authtest.NewTenant(), want: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, validator := newRouter(t)
			validator.EXPECT().ValidateToken(gomock.Any()).Return(tt.principal, nil)

			rec := httptest.PerformRequest(t, r, http.MethodGet, "/admin", nil, "token")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
