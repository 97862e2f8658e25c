package user

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrInvalidRole    = errors.New("invalid role")
	ErrMissingTenant  = errors.New("principal has no tenant")
	ErrMissingSubject = errors.New("principal has no user id")
)

type Role string

const (
	RoleTenant Role = "tenant"
	RoleAdmin  Role = "admin"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	switch r {
	case RoleTenant, RoleAdmin:
		return true
	default:
		return false
	}
}

func NewRole(s string) (Role, error) {
	role := Role(s)
	if !role.IsValid() {
		return "", ErrInvalidRole
	}
	return role, nil
}

// Principal is the authenticated caller as asserted by a validated token.
type Principal struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Role     Role
}

func NewPrincipal(userID, tenantID uuid.UUID, role Role) (Principal, error) {
	if userID == uuid.Nil {
		return Principal{}, ErrMissingSubject
	}
	if tenantID == uuid.Nil {
		return Principal{}, ErrMissingTenant
	}
	if !role.IsValid() {
		return Principal{}, ErrInvalidRole
	}
	return Principal{UserID: userID, TenantID: tenantID, Role: role}, nil
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
