package waitlist

import (
	"errors"
	"time"

	"placement-engine/internal/domain/placement"

	"github.com/google/uuid"
)

var ErrMissingTenant = errors.New("tenant is required")

// Entry asks to be told when capacity for a kind frees up. At most one
// un-notified entry exists per (tenant, kind).
type Entry struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Kind        placement.Kind
	RequestedAt time.Time
	NotifiedAt  *time.Time
}

func NewEntry(tenantID uuid.UUID, kind placement.Kind, now time.Time) (*Entry, error) {
	if tenantID == uuid.Nil {
		return nil, ErrMissingTenant
	}
	if !kind.IsValid() {
		return nil, placement.ErrInvalidKind
	}
	return &Entry{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Kind:        kind,
		RequestedAt: now,
	}, nil
}

func (e *Entry) IsPending() bool {
	return e.NotifiedAt == nil
}
