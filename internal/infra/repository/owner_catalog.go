package repository

import (
	"context"

	"placement-engine/internal/domain/placement"
	"placement-engine/internal/infra"
	"placement-engine/internal/infra/db"

	"github.com/google/uuid"
)

const ownsSQL = `
SELECT EXISTS (
    SELECT 1 FROM placement_owners
    WHERE tenant_id = $1 AND scope = $2 AND owner_id = $3
)`

// OwnerCatalog reads the platform's vehicle and seller ownership projection.
type OwnerCatalog struct {
	db db.DBTX
}

func NewOwnerCatalog(dbtx db.DBTX) *OwnerCatalog {
	return &OwnerCatalog{db: dbtx}
}

func (c *OwnerCatalog) Owns(ctx context.Context, tenantID uuid.UUID, scope placement.Scope, ownerID uuid.UUID) (bool, error) {
	var ok bool
	if err := c.db.QueryRow(ctx, ownsSQL, tenantID, scope.String(), ownerID).Scan(&ok); err != nil {
		return false, infra.WrapRepoErr("failed to check placement owner", err)
	}
	return ok, nil
}
