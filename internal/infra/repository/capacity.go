package repository

import (
	"context"

	"placement-engine/internal/domain/placement"
	"placement-engine/internal/infra"
	"placement-engine/internal/infra/db"
	"placement-engine/internal/pkg/pgconv"
)

const provisionPoolSQL = `
INSERT INTO capacity_pools (kind, scope, max_active)
VALUES ($1, $2, $3)
ON CONFLICT (kind, scope) DO UPDATE SET max_active = EXCLUDED.max_active, updated_at = now()`

// A scoped pool sorts after the global one ('' < any scope).
const resolvePoolSQL = `
SELECT scope FROM capacity_pools
WHERE kind = $1 AND scope IN ($2, '')
ORDER BY scope DESC
LIMIT 1`

const tryReserveSQL = `
UPDATE capacity_pools
SET active_count = active_count + 1, updated_at = now()
WHERE kind = $1 AND scope = $2 AND active_count < max_active`

const releaseSQL = `
UPDATE capacity_pools
SET active_count = GREATEST(active_count - 1, 0), updated_at = now()
WHERE kind = $1 AND scope = $2`

// CapacityRepository is the atomic counter behind every reservation. The
// conditional UPDATE is the only way active_count grows.
type CapacityRepository struct {
	db db.DBTX
}

func NewCapacityRepository(dbtx db.DBTX) *CapacityRepository {
	return &CapacityRepository{db: dbtx}
}

func (r *CapacityRepository) Provision(ctx context.Context, kind placement.Kind, scope placement.Scope, maxActive int) error {
	if _, err := r.db.Exec(ctx, provisionPoolSQL, kind.String(), scope.String(), maxActive); err != nil {
		return infra.WrapRepoErr("failed to provision capacity pool", err)
	}
	return nil
}

func (r *CapacityRepository) ResolvePool(ctx context.Context, kind placement.Kind, scope placement.Scope) (placement.Scope, error) {
	var poolScope string
	err := r.db.QueryRow(ctx, resolvePoolSQL, kind.String(), scope.String()).Scan(&poolScope)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return "", infra.WrapRepoErr("capacity pool not provisioned for "+kind.String(), err, infra.KindNotFound)
		}
		return "", infra.WrapRepoErr("failed to resolve capacity pool", err)
	}
	return placement.Scope(poolScope), nil
}

func (r *CapacityRepository) TryReserve(ctx context.Context, kind placement.Kind, poolScope placement.Scope) (bool, error) {
	tag, err := r.db.Exec(ctx, tryReserveSQL, kind.String(), poolScope.String())
	if err != nil {
		return false, infra.WrapRepoErr("failed to reserve capacity", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *CapacityRepository) Release(ctx context.Context, kind placement.Kind, poolScope placement.Scope) error {
	tag, err := r.db.Exec(ctx, releaseSQL, kind.String(), poolScope.String())
	if err != nil {
		return infra.WrapRepoErr("failed to release capacity", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("capacity pool missing on release", nil, infra.KindNotFound)
	}
	return nil
}
