package readstore

import (
	"context"

	"placement-engine/internal/infra"
	"placement-engine/internal/infra/db"
	"placement-engine/internal/pkg/pgconv"
	"placement-engine/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getIdempotencyKeySQL = `
SELECT key, tenant_id, endpoint, status, request_hash, result_placement_id, expires_at
FROM idempotency_keys
WHERE key = $1 AND tenant_id = $2`

type IdempotencyReadStore struct {
	db db.DBTX
}

func NewIdempotencyReadStore(dbtx db.DBTX) *IdempotencyReadStore {
	return &IdempotencyReadStore{db: dbtx}
}

// Get returns the record even when expired; the caller decides what expiry means.
func (r *IdempotencyReadStore) Get(ctx context.Context, key, tenantID uuid.UUID) (*shared.IdempotencyRecord, error) {
	var (
		record   shared.IdempotencyRecord
		resultID pgtype.UUID
	)
	err := r.db.QueryRow(ctx, getIdempotencyKeySQL, key, tenantID).Scan(
		&record.Key, &record.TenantID, &record.Endpoint, &record.Status, &record.RequestHash, &resultID, &record.ExpiresAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("idempotency key not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get idempotency key", err)
	}

	record.ResultPlacementID = pgconv.UUIDPtrFromPgtype(resultID)
	record.ExpiresAt = record.ExpiresAt.UTC()
	return &record, nil
}
