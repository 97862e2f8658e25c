package repository

import (
	"context"
	"time"

	"placement-engine/internal/infra"
	"placement-engine/internal/infra/db"
	"placement-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

const tryInsertIdempotencyKeySQL = `
INSERT INTO idempotency_keys (key, tenant_id, endpoint, request_hash, status, expires_at)
VALUES ($1, $2, $3, $4, 'processing', $5)
ON CONFLICT (key, tenant_id) DO NOTHING`

// An expired key with the same request hash may be taken over by a new attempt.
const claimExpiredIdempotencyKeySQL = `
UPDATE idempotency_keys
SET status = 'processing', result_placement_id = NULL, expires_at = $5
WHERE key = $1 AND tenant_id = $2 AND request_hash = $3 AND expires_at <= $4`

const completeIdempotencyKeySQL = `
UPDATE idempotency_keys
SET status = 'completed', result_placement_id = $3
WHERE key = $1 AND tenant_id = $2`

const deleteIdempotencyKeySQL = `
DELETE FROM idempotency_keys WHERE key = $1 AND tenant_id = $2`

const deleteExpiredIdempotencyKeysSQL = `
DELETE FROM idempotency_keys WHERE expires_at <= $1`

type IdempotencyRepository struct {
	db db.DBTX
}

func NewIdempotencyRepository(dbtx db.DBTX) *IdempotencyRepository {
	return &IdempotencyRepository{db: dbtx}
}

func (r *IdempotencyRepository) TryInsert(ctx context.Context, key, tenantID uuid.UUID, endpoint, requestHash string, expiresAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, tryInsertIdempotencyKeySQL, key, tenantID, endpoint, requestHash, expiresAt)
	if err != nil {
		return false, infra.WrapRepoErr("failed to try insert idempotency key", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *IdempotencyRepository) ClaimExpired(ctx context.Context, key, tenantID uuid.UUID, requestHash string, now, expiresAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, claimExpiredIdempotencyKeySQL, key, tenantID, requestHash, now, expiresAt)
	if err != nil {
		return false, infra.WrapRepoErr("failed to claim expired idempotency key", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *IdempotencyRepository) MarkCompleted(ctx context.Context, key, tenantID uuid.UUID, resultPlacementID uuid.UUID) error {
	_, err := r.db.Exec(ctx, completeIdempotencyKeySQL, key, tenantID, resultPlacementID)
	if err != nil {
		return infra.WrapRepoErr("failed to update idempotency key status", err)
	}
	return nil
}

func (r *IdempotencyRepository) Delete(ctx context.Context, key, tenantID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, deleteIdempotencyKeySQL, key, tenantID); err != nil {
		return infra.WrapRepoErr("failed to delete idempotency key", err)
	}
	return nil
}

func (r *IdempotencyRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, deleteExpiredIdempotencyKeysSQL, now)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to delete expired idempotency keys", err)
	}
	return tag.RowsAffected(), nil
}

var _ shared.IdempotencyRepository = (*IdempotencyRepository)(nil)
