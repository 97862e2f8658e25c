package repository

import (
	"context"
	"time"

	"placement-engine/internal/domain/placement"
	"placement-engine/internal/infra"
	"placement-engine/internal/infra/db"
	"placement-engine/internal/pkg/pgconv"
	"placement-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

const insertPlacementSQL = `
INSERT INTO placements (
    id, tenant_id, kind, scope, pool_scope, owner_id, state, origin,
    price_minor, currency, duration_days, payment_ref, content_url, rejection_reason,
    views, clicks, reservation_held, version,
    created_at, updated_at, approved_at, activated_at, expires_at, payment_started_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8,
    $9, $10, $11, $12, $13, $14,
    $15, $16, $17, $18,
    $19, $20, $21, $22, $23, $24
)`

// Every mutable column is rewritten; the WHERE clause is the compare-and-swap.
const casPlacementSQL = `
UPDATE placements SET
    state              = $4,
    pool_scope         = $5,
    payment_ref        = $6,
    rejection_reason   = $7,
    views              = $8,
    clicks             = $9,
    reservation_held   = $10,
    updated_at         = $11,
    approved_at        = $12,
    activated_at       = $13,
    expires_at         = $14,
    payment_started_at = $15,
    version            = version + 1
WHERE id = $1 AND state = $2 AND version = $3`

const listExpiredSQL = `
SELECT id FROM placements
WHERE state = 'active' AND expires_at <= $1
ORDER BY expires_at, id
LIMIT $2`

const listAbandonedPendingPaymentSQL = `
SELECT id FROM placements
WHERE state = 'pending_payment' AND COALESCE(payment_started_at, created_at) < $1
ORDER BY COALESCE(payment_started_at, created_at), id
LIMIT $2`

const listAbandonedAssignedSQL = `
SELECT id FROM placements
WHERE state = 'assigned' AND created_at < $1
ORDER BY created_at, id
LIMIT $2`

type PlacementRepository struct {
	db db.DBTX
}

func NewPlacementRepository(dbtx db.DBTX) *PlacementRepository {
	return &PlacementRepository{db: dbtx}
}

func (r *PlacementRepository) Create(ctx context.Context, p *placement.Placement) error {
	_, err := r.db.Exec(ctx, insertPlacementSQL,
		p.ID(),
		p.TenantID(),
		p.Kind().String(),
		p.Scope().String(),
		p.PoolScope().String(),
		pgconv.UUIDPtrToPgtype(p.OwnerID()),
		p.State().String(),
		p.Origin().String(),
		p.Price().MinorUnits(),
		p.Price().Currency(),
		p.DurationDays(),
		pgconv.StringPtrToPgtype(p.PaymentRef()),
		pgconv.StringPtrToPgtype(p.ContentURL()),
		pgconv.StringPtrToPgtype(p.RejectionReason()),
		p.Metrics().Views,
		p.Metrics().Clicks,
		p.ReservationHeld(),
		p.Version(),
		p.CreatedAt(),
		p.UpdatedAt(),
		pgconv.TimePtrToPgtype(p.ApprovedAt()),
		pgconv.TimePtrToPgtype(p.ActivatedAt()),
		pgconv.TimePtrToPgtype(p.ExpiresAt()),
		pgconv.TimePtrToPgtype(p.PaymentStartedAt()),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create placement", err)
	}
	return nil
}

func (r *PlacementRepository) CompareAndSwap(ctx context.Context, p *placement.Placement, expected placement.State, expectedVersion int64) error {
	tag, err := r.db.Exec(ctx, casPlacementSQL,
		p.ID(),
		expected.String(),
		expectedVersion,
		p.State().String(),
		p.PoolScope().String(),
		pgconv.StringPtrToPgtype(p.PaymentRef()),
		pgconv.StringPtrToPgtype(p.RejectionReason()),
		p.Metrics().Views,
		p.Metrics().Clicks,
		p.ReservationHeld(),
		p.UpdatedAt(),
		pgconv.TimePtrToPgtype(p.ApprovedAt()),
		pgconv.TimePtrToPgtype(p.ActivatedAt()),
		pgconv.TimePtrToPgtype(p.ExpiresAt()),
		pgconv.TimePtrToPgtype(p.PaymentStartedAt()),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update placement", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStaleState
	}
	return nil
}

func (r *PlacementRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	ids, err := r.listIDs(ctx, listExpiredSQL, now, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list expired placements", err)
	}
	return ids, nil
}

func (r *PlacementRepository) ListAbandoned(ctx context.Context, state placement.State, before time.Time, limit int) ([]uuid.UUID, error) {
	var query string
	switch state {
	case placement.StatePendingPayment:
		query = listAbandonedPendingPaymentSQL
	case placement.StateAssigned:
		query = listAbandonedAssignedSQL
	default:
		return nil, infra.WrapRepoErr("abandoned listing not supported for state "+state.String(), nil, infra.KindDBFailure)
	}

	ids, err := r.listIDs(ctx, query, before, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list abandoned placements", err)
	}
	return ids, nil
}

func (r *PlacementRepository) listIDs(ctx context.Context, query string, at time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, query, at, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
