package readstore

import (
	"context"
	"time"

	"placement-engine/internal/domain/placement"
	"placement-engine/internal/infra"
	"placement-engine/internal/infra/db"
	"placement-engine/internal/pkg/pgconv"
	"placement-engine/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const placementColumns = `
    id, tenant_id, kind, scope, pool_scope, owner_id, state, origin,
    price_minor, currency, duration_days, payment_ref, content_url, rejection_reason,
    views, clicks, reservation_held, version,
    created_at, updated_at, approved_at, activated_at, expires_at, payment_started_at`

const getPlacementByIDSQL = `SELECT` + placementColumns + ` FROM placements WHERE id = $1`

const listColumns = `id, kind, scope, state, price_minor, currency, duration_days, created_at, expires_at`

const listByTenantFirstPageSQL = `
SELECT ` + listColumns + ` FROM placements
WHERE tenant_id = $1 AND ($2::text IS NULL OR state = $2)
ORDER BY created_at DESC, id DESC
LIMIT $3`

const listByTenantKeysetSQL = `
SELECT ` + listColumns + ` FROM placements
WHERE tenant_id = $1 AND ($2::text IS NULL OR state = $2)
  AND (created_at, id) < ($3, $4)
ORDER BY created_at DESC, id DESC
LIMIT $5`

const listPoolsSQL = `
SELECT kind, scope, max_active, active_count FROM capacity_pools
ORDER BY kind, scope`

type PlacementReadStore struct {
	db db.DBTX
}

func NewPlacementReadStore(dbtx db.DBTX) *PlacementReadStore {
	return &PlacementReadStore{db: dbtx}
}

// Get loads the aggregate for the command side.
func (r *PlacementReadStore) Get(ctx context.Context, id uuid.UUID) (*placement.Placement, error) {
	rec, err := scanPlacementRecord(r.db.QueryRow(ctx, getPlacementByIDSQL, id))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("placement not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find placement by ID", err)
	}
	return placement.ReconstructPlacement(*rec), nil
}

func (r *PlacementReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.PlacementView, error) {
	rec, err := scanPlacementRecord(r.db.QueryRow(ctx, getPlacementByIDSQL, id))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("placement not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get placement view by id", err)
	}
	return queries.NewPlacementView(*rec), nil
}

func (r *PlacementReadStore) FindByTenantFirstPage(ctx context.Context, tenantID uuid.UUID, state *string, limit int32) ([]*queries.PlacementListItem, error) {
	rows, err := r.db.Query(ctx, listByTenantFirstPageSQL, tenantID, pgconv.StringPtrToPgtype(state), limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list placements first page", err)
	}
	return collectListItems(rows)
}

func (r *PlacementReadStore) FindByTenantKeyset(ctx context.Context, tenantID uuid.UUID, state *string, lastCreatedAt time.Time, lastID uuid.UUID, limit int32) ([]*queries.PlacementListItem, error) {
	rows, err := r.db.Query(ctx, listByTenantKeysetSQL, tenantID, pgconv.StringPtrToPgtype(state), lastCreatedAt, lastID, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list placements keyset", err)
	}
	return collectListItems(rows)
}

func (r *PlacementReadStore) ListPools(ctx context.Context) ([]*queries.PoolAvailability, error) {
	rows, err := r.db.Query(ctx, listPoolsSQL)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list capacity pools", err)
	}
	defer rows.Close()

	var pools []*queries.PoolAvailability
	for rows.Next() {
		var p queries.PoolAvailability
		if err := rows.Scan(&p.Kind, &p.Scope, &p.MaxActive, &p.ActiveCount); err != nil {
			return nil, infra.WrapRepoErr("failed to scan capacity pool", err)
		}
		pools = append(pools, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to list capacity pools", err)
	}
	return pools, nil
}

func collectListItems(rows pgx.Rows) ([]*queries.PlacementListItem, error) {
	defer rows.Close()

	var items []*queries.PlacementListItem
	for rows.Next() {
		var (
			it        queries.PlacementListItem
			expiresAt pgtype.Timestamptz
		)
		if err := rows.Scan(&it.ID, &it.Kind, &it.Scope, &it.State, &it.PriceMinor, &it.Currency, &it.DurationDays, &it.CreatedAt, &expiresAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan placement", err)
		}
		it.ExpiresAt = pgconv.TimePtrFromPgtype(expiresAt)
		items = append(items, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to list placements", err)
	}
	return items, nil
}

func scanPlacementRecord(row pgx.Row) (*placement.Record, error) {
	var (
		rec                                             placement.Record
		kind, scope, poolScope, state, origin, currency string
		priceMinor                                      int64
		ownerID                                         pgtype.UUID
		paymentRef, contentURL, rejectionReason         pgtype.Text
		approvedAt, activatedAt, expiresAt, startedAt   pgtype.Timestamptz
	)
	err := row.Scan(
		&rec.ID, &rec.TenantID, &kind, &scope, &poolScope, &ownerID, &state, &origin,
		&priceMinor, &currency, &rec.DurationDays, &paymentRef, &contentURL, &rejectionReason,
		&rec.Metrics.Views, &rec.Metrics.Clicks, &rec.ReservationHeld, &rec.Version,
		&rec.CreatedAt, &rec.UpdatedAt, &approvedAt, &activatedAt, &expiresAt, &startedAt,
	)
	if err != nil {
		return nil, err
	}

	price, err := placement.MoneyFromMinor(priceMinor, currency)
	if err != nil {
		return nil, err
	}

	rec.Kind = placement.Kind(kind)
	rec.Scope = placement.Scope(scope)
	rec.PoolScope = placement.Scope(poolScope)
	rec.State = placement.State(state)
	rec.Origin = placement.Origin(origin)
	rec.Price = price
	rec.OwnerID = pgconv.UUIDPtrFromPgtype(ownerID)
	rec.PaymentRef = pgconv.StringPtrFromPgtype(paymentRef)
	rec.ContentURL = pgconv.StringPtrFromPgtype(contentURL)
	rec.RejectionReason = pgconv.StringPtrFromPgtype(rejectionReason)
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	rec.ApprovedAt = pgconv.TimePtrFromPgtype(approvedAt)
	rec.ActivatedAt = pgconv.TimePtrFromPgtype(activatedAt)
	rec.ExpiresAt = pgconv.TimePtrFromPgtype(expiresAt)
	rec.PaymentStartedAt = pgconv.TimePtrFromPgtype(startedAt)
	return &rec, nil
}
