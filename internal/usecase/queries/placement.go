package queries

import (
	"context"
	"time"

	"placement-engine/internal/domain/placement"
	"placement-engine/internal/domain/user"
	"placement-engine/internal/infra"
	"placement-engine/internal/pkg/errs"

	"github.com/google/uuid"
)

//go:generate mockgen -source=placement.go -destination=../../../tests/mock/queries/placement.go -package=queriesmock

var (
	ErrPlacementNotFound = errs.New("placement not found")
	ErrInvalidCursor     = errs.New("invalid cursor")
	ErrInvalidFilter     = errs.New("invalid filter")
)

type PlacementView struct {
	ID              uuid.UUID  `json:"id"`
	TenantID        uuid.UUID  `json:"tenant_id"`
	Kind            string     `json:"kind"`
	Scope           string     `json:"scope"`
	PoolScope       string     `json:"pool_scope"`
	OwnerID         *uuid.UUID `json:"owner_id,omitempty"`
	State           string     `json:"state"`
	Origin          string     `json:"origin"`
	PriceMinor      int64      `json:"price_minor"`
	Currency        string     `json:"currency"`
	DurationDays    int        `json:"duration_days"`
	PaymentRef      *string    `json:"payment_ref,omitempty"`
	ContentURL      *string    `json:"content_url,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	Views           int64      `json:"views"`
	Clicks          int64      `json:"clicks"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ActivatedAt     *time.Time `json:"activated_at,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

func NewPlacementView(rec placement.Record) *PlacementView {
	return &PlacementView{
		ID:              rec.ID,
		TenantID:        rec.TenantID,
		Kind:            rec.Kind.String(),
		Scope:           rec.Scope.String(),
		PoolScope:       rec.PoolScope.String(),
		OwnerID:         rec.OwnerID,
		State:           rec.State.String(),
		Origin:          rec.Origin.String(),
		PriceMinor:      rec.Price.MinorUnits(),
		Currency:        rec.Price.Currency(),
		DurationDays:    rec.DurationDays,
		PaymentRef:      rec.PaymentRef,
		ContentURL:      rec.ContentURL,
		RejectionReason: rec.RejectionReason,
		Views:           rec.Metrics.Views,
		Clicks:          rec.Metrics.Clicks,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
		ApprovedAt:      rec.ApprovedAt,
		ActivatedAt:     rec.ActivatedAt,
		ExpiresAt:       rec.ExpiresAt,
	}
}

type PlacementListItem struct {
	ID           uuid.UUID  `json:"id"`
	Kind         string     `json:"kind"`
	Scope        string     `json:"scope"`
	State        string     `json:"state"`
	PriceMinor   int64      `json:"price_minor"`
	Currency     string     `json:"currency"`
	DurationDays int        `json:"duration_days"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// PoolAvailability is advisory. It may be stale by the time a purchase runs.
type PoolAvailability struct {
	Kind        string `json:"kind"`
	Scope       string `json:"scope"`
	MaxActive   int    `json:"max_active"`
	ActiveCount int    `json:"active_count"`
	Available   int    `json:"available"`
}

type PlacementFilters struct {
	State *string
}

type PlacementReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PlacementView, error)
	FindByTenantFirstPage(ctx context.Context, tenantID uuid.UUID, state *string, limit int32) ([]*PlacementListItem, error)
	FindByTenantKeyset(ctx context.Context, tenantID uuid.UUID, state *string, lastCreatedAt time.Time, lastID uuid.UUID, limit int32) ([]*PlacementListItem, error)
	ListPools(ctx context.Context) ([]*PoolAvailability, error)
}

type PlacementQueries interface {
	GetByID(ctx context.Context, actor user.Principal, id uuid.UUID) (*PlacementView, error)
	ListByTenant(ctx context.Context, actor user.Principal, filters PlacementFilters, cursor *Cursor, limit int) ([]*PlacementListItem, *Cursor, error)
	Availability(ctx context.Context) ([]*PoolAvailability, error)
}

type placementQueriesImpl struct {
	repo PlacementReadStore
}

func NewPlacementQueries(repo PlacementReadStore) PlacementQueries {
	return &placementQueriesImpl{repo: repo}
}

// GetByID hides other tenants' placements behind not found, except for admins.
func (q *placementQueriesImpl) GetByID(ctx context.Context, actor user.Principal, id uuid.UUID) (*PlacementView, error) {
	v, err := q.repo.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrPlacementNotFound
		}
		return nil, err
	}
	if !actor.IsAdmin() && v.TenantID != actor.TenantID {
		return nil, ErrPlacementNotFound
	}
	return v, nil
}

func (q *placementQueriesImpl) ListByTenant(ctx context.Context, actor user.Principal, filters PlacementFilters, cursor *Cursor, limit int) ([]*PlacementListItem, *Cursor, error) {
	if filters.State != nil {
		if _, err := placement.NewState(*filters.State); err != nil {
			return nil, nil, ErrInvalidFilter
		}
	}

	limit = ValidateLimit(limit)
	var rows []*PlacementListItem
	var err error
	if cursor == nil || cursor.After == "" {
		rows, err = q.repo.FindByTenantFirstPage(ctx, actor.TenantID, filters.State, int32(limit+1))
	} else {
		lastCreatedAt, lastID, derr := DecodeAfterCursor(cursor.After)
		if derr != nil {
			return nil, nil, ErrInvalidCursor
		}
		rows, err = q.repo.FindByTenantKeyset(ctx, actor.TenantID, filters.State, lastCreatedAt, lastID, int32(limit+1))
	}
	if err != nil {
		return nil, nil, err
	}
	var next *Cursor
	if len(rows) > limit {
		last := rows[limit-1]
		next = &Cursor{After: EncodeAfterCursor(last.CreatedAt, last.ID)}
		rows = rows[:limit]
	}
	return rows, next, nil
}

func (q *placementQueriesImpl) Availability(ctx context.Context) ([]*PoolAvailability, error) {
	pools, err := q.repo.ListPools(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range pools {
		p.Available = max(p.MaxActive-p.ActiveCount, 0)
	}
	return pools, nil
}
