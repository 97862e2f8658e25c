package repository

import (
	"context"
	"slices"
	"time"

	"placement-engine/internal/domain/placement"
	"placement-engine/internal/domain/waitlist"
	"placement-engine/internal/infra"
	"placement-engine/internal/infra/db"
	"placement-engine/internal/pkg/pgconv"

	"github.com/jackc/pgx/v5/pgtype"
)

// The partial unique index on pending (tenant_id, kind) makes the insert the dedup.
const enqueueWaitlistSQL = `
INSERT INTO waitlist_entries (id, tenant_id, kind, requested_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (tenant_id, kind) WHERE notified_at IS NULL DO NOTHING`

const claimPendingWaitlistSQL = `
WITH claimed AS (
    SELECT id FROM waitlist_entries
    WHERE kind = $1 AND notified_at IS NULL
    ORDER BY requested_at, id
    FOR UPDATE SKIP LOCKED
)
UPDATE waitlist_entries w SET notified_at = $2
FROM claimed
WHERE w.id = claimed.id
RETURNING w.id, w.tenant_id, w.kind, w.requested_at, w.notified_at`

type WaitlistRepository struct {
	db db.DBTX
}

func NewWaitlistRepository(dbtx db.DBTX) *WaitlistRepository {
	return &WaitlistRepository{db: dbtx}
}

func (r *WaitlistRepository) Enqueue(ctx context.Context, entry *waitlist.Entry) (bool, error) {
	tag, err := r.db.Exec(ctx, enqueueWaitlistSQL, entry.ID, entry.TenantID, entry.Kind.String(), entry.RequestedAt)
	if err != nil {
		return false, infra.WrapRepoErr("failed to enqueue waitlist entry", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *WaitlistRepository) ClaimPending(ctx context.Context, kind placement.Kind, now time.Time) ([]*waitlist.Entry, error) {
	rows, err := r.db.Query(ctx, claimPendingWaitlistSQL, kind.String(), now)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to claim waitlist entries", err)
	}
	defer rows.Close()

	var entries []*waitlist.Entry
	for rows.Next() {
		var (
			e          waitlist.Entry
			kindStr    string
			notifiedAt pgtype.Timestamptz
		)
		if err := rows.Scan(&e.ID, &e.TenantID, &kindStr, &e.RequestedAt, &notifiedAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan waitlist entry", err)
		}
		e.Kind = placement.Kind(kindStr)
		e.NotifiedAt = pgconv.TimePtrFromPgtype(notifiedAt)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to claim waitlist entries", err)
	}

	// RETURNING order is unspecified
	slices.SortStableFunc(entries, func(a, b *waitlist.Entry) int {
		return a.RequestedAt.Compare(b.RequestedAt)
	})
	return entries, nil
}
