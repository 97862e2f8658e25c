package readstore

import (
	"context"

	"placement-engine/internal/domain/payment"
	"placement-engine/internal/infra"
	"placement-engine/internal/infra/db"
	"placement-engine/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const intentColumns = `id, placement_id, amount_minor, currency, status, client_secret, created_at, updated_at`

const getIntentByIDSQL = `SELECT ` + intentColumns + ` FROM payment_intents WHERE id = $1`

const getLatestIntentSQL = `
SELECT ` + intentColumns + ` FROM payment_intents
WHERE placement_id = $1
ORDER BY created_at DESC, id DESC
LIMIT 1`

type IntentReadStore struct {
	db db.DBTX
}

func NewIntentReadStore(dbtx db.DBTX) *IntentReadStore {
	return &IntentReadStore{db: dbtx}
}

func (r *IntentReadStore) FindByID(ctx context.Context, intentID string) (*payment.Intent, error) {
	intent, err := scanIntent(r.db.QueryRow(ctx, getIntentByIDSQL, intentID))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("payment intent not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find payment intent", err)
	}
	return intent, nil
}

func (r *IntentReadStore) FindLatestForPlacement(ctx context.Context, placementID uuid.UUID) (*payment.Intent, error) {
	intent, err := scanIntent(r.db.QueryRow(ctx, getLatestIntentSQL, placementID))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("no payment intent for placement", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find latest payment intent", err)
	}
	return intent, nil
}

func scanIntent(row pgx.Row) (*payment.Intent, error) {
	var (
		intent payment.Intent
		status string
	)
	err := row.Scan(&intent.ID, &intent.PlacementID, &intent.AmountMinor, &intent.Currency, &status, &intent.ClientSecret, &intent.CreatedAt, &intent.UpdatedAt)
	if err != nil {
		return nil, err
	}
	intent.Status = payment.Status(status)
	intent.CreatedAt = intent.CreatedAt.UTC()
	intent.UpdatedAt = intent.UpdatedAt.UTC()
	return &intent, nil
}
