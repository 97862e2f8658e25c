package repository

import (
	"context"
	"time"

	"placement-engine/internal/domain/payment"
	"placement-engine/internal/infra"
	"placement-engine/internal/infra/db"
)

const insertIntentSQL = `
INSERT INTO payment_intents (id, placement_id, amount_minor, currency, status, client_secret, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING`

const updateIntentStatusSQL = `
UPDATE payment_intents SET status = $2, updated_at = $3
WHERE id = $1`

type PaymentIntentRepository struct {
	db db.DBTX
}

func NewPaymentIntentRepository(dbtx db.DBTX) *PaymentIntentRepository {
	return &PaymentIntentRepository{db: dbtx}
}

// Create is a no-op for an intent id the gateway already returned once.
func (r *PaymentIntentRepository) Create(ctx context.Context, intent *payment.Intent) error {
	_, err := r.db.Exec(ctx, insertIntentSQL,
		intent.ID,
		intent.PlacementID,
		intent.AmountMinor,
		intent.Currency,
		intent.Status.String(),
		intent.ClientSecret,
		intent.CreatedAt,
		intent.UpdatedAt,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create payment intent", err)
	}
	return nil
}

func (r *PaymentIntentRepository) UpdateStatus(ctx context.Context, intentID string, status payment.Status, now time.Time) error {
	tag, err := r.db.Exec(ctx, updateIntentStatusSQL, intentID, status.String(), now)
	if err != nil {
		return infra.WrapRepoErr("failed to update payment intent status", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("payment intent not found", nil, infra.KindNotFound)
	}
	return nil
}
