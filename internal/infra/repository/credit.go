package repository

import (
	"context"

	"placement-engine/internal/domain/placement"
	"placement-engine/internal/infra"
	"placement-engine/internal/infra/db"

	"github.com/google/uuid"
)

const debitCreditSQL = `
UPDATE tenant_credits SET balance = balance - 1
WHERE tenant_id = $1 AND kind = $2 AND balance > 0`

const grantCreditSQL = `
INSERT INTO tenant_credits (tenant_id, kind, balance)
VALUES ($1, $2, $3)
ON CONFLICT (tenant_id, kind) DO UPDATE SET balance = tenant_credits.balance + EXCLUDED.balance`

type CreditRepository struct {
	db db.DBTX
}

func NewCreditRepository(dbtx db.DBTX) *CreditRepository {
	return &CreditRepository{db: dbtx}
}

func (r *CreditRepository) Debit(ctx context.Context, tenantID uuid.UUID, kind placement.Kind) (bool, error) {
	tag, err := r.db.Exec(ctx, debitCreditSQL, tenantID, kind.String())
	if err != nil {
		return false, infra.WrapRepoErr("failed to debit credit", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *CreditRepository) Grant(ctx context.Context, tenantID uuid.UUID, kind placement.Kind, amount int) error {
	if _, err := r.db.Exec(ctx, grantCreditSQL, tenantID, kind.String(), amount); err != nil {
		return infra.WrapRepoErr("failed to grant credit", err)
	}
	return nil
}
