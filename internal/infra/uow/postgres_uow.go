package uow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"placement-engine/internal/domain/payment"
	"placement-engine/internal/domain/placement"
	"placement-engine/internal/infra/db"
	"placement-engine/internal/infra/readstore"
	"placement-engine/internal/infra/repository"
	"placement-engine/internal/pkg/backoff"
	"placement-engine/internal/pkg/errs"
	"placement-engine/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgErrCodeSerializationFailure = "40001"
	pgErrCodeDeadlockDetected     = "40P01"
	pgErrCodeLockNotAvailable     = "55P03"
)

var (
	errTransactionBegin  = errs.New("failed to begin transaction")
	errTransactionCommit = errs.New("failed to commit transaction")
)

// RetryPolicy bounds retries of transactions aborted by lock contention.
// LockTimeout caps how long a statement queues behind a row lock; 0 disables it.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	LockTimeout time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, BaseBackoff: 20 * time.Millisecond, LockTimeout: 2 * time.Second}
}

type PostgresUoW struct {
	pool   *pgxpool.Pool
	policy RetryPolicy
}

func NewPostgresUoW(pool *pgxpool.Pool, policy RetryPolicy) *PostgresUoW {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	return &PostgresUoW{
		pool:   pool,
		policy: policy,
	}
}

// ReadCommitted is enough: every decision is a single conditional UPDATE, and
// Postgres re-evaluates its WHERE clause against the committed row once the
// row lock is granted. Concurrent writers queue on the lock instead of failing
// with 40001, so lock_timeout (55P03) and deadlocks (40P01) are what the retry
// loop sees in practice.
func (u *PostgresUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return u.runInTxWithOptions(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

// Read-only transaction for consistent multi-table snapshots
func (u *PostgresUoW) WithinReadOnly(ctx context.Context, fn func(ctx context.Context, reads shared.CommandReads) error) error {
	return u.runReadOnlyTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly, IsoLevel: pgx.RepeatableRead}, fn)
}

func (u *PostgresUoW) CommandReads() shared.CommandReads {
	return newCommandReads(u.pool)
}

// Avoids defer accumulation in retry loops to prevent connection leaks
func (u *PostgresUoW) runInTxWithOptions(ctx context.Context, options pgx.TxOptions, fn func(ctx context.Context, tx shared.Tx) error) error {
	maxAttempts := u.policy.MaxAttempts

	for attempt := 0; attempt < maxAttempts; attempt++ {
		pgxTx, err := u.pool.BeginTx(ctx, options)
		if err != nil {
			return errs.Mark(err, errTransactionBegin)
		}

		err = u.applyLockTimeout(ctx, pgxTx)
		if err == nil {
			err = fn(ctx, newPgTx(pgxTx))
		}
		if err == nil {
			if err = pgxTx.Commit(ctx); err == nil {
				return nil
			}
			err = errs.Mark(err, errTransactionCommit)
		}

		if rollbackErr := pgxTx.Rollback(ctx); rollbackErr != nil {
			if !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				slog.Warn("rollback failed", "attempt", attempt+1, "error", rollbackErr.Error())
			}
		}

		if !isRetryableError(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			slog.Warn("transaction failed after max retries",
				"attempts", attempt+1,
				"error", err.Error())
			return errs.Mark(err, shared.ErrContention)
		}

		waitTime := backoff.Exponential(attempt, u.policy.BaseBackoff)

		slog.Debug("retrying transaction due to retryable error",
			"attempt", attempt+1,
			"wait_ms", waitTime.Milliseconds(),
			"error", err.Error())

		if err := backoff.Sleep(ctx, waitTime); err != nil {
			return err
		}
	}

	return shared.ErrContention
}

func (u *PostgresUoW) runReadOnlyTx(ctx context.Context, options pgx.TxOptions, fn func(ctx context.Context, reads shared.CommandReads) error) error {
	pgxTx, err := u.pool.BeginTx(ctx, options)
	if err != nil {
		return errs.Mark(err, errTransactionBegin)
	}

	defer func() {
		if rollbackErr := pgxTx.Rollback(ctx); rollbackErr != nil {
			if !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				slog.Warn("failed to rollback read-only transaction", "error", rollbackErr.Error())
			}
		}
	}()

	if err := fn(ctx, newCommandReads(pgxTx)); err != nil {
		return err
	}

	return pgxTx.Commit(ctx)
}

func (u *PostgresUoW) applyLockTimeout(ctx context.Context, tx pgx.Tx) error {
	stmt := lockTimeoutStatement(u.policy.LockTimeout)
	if stmt == "" {
		return nil
	}
	_, err := tx.Exec(ctx, stmt)
	return err
}

// SET does not take bind parameters, so the value is formatted in.
func lockTimeoutStatement(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", max(d.Milliseconds(), 1))
}

func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	switch pgErr.Code {
	case pgErrCodeSerializationFailure, pgErrCodeDeadlockDetected, pgErrCodeLockNotAvailable:
		return true
	default:
		return false
	}
}

type pgTx struct {
	dbtx db.DBTX

	// Lazy-initialized repositories
	placementRepo    shared.PlacementRepository
	capacityRepo     shared.CapacityRepository
	intentRepo       shared.PaymentIntentRepository
	waitlistRepo     shared.WaitlistRepository
	idempotencyRepo  shared.IdempotencyRepository
	notificationRepo shared.NotificationRepository
	creditLedger     shared.CreditLedger
	commandReads     shared.CommandReads
}

func newPgTx(dbtx db.DBTX) *pgTx {
	return &pgTx{dbtx: dbtx}
}

func (t *pgTx) Placements() shared.PlacementRepository {
	if t.placementRepo == nil {
		t.placementRepo = repository.NewPlacementRepository(t.dbtx)
	}
	return t.placementRepo
}

func (t *pgTx) Capacity() shared.CapacityRepository {
	if t.capacityRepo == nil {
		t.capacityRepo = repository.NewCapacityRepository(t.dbtx)
	}
	return t.capacityRepo
}

func (t *pgTx) Intents() shared.PaymentIntentRepository {
	if t.intentRepo == nil {
		t.intentRepo = repository.NewPaymentIntentRepository(t.dbtx)
	}
	return t.intentRepo
}

func (t *pgTx) Waitlist() shared.WaitlistRepository {
	if t.waitlistRepo == nil {
		t.waitlistRepo = repository.NewWaitlistRepository(t.dbtx)
	}
	return t.waitlistRepo
}

func (t *pgTx) Idempotency() shared.IdempotencyRepository {
	if t.idempotencyRepo == nil {
		t.idempotencyRepo = repository.NewIdempotencyRepository(t.dbtx)
	}
	return t.idempotencyRepo
}

func (t *pgTx) Notifications() shared.NotificationRepository {
	if t.notificationRepo == nil {
		t.notificationRepo = repository.NewNotificationRepository(t.dbtx)
	}
	return t.notificationRepo
}

func (t *pgTx) Credits() shared.CreditLedger {
	if t.creditLedger == nil {
		t.creditLedger = repository.NewCreditRepository(t.dbtx)
	}
	return t.creditLedger
}

func (t *pgTx) Reads() shared.CommandReads {
	if t.commandReads == nil {
		t.commandReads = newCommandReads(t.dbtx)
	}
	return t.commandReads
}

type commandReads struct {
	placements  *readstore.PlacementReadStore
	intents     *readstore.IntentReadStore
	idempotency *readstore.IdempotencyReadStore
}

func newCommandReads(dbtx db.DBTX) *commandReads {
	return &commandReads{
		placements:  readstore.NewPlacementReadStore(dbtx),
		intents:     readstore.NewIntentReadStore(dbtx),
		idempotency: readstore.NewIdempotencyReadStore(dbtx),
	}
}

func (r *commandReads) PlacementByID(ctx context.Context, id uuid.UUID) (*placement.Placement, error) {
	return r.placements.Get(ctx, id)
}

func (r *commandReads) IntentByID(ctx context.Context, intentID string) (*payment.Intent, error) {
	return r.intents.FindByID(ctx, intentID)
}

func (r *commandReads) LatestIntentForPlacement(ctx context.Context, placementID uuid.UUID) (*payment.Intent, error) {
	return r.intents.FindLatestForPlacement(ctx, placementID)
}

func (r *commandReads) IdempotencyByKey(ctx context.Context, key, tenantID uuid.UUID) (*shared.IdempotencyRecord, error) {
	return r.idempotency.Get(ctx, key, tenantID)
}

var _ shared.UnitOfWork = (*PostgresUoW)(nil)
