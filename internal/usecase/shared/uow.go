package shared

import (
	"context"
	"time"

	"placement-engine/internal/domain/payment"
	"placement-engine/internal/domain/placement"
	"placement-engine/internal/domain/waitlist"
	"placement-engine/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	// ErrStaleState: a compare-and-swap matched no row because the placement
	// moved on since it was read.
	ErrStaleState = errs.New("stale placement state")
	// ErrContention: the store gave up after repeated lock timeouts, deadlocks
	// or serialization failures.
	ErrContention = errs.New("transaction failed after max retries")
)

type UnitOfWork interface {
	// Within: Full transaction for write operations with retry logic
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithinReadOnly: Read-only transaction for multi-table consistent reads
	WithinReadOnly(ctx context.Context, fn func(ctx context.Context, reads CommandReads) error) error
	// CommandReads: Direct access to command reads for validation outside transactions
	CommandReads() CommandReads
}

type Tx interface {
	Placements() PlacementRepository
	Capacity() CapacityRepository
	Intents() PaymentIntentRepository
	Waitlist() WaitlistRepository
	Idempotency() IdempotencyRepository
	Notifications() NotificationRepository
	Credits() CreditLedger
	Reads() CommandReads
}

type CommandReads interface {
	PlacementByID(ctx context.Context, id uuid.UUID) (*placement.Placement, error)
	IntentByID(ctx context.Context, intentID string) (*payment.Intent, error)
	LatestIntentForPlacement(ctx context.Context, placementID uuid.UUID) (*payment.Intent, error)
	IdempotencyByKey(ctx context.Context, key, tenantID uuid.UUID) (*IdempotencyRecord, error)
}

type PlacementRepository interface {
	Create(ctx context.Context, p *placement.Placement) error
	// CompareAndSwap persists p only if the stored row still has the given
	// state and version; it returns ErrStaleState otherwise.
	CompareAndSwap(ctx context.Context, p *placement.Placement, expected placement.State, expectedVersion int64) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	ListAbandoned(ctx context.Context, state placement.State, before time.Time, limit int) ([]uuid.UUID, error)
}

type CapacityRepository interface {
	Provision(ctx context.Context, kind placement.Kind, scope placement.Scope, maxActive int) error
	// ResolvePool returns the scope of the pool a (kind, scope) request draws from.
	ResolvePool(ctx context.Context, kind placement.Kind, scope placement.Scope) (placement.Scope, error)
	TryReserve(ctx context.Context, kind placement.Kind, poolScope placement.Scope) (bool, error)
	Release(ctx context.Context, kind placement.Kind, poolScope placement.Scope) error
}

type PaymentIntentRepository interface {
	Create(ctx context.Context, intent *payment.Intent) error
	UpdateStatus(ctx context.Context, intentID string, status payment.Status, now time.Time) error
}

type WaitlistRepository interface {
	// Enqueue returns false when the tenant already has a pending entry for the kind.
	Enqueue(ctx context.Context, entry *waitlist.Entry) (bool, error)
	// ClaimPending marks every pending entry for kind as notified and returns
	// them oldest first.
	ClaimPending(ctx context.Context, kind placement.Kind, now time.Time) ([]*waitlist.Entry, error)
}

type IdempotencyRepository interface {
	// TryInsert returns false when the key already exists for the tenant.
	TryInsert(ctx context.Context, key, tenantID uuid.UUID, endpoint, requestHash string, expiresAt time.Time) (bool, error)
	ClaimExpired(ctx context.Context, key, tenantID uuid.UUID, requestHash string, now, expiresAt time.Time) (bool, error)
	MarkCompleted(ctx context.Context, key, tenantID uuid.UUID, resultPlacementID uuid.UUID) error
	Delete(ctx context.Context, key, tenantID uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type NotificationRepository interface {
	CreateJob(ctx context.Context, kind, topic string, payload []byte, runAt time.Time) error
}

type CreditLedger interface {
	// Debit consumes one credit for kind; false means the balance was empty.
	Debit(ctx context.Context, tenantID uuid.UUID, kind placement.Kind) (bool, error)
	Grant(ctx context.Context, tenantID uuid.UUID, kind placement.Kind, amount int) error
}
