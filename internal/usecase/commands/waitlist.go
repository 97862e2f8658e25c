package commands

import (
	"context"
	"log/slog"

	"placement-engine/internal/domain/placement"
	"placement-engine/internal/domain/waitlist"
	"placement-engine/internal/pkg/clock"
	"placement-engine/internal/pkg/errs"
	"placement-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

const TopicCapacityAvailable = "placement.capacity_available"

// WaitlistNotifier is advisory: a notified tenant still has to win tryReserve.
type WaitlistNotifier struct {
	uow      shared.UnitOfWork
	notifier Notifier
	clock    clock.Clock
}

func NewWaitlistNotifier(uow shared.UnitOfWork, notifier Notifier, clk clock.Clock) *WaitlistNotifier {
	return &WaitlistNotifier{uow: uow, notifier: notifier, clock: clk}
}

// Enqueue returns false when the tenant is already waiting for kind.
func (w *WaitlistNotifier) Enqueue(ctx context.Context, tenantID uuid.UUID, kind placement.Kind) (bool, error) {
	entry, err := waitlist.NewEntry(tenantID, kind, w.clock.Now())
	if err != nil {
		return false, errs.Mark(err, ErrValidation)
	}

	var created bool
	err = w.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var txErr error
		created, txErr = tx.Waitlist().Enqueue(ctx, entry)
		return txErr
	})
	if err != nil {
		return false, errs.Mark(err, ErrDatabaseOperation)
	}
	return created, nil
}

// OnCapacityReleased runs after a release has committed. Entries are marked
// notified before delivery; a failed send is logged and not retried here.
func (w *WaitlistNotifier) OnCapacityReleased(ctx context.Context, kind placement.Kind, poolScope placement.Scope) {
	var entries []*waitlist.Entry
	err := w.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var txErr error
		entries, txErr = tx.Waitlist().ClaimPending(ctx, kind, w.clock.Now())
		return txErr
	})
	if err != nil {
		slog.Warn("failed to claim waitlist entries", "kind", kind.String(), "error", err.Error())
		return
	}

	for _, e := range entries {
		n := Notification{
			TenantID: e.TenantID,
			Topic:    TopicCapacityAvailable,
			Payload: map[string]any{
				"kind":         kind.String(),
				"pool_scope":   poolScope.String(),
				"requested_at": e.RequestedAt,
				"entry_id":     e.ID.String(),
			},
		}
		if sendErr := w.notifier.Send(ctx, n); sendErr != nil {
			slog.Warn("failed to send waitlist notification",
				"tenant_id", e.TenantID.String(),
				"kind", kind.String(),
				"error", sendErr.Error())
		}
	}
	if len(entries) > 0 {
		slog.Info("waitlist notified", "kind", kind.String(), "count", len(entries))
	}
}
