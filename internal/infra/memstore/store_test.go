//go:build unit

package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"placement-engine/internal/domain/placement"
	"placement-engine/internal/domain/waitlist"
	"placement-engine/internal/infra"
	"placement-engine/internal/infra/memstore"
	"placement-engine/internal/usecase/shared"
	"placement-engine/tests/common/builder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func within(t *testing.T, store *memstore.Store, fn func(ctx context.Context, tx shared.Tx) error) {
	t.Helper()
	require.NoError(t, store.Within(context.Background(), fn))
}

func TestWithin_RollsBackOnError(t *testing.T) {
	store := memstore.New()
	within(t, store, func(ctx context.Context, tx shared.Tx) error {
		return tx.Capacity().Provision(ctx, placement.KindBanner, placement.ScopeGlobal, 1)
	})

	errBoom := errors.New("boom")
	err := store.Within(context.Background(), func(ctx context.Context, tx shared.Tx) error {
		ok, err := tx.Capacity().TryReserve(ctx, placement.KindBanner, placement.ScopeGlobal)
		require.NoError(t, err)
		require.True(t, ok)
		return errBoom
	})

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 0, store.ActiveCount(placement.KindBanner, placement.ScopeGlobal))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.Within(ctx, func(context.Context, shared.Tx) error { return nil }), context.Canceled)
}

func TestCapacity(t *testing.T) {
	store := memstore.New()
	within(t, store, func(ctx context.Context, tx shared.Tx) error {
		if err := tx.Capacity().Provision(ctx, placement.KindBanner, placement.ScopeGlobal, 2); err != nil {
			return err
		}
		return tx.Capacity().Provision(ctx, placement.KindBanner, placement.ScopeDealer, 1)
	})

	t.Run("resolve falls back to the global pool", func(t *testing.T) {
		within(t, store, func(ctx context.Context, tx shared.Tx) error {
			scope, err := tx.Capacity().ResolvePool(ctx, placement.KindBanner, placement.ScopeDealer)
			require.NoError(t, err)
			assert.Equal(t, placement.ScopeDealer, scope)

			scope, err = tx.Capacity().ResolvePool(ctx, placement.KindBanner, placement.ScopeVehicle)
			require.NoError(t, err)
			assert.Equal(t, placement.ScopeGlobal, scope)

			_, err = tx.Capacity().ResolvePool(ctx, placement.KindPromotion, placement.ScopeGlobal)
			assert.True(t, infra.IsKind(err, infra.KindNotFound))
			return nil
		})
	})

	t.Run("reserve stops at the limit and release never goes negative", func(t *testing.T) {
		within(t, store, func(ctx context.Context, tx shared.Tx) error {
			for i, want := range []bool{true, true, false} {
				ok, err := tx.Capacity().TryReserve(ctx, placement.KindBanner, placement.ScopeGlobal)
				require.NoError(t, err)
				assert.Equal(t, want, ok, "attempt %d", i)
			}
			for range 3 {
				require.NoError(t, tx.Capacity().Release(ctx, placement.KindBanner, placement.ScopeGlobal))
			}
			return nil
		})
		assert.Equal(t, 0, store.ActiveCount(placement.KindBanner, placement.ScopeGlobal))
		assert.Equal(t, -1, store.ActiveCount(placement.KindPromotion, placement.ScopeGlobal))
	})

	t.Run("shrinking a pool keeps the active count", func(t *testing.T) {
		within(t, store, func(ctx context.Context, tx shared.Tx) error {
			_, err := tx.Capacity().TryReserve(ctx, placement.KindBanner, placement.ScopeDealer)
			require.NoError(t, err)
			return tx.Capacity().Provision(ctx, placement.KindBanner, placement.ScopeDealer, 0)
		})

		pools, err := store.ListPools(context.Background())
		require.NoError(t, err)
		require.Len(t, pools, 2)
		assert.Equal(t, "dealer", pools[1].Scope)
		assert.Equal(t, 0, pools[1].MaxActive)
		assert.Equal(t, 1, pools[1].ActiveCount)
	})
}

func TestPlacements(t *testing.T) {
	ctx := context.Background()

	t.Run("compare and swap", func(t *testing.T) {
		store := memstore.New()
		p := builder.NewPlacementBuilder().BuildDomain()
		within(t, store, func(ctx context.Context, tx shared.Tx) error {
			return tx.Placements().Create(ctx, p)
		})

		err := store.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			return tx.Placements().Create(ctx, p)
		})
		assert.True(t, infra.IsKind(err, infra.KindDuplicateKey))

		require.NoError(t, p.Activate(t0))
		within(t, store, func(ctx context.Context, tx shared.Tx) error {
			return tx.Placements().CompareAndSwap(ctx, p, placement.StatePendingPayment, 1)
		})
		err = store.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			return tx.Placements().CompareAndSwap(ctx, p, placement.StatePendingPayment, 1)
		})
		assert.ErrorIs(t, err, shared.ErrStaleState)

		stored, err := store.CommandReads().PlacementByID(ctx, p.ID())
		require.NoError(t, err)
		assert.Equal(t, placement.StateActive, stored.State())
		assert.Equal(t, int64(2), stored.Version())

		_, err = store.CommandReads().PlacementByID(ctx, uuid.New())
		assert.True(t, infra.IsKind(err, infra.KindNotFound))
	})

	t.Run("expired and abandoned listings", func(t *testing.T) {
		store := memstore.New()
		active := builder.NewPlacementBuilder().Active(t0).BuildDomain()
		stale := builder.NewPlacementBuilder().BuildDomain()
		fresh := builder.NewPlacementBuilder().With(func(b *builder.PlacementBuilder) {
			b.CreatedAt = t0.Add(2 * time.Hour)
		}).BuildDomain()
		within(t, store, func(ctx context.Context, tx shared.Tx) error {
			for _, p := range []*placement.Placement{active, stale, fresh} {
				if err := tx.Placements().Create(ctx, p); err != nil {
					return err
				}
			}
			return nil
		})

		within(t, store, func(ctx context.Context, tx shared.Tx) error {
			ids, err := tx.Placements().ListExpired(ctx, active.ExpiresAt().Add(-time.Second), 10)
			require.NoError(t, err)
			assert.Empty(t, ids)

			ids, err = tx.Placements().ListExpired(ctx, *active.ExpiresAt(), 10)
			require.NoError(t, err)
			assert.Equal(t, []uuid.UUID{active.ID()}, ids)

			ids, err = tx.Placements().ListAbandoned(ctx, placement.StatePendingPayment, t0.Add(time.Hour), 10)
			require.NoError(t, err)
			assert.Equal(t, []uuid.UUID{stale.ID()}, ids)

			_, err = tx.Placements().ListAbandoned(ctx, placement.StateActive, t0, 10)
			assert.Error(t, err)
			return nil
		})
	})
}

func TestListByTenant(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	tenant := uuid.New()

	var ids []uuid.UUID
	within(t, store, func(ctx context.Context, tx shared.Tx) error {
		for i := range 5 {
			b := builder.NewPlacementBuilder().With(func(b *builder.PlacementBuilder) {
				b.TenantID = tenant
				b.CreatedAt = t0.Add(time.Duration(i) * time.Minute)
			})
			if i == 4 {
				b.Active(t0)
			}
			ids = append(ids, b.ID)
			if err := tx.Placements().Create(ctx, b.BuildDomain()); err != nil {
				return err
			}
		}
		return tx.Placements().Create(ctx, builder.NewPlacementBuilder().BuildDomain())
	})

	first, err := store.FindByTenantFirstPage(ctx, tenant, nil, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, ids[4], first[0].ID)
	assert.Equal(t, ids[3], first[1].ID)

	next, err := store.FindByTenantKeyset(ctx, tenant, nil, first[1].CreatedAt, first[1].ID, 10)
	require.NoError(t, err)
	require.Len(t, next, 3)
	assert.Equal(t, ids[0], next[2].ID)

	state := "active"
	filtered, err := store.FindByTenantFirstPage(ctx, tenant, &state, 10)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, ids[4], filtered[0].ID)

	view, err := store.FindByID(ctx, ids[4])
	require.NoError(t, err)
	assert.Equal(t, "active", view.State)
	_, err = store.FindByID(ctx, uuid.New())
	assert.True(t, infra.IsKind(err, infra.KindNotFound))
}

func TestWaitlistAndIdempotency(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	tenant := uuid.New()

	t.Run("one pending entry per tenant and kind", func(t *testing.T) {
		within(t, store, func(ctx context.Context, tx shared.Tx) error {
			entry, err := waitlist.NewEntry(tenant, placement.KindBanner, t0)
			require.NoError(t, err)
			created, err := tx.Waitlist().Enqueue(ctx, entry)
			require.NoError(t, err)
			assert.True(t, created)

			created, err = tx.Waitlist().Enqueue(ctx, entry)
			require.NoError(t, err)
			assert.False(t, created)

			claimed, err := tx.Waitlist().ClaimPending(ctx, placement.KindBanner, t0.Add(time.Hour))
			require.NoError(t, err)
			require.Len(t, claimed, 1)
			assert.Equal(t, tenant, claimed[0].TenantID)

			claimed, err = tx.Waitlist().ClaimPending(ctx, placement.KindBanner, t0.Add(time.Hour))
			require.NoError(t, err)
			assert.Empty(t, claimed)

			created, err = tx.Waitlist().Enqueue(ctx, entry)
			require.NoError(t, err)
			assert.True(t, created, "notified entries do not block a new request")
			return nil
		})
	})

	t.Run("keys are scoped by tenant and expire", func(t *testing.T) {
		key := uuid.New()
		result := uuid.New()
		within(t, store, func(ctx context.Context, tx shared.Tx) error {
			ok, err := tx.Idempotency().TryInsert(ctx, key, tenant, "purchase", "h1", t0.Add(time.Hour))
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = tx.Idempotency().TryInsert(ctx, key, tenant, "purchase", "h1", t0.Add(time.Hour))
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = tx.Idempotency().TryInsert(ctx, key, uuid.New(), "purchase", "h1", t0.Add(time.Hour))
			require.NoError(t, err)
			assert.True(t, ok)

			return tx.Idempotency().MarkCompleted(ctx, key, tenant, result)
		})

		rec, err := store.CommandReads().IdempotencyByKey(ctx, key, tenant)
		require.NoError(t, err)
		assert.Equal(t, shared.IdempotencyStatusCompleted, rec.Status)
		assert.Equal(t, result, *rec.ResultPlacementID)

		within(t, store, func(ctx context.Context, tx shared.Tx) error {
			ok, err := tx.Idempotency().ClaimExpired(ctx, key, tenant, "h1", t0, t0.Add(2*time.Hour))
			require.NoError(t, err)
			assert.False(t, ok, "still live")

			ok, err = tx.Idempotency().ClaimExpired(ctx, key, tenant, "other", t0.Add(time.Hour), t0.Add(2*time.Hour))
			require.NoError(t, err)
			assert.False(t, ok, "different request")

			n, err := tx.Idempotency().DeleteExpired(ctx, t0.Add(time.Hour))
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)
			return nil
		})
	})
}

func TestCreditsAndOwners(t *testing.T) {
	store := memstore.New()
	tenant := uuid.New()
	owner := uuid.New()

	within(t, store, func(ctx context.Context, tx shared.Tx) error {
		ok, err := tx.Credits().Debit(ctx, tenant, placement.KindBanner)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, tx.Credits().Grant(ctx, tenant, placement.KindBanner, 1))
		ok, err = tx.Credits().Debit(ctx, tenant, placement.KindBanner)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = tx.Credits().Debit(ctx, tenant, placement.KindBanner)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})

	store.AddOwner(tenant, placement.ScopeVehicle, owner)
	owns, err := store.Owns(context.Background(), tenant, placement.ScopeVehicle, owner)
	require.NoError(t, err)
	assert.True(t, owns)
	owns, err = store.Owns(context.Background(), tenant, placement.ScopeSeller, owner)
	require.NoError(t, err)
	assert.False(t, owns)
}
