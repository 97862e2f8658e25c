//go:build unit

package queries_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"placement-engine/internal/domain/placement"
	"placement-engine/internal/infra"
	"placement-engine/internal/infra/memstore"
	"placement-engine/internal/usecase/queries"
	"placement-engine/internal/usecase/shared"
	"placement-engine/tests/common/authtest"
	"placement-engine/tests/common/builder"
	queriesmock "placement-engine/tests/mock/queries"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func seed(t *testing.T, store *memstore.Store, builders ...*builder.PlacementBuilder) {
	t.Helper()
	require.NoError(t, store.Within(context.Background(), func(ctx context.Context, tx shared.Tx) error {
		for _, b := range builders {
			if err := tx.Placements().Create(ctx, b.BuildDomain()); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestPlacementQueries_GetByID(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	q := queries.NewPlacementQueries(store)
	owner := authtest.NewTenant()

	b := builder.NewPlacementBuilder().With(func(b *builder.PlacementBuilder) { b.TenantID = owner.TenantID })
	seed(t, store, b)

	t.Run("owner sees it", func(t *testing.T) {
		v, err := q.GetByID(ctx, owner, b.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(6993), v.PriceMinor)
	})

	t.Run("other tenants get not found", func(t *testing.T) {
		_, err := q.GetByID(ctx, authtest.NewTenant(), b.ID)
		assert.ErrorIs(t, err, queries.ErrPlacementNotFound)
	})

	t.Run("admins see every tenant", func(t *testing.T) {
		_, err := q.GetByID(ctx, authtest.NewAdmin(), b.ID)
		assert.NoError(t, err)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := q.GetByID(ctx, owner, uuid.New())
		assert.ErrorIs(t, err, queries.ErrPlacementNotFound)
	})
}

func TestPlacementQueries_ListByTenant(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	q := queries.NewPlacementQueries(store)
	actor := authtest.NewTenant()
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := range 5 {
		seed(t, store, builder.NewPlacementBuilder().With(func(b *builder.PlacementBuilder) {
			b.TenantID = actor.TenantID
			b.CreatedAt = start.Add(time.Duration(i) * time.Minute)
		}))
	}

	t.Run("pages until exhausted", func(t *testing.T) {
		var seen []uuid.UUID
		var cursor *queries.Cursor
		for page := 0; ; page++ {
			require.Less(t, page, 5, "pagination does not terminate")
			items, next, err := q.ListByTenant(ctx, actor, queries.PlacementFilters{}, cursor, 2)
			require.NoError(t, err)
			for _, it := range items {
				seen = append(seen, it.ID)
			}
			if next == nil {
				break
			}
			cursor = next
		}
		assert.Len(t, seen, 5)
	})

	t.Run("state filter", func(t *testing.T) {
		active := "active"
		items, next, err := q.ListByTenant(ctx, actor, queries.PlacementFilters{State: &active}, nil, 10)
		require.NoError(t, err)
		assert.Empty(t, items)
		assert.Nil(t, next)

		bogus := "paused"
		_, _, err = q.ListByTenant(ctx, actor, queries.PlacementFilters{State: &bogus}, nil, 10)
		assert.ErrorIs(t, err, queries.ErrInvalidFilter)
	})

	t.Run("bad cursor", func(t *testing.T) {
		_, _, err := q.ListByTenant(ctx, actor, queries.PlacementFilters{}, &queries.Cursor{After: "bogus"}, 10)
		assert.ErrorIs(t, err, queries.ErrInvalidCursor)
	})
}

func TestPlacementQueries_Availability(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	require.NoError(t, store.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := tx.Capacity().Provision(ctx, placement.KindBanner, placement.ScopeGlobal, 1); err != nil {
			return err
		}
		if _, err := tx.Capacity().TryReserve(ctx, placement.KindBanner, placement.ScopeGlobal); err != nil {
			return err
		}
		// shrunk below the active count
		return tx.Capacity().Provision(ctx, placement.KindBanner, placement.ScopeGlobal, 0)
	}))

	pools, err := queries.NewPlacementQueries(store).Availability(ctx)
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.Equal(t, 0, pools[0].Available)
	assert.Equal(t, 1, pools[0].ActiveCount)
}

func TestCursor(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)
	id := uuid.New()

	gotAt, gotID, err := queries.DecodeAfterCursor(queries.EncodeAfterCursor(at, id))
	require.NoError(t, err)
	assert.Equal(t, at.Truncate(time.Microsecond), gotAt)
	assert.Equal(t, id, gotID)

	for _, bad := range []string{"", "bogus", "djI6MS0y"} {
		_, _, err := queries.DecodeAfterCursor(bad)
		assert.Error(t, err, bad)
	}

	assert.Equal(t, queries.DefaultListLimit, queries.ValidateLimit(0))
	assert.Equal(t, queries.MaxListLimit, queries.ValidateLimit(10_000))
	assert.Equal(t, 7, queries.ValidateLimit(7))
}

func TestPlacementQueries_ReadStoreErrors(t *testing.T) {
	ctx := context.Background()
	actor := authtest.NewTenant()
	dbDown := infra.WrapRepoErr("query failed", errors.New("conn closed"), infra.KindDBFailure)

	tests := []struct {
		name  string
		setup func(m *queriesmock.MockPlacementReadStore)
		call  func(q queries.PlacementQueries) error
		errIs error
	}{
		{
			name: "repository not found maps to placement not found",
			setup: func(m *queriesmock.MockPlacementReadStore) {
				m.EXPECT().FindByID(gomock.Any(), gomock.Any()).
					Return(nil, infra.WrapRepoErr("placement", nil, infra.KindNotFound))
			},
			call: func(q queries.PlacementQueries) error {
				_, err := q.GetByID(ctx, actor, uuid.New())
				return err
			},
			errIs: queries.ErrPlacementNotFound,
		},
		{
			name: "list passes failures through",
			setup: func(m *queriesmock.MockPlacementReadStore) {
				m.EXPECT().FindByTenantFirstPage(gomock.Any(), actor.TenantID, gomock.Nil(), int32(queries.DefaultListLimit+1)).
					Return(nil, dbDown)
			},
			call: func(q queries.PlacementQueries) error {
				_, _, err := q.ListByTenant(ctx, actor, queries.PlacementFilters{}, nil, 0)
				return err
			},
			errIs: dbDown,
		},
		{
			name: "availability passes failures through",
			setup: func(m *queriesmock.MockPlacementReadStore) {
				m.EXPECT().ListPools(gomock.Any()).Return(nil, dbDown)
			},
			call: func(q queries.PlacementQueries) error {
				_, err := q.Availability(ctx)
				return err
			},
			errIs: dbDown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := queriesmock.NewMockPlacementReadStore(gomock.NewController(t))
			tt.setup(store)

			err := tt.call(queries.NewPlacementQueries(store))

			assert.ErrorIs(t, err, tt.errIs)
		})
	}
}
