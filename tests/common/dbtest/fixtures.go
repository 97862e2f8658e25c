//go:build unit || e2e

package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func SeedPool(t *testing.T, db DBLike, kind, scope string, maxActive int) {
	t.Helper()

	_, err := db.Exec(context.Background(), `
		INSERT INTO capacity_pools (kind, scope, max_active) VALUES ($1, $2, $3)
		ON CONFLICT (kind, scope) DO UPDATE SET max_active = EXCLUDED.max_active, active_count = 0`,
		kind, scope, maxActive)
	require.NoError(t, err)
}

func ActiveCount(t *testing.T, db DBLike, kind, scope string) int {
	t.Helper()

	var n int
	err := db.QueryRow(context.Background(),
		"SELECT active_count FROM capacity_pools WHERE kind = $1 AND scope = $2", kind, scope).Scan(&n)
	require.NoError(t, err)
	return n
}

// HeldCount counts placements whose reservation is still held; it must match ActiveCount.
func HeldCount(t *testing.T, db DBLike, kind string) int {
	t.Helper()

	var n int
	err := db.QueryRow(context.Background(),
		"SELECT count(*) FROM placements WHERE kind = $1 AND reservation_held", kind).Scan(&n)
	require.NoError(t, err)
	return n
}

func CreateTestOwner(t *testing.T, db DBLike, tenantID uuid.UUID, scope string) uuid.UUID {
	t.Helper()

	ownerID := uuid.New()
	_, err := db.Exec(context.Background(),
		"INSERT INTO placement_owners (tenant_id, scope, owner_id) VALUES ($1, $2, $3)", tenantID, scope, ownerID)
	require.NoError(t, err)
	return ownerID
}

func GrantCredits(t *testing.T, db DBLike, tenantID uuid.UUID, kind string, amount int) {
	t.Helper()

	_, err := db.Exec(context.Background(), `
		INSERT INTO tenant_credits (tenant_id, kind, balance) VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, kind) DO UPDATE SET balance = tenant_credits.balance + EXCLUDED.balance`,
		tenantID, kind, amount)
	require.NoError(t, err)
}

// inserts the pools every e2e test starts from
func SeedReferenceData(pool *pgxpool.Pool) error {
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		INSERT INTO capacity_pools (kind, scope, max_active) VALUES
		    ('banner', '', 4),
		    ('promotion', '', 12)
		ON CONFLICT (kind, scope) DO NOTHING;
	`)
	return err
}

var (
	buildTruncateOnce sync.Once
	truncateSQL       atomic.Value // string
)

// truncates all tables and reseeds reference data
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buildTruncateOnce.Do(func() {
		rows, err := pool.Query(ctx, `
		  SELECT 'public.' || quote_ident(tablename)
		  FROM pg_tables
		  WHERE schemaname = 'public'
		    AND tablename NOT IN ('schema_migrations')`)
		if err != nil {
			truncateSQL.Store("")
			return
		}
		defer rows.Close()
		var tables []string
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				truncateSQL.Store("")
				return
			}
			tables = append(tables, t)
		}
		if rows.Err() != nil {
			truncateSQL.Store("")
			return
		}
		if len(tables) == 0 {
			truncateSQL.Store("SELECT 1")
			return
		}
		truncateSQL.Store("TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE;")
	})
	sqlAny := truncateSQL.Load()
	if sqlAny == nil || sqlAny.(string) == "" {
		return fmt.Errorf("failed to build TRUNCATE SQL")
	}
	if _, err := pool.Exec(ctx, sqlAny.(string)); err != nil {
		return err
	}

	return SeedReferenceData(pool)
}
