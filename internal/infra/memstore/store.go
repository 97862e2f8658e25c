// Package memstore is a single-process storage driver. Each unit of work runs
// under one mutex against a snapshot that is restored when the work fails, so
// it offers the same atomicity the postgres driver gets from transactions.
package memstore

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"placement-engine/internal/domain/payment"
	"placement-engine/internal/domain/placement"
	"placement-engine/internal/domain/waitlist"
	"placement-engine/internal/infra"
	"placement-engine/internal/usecase/queries"
	"placement-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

type poolKey struct {
	kind  placement.Kind
	scope placement.Scope
}

type pool struct {
	maxActive   int
	activeCount int
}

type tenantKey struct {
	key      uuid.UUID
	tenantID uuid.UUID
}

type creditKey struct {
	tenantID uuid.UUID
	kind     placement.Kind
}

type ownerKey struct {
	tenantID uuid.UUID
	scope    placement.Scope
	ownerID  uuid.UUID
}

// NotificationJob mirrors a row of the postgres outbox.
type NotificationJob struct {
	Kind    string
	Topic   string
	Payload []byte
	RunAt   time.Time
}

type data struct {
	placements  map[uuid.UUID]placement.Record
	pools       map[poolKey]pool
	intents     map[string]payment.Intent
	waitlist    []waitlist.Entry
	idempotency map[tenantKey]shared.IdempotencyRecord
	jobs        []NotificationJob
	credits     map[creditKey]int
	owners      map[ownerKey]struct{}
}

func newData() *data {
	return &data{
		placements:  make(map[uuid.UUID]placement.Record),
		pools:       make(map[poolKey]pool),
		intents:     make(map[string]payment.Intent),
		idempotency: make(map[tenantKey]shared.IdempotencyRecord),
		credits:     make(map[creditKey]int),
		owners:      make(map[ownerKey]struct{}),
	}
}

func (d *data) clone() *data {
	return &data{
		placements:  maps.Clone(d.placements),
		pools:       maps.Clone(d.pools),
		intents:     maps.Clone(d.intents),
		waitlist:    slices.Clone(d.waitlist),
		idempotency: maps.Clone(d.idempotency),
		jobs:        slices.Clone(d.jobs),
		credits:     maps.Clone(d.credits),
		owners:      maps.Clone(d.owners),
	}
}

type Store struct {
	mu   sync.Mutex
	data *data
}

func New() *Store {
	return &Store{data: newData()}
}

func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(ctx, &memTx{d: s.data}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) WithinReadOnly(ctx context.Context, fn func(ctx context.Context, reads shared.CommandReads) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx, &reads{d: s.data})
}

func (s *Store) CommandReads() shared.CommandReads {
	return &lockedReads{s: s}
}

// AddOwner registers ownerID as promotable by tenantID under scope.
func (s *Store) AddOwner(tenantID uuid.UUID, scope placement.Scope, ownerID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.owners[ownerKey{tenantID, scope, ownerID}] = struct{}{}
}

func (s *Store) Owns(_ context.Context, tenantID uuid.UUID, scope placement.Scope, ownerID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data.owners[ownerKey{tenantID, scope, ownerID}]
	return ok, nil
}

// Jobs returns the notification outbox in insertion order.
func (s *Store) Jobs() []NotificationJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.data.jobs)
}

// ActiveCount reports the current counter of a pool, or -1 if it does not exist.
func (s *Store) ActiveCount(kind placement.Kind, scope placement.Scope) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data.pools[poolKey{kind, scope}]
	if !ok {
		return -1
	}
	return p.activeCount
}

// ================================================================================
// Read side (queries.PlacementReadStore)
// ================================================================================

func (s *Store) FindByID(_ context.Context, id uuid.UUID) (*queries.PlacementView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data.placements[id]
	if !ok {
		return nil, infra.WrapRepoErr("placement not found", nil, infra.KindNotFound)
	}
	return queries.NewPlacementView(rec), nil
}

func (s *Store) FindByTenantFirstPage(_ context.Context, tenantID uuid.UUID, state *string, limit int32) ([]*queries.PlacementListItem, error) {
	return s.listByTenant(tenantID, state, nil, uuid.Nil, limit), nil
}

func (s *Store) FindByTenantKeyset(_ context.Context, tenantID uuid.UUID, state *string, lastCreatedAt time.Time, lastID uuid.UUID, limit int32) ([]*queries.PlacementListItem, error) {
	return s.listByTenant(tenantID, state, &lastCreatedAt, lastID, limit), nil
}

func (s *Store) ListPools(_ context.Context) ([]*queries.PoolAvailability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*queries.PoolAvailability, 0, len(s.data.pools))
	for k, p := range s.data.pools {
		out = append(out, &queries.PoolAvailability{
			Kind:        k.kind.String(),
			Scope:       k.scope.String(),
			MaxActive:   p.maxActive,
			ActiveCount: p.activeCount,
		})
	}
	slices.SortFunc(out, func(a, b *queries.PoolAvailability) int {
		if a.Kind != b.Kind {
			return strings.Compare(a.Kind, b.Kind)
		}
		return strings.Compare(a.Scope, b.Scope)
	})
	return out, nil
}

func (s *Store) listByTenant(tenantID uuid.UUID, state *string, afterCreatedAt *time.Time, afterID uuid.UUID, limit int32) []*queries.PlacementListItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	var recs []placement.Record
	for _, rec := range s.data.placements {
		if rec.TenantID != tenantID {
			continue
		}
		if state != nil && rec.State.String() != *state {
			continue
		}
		if afterCreatedAt != nil && !before(rec, *afterCreatedAt, afterID) {
			continue
		}
		recs = append(recs, rec)
	}
	// newest first, matching the postgres ordering
	slices.SortFunc(recs, func(a, b placement.Record) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID.String(), a.ID.String())
	})
	if len(recs) > int(limit) {
		recs = recs[:limit]
	}

	items := make([]*queries.PlacementListItem, len(recs))
	for i, rec := range recs {
		items[i] = &queries.PlacementListItem{
			ID:           rec.ID,
			Kind:         rec.Kind.String(),
			Scope:        rec.Scope.String(),
			State:        rec.State.String(),
			PriceMinor:   rec.Price.MinorUnits(),
			Currency:     rec.Price.Currency(),
			DurationDays: rec.DurationDays,
			CreatedAt:    rec.CreatedAt,
			ExpiresAt:    rec.ExpiresAt,
		}
	}
	return items
}

// before reports whether rec sorts strictly after the (createdAt, id) cursor
// in descending order.
func before(rec placement.Record, createdAt time.Time, id uuid.UUID) bool {
	t := rec.CreatedAt.Truncate(time.Microsecond)
	if !t.Equal(createdAt) {
		return t.Before(createdAt)
	}
	return strings.Compare(rec.ID.String(), id.String()) < 0
}

var (
	_ shared.UnitOfWork          = (*Store)(nil)
	_ queries.PlacementReadStore = (*Store)(nil)
)
