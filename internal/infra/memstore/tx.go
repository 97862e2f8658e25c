package memstore

import (
	"context"
	"slices"
	"time"

	"placement-engine/internal/domain/payment"
	"placement-engine/internal/domain/placement"
	"placement-engine/internal/domain/waitlist"
	"placement-engine/internal/infra"
	"placement-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

// memTx operates on the store's live data; the caller holds the mutex.
type memTx struct {
	d *data
}

func (t *memTx) Placements() shared.PlacementRepository        { return (*placementRepo)(t) }
func (t *memTx) Capacity() shared.CapacityRepository           { return (*capacityRepo)(t) }
func (t *memTx) Intents() shared.PaymentIntentRepository       { return (*intentRepo)(t) }
func (t *memTx) Waitlist() shared.WaitlistRepository           { return (*waitlistRepo)(t) }
func (t *memTx) Idempotency() shared.IdempotencyRepository     { return (*idempotencyRepo)(t) }
func (t *memTx) Notifications() shared.NotificationRepository { return (*notificationRepo)(t) }
func (t *memTx) Credits() shared.CreditLedger                  { return (*creditRepo)(t) }
func (t *memTx) Reads() shared.CommandReads                    { return &reads{d: t.d} }

// ================================================================================
// Placements
// ================================================================================

type placementRepo memTx

func (r *placementRepo) Create(_ context.Context, p *placement.Placement) error {
	if _, exists := r.d.placements[p.ID()]; exists {
		return infra.WrapRepoErr("placement already exists", nil, infra.KindDuplicateKey)
	}
	r.d.placements[p.ID()] = p.Record()
	return nil
}

func (r *placementRepo) CompareAndSwap(_ context.Context, p *placement.Placement, expected placement.State, expectedVersion int64) error {
	cur, ok := r.d.placements[p.ID()]
	if !ok || cur.State != expected || cur.Version != expectedVersion {
		return shared.ErrStaleState
	}
	rec := p.Record()
	rec.Version = expectedVersion + 1
	r.d.placements[p.ID()] = rec
	return nil
}

func (r *placementRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	return r.collect(limit, func(rec placement.Record) (time.Time, bool) {
		if rec.State != placement.StateActive || rec.ExpiresAt == nil || now.Before(*rec.ExpiresAt) {
			return time.Time{}, false
		}
		return *rec.ExpiresAt, true
	}), nil
}

func (r *placementRepo) ListAbandoned(_ context.Context, state placement.State, before time.Time, limit int) ([]uuid.UUID, error) {
	if state != placement.StatePendingPayment && state != placement.StateAssigned {
		return nil, infra.WrapRepoErr("abandoned listing not supported for state "+state.String(), nil, infra.KindDBFailure)
	}
	return r.collect(limit, func(rec placement.Record) (time.Time, bool) {
		if rec.State != state {
			return time.Time{}, false
		}
		started := rec.CreatedAt
		if state == placement.StatePendingPayment && rec.PaymentStartedAt != nil {
			started = *rec.PaymentStartedAt
		}
		return started, started.Before(before)
	}), nil
}

func (r *placementRepo) collect(limit int, match func(placement.Record) (time.Time, bool)) []uuid.UUID {
	type hit struct {
		id uuid.UUID
		at time.Time
	}
	var hits []hit
	for _, rec := range r.d.placements {
		if at, ok := match(rec); ok {
			hits = append(hits, hit{rec.ID, at})
		}
	}
	slices.SortFunc(hits, func(a, b hit) int { return a.at.Compare(b.at) })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	ids := make([]uuid.UUID, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	return ids
}

// ================================================================================
// Capacity
// ================================================================================

type capacityRepo memTx

func (r *capacityRepo) Provision(_ context.Context, kind placement.Kind, scope placement.Scope, maxActive int) error {
	k := poolKey{kind, scope}
	p := r.d.pools[k]
	p.maxActive = maxActive
	r.d.pools[k] = p
	return nil
}

func (r *capacityRepo) ResolvePool(_ context.Context, kind placement.Kind, scope placement.Scope) (placement.Scope, error) {
	if _, ok := r.d.pools[poolKey{kind, scope}]; ok {
		return scope, nil
	}
	if _, ok := r.d.pools[poolKey{kind, placement.ScopeGlobal}]; ok {
		return placement.ScopeGlobal, nil
	}
	return "", infra.WrapRepoErr("capacity pool not provisioned for "+kind.String(), nil, infra.KindNotFound)
}

func (r *capacityRepo) TryReserve(_ context.Context, kind placement.Kind, poolScope placement.Scope) (bool, error) {
	k := poolKey{kind, poolScope}
	p, ok := r.d.pools[k]
	if !ok || p.activeCount >= p.maxActive {
		return false, nil
	}
	p.activeCount++
	r.d.pools[k] = p
	return true, nil
}

func (r *capacityRepo) Release(_ context.Context, kind placement.Kind, poolScope placement.Scope) error {
	k := poolKey{kind, poolScope}
	p, ok := r.d.pools[k]
	if !ok {
		return infra.WrapRepoErr("capacity pool missing on release", nil, infra.KindNotFound)
	}
	p.activeCount = max(p.activeCount-1, 0)
	r.d.pools[k] = p
	return nil
}

// ================================================================================
// Payment intents
// ================================================================================

type intentRepo memTx

func (r *intentRepo) Create(_ context.Context, intent *payment.Intent) error {
	if _, exists := r.d.intents[intent.ID]; exists {
		return nil
	}
	r.d.intents[intent.ID] = *intent
	return nil
}

func (r *intentRepo) UpdateStatus(_ context.Context, intentID string, status payment.Status, now time.Time) error {
	intent, ok := r.d.intents[intentID]
	if !ok {
		return infra.WrapRepoErr("payment intent not found", nil, infra.KindNotFound)
	}
	intent.Status = status
	intent.UpdatedAt = now
	r.d.intents[intentID] = intent
	return nil
}

// ================================================================================
// Waitlist
// ================================================================================

type waitlistRepo memTx

func (r *waitlistRepo) Enqueue(_ context.Context, entry *waitlist.Entry) (bool, error) {
	for _, e := range r.d.waitlist {
		if e.TenantID == entry.TenantID && e.Kind == entry.Kind && e.IsPending() {
			return false, nil
		}
	}
	r.d.waitlist = append(r.d.waitlist, *entry)
	return true, nil
}

func (r *waitlistRepo) ClaimPending(_ context.Context, kind placement.Kind, now time.Time) ([]*waitlist.Entry, error) {
	var claimed []*waitlist.Entry
	for i := range r.d.waitlist {
		e := &r.d.waitlist[i]
		if e.Kind != kind || !e.IsPending() {
			continue
		}
		notified := now
		e.NotifiedAt = &notified
		c := *e
		claimed = append(claimed, &c)
	}
	slices.SortStableFunc(claimed, func(a, b *waitlist.Entry) int {
		return a.RequestedAt.Compare(b.RequestedAt)
	})
	return claimed, nil
}

// ================================================================================
// Idempotency
// ================================================================================

type idempotencyRepo memTx

func (r *idempotencyRepo) TryInsert(_ context.Context, key, tenantID uuid.UUID, endpoint, requestHash string, expiresAt time.Time) (bool, error) {
	k := tenantKey{key, tenantID}
	if _, exists := r.d.idempotency[k]; exists {
		return false, nil
	}
	r.d.idempotency[k] = shared.IdempotencyRecord{
		Key:         key,
		TenantID:    tenantID,
		Endpoint:    endpoint,
		Status:      shared.IdempotencyStatusProcessing,
		RequestHash: requestHash,
		ExpiresAt:   expiresAt,
	}
	return true, nil
}

func (r *idempotencyRepo) ClaimExpired(_ context.Context, key, tenantID uuid.UUID, requestHash string, now, expiresAt time.Time) (bool, error) {
	k := tenantKey{key, tenantID}
	rec, ok := r.d.idempotency[k]
	if !ok || rec.RequestHash != requestHash || !rec.IsExpiredAt(now) {
		return false, nil
	}
	rec.Status = shared.IdempotencyStatusProcessing
	rec.ResultPlacementID = nil
	rec.ExpiresAt = expiresAt
	r.d.idempotency[k] = rec
	return true, nil
}

func (r *idempotencyRepo) MarkCompleted(_ context.Context, key, tenantID uuid.UUID, resultPlacementID uuid.UUID) error {
	k := tenantKey{key, tenantID}
	rec, ok := r.d.idempotency[k]
	if !ok {
		return nil
	}
	rec.Status = shared.IdempotencyStatusCompleted
	rec.ResultPlacementID = &resultPlacementID
	r.d.idempotency[k] = rec
	return nil
}

func (r *idempotencyRepo) Delete(_ context.Context, key, tenantID uuid.UUID) error {
	delete(r.d.idempotency, tenantKey{key, tenantID})
	return nil
}

func (r *idempotencyRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for k, rec := range r.d.idempotency {
		if rec.IsExpiredAt(now) {
			delete(r.d.idempotency, k)
			n++
		}
	}
	return n, nil
}

// ================================================================================
// Outbox and credits
// ================================================================================

type notificationRepo memTx

func (r *notificationRepo) CreateJob(_ context.Context, kind, topic string, payload []byte, runAt time.Time) error {
	r.d.jobs = append(r.d.jobs, NotificationJob{Kind: kind, Topic: topic, Payload: slices.Clone(payload), RunAt: runAt})
	return nil
}

type creditRepo memTx

func (r *creditRepo) Debit(_ context.Context, tenantID uuid.UUID, kind placement.Kind) (bool, error) {
	k := creditKey{tenantID, kind}
	if r.d.credits[k] <= 0 {
		return false, nil
	}
	r.d.credits[k]--
	return true, nil
}

func (r *creditRepo) Grant(_ context.Context, tenantID uuid.UUID, kind placement.Kind, amount int) error {
	r.d.credits[creditKey{tenantID, kind}] += amount
	return nil
}

// ================================================================================
// Command reads
// ================================================================================

type reads struct {
	d *data
}

func (r *reads) PlacementByID(_ context.Context, id uuid.UUID) (*placement.Placement, error) {
	rec, ok := r.d.placements[id]
	if !ok {
		return nil, infra.WrapRepoErr("placement not found", nil, infra.KindNotFound)
	}
	return placement.ReconstructPlacement(rec), nil
}

func (r *reads) IntentByID(_ context.Context, intentID string) (*payment.Intent, error) {
	intent, ok := r.d.intents[intentID]
	if !ok {
		return nil, infra.WrapRepoErr("payment intent not found", nil, infra.KindNotFound)
	}
	return &intent, nil
}

func (r *reads) LatestIntentForPlacement(_ context.Context, placementID uuid.UUID) (*payment.Intent, error) {
	var latest *payment.Intent
	for _, intent := range r.d.intents {
		if intent.PlacementID != placementID {
			continue
		}
		if latest == nil || intent.CreatedAt.After(latest.CreatedAt) {
			it := intent
			latest = &it
		}
	}
	if latest == nil {
		return nil, infra.WrapRepoErr("no payment intent for placement", nil, infra.KindNotFound)
	}
	return latest, nil
}

func (r *reads) IdempotencyByKey(_ context.Context, key, tenantID uuid.UUID) (*shared.IdempotencyRecord, error) {
	rec, ok := r.d.idempotency[tenantKey{key, tenantID}]
	if !ok {
		return nil, infra.WrapRepoErr("idempotency key not found", nil, infra.KindNotFound)
	}
	return &rec, nil
}

// lockedReads serves reads outside a unit of work.
type lockedReads struct {
	s *Store
}

func (l *lockedReads) PlacementByID(ctx context.Context, id uuid.UUID) (*placement.Placement, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return (&reads{d: l.s.data}).PlacementByID(ctx, id)
}

func (l *lockedReads) IntentByID(ctx context.Context, intentID string) (*payment.Intent, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return (&reads{d: l.s.data}).IntentByID(ctx, intentID)
}

func (l *lockedReads) LatestIntentForPlacement(ctx context.Context, placementID uuid.UUID) (*payment.Intent, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return (&reads{d: l.s.data}).LatestIntentForPlacement(ctx, placementID)
}

func (l *lockedReads) IdempotencyByKey(ctx context.Context, key, tenantID uuid.UUID) (*shared.IdempotencyRecord, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return (&reads{d: l.s.data}).IdempotencyByKey(ctx, key, tenantID)
}
