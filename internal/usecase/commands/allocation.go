package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"placement-engine/internal/domain/payment"
	"placement-engine/internal/domain/placement"
	"placement-engine/internal/domain/user"
	"placement-engine/internal/infra"
	"placement-engine/internal/pkg/clock"
	"placement-engine/internal/pkg/errs"
	"placement-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

//go:generate mockgen -source=allocation.go -destination=../../../tests/mock/commands/allocation.go -package=commandsmock

const (
	purchaseEndpoint = "POST /api/placements"

	TopicPlacementAssigned = "placement.assigned"
	TopicPlacementApproved = "placement.approved"
	TopicPlacementRejected = "placement.rejected"

	reserveOutcomeReserved   = "reserved"
	reserveOutcomeExhausted  = "exhausted"
	reserveOutcomeContention = "contention"
)

var (
	errCapacityExhausted = errs.New("capacity exhausted")
	// errNoop ends a transition without writing; the caller sees success.
	errNoop = errs.New("no state change")
)

type AllocationCommands interface {
	Purchase(ctx context.Context, actor user.Principal, in PurchaseInput, idempotencyKey *uuid.UUID) (*CheckoutResult, error)
	SubmitForReview(ctx context.Context, actor user.Principal, in SubmissionInput) (*PlacementResult, error)
	PayAssigned(ctx context.Context, actor user.Principal, placementID uuid.UUID, in PayInput) (*CheckoutResult, error)
	ConfirmPayment(ctx context.Context, actor user.Principal, placementID uuid.UUID, intentID string) (*ConfirmResult, error)
	HandlePaymentEvent(ctx context.Context, intentID string) (*ConfirmResult, error)
	AdminAssign(ctx context.Context, actor user.Principal, in AdminAssignInput) (*AllocationResult, error)
	Approve(ctx context.Context, actor user.Principal, placementID uuid.UUID) (*AllocationResult, error)
	Reject(ctx context.Context, actor user.Principal, placementID uuid.UUID, reason string) (*PlacementResult, error)
	RequestNotification(ctx context.Context, actor user.Principal, kind string) (*WaitlistResult, error)
	RecordEngagement(ctx context.Context, actor user.Principal, placementID uuid.UUID, views, clicks int64) (*PlacementResult, error)
}

// SignatureVerifier authenticates gateway webhooks.
type SignatureVerifier interface {
	VerifySignature(body []byte, signature string) bool
}

type PurchaseInput struct {
	Kind             string
	Scope            string
	OwnerID          *uuid.UUID
	DurationDays     int
	ContentURL       *string
	UseCredit        bool
	PaymentMethodRef *string
	JoinWaitlist     bool
}

type SubmissionInput struct {
	Kind         string
	Scope        string
	OwnerID      *uuid.UUID
	DurationDays int
	ContentURL   string
	UseCredit    bool
}

type AdminAssignInput struct {
	TenantID     uuid.UUID
	Kind         string
	Scope        string
	OwnerID      *uuid.UUID
	DurationDays int
	Price        string
	ContentURL   *string
}

type PayInput struct {
	PaymentMethodRef *string
}

type PaymentSession struct {
	IntentID     string
	ClientSecret string
	Status       payment.Status
}

// CheckoutResult: LimitReached is a normal outcome, not an error.
type CheckoutResult struct {
	PlacementID  uuid.UUID
	State        placement.State
	LimitReached bool
	Waitlisted   bool
	Replayed     bool
	Payment      *PaymentSession
	Outcome      payment.Outcome
}

type ConfirmResult struct {
	PlacementID uuid.UUID
	State       placement.State
	Outcome     payment.Outcome
}

type AllocationResult struct {
	PlacementID  uuid.UUID
	State        placement.State
	LimitReached bool
}

type PlacementResult struct {
	PlacementID uuid.UUID
	State       placement.State
}

type WaitlistResult struct {
	Kind    placement.Kind
	Created bool
}

type AllocationSettings struct {
	StaleRetries   int
	IdempotencyTTL time.Duration
}

// AllocationService is the only writer of capacity pools. Every path that
// takes a placement out of a reserving state releases inside the same
// transaction as the state change.
type AllocationService struct {
	uow            shared.UnitOfWork
	payments       *PaymentCoordinator
	waitlist       *WaitlistNotifier
	catalog        OwnerCatalog
	notifier       Notifier
	metrics        AllocationMetrics
	services       *placement.Services
	clock          clock.Clock
	staleRetries   int
	idempotencyTTL time.Duration
}

func NewAllocationService(
	uow shared.UnitOfWork,
	payments *PaymentCoordinator,
	waitlist *WaitlistNotifier,
	catalog OwnerCatalog,
	notifier Notifier,
	metrics AllocationMetrics,
	services *placement.Services,
	settings AllocationSettings,
) *AllocationService {
	ttl := settings.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AllocationService{
		uow:            uow,
		payments:       payments,
		waitlist:       waitlist,
		catalog:        catalog,
		notifier:       notifier,
		metrics:        metrics,
		services:       services,
		clock:          services.Clock,
		staleRetries:   max(settings.StaleRetries, 0),
		idempotencyTTL: ttl,
	}
}

// ================================================================================
// Purchase
// ================================================================================

func (s *AllocationService) Purchase(ctx context.Context, actor user.Principal, in PurchaseInput, idempotencyKey *uuid.UUID) (*CheckoutResult, error) {
	draft, err := s.draft(ctx, actor.TenantID, placement.OriginPurchase, in.Kind, in.Scope, in.OwnerID, in.DurationDays, nil, in.ContentURL)
	if err != nil {
		return nil, err
	}

	if idempotencyKey != nil {
		replay, idemErr := s.beginIdempotent(ctx, *idempotencyKey, actor.TenantID, hashRequest(actor.TenantID, in))
		if idemErr != nil {
			return nil, idemErr
		}
		if replay != nil {
			return replay, nil
		}
	}

	p, err := s.reserveAndCreate(ctx, draft, idempotencyKey, func(ctx context.Context, tx shared.Tx, p *placement.Placement, now time.Time) error {
		if in.UseCredit {
			ok, debitErr := tx.Credits().Debit(ctx, p.TenantID(), p.Kind())
			if debitErr != nil {
				return debitErr
			}
			if !ok {
				return ErrNoCredit
			}
			return p.Activate(now)
		}
		if p.Price().IsZero() {
			return p.Activate(now)
		}
		return p.BeginPayment(now)
	})
	if err != nil {
		if idempotencyKey != nil {
			s.forgetIdempotencyKey(ctx, *idempotencyKey, actor.TenantID)
		}
		if errors.Is(err, errCapacityExhausted) {
			return s.limitReached(ctx, actor.TenantID, draft.Kind(), in.JoinWaitlist), nil
		}
		return nil, err
	}

	slog.Info("placement reserved",
		"placement_id", p.ID().String(),
		"tenant_id", p.TenantID().String(),
		"kind", p.Kind().String(),
		"pool_scope", p.PoolScope().String(),
		"state", p.State().String())

	if p.State() == placement.StateActive {
		return &CheckoutResult{PlacementID: p.ID(), State: p.State()}, nil
	}
	return s.checkout(ctx, p, in.PaymentMethodRef)
}

func (s *AllocationService) SubmitForReview(ctx context.Context, actor user.Principal, in SubmissionInput) (*PlacementResult, error) {
	contentURL := strings.TrimSpace(in.ContentURL)
	if contentURL == "" {
		return nil, errs.Mark(errs.New("content url is required for review"), ErrValidation)
	}
	draft, err := s.draft(ctx, actor.TenantID, placement.OriginSubmission, in.Kind, in.Scope, in.OwnerID, in.DurationDays, nil, &contentURL)
	if err != nil {
		return nil, err
	}

	record := draft.Record()
	var created *placement.Placement
	err = s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		p := placement.ReconstructPlacement(record)
		if in.UseCredit {
			ok, debitErr := tx.Credits().Debit(ctx, p.TenantID(), p.Kind())
			if debitErr != nil {
				return debitErr
			}
			if !ok {
				return ErrNoCredit
			}
		}
		if txErr := p.SubmitForReview(s.clock.Now()); txErr != nil {
			return txErr
		}
		if txErr := tx.Placements().Create(ctx, p); txErr != nil {
			return txErr
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	s.metrics.ObserveTransition(placement.StateDraft, created.State())
	return &PlacementResult{PlacementID: created.ID(), State: created.State()}, nil
}

// ================================================================================
// Payment
// ================================================================================

// PayAssigned starts checkout for an admin-assigned placement, or restarts it
// for a placement already waiting on payment.
func (s *AllocationService) PayAssigned(ctx context.Context, actor user.Principal, placementID uuid.UUID, in PayInput) (*CheckoutResult, error) {
	p, err := s.loadOwned(ctx, actor, placementID)
	if err != nil {
		return nil, err
	}

	switch p.State() {
	case placement.StateAssigned:
	case placement.StatePendingPayment:
		if resumed, resumeErr := s.resumeCheckout(ctx, p, in); resumeErr != nil || resumed != nil {
			return resumed, resumeErr
		}
	default:
		return nil, errs.Mark(placement.ErrInvalidTransition, ErrInvalidState)
	}

	updated, err := s.transition(ctx, placementID, func(_ context.Context, _ shared.Tx, cur *placement.Placement, now time.Time) error {
		if beginErr := cur.BeginPayment(now); beginErr != nil {
			return beginErr
		}
		if cur.Price().IsZero() {
			return cur.Activate(now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if updated.State() == placement.StateActive {
		return &CheckoutResult{PlacementID: updated.ID(), State: updated.State()}, nil
	}
	return s.checkout(ctx, updated, in.PaymentMethodRef)
}

// resumeCheckout looks at the open intent before a new one is created so a
// payment that already went through is not charged twice.
func (s *AllocationService) resumeCheckout(ctx context.Context, p *placement.Placement, in PayInput) (*CheckoutResult, error) {
	if p.PaymentRef() == nil {
		return nil, nil
	}
	intent, err := s.payments.Reconcile(ctx, *p.PaymentRef())
	if err != nil {
		if errors.Is(err, ErrGatewayUnavailable) {
			return nil, &CheckoutUnavailableError{PlacementID: p.ID(), Err: err}
		}
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	switch intent.Status.Outcome() {
	case payment.OutcomeSucceeded:
		res, applyErr := s.applyOutcome(ctx, p.ID(), intent.ID, payment.OutcomeSucceeded)
		if applyErr != nil {
			return nil, applyErr
		}
		return &CheckoutResult{PlacementID: res.PlacementID, State: res.State, Outcome: res.Outcome, Payment: session(intent)}, nil
	case payment.OutcomeFailed:
		// the slot goes back to the pool; a new attempt has to win tryReserve again
		res, applyErr := s.applyOutcome(ctx, p.ID(), intent.ID, payment.OutcomeFailed)
		if applyErr != nil {
			return nil, applyErr
		}
		return &CheckoutResult{PlacementID: res.PlacementID, State: res.State, Outcome: res.Outcome, Payment: session(intent)}, nil
	case payment.OutcomePending:
		if in.PaymentMethodRef != nil {
			return nil, nil
		}
		return &CheckoutResult{PlacementID: p.ID(), State: p.State(), Outcome: payment.OutcomePending, Payment: session(intent)}, nil
	default:
		return nil, nil
	}
}

func (s *AllocationService) ConfirmPayment(ctx context.Context, actor user.Principal, placementID uuid.UUID, intentID string) (*ConfirmResult, error) {
	if strings.TrimSpace(intentID) == "" {
		return nil, errs.Mark(payment.ErrMissingIntent, ErrValidation)
	}
	if _, err := s.loadOwned(ctx, actor, placementID); err != nil {
		return nil, err
	}

	intent, err := s.payments.Reconcile(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if intent.PlacementID != placementID {
		return nil, errs.Mark(errs.New("intent does not belong to placement"), ErrNotFound)
	}
	return s.applyOutcome(ctx, placementID, intent.ID, intent.Status.Outcome())
}

// HandlePaymentEvent is the webhook path. The event only names the intent;
// its status is re-read from the gateway.
func (s *AllocationService) HandlePaymentEvent(ctx context.Context, intentID string) (*ConfirmResult, error) {
	if strings.TrimSpace(intentID) == "" {
		return nil, errs.Mark(payment.ErrMissingIntent, ErrValidation)
	}
	intent, err := s.payments.Reconcile(ctx, intentID)
	if err != nil {
		return nil, err
	}
	return s.applyOutcome(ctx, intent.PlacementID, intent.ID, intent.Status.Outcome())
}

func (s *AllocationService) checkout(ctx context.Context, p *placement.Placement, paymentMethodRef *string) (*CheckoutResult, error) {
	var (
		intent *payment.Intent
		err    error
	)
	if paymentMethodRef != nil {
		intent, err = s.payments.ChargeSaved(ctx, p, *paymentMethodRef)
	} else {
		intent, err = s.payments.CreateIntent(ctx, p)
	}
	if err != nil {
		if errors.Is(err, ErrGatewayUnavailable) {
			slog.Warn("checkout left pending, gateway unavailable",
				"placement_id", p.ID().String(),
				"error", err.Error())
			return nil, &CheckoutUnavailableError{PlacementID: p.ID(), Err: err}
		}
		return nil, err
	}

	updated, err := s.transition(ctx, p.ID(), func(_ context.Context, _ shared.Tx, cur *placement.Placement, now time.Time) error {
		if cur.State() != placement.StatePendingPayment || cur.HasPaymentRef(intent.ID) {
			return errNoop
		}
		return cur.AttachPaymentRef(intent.ID, now)
	})
	if err != nil {
		return nil, err
	}

	result := &CheckoutResult{
		PlacementID: updated.ID(),
		State:       updated.State(),
		Payment:     session(intent),
		Outcome:     intent.Status.Outcome(),
	}
	if intent.Status.IsFinal() {
		confirmed, applyErr := s.applyOutcome(ctx, p.ID(), intent.ID, intent.Status.Outcome())
		if applyErr != nil {
			return nil, applyErr
		}
		result.State = confirmed.State
	}
	return result, nil
}

// applyOutcome is idempotent: replays of the same outcome leave the placement as is.
func (s *AllocationService) applyOutcome(ctx context.Context, placementID uuid.UUID, intentID string, outcome payment.Outcome) (*ConfirmResult, error) {
	s.metrics.ObservePaymentOutcome(outcome)

	p, err := s.transition(ctx, placementID, func(_ context.Context, _ shared.Tx, cur *placement.Placement, now time.Time) error {
		switch outcome {
		case payment.OutcomeSucceeded:
			switch {
			case cur.State() == placement.StatePendingPayment:
				if !cur.HasPaymentRef(intentID) {
					if attachErr := cur.AttachPaymentRef(intentID, now); attachErr != nil {
						return attachErr
					}
				}
				return cur.Activate(now)
			case cur.State() == placement.StateActive && cur.HasPaymentRef(intentID):
				return errNoop
			default:
				slog.Warn("payment succeeded for placement that cannot activate, refund required",
					"placement_id", cur.ID().String(),
					"intent_id", intentID,
					"state", cur.State().String())
				return errNoop
			}
		case payment.OutcomeFailed:
			if cur.State() == placement.StatePendingPayment && (cur.PaymentRef() == nil || cur.HasPaymentRef(intentID)) {
				return cur.Cancel(now)
			}
			return errNoop
		default:
			return errNoop
		}
	})
	if err != nil {
		return nil, err
	}
	return &ConfirmResult{PlacementID: p.ID(), State: p.State(), Outcome: outcome}, nil
}

// ================================================================================
// Administration
// ================================================================================

func (s *AllocationService) AdminAssign(ctx context.Context, actor user.Principal, in AdminAssignInput) (*AllocationResult, error) {
	if !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}
	price, err := placement.ParseMoney(in.Price, s.services.Policy.Currency)
	if err != nil {
		return nil, errs.Mark(err, ErrValidation)
	}
	draft, err := s.draft(ctx, in.TenantID, placement.OriginAdminAssign, in.Kind, in.Scope, in.OwnerID, in.DurationDays, &price, in.ContentURL)
	if err != nil {
		return nil, err
	}

	p, err := s.reserveAndCreate(ctx, draft, nil, func(_ context.Context, _ shared.Tx, p *placement.Placement, now time.Time) error {
		return p.Assign(now)
	})
	if err != nil {
		if errors.Is(err, errCapacityExhausted) {
			return &AllocationResult{LimitReached: true}, nil
		}
		return nil, err
	}

	slog.Info("placement assigned by admin",
		"placement_id", p.ID().String(),
		"tenant_id", p.TenantID().String(),
		"admin_id", actor.UserID.String(),
		"price", p.Price().String())
	s.notify(ctx, Notification{
		TenantID: p.TenantID(),
		Topic:    TopicPlacementAssigned,
		Payload: map[string]any{
			"placement_id":  p.ID().String(),
			"kind":          p.Kind().String(),
			"price":         p.Price().Amount().StringFixed(2),
			"currency":      p.Price().Currency(),
			"duration_days": p.DurationDays(),
		},
	})
	return &AllocationResult{PlacementID: p.ID(), State: p.State()}, nil
}

// Approve reserves at approval time; pending_review holds no capacity.
func (s *AllocationService) Approve(ctx context.Context, actor user.Principal, placementID uuid.UUID) (*AllocationResult, error) {
	if !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}

	var (
		reserved bool
		kind     placement.Kind
	)
	p, err := s.transition(ctx, placementID, func(ctx context.Context, tx shared.Tx, cur *placement.Placement, now time.Time) error {
		reserved = false
		kind = cur.Kind()
		if cur.State() == placement.StateActive && cur.ApprovedAt() != nil {
			return errNoop
		}
		if cur.State() != placement.StatePendingReview {
			return placement.ErrInvalidTransition
		}
		poolScope, resolveErr := tx.Capacity().ResolvePool(ctx, cur.Kind(), cur.Scope())
		if resolveErr != nil {
			if infra.IsKind(resolveErr, infra.KindNotFound) {
				return errs.Mark(resolveErr, ErrNoPool)
			}
			return resolveErr
		}
		ok, reserveErr := tx.Capacity().TryReserve(ctx, cur.Kind(), poolScope)
		if reserveErr != nil {
			return reserveErr
		}
		if !ok {
			return errCapacityExhausted
		}
		if holdErr := cur.HoldReservation(poolScope, now); holdErr != nil {
			return holdErr
		}
		reserved = true
		return cur.Activate(now)
	})
	if err != nil {
		if errors.Is(err, errCapacityExhausted) || errors.Is(err, shared.ErrContention) {
			s.observeExhausted(kind, err)
			return &AllocationResult{PlacementID: placementID, State: placement.StatePendingReview, LimitReached: true}, nil
		}
		return nil, err
	}
	if reserved {
		s.metrics.ObserveReservation(p.Kind(), reserveOutcomeReserved)
		s.notify(ctx, Notification{
			TenantID: p.TenantID(),
			Topic:    TopicPlacementApproved,
			Payload:  map[string]any{"placement_id": p.ID().String(), "expires_at": p.ExpiresAt()},
		})
	}
	return &AllocationResult{PlacementID: p.ID(), State: p.State()}, nil
}

func (s *AllocationService) Reject(ctx context.Context, actor user.Principal, placementID uuid.UUID, reason string) (*PlacementResult, error) {
	if !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}
	reason = strings.TrimSpace(reason)

	var changed bool
	p, err := s.transition(ctx, placementID, func(_ context.Context, _ shared.Tx, cur *placement.Placement, now time.Time) error {
		changed = false
		if cur.State() == placement.StateRejected {
			return errNoop
		}
		if rejectErr := cur.Reject(reason, now); rejectErr != nil {
			return rejectErr
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.notify(ctx, Notification{
			TenantID: p.TenantID(),
			Topic:    TopicPlacementRejected,
			Payload:  map[string]any{"placement_id": p.ID().String(), "reason": reason},
		})
	}
	return &PlacementResult{PlacementID: p.ID(), State: p.State()}, nil
}

func (s *AllocationService) RecordEngagement(ctx context.Context, actor user.Principal, placementID uuid.UUID, views, clicks int64) (*PlacementResult, error) {
	if !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}
	p, err := s.transition(ctx, placementID, func(_ context.Context, _ shared.Tx, cur *placement.Placement, now time.Time) error {
		return cur.RecordEngagement(views, clicks, now)
	})
	if err != nil {
		return nil, err
	}
	return &PlacementResult{PlacementID: p.ID(), State: p.State()}, nil
}

func (s *AllocationService) RequestNotification(ctx context.Context, actor user.Principal, kind string) (*WaitlistResult, error) {
	k, err := placement.NewKind(kind)
	if err != nil {
		return nil, errs.Mark(err, ErrValidation)
	}
	created, err := s.waitlist.Enqueue(ctx, actor.TenantID, k)
	if err != nil {
		return nil, err
	}
	return &WaitlistResult{Kind: k, Created: created}, nil
}

// ================================================================================
// Lifecycle (sweeper)
// ================================================================================

func (s *AllocationService) ExpiredIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var txErr error
		ids, txErr = tx.Placements().ListExpired(ctx, now, limit)
		return txErr
	})
	if err != nil {
		return nil, classify(err)
	}
	return ids, nil
}

func (s *AllocationService) AbandonedIDs(ctx context.Context, state placement.State, before time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var txErr error
		ids, txErr = tx.Placements().ListAbandoned(ctx, state, before, limit)
		return txErr
	})
	if err != nil {
		return nil, classify(err)
	}
	return ids, nil
}

// Expire is safe to run concurrently for the same id; only one caller wins the CAS.
func (s *AllocationService) Expire(ctx context.Context, placementID uuid.UUID) (bool, error) {
	var expired bool
	_, err := s.transition(ctx, placementID, func(_ context.Context, _ shared.Tx, cur *placement.Placement, now time.Time) error {
		expired = false
		if !cur.IsExpiredAt(now) {
			return errNoop
		}
		if expireErr := cur.Expire(now); expireErr != nil {
			return expireErr
		}
		expired = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return expired, nil
}

// CancelAbandoned closes a checkout (or unpaid assignment) open since before
// cutoff. A checkout whose intent actually succeeded is activated instead.
func (s *AllocationService) CancelAbandoned(ctx context.Context, placementID uuid.UUID, cutoff time.Time) (bool, error) {
	p, err := s.uow.CommandReads().PlacementByID(ctx, placementID)
	if err != nil {
		return false, classify(err)
	}
	if p.State() == placement.StatePendingPayment && p.PaymentRef() != nil {
		intent, reconcileErr := s.payments.Reconcile(ctx, *p.PaymentRef())
		switch {
		case reconcileErr == nil && intent.Status.Outcome() == payment.OutcomeSucceeded:
			_, applyErr := s.applyOutcome(ctx, placementID, intent.ID, payment.OutcomeSucceeded)
			return false, applyErr
		case errors.Is(reconcileErr, ErrGatewayUnavailable):
			return false, reconcileErr
		}
	}

	var cancelled bool
	_, err = s.transition(ctx, placementID, func(_ context.Context, _ shared.Tx, cur *placement.Placement, now time.Time) error {
		cancelled = false
		if !cur.AbandonedBefore(cutoff) {
			return errNoop
		}
		if cancelErr := cur.Cancel(now); cancelErr != nil {
			return cancelErr
		}
		cancelled = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return cancelled, nil
}

func (s *AllocationService) PurgeIdempotencyKeys(ctx context.Context, now time.Time) (int64, error) {
	var purged int64
	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var txErr error
		purged, txErr = tx.Idempotency().DeleteExpired(ctx, now)
		return txErr
	})
	if err != nil {
		return 0, classify(err)
	}
	return purged, nil
}

type PoolDefinition struct {
	Kind      string
	Scope     string
	MaxActive int
}

// ProvisionPools creates missing pools and updates limits of existing ones.
// Active counts are never touched.
func (s *AllocationService) ProvisionPools(ctx context.Context, defs []PoolDefinition) error {
	type parsed struct {
		kind  placement.Kind
		scope placement.Scope
		max   int
	}
	pools := make([]parsed, 0, len(defs))
	for _, d := range defs {
		kind, err := placement.NewKind(d.Kind)
		if err != nil {
			return errs.Mark(err, ErrValidation)
		}
		scope, err := placement.NewScope(d.Scope)
		if err != nil {
			return errs.Mark(err, ErrValidation)
		}
		if d.MaxActive < 0 {
			return errs.Mark(errs.New("max active cannot be negative"), ErrValidation)
		}
		pools = append(pools, parsed{kind: kind, scope: scope, max: d.MaxActive})
	}

	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		for _, p := range pools {
			if err := tx.Capacity().Provision(ctx, p.kind, p.scope, p.max); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return classify(err)
	}
	slog.Info("capacity pools provisioned", "count", len(pools))
	return nil
}

// ================================================================================
// Internals
// ================================================================================

type mutator func(ctx context.Context, tx shared.Tx, p *placement.Placement, now time.Time) error

// reserveAndCreate runs the reservation and the insert in one transaction.
// The draft is rebuilt on every attempt so store retries start clean.
func (s *AllocationService) reserveAndCreate(ctx context.Context, draft *placement.Placement, idempotencyKey *uuid.UUID, mutate mutator) (*placement.Placement, error) {
	record := draft.Record()
	var created *placement.Placement

	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := s.clock.Now()
		p := placement.ReconstructPlacement(record)

		poolScope, err := tx.Capacity().ResolvePool(ctx, p.Kind(), p.Scope())
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, ErrNoPool)
			}
			return err
		}
		ok, err := tx.Capacity().TryReserve(ctx, p.Kind(), poolScope)
		if err != nil {
			return err
		}
		if !ok {
			return errCapacityExhausted
		}
		if err = p.HoldReservation(poolScope, now); err != nil {
			return err
		}
		if err = mutate(ctx, tx, p, now); err != nil {
			return err
		}
		if err = tx.Placements().Create(ctx, p); err != nil {
			return err
		}
		if idempotencyKey != nil {
			if err = tx.Idempotency().MarkCompleted(ctx, *idempotencyKey, p.TenantID(), p.ID()); err != nil {
				return err
			}
		}
		created = p
		return nil
	})

	switch {
	case err == nil:
		s.metrics.ObserveReservation(created.Kind(), reserveOutcomeReserved)
		s.metrics.ObserveTransition(placement.StateDraft, created.State())
		return created, nil
	case errors.Is(err, errCapacityExhausted), errors.Is(err, shared.ErrContention):
		s.observeExhausted(draft.Kind(), err)
		slog.Info("capacity exhausted",
			"tenant_id", draft.TenantID().String(),
			"kind", draft.Kind().String(),
			"scope", draft.Scope().String())
		return nil, errCapacityExhausted
	default:
		return nil, classify(err)
	}
}

// transition applies mutate under compare-and-swap, retrying stale reads.
func (s *AllocationService) transition(ctx context.Context, placementID uuid.UUID, mutate mutator) (*placement.Placement, error) {
	var lastErr error
	for attempt := 0; attempt <= s.staleRetries; attempt++ {
		p, from, released, err := s.transitionOnce(ctx, placementID, mutate)
		if err == nil {
			if p.State() != from {
				s.metrics.ObserveTransition(from, p.State())
				slog.Info("placement transitioned",
					"placement_id", p.ID().String(),
					"from", from.String(),
					"to", p.State().String())
			}
			if released {
				s.afterRelease(ctx, p)
			}
			return p, nil
		}
		if !errors.Is(err, shared.ErrStaleState) {
			return nil, classify(err)
		}
		lastErr = err
		slog.Debug("stale placement state, retrying", "placement_id", placementID.String(), "attempt", attempt+1)
	}
	return nil, errs.Mark(lastErr, ErrConflict)
}

func (s *AllocationService) transitionOnce(ctx context.Context, placementID uuid.UUID, mutate mutator) (*placement.Placement, placement.State, bool, error) {
	var (
		result   *placement.Placement
		from     placement.State
		released bool
	)
	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		released = false
		p, err := tx.Reads().PlacementByID(ctx, placementID)
		if err != nil {
			return err
		}
		from = p.State()
		held := p.ReservationHeld()
		version := p.Version()

		if err = mutate(ctx, tx, p, s.clock.Now()); err != nil {
			if errors.Is(err, errNoop) {
				result = p
				return nil
			}
			return err
		}
		if err = tx.Placements().CompareAndSwap(ctx, p, from, version); err != nil {
			return err
		}
		if held && !p.ReservationHeld() {
			if err = tx.Capacity().Release(ctx, p.Kind(), p.PoolScope()); err != nil {
				return err
			}
			released = true
		}
		result = p
		return nil
	})
	return result, from, released, err
}

func (s *AllocationService) afterRelease(ctx context.Context, p *placement.Placement) {
	s.metrics.ObserveRelease(p.Kind())
	slog.Info("capacity released",
		"placement_id", p.ID().String(),
		"kind", p.Kind().String(),
		"pool_scope", p.PoolScope().String(),
		"state", p.State().String())
	s.waitlist.OnCapacityReleased(ctx, p.Kind(), p.PoolScope())
}

func (s *AllocationService) observeExhausted(kind placement.Kind, err error) {
	outcome := reserveOutcomeExhausted
	if errors.Is(err, shared.ErrContention) {
		outcome = reserveOutcomeContention
	}
	s.metrics.ObserveReservation(kind, outcome)
}

func (s *AllocationService) limitReached(ctx context.Context, tenantID uuid.UUID, kind placement.Kind, joinWaitlist bool) *CheckoutResult {
	res := &CheckoutResult{LimitReached: true}
	if !joinWaitlist {
		return res
	}
	if _, err := s.waitlist.Enqueue(ctx, tenantID, kind); err != nil {
		slog.Warn("failed to join waitlist", "tenant_id", tenantID.String(), "kind", kind.String(), "error", err.Error())
		return res
	}
	res.Waitlisted = true
	return res
}

func (s *AllocationService) draft(
	ctx context.Context,
	tenantID uuid.UUID,
	origin placement.Origin,
	kind, scope string,
	ownerID *uuid.UUID,
	durationDays int,
	price *placement.Money,
	contentURL *string,
) (*placement.Placement, error) {
	k, err := placement.NewKind(kind)
	if err != nil {
		return nil, errs.Mark(err, ErrValidation)
	}
	sc, err := placement.NewScope(scope)
	if err != nil {
		return nil, errs.Mark(err, ErrValidation)
	}

	p, err := placement.NewPlacement(s.services, placement.DraftParams{
		TenantID:     tenantID,
		Kind:         k,
		Scope:        sc,
		OwnerID:      ownerID,
		DurationDays: durationDays,
		Origin:       origin,
		Price:        price,
		ContentURL:   contentURL,
	})
	if err != nil {
		return nil, errs.Mark(err, ErrValidation)
	}

	if owner := p.OwnerID(); owner != nil && *owner != tenantID {
		owns, catalogErr := s.catalog.Owns(ctx, tenantID, p.Scope(), *owner)
		if catalogErr != nil {
			return nil, errs.Mark(catalogErr, ErrDatabaseOperation)
		}
		if !owns {
			return nil, errs.Mark(errs.New("owner does not belong to tenant"), ErrUnauthorized)
		}
	}
	return p, nil
}

func (s *AllocationService) loadOwned(ctx context.Context, actor user.Principal, placementID uuid.UUID) (*placement.Placement, error) {
	p, err := s.uow.CommandReads().PlacementByID(ctx, placementID)
	if err != nil {
		return nil, classify(err)
	}
	if !actor.IsAdmin() && p.TenantID() != actor.TenantID {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *AllocationService) notify(ctx context.Context, n Notification) {
	if err := s.notifier.Send(ctx, n); err != nil {
		slog.Warn("failed to send notification", "topic", n.Topic, "tenant_id", n.TenantID.String(), "error", err.Error())
	}
}

// ================================================================================
// Idempotency
// ================================================================================

func (s *AllocationService) beginIdempotent(ctx context.Context, key, tenantID uuid.UUID, requestHash string) (*CheckoutResult, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.idempotencyTTL)

	var owned bool
	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		inserted, err := tx.Idempotency().TryInsert(ctx, key, tenantID, purchaseEndpoint, requestHash, expiresAt)
		if err != nil {
			return err
		}
		if inserted {
			owned = true
			return nil
		}
		owned, err = tx.Idempotency().ClaimExpired(ctx, key, tenantID, requestHash, now, expiresAt)
		return err
	})
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}
	if owned {
		return nil, nil
	}

	existing, err := s.uow.CommandReads().IdempotencyByKey(ctx, key, tenantID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrIdempotencyInProgress
		}
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}
	if existing.RequestHash != requestHash {
		return nil, ErrIdempotencyKeyReuse
	}

	switch existing.Status {
	case shared.IdempotencyStatusCompleted:
		if existing.ResultPlacementID == nil {
			return nil, errs.New("completed request missing result placement ID")
		}
		return s.replay(ctx, *existing.ResultPlacementID)
	case shared.IdempotencyStatusProcessing:
		return nil, ErrIdempotencyInProgress
	default:
		return nil, errs.New("invalid idempotency key status")
	}
}

func (s *AllocationService) replay(ctx context.Context, placementID uuid.UUID) (*CheckoutResult, error) {
	reads := s.uow.CommandReads()
	p, err := reads.PlacementByID(ctx, placementID)
	if err != nil {
		return nil, classify(err)
	}
	res := &CheckoutResult{PlacementID: p.ID(), State: p.State(), Replayed: true}

	intent, err := reads.LatestIntentForPlacement(ctx, placementID)
	switch {
	case err == nil:
		res.Payment = session(intent)
		res.Outcome = intent.Status.Outcome()
	case infra.IsKind(err, infra.KindNotFound):
	default:
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}
	return res, nil
}

func (s *AllocationService) forgetIdempotencyKey(ctx context.Context, key, tenantID uuid.UUID) {
	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		return tx.Idempotency().Delete(ctx, key, tenantID)
	})
	if err != nil {
		slog.Warn("failed to release idempotency key", "key", key.String(), "error", err.Error())
	}
}

func hashRequest(tenantID uuid.UUID, in PurchaseInput) string {
	data, _ := json.Marshal(struct {
		TenantID uuid.UUID
		Input    PurchaseInput
	}{tenantID, in})
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func session(intent *payment.Intent) *PaymentSession {
	return &PaymentSession{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       intent.Status,
	}
}

var passthrough = []error{
	ErrValidation, ErrNotFound, ErrUnauthorized, ErrConflict, ErrInvalidState,
	ErrGatewayUnavailable, ErrNoCredit, ErrNoPool, ErrDatabaseOperation,
	errCapacityExhausted,
}

var invalidStateErrors = []error{
	placement.ErrInvalidTransition, placement.ErrReservationHeld,
	placement.ErrReservationNotHeld, placement.ErrUnsupportedOrigin,
}

// classify maps store and domain failures onto the command error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range passthrough {
		if errors.Is(err, known) {
			return err
		}
	}
	for _, e := range invalidStateErrors {
		if errors.Is(err, e) {
			return errs.Mark(err, ErrInvalidState)
		}
	}
	switch {
	case errors.Is(err, shared.ErrStaleState), errors.Is(err, shared.ErrContention):
		return errs.Mark(err, ErrConflict)
	case infra.IsKind(err, infra.KindNotFound):
		return errs.Mark(err, ErrNotFound)
	case isDomainValidation(err):
		return errs.Mark(err, ErrValidation)
	default:
		return errs.Mark(err, ErrDatabaseOperation)
	}
}

func isDomainValidation(err error) bool {
	for _, e := range []error{
		placement.ErrNegativeEngagement, placement.ErrEmptyRejectReason, placement.ErrEmptyPaymentRef,
		placement.ErrInvalidDuration, placement.ErrOwnerRequired,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
