package placement

import (
	"errors"
	"slices"
	"time"

	"placement-engine/internal/pkg/clock"

	"github.com/google/uuid"
)

var (
	ErrInvalidKind        = errors.New("invalid placement kind")
	ErrInvalidScope       = errors.New("invalid placement scope")
	ErrInvalidState       = errors.New("invalid placement state")
	ErrInvalidOrigin      = errors.New("invalid placement origin")
	ErrMissingTenant      = errors.New("tenant is required")
	ErrOwnerRequired      = errors.New("scope requires an owner id")
	ErrInvalidDuration    = errors.New("duration is not an allowed package")
	ErrNegativePrice      = errors.New("price cannot be negative")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCurrency    = errors.New("invalid currency")
	ErrCurrencyMismatch   = errors.New("currency does not match the configured currency")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrReservationHeld    = errors.New("reservation already held")
	ErrReservationNotHeld = errors.New("reservation not held")
	ErrNotYetExpired      = errors.New("placement has not reached its expiry")
	ErrNegativeEngagement = errors.New("engagement deltas cannot be negative")
	ErrEmptyRejectReason  = errors.New("rejection reason is required")
	ErrEmptyPaymentRef    = errors.New("payment reference is required")
	ErrUnsupportedOrigin  = errors.New("operation not supported for this origin")
)

type Services struct {
	Clock           clock.Clock
	PriceCalculator PriceCalculator
	Policy          Policy
}

// Policy holds the commercial rules a request is validated against.
type Policy struct {
	AllowedDurations []int
	Currency         string
}

func (p Policy) ValidateDuration(days int) error {
	if days <= 0 || !slices.Contains(p.AllowedDurations, days) {
		return ErrInvalidDuration
	}
	return nil
}

type DraftParams struct {
	TenantID     uuid.UUID
	Kind         Kind
	Scope        Scope
	OwnerID      *uuid.UUID
	DurationDays int
	Origin       Origin
	// Price overrides the calculated quote (admin assignment).
	Price      *Money
	ContentURL *string
}

type Placement struct {
	id               uuid.UUID
	tenantID         uuid.UUID
	kind             Kind
	scope            Scope
	poolScope        Scope
	ownerID          *uuid.UUID
	state            State
	origin           Origin
	price            Money
	durationDays     int
	paymentRef       *string
	contentURL       *string
	rejectionReason  *string
	metrics          Metrics
	reservationHeld  bool
	version          int64
	createdAt        time.Time
	updatedAt        time.Time
	approvedAt       *time.Time
	activatedAt      *time.Time
	expiresAt        *time.Time
	paymentStartedAt *time.Time
}

func NewPlacement(services *Services, params DraftParams) (*Placement, error) {
	if params.TenantID == uuid.Nil {
		return nil, ErrMissingTenant
	}
	if !params.Kind.IsValid() {
		return nil, ErrInvalidKind
	}
	if !params.Scope.IsValid() {
		return nil, ErrInvalidScope
	}
	if !params.Origin.IsValid() {
		return nil, ErrInvalidOrigin
	}
	if err := services.Policy.ValidateDuration(params.DurationDays); err != nil {
		return nil, err
	}

	ownerID := params.OwnerID
	if params.Scope.RequiresOwner() && ownerID == nil {
		return nil, ErrOwnerRequired
	}
	if params.Scope == ScopeDealer && ownerID == nil {
		tenant := params.TenantID
		ownerID = &tenant
	}
	if params.Scope == ScopeGlobal {
		ownerID = nil
	}

	var price Money
	if params.Price != nil {
		price = *params.Price
		if price.Currency() != services.Policy.Currency {
			return nil, ErrCurrencyMismatch
		}
	} else {
		quoted, err := services.PriceCalculator.Quote(params.Kind, params.DurationDays)
		if err != nil {
			return nil, err
		}
		price = quoted
	}

	now := services.Clock.Now()
	return &Placement{
		id:           uuid.New(),
		tenantID:     params.TenantID,
		kind:         params.Kind,
		scope:        params.Scope,
		poolScope:    ScopeGlobal,
		ownerID:      ownerID,
		state:        StateDraft,
		origin:       params.Origin,
		price:        price,
		durationDays: params.DurationDays,
		contentURL:   params.ContentURL,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// Record is the persisted shape of a placement.
type Record struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	Kind             Kind
	Scope            Scope
	PoolScope        Scope
	OwnerID          *uuid.UUID
	State            State
	Origin           Origin
	Price            Money
	DurationDays     int
	PaymentRef       *string
	ContentURL       *string
	RejectionReason  *string
	Metrics          Metrics
	ReservationHeld  bool
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ApprovedAt       *time.Time
	ActivatedAt      *time.Time
	ExpiresAt        *time.Time
	PaymentStartedAt *time.Time
}

func ReconstructPlacement(r Record) *Placement {
	return &Placement{
		id:               r.ID,
		tenantID:         r.TenantID,
		kind:             r.Kind,
		scope:            r.Scope,
		poolScope:        r.PoolScope,
		ownerID:          r.OwnerID,
		state:            r.State,
		origin:           r.Origin,
		price:            r.Price,
		durationDays:     r.DurationDays,
		paymentRef:       r.PaymentRef,
		contentURL:       r.ContentURL,
		rejectionReason:  r.RejectionReason,
		metrics:          r.Metrics,
		reservationHeld:  r.ReservationHeld,
		version:          r.Version,
		createdAt:        r.CreatedAt,
		updatedAt:        r.UpdatedAt,
		approvedAt:       r.ApprovedAt,
		activatedAt:      r.ActivatedAt,
		expiresAt:        r.ExpiresAt,
		paymentStartedAt: r.PaymentStartedAt,
	}
}

func (p *Placement) Record() Record {
	return Record{
		ID:               p.id,
		TenantID:         p.tenantID,
		Kind:             p.kind,
		Scope:            p.scope,
		PoolScope:        p.poolScope,
		OwnerID:          p.ownerID,
		State:            p.state,
		Origin:           p.origin,
		Price:            p.price,
		DurationDays:     p.durationDays,
		PaymentRef:       p.paymentRef,
		ContentURL:       p.contentURL,
		RejectionReason:  p.rejectionReason,
		Metrics:          p.metrics,
		ReservationHeld:  p.reservationHeld,
		Version:          p.version,
		CreatedAt:        p.createdAt,
		UpdatedAt:        p.updatedAt,
		ApprovedAt:       p.approvedAt,
		ActivatedAt:      p.activatedAt,
		ExpiresAt:        p.expiresAt,
		PaymentStartedAt: p.paymentStartedAt,
	}
}

// HoldReservation records that a unit was reserved from the pool (kind, poolScope).
func (p *Placement) HoldReservation(poolScope Scope, now time.Time) error {
	if p.reservationHeld {
		return ErrReservationHeld
	}
	if p.state != StateDraft && p.state != StatePendingReview {
		return ErrInvalidTransition
	}
	p.reservationHeld = true
	p.poolScope = poolScope
	p.updatedAt = now
	return nil
}

func (p *Placement) Assign(now time.Time) error {
	if p.origin != OriginAdminAssign {
		return ErrUnsupportedOrigin
	}
	if !p.reservationHeld {
		return ErrReservationNotHeld
	}
	if err := p.moveTo(StateAssigned); err != nil {
		return err
	}
	p.updatedAt = now
	return nil
}

func (p *Placement) SubmitForReview(now time.Time) error {
	if p.reservationHeld {
		return ErrReservationHeld
	}
	if err := p.moveTo(StatePendingReview); err != nil {
		return err
	}
	p.updatedAt = now
	return nil
}

// BeginPayment opens (or reopens) a checkout. Every new intent restarts the
// abandonment window.
func (p *Placement) BeginPayment(now time.Time) error {
	if !p.reservationHeld {
		return ErrReservationNotHeld
	}
	if err := p.moveTo(StatePendingPayment); err != nil {
		return err
	}
	p.paymentRef = nil
	p.paymentStartedAt = &now
	p.updatedAt = now
	return nil
}

func (p *Placement) AttachPaymentRef(ref string, now time.Time) error {
	if ref == "" {
		return ErrEmptyPaymentRef
	}
	if p.state != StatePendingPayment {
		return ErrInvalidTransition
	}
	p.paymentRef = &ref
	p.updatedAt = now
	return nil
}

func (p *Placement) Activate(now time.Time) error {
	if !p.reservationHeld {
		return ErrReservationNotHeld
	}
	from := p.state
	if err := p.moveTo(StateActive); err != nil {
		return err
	}
	if from == StatePendingReview {
		p.approvedAt = &now
	}
	expires := now.Add(time.Duration(p.durationDays) * 24 * time.Hour)
	p.activatedAt = &now
	p.expiresAt = &expires
	p.updatedAt = now
	return nil
}

func (p *Placement) Cancel(now time.Time) error {
	if err := p.moveTo(StateCancelled); err != nil {
		return err
	}
	p.reservationHeld = false
	p.updatedAt = now
	return nil
}

func (p *Placement) Reject(reason string, now time.Time) error {
	if reason == "" {
		return ErrEmptyRejectReason
	}
	if err := p.moveTo(StateRejected); err != nil {
		return err
	}
	p.rejectionReason = &reason
	p.reservationHeld = false
	p.updatedAt = now
	return nil
}

func (p *Placement) Expire(now time.Time) error {
	if p.state != StateActive {
		return ErrInvalidTransition
	}
	if !p.IsExpiredAt(now) {
		return ErrNotYetExpired
	}
	p.state = StateExpired
	p.reservationHeld = false
	p.updatedAt = now
	return nil
}

func (p *Placement) RecordEngagement(views, clicks int64, now time.Time) error {
	if views < 0 || clicks < 0 {
		return ErrNegativeEngagement
	}
	p.metrics.Views += views
	p.metrics.Clicks += clicks
	p.updatedAt = now
	return nil
}

func (p *Placement) IsExpiredAt(now time.Time) bool {
	return p.state == StateActive && p.expiresAt != nil && !now.Before(*p.expiresAt)
}

// AbandonedBefore reports whether a checkout or an unpaid assignment has been
// open since before cutoff.
func (p *Placement) AbandonedBefore(cutoff time.Time) bool {
	switch p.state {
	case StatePendingPayment:
		started := p.createdAt
		if p.paymentStartedAt != nil {
			started = *p.paymentStartedAt
		}
		return started.Before(cutoff)
	case StateAssigned:
		return p.createdAt.Before(cutoff)
	default:
		return false
	}
}

func (p *Placement) HasPaymentRef(ref string) bool {
	return p.paymentRef != nil && *p.paymentRef == ref
}

func (p *Placement) moveTo(next State) error {
	if !CanTransition(p.state, next) {
		return ErrInvalidTransition
	}
	p.state = next
	return nil
}

func (p *Placement) ID() uuid.UUID                { return p.id }
func (p *Placement) TenantID() uuid.UUID          { return p.tenantID }
func (p *Placement) Kind() Kind                   { return p.kind }
func (p *Placement) Scope() Scope                 { return p.scope }
func (p *Placement) PoolScope() Scope             { return p.poolScope }
func (p *Placement) OwnerID() *uuid.UUID          { return p.ownerID }
func (p *Placement) State() State                 { return p.state }
func (p *Placement) Origin() Origin               { return p.origin }
func (p *Placement) Price() Money                 { return p.price }
func (p *Placement) DurationDays() int            { return p.durationDays }
func (p *Placement) PaymentRef() *string          { return p.paymentRef }
func (p *Placement) ContentURL() *string          { return p.contentURL }
func (p *Placement) RejectionReason() *string     { return p.rejectionReason }
func (p *Placement) Metrics() Metrics             { return p.metrics }
func (p *Placement) ReservationHeld() bool        { return p.reservationHeld }
func (p *Placement) Version() int64               { return p.version }
func (p *Placement) CreatedAt() time.Time         { return p.createdAt }
func (p *Placement) UpdatedAt() time.Time         { return p.updatedAt }
func (p *Placement) ApprovedAt() *time.Time       { return p.approvedAt }
func (p *Placement) ActivatedAt() *time.Time      { return p.activatedAt }
func (p *Placement) ExpiresAt() *time.Time        { return p.expiresAt }
func (p *Placement) PaymentStartedAt() *time.Time { return p.paymentStartedAt }
