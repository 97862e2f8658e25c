//go:build unit || e2e

package builder

import (
	"time"

	"placement-engine/internal/domain/payment"
	"placement-engine/internal/domain/placement"
	reqdto "placement-engine/internal/handler/dto/request"
	"placement-engine/internal/usecase/commands"
	"placement-engine/internal/usecase/queries"

	"github.com/google/uuid"
)

type PlacementBuilder struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Kind         placement.Kind
	Scope        placement.Scope
	OwnerID      *uuid.UUID
	State        placement.State
	Origin       placement.Origin
	PriceMinor   int64
	Currency     string
	DurationDays int
	ContentURL   *string
	PaymentRef   *string
	Held         bool
	CreatedAt    time.Time
	ActivatedAt  *time.Time
}

func NewPlacementBuilder() *PlacementBuilder {
	url := "https://cdn.example.com/banners/spring.png"
	return &PlacementBuilder{
		ID:           uuid.New(),
		TenantID:     uuid.New(),
		Kind:         placement.KindBanner,
		Scope:        placement.ScopeGlobal,
		State:        placement.StatePendingPayment,
		Origin:       placement.OriginPurchase,
		PriceMinor:   6993,
		Currency:     "USD",
		DurationDays: 7,
		ContentURL:   &url,
		Held:         true,
		CreatedAt:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (b *PlacementBuilder) With(mutate func(*PlacementBuilder)) *PlacementBuilder {
	mutate(b)
	return b
}

func (b *PlacementBuilder) Active(at time.Time) *PlacementBuilder {
	b.State = placement.StateActive
	b.ActivatedAt = &at
	return b
}

// Build methods
func (b *PlacementBuilder) BuildRecord() placement.Record {
	price, err := placement.MoneyFromMinor(b.PriceMinor, b.Currency)
	if err != nil {
		panic(err)
	}
	rec := placement.Record{
		ID:           b.ID,
		TenantID:     b.TenantID,
		Kind:         b.Kind,
		Scope:        b.Scope,
		PoolScope:    placement.ScopeGlobal,
		OwnerID:      b.OwnerID,
		State:        b.State,
		Origin:       b.Origin,
		Price:        price,
		DurationDays: b.DurationDays,
		PaymentRef:   b.PaymentRef,
		ContentURL:   b.ContentURL,
		Version:      1,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.CreatedAt,
	}
	rec.ReservationHeld = b.Held
	if b.ActivatedAt != nil {
		expires := b.ActivatedAt.Add(time.Duration(b.DurationDays) * 24 * time.Hour)
		rec.ActivatedAt = b.ActivatedAt
		rec.ExpiresAt = &expires
	}
	return rec
}

func (b *PlacementBuilder) BuildDomain() *placement.Placement {
	return placement.ReconstructPlacement(b.BuildRecord())
}

func (b *PlacementBuilder) BuildView() *queries.PlacementView {
	return queries.NewPlacementView(b.BuildRecord())
}

func (b *PlacementBuilder) BuildListItem() *queries.PlacementListItem {
	v := b.BuildView()
	return &queries.PlacementListItem{
		ID:           v.ID,
		Kind:         v.Kind,
		Scope:        v.Scope,
		State:        v.State,
		PriceMinor:   v.PriceMinor,
		Currency:     v.Currency,
		DurationDays: v.DurationDays,
		CreatedAt:    v.CreatedAt,
		ExpiresAt:    v.ExpiresAt,
	}
}

func (b *PlacementBuilder) BuildPurchaseRequestDTO() reqdto.PurchasePlacementRequest {
	return reqdto.PurchasePlacementRequest{
		Kind:         b.Kind.String(),
		Scope:        b.Scope.String(),
		OwnerID:      b.OwnerID,
		DurationDays: b.DurationDays,
		ContentURL:   b.ContentURL,
	}
}

func (b *PlacementBuilder) BuildSubmitRequestDTO() reqdto.SubmitPlacementRequest {
	url := ""
	if b.ContentURL != nil {
		url = *b.ContentURL
	}
	return reqdto.SubmitPlacementRequest{
		Kind:         b.Kind.String(),
		Scope:        b.Scope.String(),
		OwnerID:      b.OwnerID,
		DurationDays: b.DurationDays,
		ContentURL:   url,
	}
}

func (b *PlacementBuilder) BuildAssignRequestDTO(price string) reqdto.AdminAssignRequest {
	return reqdto.AdminAssignRequest{
		TenantID:     b.TenantID,
		Kind:         b.Kind.String(),
		Scope:        b.Scope.String(),
		OwnerID:      b.OwnerID,
		DurationDays: b.DurationDays,
		Price:        price,
		ContentURL:   b.ContentURL,
	}
}

func (b *PlacementBuilder) BuildPurchaseInput() commands.PurchaseInput {
	dto := b.BuildPurchaseRequestDTO()
	return dto.ToInput()
}

func (b *PlacementBuilder) BuildCheckoutResult(intentID string) *commands.CheckoutResult {
	return &commands.CheckoutResult{
		PlacementID: b.ID,
		State:       b.State,
		Payment: &commands.PaymentSession{
			IntentID:     intentID,
			ClientSecret: intentID + "_secret",
			Status:       payment.StatusRequiresAction,
		},
		Outcome: payment.OutcomePending,
	}
}

func (b *PlacementBuilder) BuildSubmissionInput() commands.SubmissionInput {
	dto := b.BuildSubmitRequestDTO()
	return dto.ToInput()
}

func (b *PlacementBuilder) BuildAssignInput(price string) commands.AdminAssignInput {
	dto := b.BuildAssignRequestDTO(price)
	return dto.ToInput()
}
