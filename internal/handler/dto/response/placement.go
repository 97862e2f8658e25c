package response

import (
	"time"

	"placement-engine/internal/pkg/errs"
	"placement-engine/internal/usecase/commands"
	"placement-engine/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/shopspring/decimal"
)

type PlacementResponse struct {
	ID              uuid.UUID  `json:"id"`
	TenantID        uuid.UUID  `json:"tenant_id"`
	Kind            string     `json:"kind"`
	Scope           string     `json:"scope"`
	OwnerID         *uuid.UUID `json:"owner_id,omitempty"`
	State           string     `json:"state"`
	Origin          string     `json:"origin"`
	Price           string     `json:"price"`
	Currency        string     `json:"currency"`
	DurationDays    int        `json:"duration_days"`
	PaymentRef      *string    `json:"payment_ref,omitempty"`
	ContentURL      *string    `json:"content_url,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	Views           int64      `json:"views"`
	Clicks          int64      `json:"clicks"`
	CreatedAt       time.Time  `json:"created_at"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ActivatedAt     *time.Time `json:"activated_at,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

func FromPlacementView(v *queries.PlacementView) (*PlacementResponse, error) {
	var res PlacementResponse
	if err := copier.Copy(&res, v); err != nil {
		return nil, errs.Wrap(err, "failed to map placement view")
	}
	res.Price = formatMinor(v.PriceMinor)
	return &res, nil
}

type PlacementListItemResponse struct {
	ID           uuid.UUID  `json:"id"`
	Kind         string     `json:"kind"`
	Scope        string     `json:"scope"`
	State        string     `json:"state"`
	Price        string     `json:"price"`
	Currency     string     `json:"currency"`
	DurationDays int        `json:"duration_days"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

type PlacementListResponse struct {
	Items      []*PlacementListItemResponse `json:"items"`
	NextCursor string                       `json:"next_cursor,omitempty"`
}

func FromPlacementList(items []*queries.PlacementListItem, next *queries.Cursor) (*PlacementListResponse, error) {
	res := &PlacementListResponse{Items: make([]*PlacementListItemResponse, len(items))}
	for i, it := range items {
		var item PlacementListItemResponse
		if err := copier.Copy(&item, it); err != nil {
			return nil, errs.Wrap(err, "failed to map placement list item")
		}
		item.Price = formatMinor(it.PriceMinor)
		res.Items[i] = &item
	}
	if next != nil {
		res.NextCursor = next.After
	}
	return res, nil
}

type PaymentSessionResponse struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type CheckoutResponse struct {
	PlacementID  *uuid.UUID              `json:"placement_id,omitempty"`
	State        string                  `json:"state,omitempty"`
	LimitReached bool                    `json:"limit_reached"`
	Waitlisted   bool                    `json:"waitlisted,omitempty"`
	Outcome      string                  `json:"outcome,omitempty"`
	Payment      *PaymentSessionResponse `json:"payment,omitempty"`
}

func FromCheckoutResult(r *commands.CheckoutResult) *CheckoutResponse {
	res := &CheckoutResponse{
		State:        r.State.String(),
		LimitReached: r.LimitReached,
		Waitlisted:   r.Waitlisted,
		Outcome:      string(r.Outcome),
	}
	if r.PlacementID != uuid.Nil {
		id := r.PlacementID
		res.PlacementID = &id
	}
	if r.Payment != nil {
		res.Payment = &PaymentSessionResponse{
			IntentID:     r.Payment.IntentID,
			ClientSecret: r.Payment.ClientSecret,
			Status:       r.Payment.Status.String(),
		}
	}
	return res
}

type ConfirmResponse struct {
	PlacementID uuid.UUID `json:"placement_id"`
	State       string    `json:"state"`
	Outcome     string    `json:"outcome"`
}

func FromConfirmResult(r *commands.ConfirmResult) *ConfirmResponse {
	return &ConfirmResponse{PlacementID: r.PlacementID, State: r.State.String(), Outcome: string(r.Outcome)}
}

type AllocationResponse struct {
	PlacementID  *uuid.UUID `json:"placement_id,omitempty"`
	State        string     `json:"state,omitempty"`
	LimitReached bool       `json:"limit_reached"`
}

func FromAllocationResult(r *commands.AllocationResult) *AllocationResponse {
	res := &AllocationResponse{State: r.State.String(), LimitReached: r.LimitReached}
	if r.PlacementID != uuid.Nil {
		id := r.PlacementID
		res.PlacementID = &id
	}
	return res
}

type PlacementStateResponse struct {
	PlacementID uuid.UUID `json:"placement_id"`
	State       string    `json:"state"`
}

func FromPlacementResult(r *commands.PlacementResult) *PlacementStateResponse {
	return &PlacementStateResponse{PlacementID: r.PlacementID, State: r.State.String()}
}

type WaitlistResponse struct {
	Kind    string `json:"kind"`
	Created bool   `json:"created"`
}

func FromWaitlistResult(r *commands.WaitlistResult) *WaitlistResponse {
	return &WaitlistResponse{Kind: r.Kind.String(), Created: r.Created}
}

type PoolAvailabilityResponse struct {
	Kind        string `json:"kind"`
	Scope       string `json:"scope"`
	MaxActive   int    `json:"max_active"`
	ActiveCount int    `json:"active_count"`
	Available   int    `json:"available"`
}

func FromPoolAvailability(pools []*queries.PoolAvailability) ([]*PoolAvailabilityResponse, error) {
	res := make([]*PoolAvailabilityResponse, len(pools))
	for i, p := range pools {
		var item PoolAvailabilityResponse
		if err := copier.Copy(&item, p); err != nil {
			return nil, errs.Wrap(err, "failed to map pool availability")
		}
		res[i] = &item
	}
	return res, nil
}

func formatMinor(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
