package request

import (
	"placement-engine/internal/usecase/commands"

	"github.com/google/uuid"
)

type PurchasePlacementRequest struct {
	Kind             string     `json:"kind" binding:"required,oneof=banner promotion"`
	Scope            string     `json:"scope" binding:"omitempty,oneof=vehicle dealer seller"`
	OwnerID          *uuid.UUID `json:"owner_id"`
	DurationDays     int        `json:"duration_days" binding:"required,min=1"`
	ContentURL       *string    `json:"content_url" binding:"omitempty,url,max=2048"`
	UseCredit        bool       `json:"use_credit"`
	PaymentMethodRef *string    `json:"payment_method_ref" binding:"omitempty,max=255"`
	JoinWaitlist     bool       `json:"join_waitlist"`
}

func (r *PurchasePlacementRequest) ToInput() commands.PurchaseInput {
	return commands.PurchaseInput{
		Kind:             r.Kind,
		Scope:            r.Scope,
		OwnerID:          r.OwnerID,
		DurationDays:     r.DurationDays,
		ContentURL:       r.ContentURL,
		UseCredit:        r.UseCredit,
		PaymentMethodRef: r.PaymentMethodRef,
		JoinWaitlist:     r.JoinWaitlist,
	}
}

type SubmitPlacementRequest struct {
	Kind         string     `json:"kind" binding:"required,oneof=banner promotion"`
	Scope        string     `json:"scope" binding:"omitempty,oneof=vehicle dealer seller"`
	OwnerID      *uuid.UUID `json:"owner_id"`
	DurationDays int        `json:"duration_days" binding:"required,min=1"`
	ContentURL   string     `json:"content_url" binding:"required,url,max=2048"`
	UseCredit    bool       `json:"use_credit"`
}

func (r *SubmitPlacementRequest) ToInput() commands.SubmissionInput {
	return commands.SubmissionInput{
		Kind:         r.Kind,
		Scope:        r.Scope,
		OwnerID:      r.OwnerID,
		DurationDays: r.DurationDays,
		ContentURL:   r.ContentURL,
		UseCredit:    r.UseCredit,
	}
}

type PayPlacementRequest struct {
	PaymentMethodRef *string `json:"payment_method_ref" binding:"omitempty,max=255"`
}

type ConfirmPaymentRequest struct {
	IntentID string `json:"intent_id" binding:"required,max=255"`
}

type WaitlistRequest struct {
	Kind string `json:"kind" binding:"required,oneof=banner promotion"`
}

type AdminAssignRequest struct {
	TenantID     uuid.UUID  `json:"tenant_id" binding:"required"`
	Kind         string     `json:"kind" binding:"required,oneof=banner promotion"`
	Scope        string     `json:"scope" binding:"omitempty,oneof=vehicle dealer seller"`
	OwnerID      *uuid.UUID `json:"owner_id"`
	DurationDays int        `json:"duration_days" binding:"required,min=1"`
	Price        string     `json:"price" binding:"required,numeric"`
	ContentURL   *string    `json:"content_url" binding:"omitempty,url,max=2048"`
}

func (r *AdminAssignRequest) ToInput() commands.AdminAssignInput {
	return commands.AdminAssignInput{
		TenantID:     r.TenantID,
		Kind:         r.Kind,
		Scope:        r.Scope,
		OwnerID:      r.OwnerID,
		DurationDays: r.DurationDays,
		Price:        r.Price,
		ContentURL:   r.ContentURL,
	}
}

type RejectPlacementRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

type EngagementRequest struct {
	Views  int64 `json:"views" binding:"min=0"`
	Clicks int64 `json:"clicks" binding:"min=0"`
}

// PaymentWebhookRequest is the gateway event body. Status is informational;
// the authoritative status is re-read from the gateway.
type PaymentWebhookRequest struct {
	IntentID string `json:"intent_id" binding:"required"`
	Status   string `json:"status"`
}
