package commands

import (
	"context"

	"placement-engine/internal/domain/payment"
	"placement-engine/internal/domain/placement"

	"github.com/google/uuid"
)

//go:generate mockgen -source=ports.go -destination=../../../tests/mock/commands/ports.go -package=commandsmock

// PaymentGateway is the external card processor. Transport failures must be
// marked with ErrGatewayUnavailable.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*GatewayIntent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*GatewayIntent, error)
	ChargeSaved(ctx context.Context, req IntentRequest, paymentMethodRef string) (*GatewayIntent, error)
}

type IntentRequest struct {
	AmountMinor int64
	Currency    string
	// IdempotencyKey is stable across retries of one logical call.
	IdempotencyKey string
	Metadata       map[string]string
}

type GatewayIntent struct {
	ID           string
	Status       payment.Status
	ClientSecret string
}

type Notification struct {
	TenantID uuid.UUID
	Topic    string
	Payload  map[string]any
}

// Notifier hands messages to the delivery channel. Fire and forget.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// OwnerCatalog answers whether a tenant may promote a given vehicle, dealer or seller.
type OwnerCatalog interface {
	Owns(ctx context.Context, tenantID uuid.UUID, scope placement.Scope, ownerID uuid.UUID) (bool, error)
}

type AllocationMetrics interface {
	ObserveReservation(kind placement.Kind, outcome string)
	ObserveRelease(kind placement.Kind)
	ObserveTransition(from, to placement.State)
	ObservePaymentOutcome(outcome payment.Outcome)
}
