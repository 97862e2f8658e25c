package payment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidStatus = errors.New("invalid payment intent status")
	ErrMissingIntent = errors.New("payment intent id is required")
	ErrInvalidAmount = errors.New("payment amount must be positive")
)

// Status mirrors the gateway's intent lifecycle.
type Status string

const (
	StatusRequiresAction Status = "requires_action"
	StatusSucceeded      Status = "succeeded"
	StatusFailed         Status = "failed"
	StatusCanceled       Status = "canceled"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusRequiresAction, StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

func (s Status) IsFinal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

func NewStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

// Outcome is what a confirmation means for the placement.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomePending   Outcome = "pending"
)

func (s Status) Outcome() Outcome {
	switch s {
	case StatusSucceeded:
		return OutcomeSucceeded
	case StatusFailed, StatusCanceled:
		return OutcomeFailed
	default:
		return OutcomePending
	}
}

// Intent is one payment attempt for a placement. A retry creates a new intent.
type Intent struct {
	ID           string
	PlacementID  uuid.UUID
	AmountMinor  int64
	Currency     string
	Status       Status
	ClientSecret string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewIntent(id string, placementID uuid.UUID, amountMinor int64, currency string, status Status, clientSecret string, now time.Time) (*Intent, error) {
	if id == "" {
		return nil, ErrMissingIntent
	}
	if amountMinor <= 0 {
		return nil, ErrInvalidAmount
	}
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}
	return &Intent{
		ID:           id,
		PlacementID:  placementID,
		AmountMinor:  amountMinor,
		Currency:     currency,
		Status:       status,
		ClientSecret: clientSecret,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
