package shared

import (
	"time"

	"github.com/google/uuid"
)

const (
	IdempotencyStatusProcessing = "processing"
	IdempotencyStatusCompleted  = "completed"
)

type IdempotencyRecord struct {
	Key               uuid.UUID
	TenantID          uuid.UUID
	Endpoint          string
	Status            string
	RequestHash       string
	ResultPlacementID *uuid.UUID
	ExpiresAt         time.Time
}

func (r *IdempotencyRecord) IsExpiredAt(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
