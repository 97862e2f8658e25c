package commands

import (
	"placement-engine/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrValidation            = errs.New("validation error")
	ErrNotFound              = errs.New("placement not found")
	ErrUnauthorized          = errs.New("not allowed for this principal")
	ErrConflict              = errs.New("placement changed concurrently")
	ErrInvalidState          = errs.New("operation not allowed in current state")
	ErrGatewayUnavailable    = errs.New("payment gateway unavailable")
	ErrNoCredit              = errs.New("no credit available for kind")
	ErrNoPool                = errs.New("no capacity pool provisioned for kind")
	ErrIdempotencyKeyReuse   = errs.New("idempotency key reused with a different request")
	ErrIdempotencyInProgress = errs.New("idempotency in progress")
	ErrDatabaseOperation     = errs.New("database operation failed")
)

// CheckoutUnavailableError reports a placement that holds its reservation in
// pending_payment while the gateway could not be reached. Paying again later
// resumes the checkout.
type CheckoutUnavailableError struct {
	PlacementID uuid.UUID
	Err         error
}

func (e *CheckoutUnavailableError) Error() string {
	return "checkout unavailable for placement " + e.PlacementID.String() + ": " + e.Err.Error()
}

func (e *CheckoutUnavailableError) Unwrap() error {
	return e.Err
}
