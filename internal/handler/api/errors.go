package api

import (
	"errors"
	"net/http"

	"placement-engine/internal/handler/httperr"
	"placement-engine/internal/usecase/commands"
	"placement-engine/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{commands.ErrValidation, http.StatusBadRequest, httperr.CodeValidation, "Invalid request"},
	{queries.ErrInvalidCursor, http.StatusBadRequest, httperr.CodeValidation, "Invalid cursor"},
	{queries.ErrInvalidFilter, http.StatusBadRequest, httperr.CodeValidation, "Invalid filter"},
	{commands.ErrUnauthorized, http.StatusForbidden, httperr.CodeUnauthorized, "Not allowed"},
	{commands.ErrNotFound, http.StatusNotFound, httperr.CodeNotFound, "Placement not found"},
	{queries.ErrPlacementNotFound, http.StatusNotFound, httperr.CodeNotFound, "Placement not found"},
	{commands.ErrConflict, http.StatusConflict, httperr.CodeConflict, "Placement changed concurrently, retry"},
	{commands.ErrInvalidState, http.StatusConflict, httperr.CodeInvalidState, "Operation not allowed in current state"},
	{commands.ErrIdempotencyInProgress, http.StatusConflict, httperr.CodeInProgress, "Request is currently being processed"},
	{commands.ErrIdempotencyKeyReuse, http.StatusUnprocessableEntity, httperr.CodeIdempotencyReuse, "Idempotency key was used with a different request"},
	{commands.ErrNoCredit, http.StatusUnprocessableEntity, httperr.CodeNoCredit, "No credit available"},
	{commands.ErrNoPool, http.StatusUnprocessableEntity, httperr.CodeNoPool, "Placement kind is not offered"},
	{commands.ErrGatewayUnavailable, http.StatusServiceUnavailable, httperr.CodeGatewayUnavailable, "Payment gateway unavailable, retry later"},
}

func abortWithCommandError(c *gin.Context, err error) {
	var unavailable *commands.CheckoutUnavailableError
	if errors.As(err, &unavailable) {
		httperr.AbortWithCode(c, http.StatusServiceUnavailable, httperr.CodeGatewayUnavailable, err,
			"Payment gateway unavailable, retry payment later",
			gin.H{"placement_id": unavailable.PlacementID.String(), "state": "pending_payment"})
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			httperr.AbortWithCode(c, m.status, m.code, err, m.message, nil)
			return
		}
	}
	httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
}
