package httperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Stable error codes clients can switch on.
const (
	CodeValidation         = "validation_error"
	CodeUnauthenticated    = "unauthenticated"
	CodeUnauthorized       = "unauthorized"
	CodeNotFound           = "not_found"
	CodeConflict           = "conflict"
	CodeInvalidState       = "invalid_state"
	CodePaymentFailed      = "payment_failed"
	CodePaymentPending     = "payment_pending"
	CodeGatewayUnavailable = "gateway_unavailable"
	CodeNoCredit           = "no_credit"
	CodeNoPool             = "no_pool"
	CodeIdempotencyReuse   = "idempotency_key_reuse"
	CodeInProgress         = "idempotency_in_progress"
	CodeInternal           = "internal_error"
)

type Response struct {
	Status int `json:"-"`
	Error  struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Detail any `json:"detail,omitempty"`
}

// preserves original error for future monitoring
func AbortWithError(c *gin.Context, status int, err error, msg string, detail any) {
	AbortWithCode(c, status, defaultCode(status), err, msg, detail)
}

func AbortWithCode(c *gin.Context, status int, code string, err error, msg string, detail any) {
	if err == nil {
		err = errors.New(msg)
	}

	resp := Response{Status: status}
	resp.Error.Code = code
	resp.Error.Message = msg
	resp.Detail = detail

	_ = c.Error(gin.Error{
		Err:  err,
		Type: gin.ErrorTypePublic,
		Meta: resp,
	})
	c.AbortWithStatusJSON(status, resp)
}

func defaultCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthenticated
	case http.StatusForbidden:
		return CodeUnauthorized
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusPaymentRequired:
		return CodePaymentFailed
	case http.StatusServiceUnavailable:
		return CodeGatewayUnavailable
	default:
		return CodeInternal
	}
}
