package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	reqdto "placement-engine/internal/handler/dto/request"
	resdto "placement-engine/internal/handler/dto/response"
	"placement-engine/internal/handler/httperr"
	"placement-engine/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

const (
	signatureHeader = "X-Signature"
	maxWebhookBody  = 64 << 10
)

type WebhookHandler struct {
	cmds     commands.AllocationCommands
	verifier commands.SignatureVerifier
}

func NewWebhookHandler(cmds commands.AllocationCommands, verifier commands.SignatureVerifier) *WebhookHandler {
	return &WebhookHandler{cmds: cmds, verifier: verifier}
}

// @Summary Payment gateway webhook
// @Description Signed intent event. Converges with client confirmation on the same idempotent path.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param X-Signature header string true "HMAC-SHA256 of the raw body"
// @Param request body reqdto.PaymentWebhookRequest true "Event"
// @Success 200 {object} resdto.ConfirmResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 503 {object} httperr.Response
// @Router /api/webhooks/payments [post]
func (h *WebhookHandler) PaymentEvent(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	body, err := c.GetRawData()
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Unreadable body", nil)
		return
	}
	if !h.verifier.VerifySignature(body, c.GetHeader(signatureHeader)) {
		httperr.AbortWithError(c, http.StatusUnauthorized, nil, "Invalid signature", nil)
		return
	}

	var event reqdto.PaymentWebhookRequest
	if err = json.Unmarshal(body, &event); err != nil || event.IntentID == "" {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid event", nil)
		return
	}

	result, err := h.cmds.HandlePaymentEvent(c.Request.Context(), event.IntentID)
	if err != nil {
		// unknown intents are acknowledged so the gateway stops redelivering
		if errors.Is(err, commands.ErrNotFound) {
			slog.Warn("payment event for unknown intent", "intent_id", event.IntentID)
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		abortWithCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromConfirmResult(result))
}
