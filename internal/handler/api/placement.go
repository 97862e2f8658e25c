package api

import (
	"net/http"
	"strconv"

	"placement-engine/internal/domain/payment"
	reqdto "placement-engine/internal/handler/dto/request"
	resdto "placement-engine/internal/handler/dto/response"
	"placement-engine/internal/handler/httperr"
	"placement-engine/internal/handler/middleware"
	"placement-engine/internal/usecase/commands"
	"placement-engine/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const idempotencyKeyHeader = "Idempotency-Key"

type PlacementHandler struct {
	cmds commands.AllocationCommands
	q    queries.PlacementQueries
}

func NewPlacementHandler(cmds commands.AllocationCommands, q queries.PlacementQueries) *PlacementHandler {
	return &PlacementHandler{cmds: cmds, q: q}
}

// @Summary Purchase placement
// @Description Reserve a premium slot and start checkout. Capacity exhaustion is a normal 200 response with limit_reached.
// @Tags placements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Idempotency key for safe retries"
// @Param request body reqdto.PurchasePlacementRequest true "Purchase request"
// @Success 200 {object} resdto.CheckoutResponse "limit reached"
// @Success 201 {object} resdto.CheckoutResponse
// @Failure 400 {object} httperr.Response
// @Failure 402 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 503 {object} httperr.Response
// @Router /api/placements [post]
func (h *PlacementHandler) Purchase(c *gin.Context) {
	actor, ok := middleware.GetPrincipal(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, nil, "Unauthorized", nil)
		return
	}
	idempotencyKey, err := optionalIdempotencyKey(c)
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid Idempotency-Key header", nil)
		return
	}
	var req reqdto.PurchasePlacementRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, bindErr, "Invalid request", nil)
		return
	}

	result, err := h.cmds.Purchase(c.Request.Context(), actor, req.ToInput(), idempotencyKey)
	if err != nil {
		abortWithCommandError(c, err)
		return
	}
	if result.Replayed {
		c.Header("Idempotent-Replayed", "true")
	}
	respondCheckout(c, result, http.StatusCreated)
}

// @Summary Submit placement for review
// @Description Submit content for moderation. No capacity is held until approval.
// @Tags placements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.SubmitPlacementRequest true "Submission"
// @Success 201 {object} resdto.PlacementStateResponse
// @Failure 400 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /api/placements/submissions [post]
func (h *PlacementHandler) Submit(c *gin.Context) {
	actor, ok := middleware.GetPrincipal(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, nil, "Unauthorized", nil)
		return
	}
	var req reqdto.SubmitPlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
		return
	}
	result, err := h.cmds.SubmitForReview(c.Request.Context(), actor, req.ToInput())
	if err != nil {
		abortWithCommandError(c, err)
		return
	}
	c.Header("Location", "/api/placements/"+result.PlacementID.String())
	c.JSON(http.StatusCreated, resdto.FromPlacementResult(result))
}

// @Summary Pay placement
// @Description Start checkout for an assigned placement or retry payment for a pending one
// @Tags placements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Placement ID"
// @Param request body reqdto.PayPlacementRequest false "Saved payment method"
// @Success 200 {object} resdto.CheckoutResponse
// @Failure 402 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 503 {object} httperr.Response
// @Router /api/placements/{id}/pay [post]
func (h *PlacementHandler) Pay(c *gin.Context) {
	actor, ok := middleware.GetPrincipal(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, nil, "Unauthorized", nil)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid id", nil)
		return
	}
	var req reqdto.PayPlacementRequest
	if c.Request.ContentLength != 0 {
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			httperr.AbortWithError(c, http.StatusBadRequest, bindErr, "Invalid request", nil)
			return
		}
	}
	result, err := h.cmds.PayAssigned(c.Request.Context(), actor, id, commands.PayInput{PaymentMethodRef: req.PaymentMethodRef})
	if err != nil {
		abortWithCommandError(c, err)
		return
	}
	respondCheckout(c, result, http.StatusOK)
}

// @Summary Confirm payment
// @Description Reconcile a payment intent with the gateway and apply its outcome
// @Tags placements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Placement ID"
// @Param request body reqdto.ConfirmPaymentRequest true "Intent"
// @Success 200 {object} resdto.ConfirmResponse
// @Success 202 {object} resdto.ConfirmResponse "payment pending"
// @Failure 402 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 503 {object} httperr.Response
// @Router /api/placements/{id}/confirm [post]
func (h *PlacementHandler) Confirm(c *gin.Context) {
	actor, ok := middleware.GetPrincipal(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, nil, "Unauthorized", nil)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid id", nil)
		return
	}
	var req reqdto.ConfirmPaymentRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, bindErr, "Invalid request", nil)
		return
	}
	result, err := h.cmds.ConfirmPayment(c.Request.Context(), actor, id, req.IntentID)
	if err != nil {
		abortWithCommandError(c, err)
		return
	}

	body := resdto.FromConfirmResult(result)
	switch result.Outcome {
	case payment.OutcomeFailed:
		httperr.AbortWithCode(c, http.StatusPaymentRequired, httperr.CodePaymentFailed, nil, "Payment failed", body)
	case payment.OutcomePending:
		c.JSON(http.StatusAccepted, body)
	default:
		c.JSON(http.StatusOK, body)
	}
}

// @Summary Get placement
// @Tags placements
// @Produce json
// @Security BearerAuth
// @Param id path string true "Placement ID"
// @Success 200 {object} resdto.PlacementResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /api/placements/{id} [get]
func (h *PlacementHandler) Get(c *gin.Context) {
	actor, ok := middleware.GetPrincipal(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, nil, "Unauthorized", nil)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid id", nil)
		return
	}
	view, err := h.q.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		abortWithCommandError(c, err)
		return
	}
	res, err := resdto.FromPlacementView(view)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Failed to build response", nil)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary List own placements
// @Tags placements
// @Produce json
// @Security BearerAuth
// @Param state query string false "Filter by state"
// @Param limit query int false "Page size"
// @Param after query string false "Cursor from the previous page"
// @Success 200 {object} resdto.PlacementListResponse
// @Failure 400 {object} httperr.Response
// @Router /api/placements [get]
func (h *PlacementHandler) List(c *gin.Context) {
	actor, ok := middleware.GetPrincipal(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, nil, "Unauthorized", nil)
		return
	}

	var filters queries.PlacementFilters
	if st := c.Query("state"); st != "" {
		filters.State = &st
	}
	limit := queries.DefaultListLimit
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil {
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid limit", nil)
			return
		}
		limit = parsed
	}
	var cursor *queries.Cursor
	if after := c.Query("after"); after != "" {
		cursor = &queries.Cursor{After: after}
	}

	items, next, err := h.q.ListByTenant(c.Request.Context(), actor, filters, cursor, limit)
	if err != nil {
		abortWithCommandError(c, err)
		return
	}
	res, err := resdto.FromPlacementList(items, next)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Failed to build response", nil)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Join waitlist
// @Description Ask to be notified when capacity for a kind frees up
// @Tags placements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.WaitlistRequest true "Kind"
// @Success 200 {object} resdto.WaitlistResponse
// @Failure 400 {object} httperr.Response
// @Router /api/waitlist [post]
func (h *PlacementHandler) JoinWaitlist(c *gin.Context) {
	actor, ok := middleware.GetPrincipal(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, nil, "Unauthorized", nil)
		return
	}
	var req reqdto.WaitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
		return
	}
	result, err := h.cmds.RequestNotification(c.Request.Context(), actor, req.Kind)
	if err != nil {
		abortWithCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromWaitlistResult(result))
}

// @Summary Capacity availability
// @Description Advisory snapshot of every pool. It may be stale by the time a purchase runs.
// @Tags placements
// @Produce json
// @Security BearerAuth
// @Success 200 {array} resdto.PoolAvailabilityResponse
// @Router /api/capacity [get]
func (h *PlacementHandler) Availability(c *gin.Context) {
	pools, err := h.q.Availability(c.Request.Context())
	if err != nil {
		abortWithCommandError(c, err)
		return
	}
	res, err := resdto.FromPoolAvailability(pools)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Failed to build response", nil)
		return
	}
	c.JSON(http.StatusOK, res)
}

func respondCheckout(c *gin.Context, result *commands.CheckoutResult, successStatus int) {
	body := resdto.FromCheckoutResult(result)
	switch {
	case result.LimitReached:
		c.JSON(http.StatusOK, body)
	case result.Outcome == payment.OutcomeFailed:
		httperr.AbortWithCode(c, http.StatusPaymentRequired, httperr.CodePaymentFailed, nil, "Payment failed", body)
	default:
		if successStatus == http.StatusCreated {
			c.Header("Location", "/api/placements/"+result.PlacementID.String())
		}
		c.JSON(successStatus, body)
	}
}

func optionalIdempotencyKey(c *gin.Context) (*uuid.UUID, error) {
	raw := c.GetHeader(idempotencyKeyHeader)
	if raw == "" {
		return nil, nil
	}
	key, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &key, nil
}
