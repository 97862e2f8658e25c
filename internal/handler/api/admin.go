package api

import (
	"net/http"

	reqdto "placement-engine/internal/handler/dto/request"
	resdto "placement-engine/internal/handler/dto/response"
	"placement-engine/internal/handler/httperr"
	"placement-engine/internal/handler/middleware"
	"placement-engine/internal/usecase/commands"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AdminHandler struct {
	cmds commands.AllocationCommands
}

func NewAdminHandler(cmds commands.AllocationCommands) *AdminHandler {
	return &AdminHandler{cmds: cmds}
}

// @Summary Assign placement
// @Description Reserve a slot on behalf of a tenant at an explicit price. The tenant still pays.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.AdminAssignRequest true "Assignment"
// @Success 200 {object} resdto.AllocationResponse "limit reached"
// @Success 201 {object} resdto.AllocationResponse
// @Failure 400 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Router /api/admin/placements [post]
func (h *AdminHandler) Assign(c *gin.Context) {
	actor, ok := middleware.GetPrincipal(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, nil, "Unauthorized", nil)
		return
	}
	var req reqdto.AdminAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
		return
	}
	result, err := h.cmds.AdminAssign(c.Request.Context(), actor, req.ToInput())
	if err != nil {
		abortWithCommandError(c, err)
		return
	}
	if result.LimitReached {
		c.JSON(http.StatusOK, resdto.FromAllocationResult(result))
		return
	}
	c.Header("Location", "/api/placements/"+result.PlacementID.String())
	c.JSON(http.StatusCreated, resdto.FromAllocationResult(result))
}

// @Summary Approve placement
// @Description Approve a submission; capacity is reserved at this point
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Placement ID"
// @Success 200 {object} resdto.AllocationResponse
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /api/admin/placements/{id}/approve [post]
func (h *AdminHandler) Approve(c *gin.Context) {
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
	result, err := h.cmds.Approve(c.Request.Context(), actor, id)
	if err != nil {
		abortWithCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromAllocationResult(result))
}

// @Summary Reject placement
// @Description Moderation rejection; releases any held capacity
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Placement ID"
// @Param request body reqdto.RejectPlacementRequest true "Reason"
// @Success 200 {object} resdto.PlacementStateResponse
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /api/admin/placements/{id}/reject [post]
func (h *AdminHandler) Reject(c *gin.Context) {
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
	var req reqdto.RejectPlacementRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, bindErr, "Invalid request", nil)
		return
	}
	result, err := h.cmds.Reject(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		abortWithCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromPlacementResult(result))
}

// @Summary Record engagement
// @Description Add view and click deltas to an active placement
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Placement ID"
// @Param request body reqdto.EngagementRequest true "Deltas"
// @Success 200 {object} resdto.PlacementStateResponse
// @Router /api/admin/placements/{id}/metrics [post]
func (h *AdminHandler) RecordEngagement(c *gin.Context) {
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
	var req reqdto.EngagementRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, bindErr, "Invalid request", nil)
		return
	}
	result, err := h.cmds.RecordEngagement(c.Request.Context(), actor, id, req.Views, req.Clicks)
	if err != nil {
		abortWithCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromPlacementResult(result))
}
