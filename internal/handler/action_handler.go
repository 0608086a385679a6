package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleetline/fleet-api/internal/dto"
	"github.com/fleetline/fleet-api/internal/models"
	"github.com/fleetline/fleet-api/internal/service"
	"github.com/fleetline/fleet-api/pkg/response"
)

// ActionHandler exposes workshop tasks.
type ActionHandler struct {
	service actionService
}

// NewActionHandler constructs an action handler.
func NewActionHandler(svc actionService) *ActionHandler {
	return &ActionHandler{service: svc}
}

// Create godoc
// @Summary Create workshop action
// @Tags Actions
// @Accept json
// @Produce json
// @Param payload body dto.CreateActionRequest true "Action payload"
// @Success 201 {object} response.Envelope
// @Router /actions [post]
func (h *ActionHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateActionRequest
	if !bindJSON(c, &req) {
		return
	}
	action, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, action)
}

// List godoc
// @Summary List workshop actions
// @Tags Actions
// @Produce json
// @Param vehicle_id query string false "Vehicle"
// @Param inspection_id query string false "Source inspection"
// @Param status query string false "pending, logged or completed"
// @Success 200 {object} response.Envelope
// @Router /actions [get]
func (h *ActionHandler) List(c *gin.Context) {
	var query dto.ActionQuery
	if !bindQuery(c, &query) {
		return
	}
	page, size := pageParams(c)
	actions, total, err := h.service.List(c.Request.Context(), models.ActionFilter{
		VehicleID:    query.VehicleID,
		InspectionID: query.InspectionID,
		Status:       models.ActionStatus(query.Status),
		Page:         page,
		PageSize:     size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, actions, pagination(page, size, total))
}

// Get godoc
// @Summary Get workshop action
// @Tags Actions
// @Produce json
// @Param id path string true "Action ID"
// @Success 200 {object} response.Envelope
// @Router /actions/{id} [get]
func (h *ActionHandler) Get(c *gin.Context) {
	action, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, action, nil)
}

// Update godoc
// @Summary Update workshop action
// @Tags Actions
// @Accept json
// @Produce json
// @Param id path string true "Action ID"
// @Param payload body object true "Changed fields plus comment"
// @Success 200 {object} response.Envelope
// @Router /actions/{id} [patch]
func (h *ActionHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.PatchRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req.Fields, req.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusOK, result, result.Warnings)
}

// Log godoc
// @Summary Log workshop action
// @Description Comment is required and limited to 40 characters.
// @Tags Actions
// @Accept json
// @Produce json
// @Param id path string true "Action ID"
// @Param payload body dto.CommentRequest true "Comment"
// @Success 200 {object} response.Envelope
// @Router /actions/{id}/log [post]
func (h *ActionHandler) Log(c *gin.Context) {
	h.transition(c, h.service.Log)
}

// Complete godoc
// @Summary Complete workshop action
// @Tags Actions
// @Accept json
// @Produce json
// @Param id path string true "Action ID"
// @Param payload body dto.CommentRequest false "Comment"
// @Success 200 {object} response.Envelope
// @Router /actions/{id}/complete [post]
func (h *ActionHandler) Complete(c *gin.Context) {
	h.transition(c, h.service.Complete)
}

// Undo godoc
// @Summary Undo last workshop action transition
// @Tags Actions
// @Accept json
// @Produce json
// @Param id path string true "Action ID"
// @Param payload body dto.CommentRequest false "Comment"
// @Success 200 {object} response.Envelope
// @Router /actions/{id}/undo [post]
func (h *ActionHandler) Undo(c *gin.Context) {
	h.transition(c, h.service.Undo)
}

// History godoc
// @Summary Workshop action history
// @Tags Actions
// @Produce json
// @Param id path string true "Action ID"
// @Success 200 {object} response.Envelope
// @Router /actions/{id}/history [get]
func (h *ActionHandler) History(c *gin.Context) {
	page, size := pageParams(c)
	entries, total, err := h.service.History(c.Request.Context(), c.Param("id"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination(page, size, total))
}

type actionTransition func(ctx context.Context, actor models.Actor, id, comment string) (*service.MutationResult[*models.Action], error)

func (h *ActionHandler) transition(c *gin.Context, apply actionTransition) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	comment, ok := bindComment(c)
	if !ok {
		return
	}
	result, err := apply(c.Request.Context(), actor, c.Param("id"), comment)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusOK, result, result.Warnings)
}
