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

// AbsenceHandler exposes leave requests and their review workflow.
type AbsenceHandler struct {
	service absenceService
}

// NewAbsenceHandler constructs an absence handler.
func NewAbsenceHandler(svc absenceService) *AbsenceHandler {
	return &AbsenceHandler{service: svc}
}

// Create godoc
// @Summary Request absence
// @Tags Absences
// @Accept json
// @Produce json
// @Param payload body dto.CreateAbsenceRequest true "Absence payload"
// @Success 201 {object} response.Envelope
// @Router /absences [post]
func (h *AbsenceHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateAbsenceRequest
	if !bindJSON(c, &req) {
		return
	}
	absence, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, absence)
}

// List godoc
// @Summary List absences
// @Description Employees only see their own absences.
// @Tags Absences
// @Produce json
// @Param employee_id query string false "Employee"
// @Param status query string false "Status"
// @Param from query string false "Start date lower bound"
// @Param to query string false "End date upper bound"
// @Success 200 {object} response.Envelope
// @Router /absences [get]
func (h *AbsenceHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.AbsenceQuery
	if !bindQuery(c, &query) {
		return
	}
	from, err := parseDateParam(query.From)
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseDateParam(query.To)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, size := pageParams(c)
	absences, total, err := h.service.List(c.Request.Context(), actor, models.AbsenceFilter{
		EmployeeID: query.EmployeeID,
		Status:     models.AbsenceStatus(query.Status),
		From:       from,
		To:         to,
		Page:       page,
		PageSize:   size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, absences, pagination(page, size, total))
}

// Get godoc
// @Summary Get absence
// @Tags Absences
// @Produce json
// @Param id path string true "Absence ID"
// @Success 200 {object} response.Envelope
// @Router /absences/{id} [get]
func (h *AbsenceHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	absence, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, absence, nil)
}

// Update godoc
// @Summary Update absence
// @Tags Absences
// @Accept json
// @Produce json
// @Param id path string true "Absence ID"
// @Param payload body object true "Changed fields plus comment"
// @Success 200 {object} response.Envelope
// @Router /absences/{id} [patch]
func (h *AbsenceHandler) Update(c *gin.Context) {
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

// Approve godoc
// @Summary Approve absence
// @Tags Absences
// @Accept json
// @Produce json
// @Param id path string true "Absence ID"
// @Param payload body dto.CommentRequest false "Comment"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /absences/{id}/approve [post]
func (h *AbsenceHandler) Approve(c *gin.Context) {
	h.transition(c, h.service.Approve)
}

// Reject godoc
// @Summary Reject absence
// @Tags Absences
// @Accept json
// @Produce json
// @Param id path string true "Absence ID"
// @Param payload body dto.CommentRequest true "Comment"
// @Success 200 {object} response.Envelope
// @Router /absences/{id}/reject [post]
func (h *AbsenceHandler) Reject(c *gin.Context) {
	h.transition(c, h.service.Reject)
}

// Cancel godoc
// @Summary Cancel absence
// @Tags Absences
// @Accept json
// @Produce json
// @Param id path string true "Absence ID"
// @Param payload body dto.CommentRequest false "Comment"
// @Success 200 {object} response.Envelope
// @Router /absences/{id}/cancel [post]
func (h *AbsenceHandler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

// History godoc
// @Summary Absence history
// @Tags Absences
// @Produce json
// @Param id path string true "Absence ID"
// @Success 200 {object} response.Envelope
// @Router /absences/{id}/history [get]
func (h *AbsenceHandler) History(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	entries, total, err := h.service.History(c.Request.Context(), actor, c.Param("id"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination(page, size, total))
}

type absenceTransition func(ctx context.Context, actor models.Actor, id, comment string) (*service.MutationResult[*models.Absence], error)

func (h *AbsenceHandler) transition(c *gin.Context, apply absenceTransition) {
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
