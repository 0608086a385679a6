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

// TimesheetHandler exposes weekly timesheets and their review workflow.
type TimesheetHandler struct {
	service timesheetService
}

// NewTimesheetHandler constructs a timesheet handler.
func NewTimesheetHandler(svc timesheetService) *TimesheetHandler {
	return &TimesheetHandler{service: svc}
}

// Create godoc
// @Summary Create timesheet
// @Tags Timesheets
// @Accept json
// @Produce json
// @Param payload body dto.CreateTimesheetRequest true "Timesheet payload"
// @Success 201 {object} response.Envelope
// @Router /timesheets [post]
func (h *TimesheetHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateTimesheetRequest
	if !bindJSON(c, &req) {
		return
	}
	sheet, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sheet)
}

// List godoc
// @Summary List timesheets
// @Tags Timesheets
// @Produce json
// @Param employee_id query string false "Employee"
// @Param status query string false "Status"
// @Success 200 {object} response.Envelope
// @Router /timesheets [get]
func (h *TimesheetHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.TimesheetQuery
	if !bindQuery(c, &query) {
		return
	}
	page, size := pageParams(c)
	sheets, total, err := h.service.List(c.Request.Context(), actor, models.TimesheetFilter{
		EmployeeID: query.EmployeeID,
		Status:     models.TimesheetStatus(query.Status),
		Page:       page,
		PageSize:   size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheets, pagination(page, size, total))
}

// Get godoc
// @Summary Get timesheet with entries
// @Tags Timesheets
// @Produce json
// @Param id path string true "Timesheet ID"
// @Success 200 {object} response.Envelope
// @Router /timesheets/{id} [get]
func (h *TimesheetHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	sheet, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// Update godoc
// @Summary Update timesheet
// @Tags Timesheets
// @Accept json
// @Produce json
// @Param id path string true "Timesheet ID"
// @Param payload body object true "Changed fields plus comment"
// @Success 200 {object} response.Envelope
// @Router /timesheets/{id} [patch]
func (h *TimesheetHandler) Update(c *gin.Context) {
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

// ReplaceEntries godoc
// @Summary Replace timesheet entries
// @Tags Timesheets
// @Accept json
// @Produce json
// @Param id path string true "Timesheet ID"
// @Param payload body dto.ReplaceEntriesRequest true "Entries"
// @Success 200 {object} response.Envelope
// @Router /timesheets/{id}/entries [put]
func (h *TimesheetHandler) ReplaceEntries(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ReplaceEntriesRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.ReplaceEntries(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusOK, result, result.Warnings)
}

// Submit godoc
// @Summary Submit timesheet
// @Tags Timesheets
// @Produce json
// @Param id path string true "Timesheet ID"
// @Success 200 {object} response.Envelope
// @Router /timesheets/{id}/submit [post]
func (h *TimesheetHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	result, err := h.service.Submit(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusOK, result, result.Warnings)
}

// Approve godoc
// @Summary Approve timesheet
// @Tags Timesheets
// @Accept json
// @Produce json
// @Param id path string true "Timesheet ID"
// @Param payload body dto.CommentRequest false "Comment"
// @Success 200 {object} response.Envelope
// @Router /timesheets/{id}/approve [post]
func (h *TimesheetHandler) Approve(c *gin.Context) {
	h.transition(c, h.service.Approve)
}

// Reject godoc
// @Summary Reject timesheet
// @Tags Timesheets
// @Accept json
// @Produce json
// @Param id path string true "Timesheet ID"
// @Param payload body dto.CommentRequest true "Comment"
// @Success 200 {object} response.Envelope
// @Router /timesheets/{id}/reject [post]
func (h *TimesheetHandler) Reject(c *gin.Context) {
	h.transition(c, h.service.Reject)
}

// Process godoc
// @Summary Mark timesheet processed
// @Tags Timesheets
// @Accept json
// @Produce json
// @Param id path string true "Timesheet ID"
// @Param payload body dto.CommentRequest false "Comment"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timesheets/{id}/process [post]
func (h *TimesheetHandler) Process(c *gin.Context) {
	h.transition(c, h.service.Process)
}

// History godoc
// @Summary Timesheet history
// @Tags Timesheets
// @Produce json
// @Param id path string true "Timesheet ID"
// @Success 200 {object} response.Envelope
// @Router /timesheets/{id}/history [get]
func (h *TimesheetHandler) History(c *gin.Context) {
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

type timesheetTransition func(ctx context.Context, actor models.Actor, id, comment string) (*service.MutationResult[*models.Timesheet], error)

func (h *TimesheetHandler) transition(c *gin.Context, apply timesheetTransition) {
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
