package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleetline/fleet-api/internal/dto"
	"github.com/fleetline/fleet-api/pkg/response"
)

// MaintenanceHandler exposes per-vehicle maintenance records and their history.
type MaintenanceHandler struct {
	service maintenanceService
}

// NewMaintenanceHandler constructs a maintenance handler.
func NewMaintenanceHandler(svc maintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{service: svc}
}

// Get godoc
// @Summary Get maintenance record
// @Tags Maintenance
// @Produce json
// @Param id path string true "Vehicle ID"
// @Success 200 {object} response.Envelope
// @Router /vehicles/{id}/maintenance [get]
func (h *MaintenanceHandler) Get(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Update godoc
// @Summary Update maintenance record
// @Description Partial field payload with a mandatory comment of at least 10 characters.
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param id path string true "Vehicle ID"
// @Param payload body object true "Changed fields plus comment"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /vehicles/{id}/maintenance [patch]
func (h *MaintenanceHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.PatchRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Update(c.Request.Context(), c.Param("id"), req.Fields, req.Comment, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusOK, result, result.Warnings)
}

// History godoc
// @Summary Maintenance history
// @Tags Maintenance
// @Produce json
// @Param id path string true "Vehicle ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /vehicles/{id}/maintenance/history [get]
func (h *MaintenanceHandler) History(c *gin.Context) {
	page, size := pageParams(c)
	entries, total, err := h.service.History(c.Request.Context(), c.Param("id"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination(page, size, total))
}
