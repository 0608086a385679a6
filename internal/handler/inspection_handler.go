package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleetline/fleet-api/internal/dto"
	"github.com/fleetline/fleet-api/internal/models"
	"github.com/fleetline/fleet-api/pkg/response"
)

// InspectionHandler exposes weekly vehicle inspections.
type InspectionHandler struct {
	service inspectionService
}

// NewInspectionHandler constructs an inspection handler.
func NewInspectionHandler(svc inspectionService) *InspectionHandler {
	return &InspectionHandler{service: svc}
}

// Create godoc
// @Summary Start inspection
// @Tags Inspections
// @Accept json
// @Produce json
// @Param payload body dto.CreateInspectionRequest true "Inspection payload"
// @Success 201 {object} response.Envelope
// @Router /inspections [post]
func (h *InspectionHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateInspectionRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusCreated, result.Inspection, result.Warnings)
}

// List godoc
// @Summary List inspections
// @Tags Inspections
// @Produce json
// @Param vehicle_id query string false "Vehicle"
// @Param inspector_id query string false "Inspector"
// @Param status query string false "draft or submitted"
// @Success 200 {object} response.Envelope
// @Router /inspections [get]
func (h *InspectionHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.InspectionQuery
	if !bindQuery(c, &query) {
		return
	}
	page, size := pageParams(c)
	inspections, total, err := h.service.List(c.Request.Context(), actor, models.InspectionFilter{
		VehicleID:   query.VehicleID,
		InspectorID: query.InspectorID,
		Status:      models.InspectionStatus(query.Status),
		Page:        page,
		PageSize:    size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, inspections, pagination(page, size, total))
}

// Get godoc
// @Summary Get inspection with items
// @Tags Inspections
// @Produce json
// @Param id path string true "Inspection ID"
// @Success 200 {object} response.Envelope
// @Router /inspections/{id} [get]
func (h *InspectionHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	inspection, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, inspection, nil)
}

// SaveItems godoc
// @Summary Save inspection items
// @Description Drafts are saved by their inspector. Submitted inspections can be amended by managers.
// @Tags Inspections
// @Accept json
// @Produce json
// @Param id path string true "Inspection ID"
// @Param payload body dto.SaveInspectionItemsRequest true "Items"
// @Success 200 {object} response.Envelope
// @Router /inspections/{id}/items [put]
func (h *InspectionHandler) SaveItems(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.SaveInspectionItemsRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.SaveItems(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusOK, result.Inspection, result.Warnings)
}

// Submit godoc
// @Summary Submit inspection
// @Tags Inspections
// @Produce json
// @Param id path string true "Inspection ID"
// @Success 200 {object} response.Envelope
// @Router /inspections/{id}/submit [post]
func (h *InspectionHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	result, err := h.service.Submit(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusOK, result.Inspection, result.Warnings)
}

// Delete godoc
// @Summary Delete draft inspection
// @Tags Inspections
// @Param id path string true "Inspection ID"
// @Success 204
// @Router /inspections/{id} [delete]
func (h *InspectionHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
