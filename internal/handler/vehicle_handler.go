package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleetline/fleet-api/internal/dto"
	"github.com/fleetline/fleet-api/internal/models"
	"github.com/fleetline/fleet-api/pkg/response"
)

// VehicleHandler exposes the vehicle registry.
type VehicleHandler struct {
	service vehicleService
}

// NewVehicleHandler constructs a vehicle handler.
func NewVehicleHandler(svc vehicleService) *VehicleHandler {
	return &VehicleHandler{service: svc}
}

// List godoc
// @Summary List vehicles
// @Tags Vehicles
// @Produce json
// @Param status query string false "active or inactive"
// @Param category query string false "van, car, hgv or plant"
// @Param search query string false "Registration, make or model"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /vehicles [get]
func (h *VehicleHandler) List(c *gin.Context) {
	var query dto.VehicleQuery
	if !bindQuery(c, &query) {
		return
	}
	page, size := pageParams(c)
	vehicles, total, err := h.service.List(c.Request.Context(), models.VehicleFilter{
		Status:   models.VehicleStatus(query.Status),
		Category: models.VehicleCategory(query.Category),
		Search:   query.Search,
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, vehicles, pagination(page, size, total))
}

// Get godoc
// @Summary Get vehicle
// @Tags Vehicles
// @Produce json
// @Param id path string true "Vehicle ID"
// @Success 200 {object} response.Envelope
// @Router /vehicles/{id} [get]
func (h *VehicleHandler) Get(c *gin.Context) {
	vehicle, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, vehicle, nil)
}

// Create godoc
// @Summary Register vehicle
// @Description Missing details are looked up from DVLA. A failed lookup is reported in meta.warnings.
// @Tags Vehicles
// @Accept json
// @Produce json
// @Param payload body dto.CreateVehicleRequest true "Vehicle payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /vehicles [post]
func (h *VehicleHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateVehicleRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusCreated, result.Vehicle, result.Warnings)
}

// Delete godoc
// @Summary Delete or deactivate vehicle
// @Description Vehicles with history are deactivated instead of removed.
// @Tags Vehicles
// @Produce json
// @Param id path string true "Vehicle ID"
// @Success 200 {object} response.Envelope
// @Router /vehicles/{id} [delete]
func (h *VehicleHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	result, err := h.service.Delete(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
