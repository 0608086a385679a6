package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleetline/fleet-api/internal/dto"
	"github.com/fleetline/fleet-api/pkg/response"
)

// ReportHandler exposes reporting and export endpoints.
type ReportHandler struct {
	reports reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// MaintenanceDue godoc
// @Summary Maintenance due report
// @Description Tax, MOT and service mileage falling due. JSON responses are cached.
// @Tags Reports
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "json, csv or pdf"
// @Param within_days query int false "Look-ahead window in days"
// @Success 200 {object} response.Envelope
// @Router /reports/maintenance-due [get]
func (h *ReportHandler) MaintenanceDue(c *gin.Context) {
	var query dto.ReportQuery
	if !bindQuery(c, &query) {
		return
	}
	if query.Format == "" || query.Format == "json" {
		report, err := h.reports.MaintenanceDue(c.Request.Context(), query.WithinDays)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, report, nil)
		return
	}

	file, err := h.reports.RenderMaintenanceDue(c.Request.Context(), query.WithinDays, query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file.Filename, file.ContentType, file.Body)
}

// ExportMaintenanceHistory godoc
// @Summary Export maintenance history
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Vehicle ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /vehicles/{id}/maintenance/history/export [get]
func (h *ReportHandler) ExportMaintenanceHistory(c *gin.Context) {
	var query dto.ExportQuery
	if !bindQuery(c, &query) {
		return
	}
	format := query.Format
	if format == "" {
		format = "csv"
	}
	file, err := h.reports.ExportMaintenanceHistory(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file.Filename, file.ContentType, file.Body)
}
