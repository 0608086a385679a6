package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleetline/fleet-api/pkg/response"
)

// SyncHandler exposes the scheduled vehicle sync.
type SyncHandler struct {
	sync syncService
}

// NewSyncHandler constructs a sync handler.
func NewSyncHandler(sync syncService) *SyncHandler {
	return &SyncHandler{sync: sync}
}

// Vehicles godoc
// @Summary Sync stale vehicles with DVLA and MOT history
// @Description Called by the scheduler with the cron secret. Recently synced vehicles are skipped.
// @Tags Sync
// @Produce json
// @Security CronSecret
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /sync/vehicles [post]
func (h *SyncHandler) Vehicles(c *gin.Context) {
	report, err := h.sync.Run(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
