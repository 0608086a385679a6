package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetline/fleet-api/internal/audit"
	"github.com/fleetline/fleet-api/internal/middleware"
	"github.com/fleetline/fleet-api/internal/models"
	"github.com/fleetline/fleet-api/internal/service"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
)

type maintenanceServiceMock struct {
	result   *service.MutationResult[*models.Maintenance]
	err      error
	fields   audit.RawPatch
	comment  string
	actor    models.Actor
	historyP int
}

func (m *maintenanceServiceMock) Get(ctx context.Context, vehicleID string) (*models.Maintenance, error) {
	return &models.Maintenance{VehicleID: vehicleID}, m.err
}

func (m *maintenanceServiceMock) Update(ctx context.Context, vehicleID string, raw audit.RawPatch, comment string, actor models.Actor) (*service.MutationResult[*models.Maintenance], error) {
	m.fields, m.comment, m.actor = raw, comment, actor
	return m.result, m.err
}

func (m *maintenanceServiceMock) History(ctx context.Context, vehicleID string, page, size int) ([]models.HistoryEntry, int, error) {
	m.historyP = page
	return []models.HistoryEntry{{FieldName: "mileage"}}, 41, m.err
}

var testManager = models.Actor{ID: "11111111-1111-1111-1111-111111111111", Name: "Mia Manager", Role: models.RoleManager}

func TestMaintenanceHandlerUpdateSplitsCommentFromFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mileage := 55000
	mockSvc := &maintenanceServiceMock{result: &service.MutationResult[*models.Maintenance]{
		Record:  &models.Maintenance{VehicleID: "veh-1", NextServiceMileage: &mileage},
		History: []models.HistoryEntry{{FieldName: "next_service_mileage"}},
	}}
	handler := NewMaintenanceHandler(mockSvc)

	c, w := newGinContext(http.MethodPatch, "/vehicles/veh-1/maintenance", []byte(`{"next_service_mileage":55000,"comment":"Serviced at 50k miles"}`))
	c.Params = gin.Params{{Key: "id", Value: "veh-1"}}
	c.Set(middleware.ContextActorKey, testManager)

	handler.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Serviced at 50k miles", mockSvc.comment)
	assert.Equal(t, testManager.ID, mockSvc.actor.ID)
	require.Contains(t, mockSvc.fields, "next_service_mileage")
	assert.NotContains(t, mockSvc.fields, "comment")

	var body struct {
		Data struct {
			Record  models.Maintenance    `json:"record"`
			History []models.HistoryEntry `json:"history"`
		} `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data.History, 1)
	assert.Equal(t, 55000, *body.Data.Record.NextServiceMileage)
	assert.Nil(t, body.Meta)
}

func TestMaintenanceHandlerUpdateReportsWarnings(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &maintenanceServiceMock{result: &service.MutationResult[*models.Maintenance]{
		Record:   &models.Maintenance{VehicleID: "veh-1"},
		Warnings: []string{"history_append failed for maintenance veh-1"},
	}}
	handler := NewMaintenanceHandler(mockSvc)

	c, w := newGinContext(http.MethodPatch, "/vehicles/veh-1/maintenance", []byte(`{"current_mileage":1,"comment":"Odometer reading"}`))
	c.Params = gin.Params{{Key: "id", Value: "veh-1"}}
	c.Set(middleware.ContextActorKey, testManager)

	handler.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"warnings":["history_append failed for maintenance veh-1"]`)
}

func TestMaintenanceHandlerUpdateMapsValidationError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &maintenanceServiceMock{err: appErrors.Clone(appErrors.ErrValidation, "comment must be at least 10 characters")}
	handler := NewMaintenanceHandler(mockSvc)

	c, w := newGinContext(http.MethodPatch, "/vehicles/veh-1/maintenance", []byte(`{"current_mileage":1,"comment":"short"}`))
	c.Params = gin.Params{{Key: "id", Value: "veh-1"}}
	c.Set(middleware.ContextActorKey, testManager)

	handler.Update(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "at least 10 characters")
}

func TestMaintenanceHandlerUpdateRequiresActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &maintenanceServiceMock{}
	handler := NewMaintenanceHandler(mockSvc)

	c, w := newGinContext(http.MethodPatch, "/vehicles/veh-1/maintenance", []byte(`{"comment":"whatever it is"}`))
	handler.Update(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, mockSvc.comment)
}

func TestMaintenanceHandlerUpdateRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewMaintenanceHandler(&maintenanceServiceMock{})

	c, w := newGinContext(http.MethodPatch, "/vehicles/veh-1/maintenance", []byte(`{"comment": 12}`))
	c.Set(middleware.ContextActorKey, testManager)
	handler.Update(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMaintenanceHandlerHistoryPaginates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &maintenanceServiceMock{}
	handler := NewMaintenanceHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/vehicles/veh-1/maintenance/history?page=3&page_size=500", nil)
	c.Params = gin.Params{{Key: "id", Value: "veh-1"}}
	handler.History(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, mockSvc.historyP)
	assert.Contains(t, w.Body.String(), `"pagination":{"page":3,"page_size":100,"total_count":41}`)
}
