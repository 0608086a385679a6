package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetline/fleet-api/internal/dto"
	"github.com/fleetline/fleet-api/internal/models"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
)

func TestVehicleCreateEnrichesFromDVLA(t *testing.T) {
	repo := newVehicleRepoStub()
	maintenance := &maintenanceRepoStub{rows: map[string]*models.Maintenance{}}
	logs := &auditLogStub{}
	colour := "White"
	svc := NewVehicleService(repo, maintenance, logs, fleetDVLA(), nil, nil, nil)

	result, err := svc.Create(context.Background(), manager, dto.CreateVehicleRequest{RegNumber: "ab12 cde", Category: "van", Colour: &colour})
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, "AB12CDE", result.Vehicle.RegNumber)
	assert.Equal(t, "FORD", *result.Vehicle.Make)
	assert.Equal(t, "White", *result.Vehicle.Colour)
	assert.Equal(t, models.SyncSuccess, result.Vehicle.DVLASyncStatus)
	require.NotNil(t, result.Vehicle.LastDVLASync)

	require.Len(t, maintenance.synced, 1)
	assert.Equal(t, date("2027-03-01"), *maintenance.synced[0].TaxDueDate)
	require.Len(t, logs.logs, 1)
	assert.Equal(t, models.AuditActionVehicleCreate, logs.logs[0].Action)

	_, err = svc.Create(context.Background(), manager, dto.CreateVehicleRequest{RegNumber: "AB12CDE", Category: "van"})
	require.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestVehicleCreateSurvivesDVLAFailure(t *testing.T) {
	repo := newVehicleRepoStub()
	maintenance := &maintenanceRepoStub{rows: map[string]*models.Maintenance{}}
	logs := &auditLogStub{}
	client := fleetDVLA()
	client.failures["NEW1"] = errors.New("timeout")
	svc := NewVehicleService(repo, maintenance, logs, client, nil, nil, nil)

	result, err := svc.Create(context.Background(), manager, dto.CreateVehicleRequest{RegNumber: "new1", Category: "car"})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "DVLA lookup failed")
	assert.Equal(t, models.SyncError, result.Vehicle.DVLASyncStatus)
	assert.Empty(t, maintenance.synced)

	require.Len(t, logs.logs, 2)
	assert.Equal(t, models.AuditActionUpstreamFailed, logs.logs[0].Action)
	assert.Equal(t, models.AuditActionVehicleCreate, logs.logs[1].Action)
}

func TestVehicleDeleteDeactivatesInspectedVehicles(t *testing.T) {
	repo := newVehicleRepoStub(activeVehicle("v1", "AB12CDE"), activeVehicle("v2", "XY65ZZZ"))
	repo.inspected["v1"] = true
	logs := &auditLogStub{}
	svc := NewVehicleService(repo, nil, logs, nil, nil, nil, nil)

	result, err := svc.Delete(context.Background(), manager, "v1")
	require.NoError(t, err)
	assert.True(t, result.Deactivated)
	assert.False(t, result.Deleted)
	assert.Equal(t, models.VehicleInactive, repo.vehicles["v1"].Status)

	result, err = svc.Delete(context.Background(), manager, "v2")
	require.NoError(t, err)
	assert.True(t, result.Deleted)
	assert.Equal(t, []string{"v2"}, repo.deleted)
	assert.Len(t, logs.logs, 2)

	_, err = svc.Delete(context.Background(), manager, "v2")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}
