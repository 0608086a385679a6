package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetline/fleet-api/internal/models"
	"github.com/fleetline/fleet-api/pkg/dvla"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
	"github.com/fleetline/fleet-api/pkg/mot"
)

type vehicleRepoStub struct {
	vehicles    map[string]*models.Vehicle
	order       []string
	statusCalls []syncStatusCall
	detailed    int
	inspected   map[string]bool
	deleted     []string
}

type syncStatusCall struct {
	id       string
	status   models.SyncStatus
	syncErr  *string
	syncedAt *time.Time
}

func newVehicleRepoStub(vehicles ...models.Vehicle) *vehicleRepoStub {
	repo := &vehicleRepoStub{vehicles: map[string]*models.Vehicle{}, inspected: map[string]bool{}}
	for i := range vehicles {
		v := vehicles[i]
		repo.vehicles[v.ID] = &v
		repo.order = append(repo.order, v.ID)
	}
	return repo
}

func (r *vehicleRepoStub) Create(ctx context.Context, vehicle *models.Vehicle) error {
	for _, v := range r.vehicles {
		if v.RegNumber == vehicle.RegNumber {
			return &pq.Error{Code: "23505", Constraint: "vehicles_reg_number_key"}
		}
	}
	vehicle.ID = "veh-" + vehicle.RegNumber
	stored := *vehicle
	r.vehicles[vehicle.ID] = &stored
	r.order = append(r.order, vehicle.ID)
	return nil
}

func (r *vehicleRepoStub) FindByID(ctx context.Context, id string) (*models.Vehicle, error) {
	v, ok := r.vehicles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *v
	return &copy, nil
}

func (r *vehicleRepoStub) List(ctx context.Context, filter models.VehicleFilter) ([]models.Vehicle, int, error) {
	var out []models.Vehicle
	for _, id := range r.order {
		out = append(out, *r.vehicles[id])
	}
	return out, len(out), nil
}

func (r *vehicleRepoStub) ListStale(ctx context.Context, cutoff time.Time) ([]models.Vehicle, error) {
	var out []models.Vehicle
	for _, id := range r.order {
		v := r.vehicles[id]
		if v.Status == models.VehicleActive && (v.LastDVLASync == nil || v.LastDVLASync.Before(cutoff)) {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (r *vehicleRepoStub) CountActive(ctx context.Context) (int, error) {
	n := 0
	for _, v := range r.vehicles {
		if v.Status == models.VehicleActive {
			n++
		}
	}
	return n, nil
}

func (r *vehicleRepoStub) UpdateDetails(ctx context.Context, vehicle *models.Vehicle) error {
	r.detailed++
	return nil
}

func (r *vehicleRepoStub) UpdateSyncStatus(ctx context.Context, id string, status models.SyncStatus, syncErr *string, syncedAt *time.Time) error {
	r.statusCalls = append(r.statusCalls, syncStatusCall{id: id, status: status, syncErr: syncErr, syncedAt: syncedAt})
	v := r.vehicles[id]
	v.DVLASyncStatus = status
	v.DVLASyncError = syncErr
	if syncedAt != nil {
		v.LastDVLASync = syncedAt
	}
	return nil
}

func (r *vehicleRepoStub) SetStatus(ctx context.Context, id string, status models.VehicleStatus) error {
	r.vehicles[id].Status = status
	return nil
}

func (r *vehicleRepoStub) HasInspections(ctx context.Context, id string) (bool, error) {
	return r.inspected[id], nil
}

func (r *vehicleRepoStub) Delete(ctx context.Context, id string) error {
	r.deleted = append(r.deleted, id)
	delete(r.vehicles, id)
	return nil
}

type dvlaStub struct {
	vehicles map[string]*dvla.Vehicle
	failures map[string]error
	calls    int
}

func (d *dvlaStub) Configured() bool { return d != nil }

func (d *dvlaStub) LookupVehicle(ctx context.Context, reg string) (*dvla.Vehicle, error) {
	d.calls++
	if err := d.failures[reg]; err != nil {
		return nil, err
	}
	if v, ok := d.vehicles[reg]; ok {
		return v, nil
	}
	return nil, dvla.ErrVehicleNotFound
}

type motStub struct {
	histories map[string]*mot.History
}

func (m *motStub) Configured() bool { return m != nil }

func (m *motStub) FetchHistory(ctx context.Context, reg string) (*mot.History, error) {
	if h, ok := m.histories[reg]; ok {
		return h, nil
	}
	return nil, mot.ErrVehicleNotFound
}

func activeVehicle(id, reg string) models.Vehicle {
	return models.Vehicle{ID: id, RegNumber: reg, Status: models.VehicleActive, Category: models.CategoryVan, DVLASyncStatus: models.SyncPending}
}

func fleetDVLA() *dvlaStub {
	tax := date("2027-03-01")
	motDue := date("2027-01-15")
	return &dvlaStub{
		vehicles: map[string]*dvla.Vehicle{
			"AB12CDE": {RegistrationNumber: "AB12CDE", Make: "FORD", TaxDueDate: &tax, MOTExpiryDate: &motDue},
			"XY65ZZZ": {RegistrationNumber: "XY65ZZZ", Make: "VAUXHALL", TaxDueDate: &tax},
		},
		failures: map[string]error{},
	}
}

func newSyncFixture(dvlaClient *dvlaStub, motClient *motStub, cfg VehicleSyncConfig, vehicles ...models.Vehicle) (*VehicleSyncService, *vehicleRepoStub, *maintenanceRepoStub, *auditLogStub) {
	repo := newVehicleRepoStub(vehicles...)
	maintenance := &maintenanceRepoStub{rows: map[string]*models.Maintenance{}}
	logs := &auditLogStub{}
	if cfg.Pacing == 0 {
		cfg.Pacing = time.Nanosecond
	}
	var dvlaLookupClient dvlaLookup
	if dvlaClient != nil {
		dvlaLookupClient = dvlaClient
	}
	var motLookupClient motLookup
	if motClient != nil {
		motLookupClient = motClient
	}
	svc := NewVehicleSyncService(repo, maintenance, logs, dvlaLookupClient, motLookupClient, nil, nil, nil, cfg)
	return svc, repo, maintenance, logs
}

func TestVehicleSyncRequiresProvider(t *testing.T) {
	svc, _, _, _ := newSyncFixture(nil, nil, VehicleSyncConfig{}, activeVehicle("v1", "AB12CDE"))

	_, err := svc.Run(context.Background())
	require.ErrorIs(t, err, appErrors.ErrUpstream)
}

func TestVehicleSyncSecondRunIsNoop(t *testing.T) {
	client := fleetDVLA()
	svc, repo, maintenance, logs := newSyncFixture(client, nil, VehicleSyncConfig{},
		activeVehicle("v1", "AB12CDE"), activeVehicle("v2", "XY65ZZZ"))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Synced)
	assert.Equal(t, 2, report.Successful)
	assert.False(t, report.Truncated)
	require.Len(t, maintenance.synced, 2)
	assert.True(t, maintenance.synced[0].DVLASynced)
	assert.Equal(t, 2, repo.detailed)
	assert.Len(t, logs.logs, 2)

	report, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Synced)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 2, client.calls)
}

func TestVehicleSyncFailureKeepsVehicleStale(t *testing.T) {
	client := fleetDVLA()
	client.failures["AB12CDE"] = errors.New("dvla returned 503")
	svc, repo, maintenance, _ := newSyncFixture(client, nil, VehicleSyncConfig{}, activeVehicle("v1", "AB12CDE"))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Results, 1)
	assert.Equal(t, models.SyncOutcomeFailed, report.Results[0].Outcome)
	assert.Contains(t, report.Results[0].Error, "503")
	assert.Empty(t, maintenance.synced)

	require.Len(t, repo.statusCalls, 1)
	assert.Equal(t, models.SyncError, repo.statusCalls[0].status)
	assert.Nil(t, repo.statusCalls[0].syncedAt)

	report, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, client.calls)
}

func TestVehicleSyncMOTWithoutHistoryIsWarning(t *testing.T) {
	expiry := date("2027-05-01")
	odometer := 80468
	history := &mot.History{Tests: []mot.Test{{Result: "PASSED", ExpiryDate: &expiry, Odometer: &odometer, OdometerUnit: "km"}}}
	svc, _, maintenance, _ := newSyncFixture(fleetDVLA(), &motStub{histories: map[string]*mot.History{"AB12CDE": history}}, VehicleSyncConfig{},
		activeVehicle("v1", "AB12CDE"), activeVehicle("v2", "XY65ZZZ"))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Successful)
	assert.Empty(t, report.Results[0].Warnings)
	assert.Equal(t, []string{"MOT: no test history"}, report.Results[1].Warnings)

	require.Len(t, maintenance.synced, 2)
	assert.Equal(t, expiry, *maintenance.synced[0].MOTDueDate)
	assert.Equal(t, 50000, *maintenance.synced[0].CurrentMileage)
}

func TestVehicleSyncStopsWhenBudgetRunsOut(t *testing.T) {
	svc, repo, _, _ := newSyncFixture(fleetDVLA(), nil, VehicleSyncConfig{Pacing: time.Hour, Budget: 50 * time.Millisecond},
		activeVehicle("v1", "AB12CDE"), activeVehicle("v2", "XY65ZZZ"))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Truncated)
	assert.Equal(t, 1, report.Synced)
	require.Len(t, repo.statusCalls, 1)
	assert.Equal(t, "v1", repo.statusCalls[0].id)
	assert.Nil(t, repo.vehicles["v2"].LastDVLASync)
}
