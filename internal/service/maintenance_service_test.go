package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetline/fleet-api/internal/audit"
	"github.com/fleetline/fleet-api/internal/models"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
)

const vehicleID = "44444444-4444-4444-4444-444444444444"

func newMaintenanceFixture() (*MaintenanceService, *maintenanceRepoStub, *historyStoreStub, *queueStub, *errorLogStub) {
	repo := &maintenanceRepoStub{rows: map[string]*models.Maintenance{
		vehicleID: {ID: "m-1", VehicleID: vehicleID, NextServiceMileage: intPtr(50000), CurrentMileage: intPtr(48000), IsActive: true},
	}}
	store := &historyStoreStub{}
	runner, queue, logs := newTestRunner()
	svc := NewMaintenanceService(repo, newTestAppender(store), runner, nil, nil, nil)
	return svc, repo, store, queue, logs
}

func rawPatch(t *testing.T, body string) audit.RawPatch {
	t.Helper()
	var raw audit.RawPatch
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return raw
}

func TestMaintenanceUpdateRecordsMileageChange(t *testing.T) {
	svc, repo, store, _, _ := newMaintenanceFixture()

	result, err := svc.Update(context.Background(), vehicleID, rawPatch(t, `{"next_service_mileage": 55000}`), "Serviced early at depot", manager)
	require.NoError(t, err)
	require.Empty(t, result.Warnings)
	require.Len(t, repo.updates, 1)
	assert.Equal(t, "55000", *repo.updates[0]["next_service_mileage"])
	assert.Equal(t, 55000, *result.Record.NextServiceMileage)

	require.Len(t, result.History, 1)
	entry := result.History[0]
	assert.Equal(t, "next_service_mileage", entry.FieldName)
	assert.Equal(t, models.ValueMileage, entry.ValueType)
	assert.Equal(t, "50000", *entry.OldValue)
	assert.Equal(t, "55000", *entry.NewValue)
	assert.Equal(t, "Mia Manager", entry.UpdatedByName)
	assert.Len(t, store.forSubject(vehicleID), 1)
}

func TestMaintenanceUpdateRejectsShortComment(t *testing.T) {
	svc, repo, store, _, _ := newMaintenanceFixture()

	_, err := svc.Update(context.Background(), vehicleID, rawPatch(t, `{"next_service_mileage": 55000}`), "too short", manager)
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, repo.updates)
	assert.Empty(t, store.entries)
}

func TestMaintenanceUpdateWithoutChangesKeepsAuditTrail(t *testing.T) {
	svc, repo, store, _, _ := newMaintenanceFixture()

	result, err := svc.Update(context.Background(), vehicleID, rawPatch(t, `{"next_service_mileage": "50000"}`), "Checked the service sticker", manager)
	require.NoError(t, err)
	assert.Empty(t, repo.updates)
	require.Len(t, result.History, 1)
	assert.Equal(t, models.NoChangesField, result.History[0].FieldName)
	assert.Nil(t, result.History[0].OldValue)
	assert.Nil(t, result.History[0].NewValue)
	assert.Len(t, store.entries, 1)
}

func TestMaintenanceUpdateDegradesWhenHistoryFails(t *testing.T) {
	svc, repo, store, queue, logs := newMaintenanceFixture()
	store.fail = errStoreDown

	result, err := svc.Update(context.Background(), vehicleID, rawPatch(t, `{"next_service_mileage": 55000}`), "Serviced early at depot", manager)
	require.NoError(t, err)
	require.Len(t, repo.updates, 1)
	assert.Empty(t, result.History)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], EffectHistory)
	require.Len(t, logs.entries, 1)
	require.Len(t, queue.jobs, 1)

	store.fail = nil
	require.NoError(t, queue.jobs[0].Run(context.Background()))
	require.Len(t, store.entries, 1)
	assert.Equal(t, "next_service_mileage", store.entries[0].FieldName)
}

func TestMaintenanceUpdateErrors(t *testing.T) {
	svc, _, _, _, _ := newMaintenanceFixture()

	_, err := svc.Update(context.Background(), "missing", rawPatch(t, `{"notes": "x"}`), "Valid comment here", manager)
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Update(context.Background(), vehicleID, rawPatch(t, `{"colour": "red"}`), "Valid comment here", manager)
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Update(context.Background(), vehicleID, rawPatch(t, `{"current_mileage": -4}`), "Valid comment here", manager)
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestMaintenanceUpdateRejectsValuesStorageCannotHold(t *testing.T) {
	svc, repo, store, _, _ := newMaintenanceFixture()

	for _, body := range []string{`{"cambelt_done": null}`, `{"current_mileage": 9000000000}`} {
		_, err := svc.Update(context.Background(), vehicleID, rawPatch(t, body), "Valid comment here", manager)
		require.ErrorIs(t, err, appErrors.ErrValidation, body)
	}
	assert.Empty(t, repo.updates)
	assert.Empty(t, store.entries)
}
