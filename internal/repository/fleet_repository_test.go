package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetline/fleet-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "postgres"), mock, func() { db.Close() }
}

func strPtr(s string) *string { return &s }

func TestHistoryRepositoryInsertBatchSingleStatement(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	now := time.Now().UTC()
	entries := []models.HistoryEntry{
		{ID: "h1", RecordType: models.RecordMaintenance, SubjectID: "v1", FieldName: "current_mileage", OldValue: strPtr("1"), NewValue: strPtr("2"), ValueType: models.ValueMileage, Comment: "odometer read", UpdatedBy: strPtr("u1"), UpdatedByName: "Sam", CreatedAt: now},
		{ID: "h2", RecordType: models.RecordMaintenance, SubjectID: "v1", FieldName: "notes", NewValue: strPtr("x"), ValueType: models.ValueText, Comment: "odometer read", UpdatedBy: strPtr("u1"), UpdatedByName: "Sam", CreatedAt: now},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO record_history") + `.*\(\$1, .*\$11\), \(\$12, .*\$22\) ON CONFLICT \(id\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, NewHistoryRepository(db).InsertBatch(context.Background(), entries))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepositoryInsertBatchEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	require.NoError(t, NewHistoryRepository(db).InsertBatch(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "record_type", "subject_id", "field_name", "old_value", "new_value", "value_type", "comment", "updated_by", "updated_by_name", "created_at"}).
		AddRow("h1", "absence", "a1", "no_changes", nil, nil, "text", "reviewed dates", nil, "System", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM record_history WHERE record_type = $1 AND subject_id = $2")).
		WithArgs(models.RecordAbsence, "a1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM record_history")).
		WithArgs(models.RecordAbsence, "a1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	entries, total, err := NewHistoryRepository(db).List(context.Background(), models.HistoryFilter{RecordType: models.RecordAbsence, SubjectID: "a1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, total)
	assert.Nil(t, entries[0].UpdatedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaintenanceRepositoryUpdateFields(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	columns := []string{"id", "vehicle_id", "tax_due_date", "mot_due_date", "first_aid_kit_expiry", "current_mileage",
		"last_service_mileage", "next_service_mileage", "cambelt_due_mileage", "cambelt_done", "tracker_id", "notes", "is_active",
		"last_dvla_sync", "last_mot_sync", "last_updated_by", "created_at", "updated_at"}
	rows := sqlmock.NewRows(columns).AddRow("m1", "v1", nil, nil, nil, 50000, nil, 55000, nil, false, nil, "serviced", true, nil, nil, "u1", time.Now(), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE vehicle_maintenance SET next_service_mileage = $1, notes = $2, last_updated_by = $3, updated_at = $4 WHERE vehicle_id = $5 RETURNING")).
		WithArgs("55000", "serviced", "u1", sqlmock.AnyArg(), "v1").
		WillReturnRows(rows)

	record, err := NewMaintenanceRepository(db).UpdateFields(context.Background(), "v1", map[string]*string{
		"notes":                strPtr("serviced"),
		"next_service_mileage": strPtr("55000"),
	}, strPtr("u1"))
	require.NoError(t, err)
	require.NotNil(t, record.NextServiceMileage)
	assert.Equal(t, 55000, *record.NextServiceMileage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaintenanceRepositoryRejectsUnknownColumn(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()

	_, err := NewMaintenanceRepository(db).UpdateFields(context.Background(), "v1", map[string]*string{"is_active": strPtr("false")}, nil)
	require.Error(t, err)
}

func TestInspectionRepositoryUpsertItemsKeepsIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO inspection_items") + ".*ON CONFLICT \\(inspection_id, item_number, day_of_week\\)").
		WithArgs(sqlmock.AnyArg(), "i1", 3, "Tyres", 1, models.ItemAttention, "worn").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-item"))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO inspection_items")).
		WithArgs(sqlmock.AnyArg(), "i1", 4, "Lights", 1, models.ItemOK, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("new-item"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE inspections SET current_mileage")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	items := []models.InspectionItem{
		{ItemNumber: 3, ItemDescription: "Tyres", DayOfWeek: 1, Status: models.ItemAttention, Comments: strPtr("worn")},
		{ItemNumber: 4, ItemDescription: "Lights", DayOfWeek: 1, Status: models.ItemOK},
	}
	require.NoError(t, NewInspectionRepository(db).UpsertItems(context.Background(), "i1", items, nil))
	assert.Equal(t, "existing-item", items[0].ID)
	assert.Equal(t, "new-item", items[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInspectionRepositoryMarkSubmittedStale(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE inspections SET status = 'submitted'")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewInspectionRepository(db).MarkSubmitted(context.Background(), "i1", time.Now())
	require.ErrorIs(t, err, ErrStaleWrite)
}

func TestVehicleRepositoryListStale(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	cutoff := time.Now().Add(-144 * time.Hour)
	columns := []string{"id", "reg_number", "make", "model", "colour", "fuel_type", "year_of_manufacture", "category", "status",
		"dvla_sync_status", "dvla_sync_error", "last_dvla_sync", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'active' AND (last_dvla_sync IS NULL OR last_dvla_sync < $1)")).
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows(columns).AddRow("v1", "AB12CDE", nil, nil, nil, nil, nil, "van", "active", "pending", nil, nil, time.Now(), time.Now()))

	vehicles, err := NewVehicleRepository(db).ListStale(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "AB12CDE", vehicles[0].RegNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVehicleRepositoryCreateAddsMaintenance(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO vehicles")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO vehicle_maintenance")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	vehicle := &models.Vehicle{RegNumber: "AB12CDE", Category: models.CategoryVan}
	require.NoError(t, NewVehicleRepository(db).Create(context.Background(), vehicle))
	assert.NotEmpty(t, vehicle.ID)
	assert.Equal(t, models.VehicleActive, vehicle.Status)
	assert.Equal(t, models.SyncPending, vehicle.DVLASyncStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimesheetRepositoryReplaceEntries(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timesheet_entries WHERE timesheet_id = $1")).
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timesheet_entries")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE timesheets SET total_hours = $2")).
		WithArgs("t1", 8.5, "u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entries := []models.TimesheetEntry{{DayOfWeek: 1, TimeStarted: strPtr("07:30"), TimeFinished: strPtr("16:00"), DailyTotal: 8.5}}
	require.NoError(t, NewTimesheetRepository(db).ReplaceEntries(context.Background(), "t1", entries, 8.5, strPtr("u1")))
	assert.Equal(t, "t1", entries[0].TimesheetID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActionRepositorySaveState(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE actions SET status = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	action := &models.Action{ID: "a1", Status: models.ActionLogged, LoggedComment: strPtr("parts ordered")}
	require.NoError(t, NewActionRepository(db).SaveState(context.Background(), action))
	require.NoError(t, mock.ExpectationsWereMet())
}
