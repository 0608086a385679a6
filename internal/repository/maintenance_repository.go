package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fleetline/fleet-api/internal/models"
)

const maintenanceColumns = `id, vehicle_id, tax_due_date, mot_due_date, first_aid_kit_expiry, current_mileage,
	last_service_mileage, next_service_mileage, cambelt_due_mileage, cambelt_done, tracker_id, notes, is_active,
	last_dvla_sync, last_mot_sync, last_updated_by, created_at, updated_at`

var maintenanceUpdatable = columnSet(
	"tax_due_date", "mot_due_date", "first_aid_kit_expiry",
	"current_mileage", "last_service_mileage", "next_service_mileage", "cambelt_due_mileage",
	"cambelt_done", "tracker_id", "notes",
)

// MaintenanceRepository persists per-vehicle maintenance records.
type MaintenanceRepository struct {
	db *sqlx.DB
}

// NewMaintenanceRepository constructs a MaintenanceRepository.
func NewMaintenanceRepository(db *sqlx.DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: db}
}

// FindByVehicleID fetches the maintenance row of a vehicle.
func (r *MaintenanceRepository) FindByVehicleID(ctx context.Context, vehicleID string) (*models.Maintenance, error) {
	query := `SELECT ` + maintenanceColumns + ` FROM vehicle_maintenance WHERE vehicle_id = $1`
	var record models.Maintenance
	if err := r.db.GetContext(ctx, &record, query, vehicleID); err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateFields applies an audited patch and returns the stored row.
func (r *MaintenanceRepository) UpdateFields(ctx context.Context, vehicleID string, values map[string]*string, actorID *string) (*models.Maintenance, error) {
	update, err := buildFieldUpdate(values, maintenanceUpdatable, actorID)
	if err != nil {
		return nil, err
	}
	query, args := update.query("vehicle_maintenance", "vehicle_id", vehicleID, maintenanceColumns)
	var record models.Maintenance
	if err := r.db.GetContext(ctx, &record, query, args...); err != nil {
		return nil, fmt.Errorf("update maintenance: %w", err)
	}
	return &record, nil
}

// ApplySync writes the fields sourced from DVLA and MOT. Nil values keep the stored value.
func (r *MaintenanceRepository) ApplySync(ctx context.Context, vehicleID string, update models.SyncUpdate, syncedAt time.Time) error {
	var dvlaAt, motAt *time.Time
	if update.DVLASynced {
		dvlaAt = &syncedAt
	}
	if update.MOTSynced {
		motAt = &syncedAt
	}
	const query = `UPDATE vehicle_maintenance SET
		tax_due_date = COALESCE($2, tax_due_date),
		mot_due_date = COALESCE($3, mot_due_date),
		current_mileage = GREATEST(COALESCE($4, current_mileage), current_mileage),
		last_dvla_sync = COALESCE($5, last_dvla_sync),
		last_mot_sync = COALESCE($6, last_mot_sync),
		updated_at = $7
	WHERE vehicle_id = $1`
	if _, err := r.db.ExecContext(ctx, query, vehicleID, update.TaxDueDate, update.MOTDueDate, update.CurrentMileage, dvlaAt, motAt, syncedAt); err != nil {
		return fmt.Errorf("apply maintenance sync: %w", err)
	}
	return nil
}

// ListDue returns the maintenance items of active vehicles that fall due on or before the
// cutoff date, or whose service or cambelt mileage is within margin of the current mileage.
func (r *MaintenanceRepository) ListDue(ctx context.Context, today, cutoff time.Time, margin int) ([]models.MaintenanceDueItem, error) {
	const query = `SELECT * FROM (
		SELECT v.id AS vehicle_id, v.reg_number, v.category, 'tax' AS item, m.tax_due_date AS due_date,
			NULL::INT AS due_mileage, m.current_mileage, m.tax_due_date < $1 AS overdue
		FROM vehicle_maintenance m JOIN vehicles v ON v.id = m.vehicle_id
		WHERE m.is_active AND v.status = 'active' AND m.tax_due_date <= $2
		UNION ALL
		SELECT v.id, v.reg_number, v.category, 'mot', m.mot_due_date, NULL::INT, m.current_mileage, m.mot_due_date < $1
		FROM vehicle_maintenance m JOIN vehicles v ON v.id = m.vehicle_id
		WHERE m.is_active AND v.status = 'active' AND m.mot_due_date <= $2
		UNION ALL
		SELECT v.id, v.reg_number, v.category, 'first_aid_kit', m.first_aid_kit_expiry, NULL::INT, m.current_mileage, m.first_aid_kit_expiry < $1
		FROM vehicle_maintenance m JOIN vehicles v ON v.id = m.vehicle_id
		WHERE m.is_active AND v.status = 'active' AND m.first_aid_kit_expiry <= $2
		UNION ALL
		SELECT v.id, v.reg_number, v.category, 'service', NULL::DATE, m.next_service_mileage, m.current_mileage,
			m.current_mileage >= m.next_service_mileage
		FROM vehicle_maintenance m JOIN vehicles v ON v.id = m.vehicle_id
		WHERE m.is_active AND v.status = 'active' AND m.current_mileage IS NOT NULL
			AND m.next_service_mileage IS NOT NULL AND m.next_service_mileage - m.current_mileage <= $3
		UNION ALL
		SELECT v.id, v.reg_number, v.category, 'cambelt', NULL::DATE, m.cambelt_due_mileage, m.current_mileage,
			m.current_mileage >= m.cambelt_due_mileage
		FROM vehicle_maintenance m JOIN vehicles v ON v.id = m.vehicle_id
		WHERE m.is_active AND v.status = 'active' AND NOT m.cambelt_done AND m.current_mileage IS NOT NULL
			AND m.cambelt_due_mileage IS NOT NULL AND m.cambelt_due_mileage - m.current_mileage <= $3
	) due ORDER BY overdue DESC, due_date ASC NULLS LAST, reg_number ASC`
	var items []models.MaintenanceDueItem
	if err := r.db.SelectContext(ctx, &items, query, today, cutoff, margin); err != nil {
		return nil, fmt.Errorf("list maintenance due: %w", err)
	}
	return items, nil
}
