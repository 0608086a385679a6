package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fleetline/fleet-api/internal/models"
)

const vehicleColumns = `id, reg_number, make, model, colour, fuel_type, year_of_manufacture, category, status,
	dvla_sync_status, dvla_sync_error, last_dvla_sync, created_at, updated_at`

// VehicleRepository persists the vehicle registry.
type VehicleRepository struct {
	db *sqlx.DB
}

// NewVehicleRepository constructs a VehicleRepository.
func NewVehicleRepository(db *sqlx.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// Create inserts a vehicle together with its empty maintenance record.
func (r *VehicleRepository) Create(ctx context.Context, vehicle *models.Vehicle) error {
	if vehicle.ID == "" {
		vehicle.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	vehicle.CreatedAt, vehicle.UpdatedAt = now, now
	if vehicle.Status == "" {
		vehicle.Status = models.VehicleActive
	}
	if vehicle.DVLASyncStatus == "" {
		vehicle.DVLASyncStatus = models.SyncPending
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const insertVehicle = `INSERT INTO vehicles (id, reg_number, make, model, colour, fuel_type, year_of_manufacture, category, status,
		dvla_sync_status, dvla_sync_error, last_dvla_sync, created_at, updated_at)
	VALUES (:id, :reg_number, :make, :model, :colour, :fuel_type, :year_of_manufacture, :category, :status,
		:dvla_sync_status, :dvla_sync_error, :last_dvla_sync, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertVehicle, vehicle); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert vehicle: %w", err)
	}
	const insertMaintenance = `INSERT INTO vehicle_maintenance (id, vehicle_id, is_active, created_at, updated_at) VALUES ($1, $2, TRUE, $3, $3)`
	if _, err := tx.ExecContext(ctx, insertMaintenance, uuid.NewString(), vehicle.ID, now); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert maintenance: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit vehicle: %w", err)
	}
	return nil
}

// FindByID fetches a vehicle by id.
func (r *VehicleRepository) FindByID(ctx context.Context, id string) (*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`
	var vehicle models.Vehicle
	if err := r.db.GetContext(ctx, &vehicle, query, id); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// List returns vehicles matching filters along with total count.
func (r *VehicleRepository) List(ctx context.Context, filter models.VehicleFilter) ([]models.Vehicle, int, error) {
	base := "FROM vehicles WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToUpper(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(reg_number LIKE $%d OR UPPER(COALESCE(make, '')) LIKE $%d)", len(args), len(args)))
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	size, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY reg_number ASC LIMIT %d OFFSET %d", vehicleColumns, base, size, offset)
	var vehicles []models.Vehicle
	if err := r.db.SelectContext(ctx, &vehicles, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list vehicles: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count vehicles: %w", err)
	}
	return vehicles, total, nil
}

// ListStale returns active vehicles never synced or last synced before cutoff, oldest first.
func (r *VehicleRepository) ListStale(ctx context.Context, cutoff time.Time) ([]models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles
	WHERE status = 'active' AND (last_dvla_sync IS NULL OR last_dvla_sync < $1)
	ORDER BY last_dvla_sync ASC NULLS FIRST, reg_number ASC`
	var vehicles []models.Vehicle
	if err := r.db.SelectContext(ctx, &vehicles, query, cutoff); err != nil {
		return nil, fmt.Errorf("list stale vehicles: %w", err)
	}
	return vehicles, nil
}

// CountActive returns the number of active vehicles.
func (r *VehicleRepository) CountActive(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM vehicles WHERE status = 'active'`); err != nil {
		return 0, fmt.Errorf("count active vehicles: %w", err)
	}
	return total, nil
}

// UpdateDetails writes DVLA-sourced descriptive fields.
func (r *VehicleRepository) UpdateDetails(ctx context.Context, vehicle *models.Vehicle) error {
	vehicle.UpdatedAt = time.Now().UTC()
	const query = `UPDATE vehicles SET make = :make, colour = :colour, fuel_type = :fuel_type,
		year_of_manufacture = :year_of_manufacture, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, vehicle); err != nil {
		return fmt.Errorf("update vehicle details: %w", err)
	}
	return nil
}

// UpdateSyncStatus records the outcome of a DVLA/MOT sync attempt. last_dvla_sync only moves
// forward on success so failed vehicles stay stale and are retried on the next run.
func (r *VehicleRepository) UpdateSyncStatus(ctx context.Context, id string, status models.SyncStatus, syncErr *string, syncedAt *time.Time) error {
	const query = `UPDATE vehicles SET dvla_sync_status = $2, dvla_sync_error = $3,
		last_dvla_sync = COALESCE($4, last_dvla_sync), updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, syncErr, syncedAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("update vehicle sync status: %w", err)
	}
	return nil
}

// SetStatus toggles the active flag.
func (r *VehicleRepository) SetStatus(ctx context.Context, id string, status models.VehicleStatus) error {
	const query = `UPDATE vehicles SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("set vehicle status: %w", err)
	}
	const deactivate = `UPDATE vehicle_maintenance SET is_active = $2, updated_at = $3 WHERE vehicle_id = $1`
	if _, err := r.db.ExecContext(ctx, deactivate, id, status == models.VehicleActive, time.Now().UTC()); err != nil {
		return fmt.Errorf("set maintenance active flag: %w", err)
	}
	return nil
}

// HasInspections reports whether any inspection references the vehicle.
func (r *VehicleRepository) HasInspections(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM inspections WHERE vehicle_id = $1)`, id); err != nil {
		return false, fmt.Errorf("check vehicle inspections: %w", err)
	}
	return exists, nil
}

// Delete removes a vehicle and its maintenance row.
func (r *VehicleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete vehicle: %w", err)
	}
	return nil
}
