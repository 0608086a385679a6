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

const inspectionColumns = `id, vehicle_id, inspector_id, week_ending, current_mileage, status, submitted_at, created_at, updated_at`

const inspectionItemColumns = `id, inspection_id, item_number, item_description, day_of_week, status, comments`

// InspectionRepository persists inspections and their checklist items.
type InspectionRepository struct {
	db *sqlx.DB
}

// NewInspectionRepository constructs an InspectionRepository.
func NewInspectionRepository(db *sqlx.DB) *InspectionRepository {
	return &InspectionRepository{db: db}
}

// Create inserts an inspection header.
func (r *InspectionRepository) Create(ctx context.Context, inspection *models.Inspection) error {
	if inspection.ID == "" {
		inspection.ID = uuid.NewString()
	}
	if inspection.Status == "" {
		inspection.Status = models.InspectionDraft
	}
	now := time.Now().UTC()
	inspection.CreatedAt, inspection.UpdatedAt = now, now
	const query = `INSERT INTO inspections (` + inspectionColumns + `)
	VALUES (:id, :vehicle_id, :inspector_id, :week_ending, :current_mileage, :status, :submitted_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, inspection); err != nil {
		return fmt.Errorf("create inspection: %w", err)
	}
	return nil
}

// FindByID fetches an inspection with its items.
func (r *InspectionRepository) FindByID(ctx context.Context, id string) (*models.Inspection, error) {
	query := `SELECT ` + inspectionColumns + ` FROM inspections WHERE id = $1`
	var inspection models.Inspection
	if err := r.db.GetContext(ctx, &inspection, query, id); err != nil {
		return nil, err
	}
	items, err := r.Items(ctx, id)
	if err != nil {
		return nil, err
	}
	inspection.Items = items
	return &inspection, nil
}

// Items returns the inspection's items ordered by item number then day.
func (r *InspectionRepository) Items(ctx context.Context, inspectionID string) ([]models.InspectionItem, error) {
	query := `SELECT ` + inspectionItemColumns + ` FROM inspection_items WHERE inspection_id = $1 ORDER BY item_number, day_of_week`
	var items []models.InspectionItem
	if err := r.db.SelectContext(ctx, &items, query, inspectionID); err != nil {
		return nil, fmt.Errorf("list inspection items: %w", err)
	}
	return items, nil
}

// List returns inspections matching the filter without items.
func (r *InspectionRepository) List(ctx context.Context, filter models.InspectionFilter) ([]models.Inspection, int, error) {
	base := "FROM inspections WHERE 1=1"
	var conditions []string
	var args []interface{}
	if filter.VehicleID != "" {
		args = append(args, filter.VehicleID)
		conditions = append(conditions, fmt.Sprintf("vehicle_id = $%d", len(args)))
	}
	if filter.InspectorID != "" {
		args = append(args, filter.InspectorID)
		conditions = append(conditions, fmt.Sprintf("inspector_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	size, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY week_ending DESC, created_at DESC LIMIT %d OFFSET %d", inspectionColumns, base, size, offset)
	var inspections []models.Inspection
	if err := r.db.SelectContext(ctx, &inspections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list inspections: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count inspections: %w", err)
	}
	return inspections, total, nil
}

// UpsertItems saves items keyed by (item_number, day_of_week). Existing rows keep their id so
// actions referencing them stay linked. The ids are written back into items.
func (r *InspectionRepository) UpsertItems(ctx context.Context, inspectionID string, items []models.InspectionItem, currentMileage *int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const upsert = `INSERT INTO inspection_items (` + inspectionItemColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (inspection_id, item_number, day_of_week)
	DO UPDATE SET item_description = EXCLUDED.item_description, status = EXCLUDED.status, comments = EXCLUDED.comments
	RETURNING id`
	for i := range items {
		item := &items[i]
		item.InspectionID = inspectionID
		var id string
		if err := tx.QueryRowxContext(ctx, upsert, uuid.NewString(), inspectionID, item.ItemNumber, item.ItemDescription,
			item.DayOfWeek, item.Status, item.Comments).Scan(&id); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("upsert inspection item: %w", err)
		}
		item.ID = id
	}
	const touch = `UPDATE inspections SET current_mileage = COALESCE($2, current_mileage), updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, touch, inspectionID, currentMileage, time.Now().UTC()); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("touch inspection: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit inspection items: %w", err)
	}
	return nil
}

// MarkSubmitted sets the inspection to submitted.
func (r *InspectionRepository) MarkSubmitted(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE inspections SET status = 'submitted', submitted_at = $2, updated_at = $2 WHERE id = $1 AND status = 'draft'`
	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("submit inspection: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("submit inspection: %w", ErrStaleWrite)
	}
	return nil
}

// Delete removes an inspection and its items.
func (r *InspectionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM inspections WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete inspection: %w", err)
	}
	return nil
}
