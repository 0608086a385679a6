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

const actionColumns = `id, vehicle_id, inspection_id, inspection_item_id, title, description, priority, status,
	logged_comment, logged_at, logged_by, actioned_comment, actioned_at, actioned_by, created_by, last_updated_by,
	created_at, updated_at`

var actionUpdatable = columnSet("title", "description", "priority")

// ActionRepository persists workshop actions.
type ActionRepository struct {
	db *sqlx.DB
}

// NewActionRepository constructs an ActionRepository.
func NewActionRepository(db *sqlx.DB) *ActionRepository {
	return &ActionRepository{db: db}
}

// Create inserts an action.
func (r *ActionRepository) Create(ctx context.Context, action *models.Action) error {
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	if action.Status == "" {
		action.Status = models.ActionPending
	}
	if action.Priority == "" {
		action.Priority = models.PriorityMedium
	}
	now := time.Now().UTC()
	action.CreatedAt, action.UpdatedAt = now, now
	const query = `INSERT INTO actions (id, vehicle_id, inspection_id, inspection_item_id, title, description, priority, status,
		created_by, last_updated_by, created_at, updated_at)
	VALUES (:id, :vehicle_id, :inspection_id, :inspection_item_id, :title, :description, :priority, :status,
		:created_by, :last_updated_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, action); err != nil {
		return fmt.Errorf("create action: %w", err)
	}
	return nil
}

// FindByID fetches an action.
func (r *ActionRepository) FindByID(ctx context.Context, id string) (*models.Action, error) {
	query := `SELECT ` + actionColumns + ` FROM actions WHERE id = $1`
	var action models.Action
	if err := r.db.GetContext(ctx, &action, query, id); err != nil {
		return nil, err
	}
	return &action, nil
}

// ListByInspection returns every action raised from an inspection.
func (r *ActionRepository) ListByInspection(ctx context.Context, inspectionID string) ([]models.Action, error) {
	query := `SELECT ` + actionColumns + ` FROM actions WHERE inspection_id = $1 ORDER BY created_at ASC`
	var actions []models.Action
	if err := r.db.SelectContext(ctx, &actions, query, inspectionID); err != nil {
		return nil, fmt.Errorf("list inspection actions: %w", err)
	}
	return actions, nil
}

// List returns actions matching the filter, open ones first.
func (r *ActionRepository) List(ctx context.Context, filter models.ActionFilter) ([]models.Action, int, error) {
	base := "FROM actions WHERE 1=1"
	var conditions []string
	var args []interface{}
	if filter.VehicleID != "" {
		args = append(args, filter.VehicleID)
		conditions = append(conditions, fmt.Sprintf("vehicle_id = $%d", len(args)))
	}
	if filter.InspectionID != "" {
		args = append(args, filter.InspectionID)
		conditions = append(conditions, fmt.Sprintf("inspection_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	size, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf(`SELECT %s %s ORDER BY (status = 'completed') ASC,
		CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END, created_at DESC
		LIMIT %d OFFSET %d`, actionColumns, base, size, offset)
	var actions []models.Action
	if err := r.db.SelectContext(ctx, &actions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list actions: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count actions: %w", err)
	}
	return actions, total, nil
}

// UpdateFields applies an audited patch and returns the stored row.
func (r *ActionRepository) UpdateFields(ctx context.Context, id string, values map[string]*string, actorID *string) (*models.Action, error) {
	update, err := buildFieldUpdate(values, actionUpdatable, actorID)
	if err != nil {
		return nil, err
	}
	query, args := update.query("actions", "id", id, actionColumns)
	var action models.Action
	if err := r.db.GetContext(ctx, &action, query, args...); err != nil {
		return nil, fmt.Errorf("update action: %w", err)
	}
	return &action, nil
}

// SaveState persists status and the logged/actioned columns.
func (r *ActionRepository) SaveState(ctx context.Context, action *models.Action) error {
	action.UpdatedAt = time.Now().UTC()
	const query = `UPDATE actions SET status = :status, logged_comment = :logged_comment, logged_at = :logged_at,
		logged_by = :logged_by, actioned_comment = :actioned_comment, actioned_at = :actioned_at,
		actioned_by = :actioned_by, last_updated_by = :last_updated_by, updated_at = :updated_at
	WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, action); err != nil {
		return fmt.Errorf("save action state: %w", err)
	}
	return nil
}
