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

const absenceColumns = `id, employee_id, reason, start_date, end_date, is_half_day, half_day_session, duration_days, notes,
	status, created_by, approved_by, approved_at, rejected_by, rejected_at, cancelled_by, cancelled_at, last_updated_by,
	created_at, updated_at`

var absenceUpdatable = columnSet("start_date", "end_date", "is_half_day", "half_day_session", "reason", "duration_days", "notes")

// AbsenceRepository persists absences.
type AbsenceRepository struct {
	db *sqlx.DB
}

// NewAbsenceRepository constructs an AbsenceRepository.
func NewAbsenceRepository(db *sqlx.DB) *AbsenceRepository {
	return &AbsenceRepository{db: db}
}

// Create inserts a new absence.
func (r *AbsenceRepository) Create(ctx context.Context, absence *models.Absence) error {
	if absence.ID == "" {
		absence.ID = uuid.NewString()
	}
	if absence.Status == "" {
		absence.Status = models.AbsencePending
	}
	now := time.Now().UTC()
	absence.CreatedAt, absence.UpdatedAt = now, now
	const query = `INSERT INTO absences (id, employee_id, reason, start_date, end_date, is_half_day, half_day_session,
		duration_days, notes, status, created_by, last_updated_by, created_at, updated_at)
	VALUES (:id, :employee_id, :reason, :start_date, :end_date, :is_half_day, :half_day_session,
		:duration_days, :notes, :status, :created_by, :last_updated_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, absence); err != nil {
		return fmt.Errorf("create absence: %w", err)
	}
	return nil
}

// FindByID fetches an absence.
func (r *AbsenceRepository) FindByID(ctx context.Context, id string) (*models.Absence, error) {
	query := `SELECT ` + absenceColumns + ` FROM absences WHERE id = $1`
	var absence models.Absence
	if err := r.db.GetContext(ctx, &absence, query, id); err != nil {
		return nil, err
	}
	return &absence, nil
}

// List returns absences matching the filter, latest start first.
func (r *AbsenceRepository) List(ctx context.Context, filter models.AbsenceFilter) ([]models.Absence, int, error) {
	base := "FROM absences WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		conditions = append(conditions, fmt.Sprintf("employee_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("COALESCE(end_date, start_date) >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("start_date <= $%d", len(args)))
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	size, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY start_date DESC LIMIT %d OFFSET %d", absenceColumns, base, size, offset)
	var absences []models.Absence
	if err := r.db.SelectContext(ctx, &absences, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list absences: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count absences: %w", err)
	}
	return absences, total, nil
}

// UpdateFields applies an audited patch and returns the stored row.
func (r *AbsenceRepository) UpdateFields(ctx context.Context, id string, values map[string]*string, actorID *string) (*models.Absence, error) {
	update, err := buildFieldUpdate(values, absenceUpdatable, actorID)
	if err != nil {
		return nil, err
	}
	query, args := update.query("absences", "id", id, absenceColumns)
	var absence models.Absence
	if err := r.db.GetContext(ctx, &absence, query, args...); err != nil {
		return nil, fmt.Errorf("update absence: %w", err)
	}
	return &absence, nil
}

// SaveStatus persists a status change along with its actor stamps.
func (r *AbsenceRepository) SaveStatus(ctx context.Context, absence *models.Absence) error {
	absence.UpdatedAt = time.Now().UTC()
	const query = `UPDATE absences SET status = :status, approved_by = :approved_by, approved_at = :approved_at,
		rejected_by = :rejected_by, rejected_at = :rejected_at, cancelled_by = :cancelled_by, cancelled_at = :cancelled_at,
		last_updated_by = :last_updated_by, updated_at = :updated_at
	WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, absence); err != nil {
		return fmt.Errorf("save absence status: %w", err)
	}
	return nil
}
