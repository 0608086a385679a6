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

const timesheetColumns = `id, employee_id, week_ending, reg_number, total_hours, notes, status, submitted_at, reviewed_by,
	reviewed_at, manager_comments, processed_by, processed_at, last_updated_by, created_at, updated_at`

const timesheetEntryColumns = `id, timesheet_id, day_of_week, time_started, time_finished, did_not_work, daily_total, remarks`

var timesheetUpdatable = columnSet("week_ending", "reg_number", "total_hours", "notes")

// TimesheetRepository persists timesheets and their daily entries.
type TimesheetRepository struct {
	db *sqlx.DB
}

// NewTimesheetRepository constructs a TimesheetRepository.
func NewTimesheetRepository(db *sqlx.DB) *TimesheetRepository {
	return &TimesheetRepository{db: db}
}

// Create inserts a timesheet and its entries.
func (r *TimesheetRepository) Create(ctx context.Context, sheet *models.Timesheet) error {
	if sheet.ID == "" {
		sheet.ID = uuid.NewString()
	}
	if sheet.Status == "" {
		sheet.Status = models.TimesheetDraft
	}
	now := time.Now().UTC()
	sheet.CreatedAt, sheet.UpdatedAt = now, now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const query = `INSERT INTO timesheets (id, employee_id, week_ending, reg_number, total_hours, notes, status, last_updated_by, created_at, updated_at)
	VALUES (:id, :employee_id, :week_ending, :reg_number, :total_hours, :notes, :status, :last_updated_by, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, sheet); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("create timesheet: %w", err)
	}
	if err := r.insertEntriesTx(ctx, tx, sheet.ID, sheet.Entries); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit timesheet: %w", err)
	}
	return nil
}

// FindByID fetches a timesheet with its entries ordered by day.
func (r *TimesheetRepository) FindByID(ctx context.Context, id string) (*models.Timesheet, error) {
	query := `SELECT ` + timesheetColumns + ` FROM timesheets WHERE id = $1`
	var sheet models.Timesheet
	if err := r.db.GetContext(ctx, &sheet, query, id); err != nil {
		return nil, err
	}
	entries, err := r.entries(ctx, id)
	if err != nil {
		return nil, err
	}
	sheet.Entries = entries
	return &sheet, nil
}

func (r *TimesheetRepository) entries(ctx context.Context, timesheetID string) ([]models.TimesheetEntry, error) {
	query := `SELECT ` + timesheetEntryColumns + ` FROM timesheet_entries WHERE timesheet_id = $1 ORDER BY day_of_week`
	var entries []models.TimesheetEntry
	if err := r.db.SelectContext(ctx, &entries, query, timesheetID); err != nil {
		return nil, fmt.Errorf("list timesheet entries: %w", err)
	}
	return entries, nil
}

// List returns timesheets matching the filter, latest week first.
func (r *TimesheetRepository) List(ctx context.Context, filter models.TimesheetFilter) ([]models.Timesheet, int, error) {
	base := "FROM timesheets WHERE 1=1"
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
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	size, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY week_ending DESC LIMIT %d OFFSET %d", timesheetColumns, base, size, offset)
	var sheets []models.Timesheet
	if err := r.db.SelectContext(ctx, &sheets, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list timesheets: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count timesheets: %w", err)
	}
	return sheets, total, nil
}

// UpdateFields applies an audited patch and returns the stored row without entries.
func (r *TimesheetRepository) UpdateFields(ctx context.Context, id string, values map[string]*string, actorID *string) (*models.Timesheet, error) {
	update, err := buildFieldUpdate(values, timesheetUpdatable, actorID)
	if err != nil {
		return nil, err
	}
	query, args := update.query("timesheets", "id", id, timesheetColumns)
	var sheet models.Timesheet
	if err := r.db.GetContext(ctx, &sheet, query, args...); err != nil {
		return nil, fmt.Errorf("update timesheet: %w", err)
	}
	return &sheet, nil
}

// ReplaceEntries rewrites all entries and the total hours in one transaction.
func (r *TimesheetRepository) ReplaceEntries(ctx context.Context, id string, entries []models.TimesheetEntry, totalHours float64, actorID *string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM timesheet_entries WHERE timesheet_id = $1`, id); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear timesheet entries: %w", err)
	}
	if err := r.insertEntriesTx(ctx, tx, id, entries); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	const updateTotal = `UPDATE timesheets SET total_hours = $2, last_updated_by = $3, updated_at = $4 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, updateTotal, id, totalHours, actorID, time.Now().UTC()); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("update timesheet total: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit timesheet entries: %w", err)
	}
	return nil
}

func (r *TimesheetRepository) insertEntriesTx(ctx context.Context, tx *sqlx.Tx, timesheetID string, entries []models.TimesheetEntry) error {
	const query = `INSERT INTO timesheet_entries (` + timesheetEntryColumns + `)
	VALUES (:id, :timesheet_id, :day_of_week, :time_started, :time_finished, :did_not_work, :daily_total, :remarks)`
	for i := range entries {
		entry := &entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		entry.TimesheetID = timesheetID
		if _, err := tx.NamedExecContext(ctx, query, entry); err != nil {
			return fmt.Errorf("insert timesheet entry: %w", err)
		}
	}
	return nil
}

// SaveStatus persists a status change along with its review stamps.
func (r *TimesheetRepository) SaveStatus(ctx context.Context, sheet *models.Timesheet) error {
	sheet.UpdatedAt = time.Now().UTC()
	const query = `UPDATE timesheets SET status = :status, submitted_at = :submitted_at, reviewed_by = :reviewed_by,
		reviewed_at = :reviewed_at, manager_comments = :manager_comments, processed_by = :processed_by,
		processed_at = :processed_at, last_updated_by = :last_updated_by, updated_at = :updated_at
	WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, sheet); err != nil {
		return fmt.Errorf("save timesheet status: %w", err)
	}
	return nil
}
