package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/fleetline/fleet-api/internal/models"
)

const historyColumns = `id, record_type, subject_id, field_name, old_value, new_value, value_type, comment, updated_by, updated_by_name, created_at`

// HistoryRepository is the insert-only store behind record_history.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository constructs a HistoryRepository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// InsertBatch writes all entries in one statement. Entries already present are skipped so a
// retried batch never duplicates rows.
func (r *HistoryRepository) InsertBatch(ctx context.Context, entries []models.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	const perRow = 11
	placeholders := make([]string, 0, len(entries))
	args := make([]interface{}, 0, len(entries)*perRow)
	for i, e := range entries {
		base := i * perRow
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10, base+11))
		args = append(args, e.ID, e.RecordType, e.SubjectID, e.FieldName, e.OldValue, e.NewValue, e.ValueType,
			e.Comment, e.UpdatedBy, e.UpdatedByName, e.CreatedAt)
	}
	query := `INSERT INTO record_history (` + historyColumns + `) VALUES ` + strings.Join(placeholders, ", ") +
		` ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert history batch: %w", err)
	}
	return nil
}

// List returns history for a subject, newest first, with the total count.
func (r *HistoryRepository) List(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, int, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM record_history WHERE record_type = $1 AND subject_id = $2
	ORDER BY created_at DESC, field_name ASC LIMIT %d OFFSET %d`, historyColumns, limit, offset)
	var entries []models.HistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, filter.RecordType, filter.SubjectID); err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}

	var total int
	const countQuery = `SELECT COUNT(*) FROM record_history WHERE record_type = $1 AND subject_id = $2`
	if err := r.db.GetContext(ctx, &total, countQuery, filter.RecordType, filter.SubjectID); err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}
	return entries, total, nil
}
