package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fleetline/fleet-api/internal/audit"
	"github.com/fleetline/fleet-api/internal/models"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
)

// MutationResult is returned by audited updates. History is empty when the append
// degraded to a warning.
type MutationResult[T any] struct {
	Record   T                     `json:"record"`
	History  []models.HistoryEntry `json:"history,omitempty"`
	Warnings []string              `json:"-"`
}

type historyAppender interface {
	Policy() audit.CommentPolicy
	Build(target audit.Target, changes []audit.Change, comment string, actor models.Actor) []models.HistoryEntry
	Insert(ctx context.Context, entries []models.HistoryEntry) error
	List(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, int, error)
}

// recorder appends history as a post-commit effect.
type recorder struct {
	history historyAppender
	effects *EffectRunner
	metrics *MetricsService
}

func (r recorder) record(ctx context.Context, target audit.Target, changes []audit.Change, comment string, actor models.Actor) ([]models.HistoryEntry, []string) {
	entries := r.history.Build(target, changes, comment, actor)
	outcome := "changed"
	if len(changes) == 0 {
		outcome = "unchanged"
	}
	subject := fmt.Sprintf("%s %s", target.RecordType, target.SubjectID)
	warning := r.effects.Run(ctx, EffectHistory, subject, func(ctx context.Context) error {
		return r.history.Insert(ctx, entries)
	})
	if warning != "" {
		r.metrics.RecordMutation(string(target.RecordType), outcome, 0)
		return nil, []string{warning}
	}
	r.metrics.RecordMutation(string(target.RecordType), outcome, len(entries))
	return entries, nil
}

func (r recorder) list(ctx context.Context, recordType models.RecordType, subjectID string, page, size int) ([]models.HistoryEntry, int, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 50
	}
	entries, total, err := r.history.List(ctx, models.HistoryFilter{
		RecordType: recordType,
		SubjectID:  subjectID,
		Limit:      size,
		Offset:     (page - 1) * size,
	})
	if err != nil {
		return nil, 0, appErrors.Internal(err, "failed to list history")
	}
	return entries, total, nil
}

// changedValues keeps only the fields that differ so unchanged columns are not rewritten.
func changedValues(changes []audit.Change) map[string]*string {
	values := make(map[string]*string, len(changes))
	for _, change := range changes {
		values[change.Field] = change.NewValue
	}
	return values
}

func statusChange(from, to string) []audit.Change {
	return []audit.Change{{Field: "status", Type: models.ValueText, OldValue: &from, NewValue: &to}}
}

func notFoundOr(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
	}
	return appErrors.Internal(err, "failed to fetch "+what)
}

func rejected(metrics *MetricsService, recordType models.RecordType, err error) error {
	metrics.RecordMutation(string(recordType), "rejected", 0)
	return err
}
