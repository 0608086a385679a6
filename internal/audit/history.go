package audit

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/fleetline/fleet-api/internal/models"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
)

// HistoryStore is the append-only persistence of history entries. It exposes no
// update or delete.
type HistoryStore interface {
	InsertBatch(ctx context.Context, entries []models.HistoryEntry) error
	List(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, int, error)
}

// CommentPolicy holds the minimum comment length per record type.
type CommentPolicy struct {
	MinLength map[models.RecordType]int
}

// NewCommentPolicy builds the policy from the configured limits.
func NewCommentPolicy(maintenanceMin, recordMin int) CommentPolicy {
	return CommentPolicy{MinLength: map[models.RecordType]int{
		models.RecordMaintenance: maintenanceMin,
		models.RecordAbsence:     recordMin,
		models.RecordTimesheet:   recordMin,
		models.RecordAction:      recordMin,
	}}
}

// Validate rejects a missing or short comment for the record type.
func (p CommentPolicy) Validate(recordType models.RecordType, comment string) error {
	trimmed := strings.TrimSpace(comment)
	if trimmed == "" {
		return appErrors.Clone(appErrors.ErrValidation, "comment is required")
	}
	if minLen := p.MinLength[recordType]; utf8.RuneCountInString(trimmed) < minLen {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("comment must be at least %d characters", minLen))
	}
	return nil
}

// Target identifies the audited subject.
type Target struct {
	RecordType models.RecordType
	SubjectID  string
}

// Appender turns changes into history entries and persists them in one batch.
type Appender struct {
	store  HistoryStore
	policy CommentPolicy
	now    func() time.Time
}

// NewAppender constructs an appender.
func NewAppender(store HistoryStore, policy CommentPolicy) *Appender {
	return &Appender{store: store, policy: policy, now: time.Now}
}

// Policy exposes the comment policy for pre-write validation.
func (a *Appender) Policy() CommentPolicy {
	return a.policy
}

// Build creates the entries for a set of changes. An empty change set yields a single
// no_changes entry. All entries share the comment and timestamp.
func (a *Appender) Build(target Target, changes []Change, comment string, actor models.Actor) []models.HistoryEntry {
	createdAt := a.now().UTC()
	comment = strings.TrimSpace(comment)
	base := models.HistoryEntry{
		RecordType:    target.RecordType,
		SubjectID:     target.SubjectID,
		Comment:       comment,
		UpdatedBy:     actor.IDPtr(),
		UpdatedByName: actorName(actor),
		CreatedAt:     createdAt,
	}

	if len(changes) == 0 {
		entry := base
		entry.ID = uuid.NewString()
		entry.FieldName = models.NoChangesField
		entry.ValueType = models.ValueText
		return []models.HistoryEntry{entry}
	}

	entries := make([]models.HistoryEntry, 0, len(changes))
	for _, change := range changes {
		entry := base
		entry.ID = uuid.NewString()
		entry.FieldName = change.Field
		entry.ValueType = change.Type
		entry.OldValue = change.OldValue
		entry.NewValue = change.NewValue
		entries = append(entries, entry)
	}
	return entries
}

// Append builds and persists the entries. Entries are returned only when the insert succeeded.
func (a *Appender) Append(ctx context.Context, target Target, changes []Change, comment string, actor models.Actor) ([]models.HistoryEntry, error) {
	entries := a.Build(target, changes, comment, actor)
	if err := a.Insert(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Insert persists prebuilt entries. Re-inserting the same entries is a no-op, which makes
// retries safe.
func (a *Appender) Insert(ctx context.Context, entries []models.HistoryEntry) error {
	if err := a.store.InsertBatch(ctx, entries); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// List returns history for a subject, newest first.
func (a *Appender) List(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, int, error) {
	return a.store.List(ctx, filter)
}

func actorName(actor models.Actor) string {
	if actor.IsSystem() {
		return models.SystemActorName
	}
	if actor.Name != "" {
		return actor.Name
	}
	return actor.Email
}
