package audit

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetline/fleet-api/internal/models"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
)

type historyStoreStub struct {
	batches [][]models.HistoryEntry
	err     error
}

func (s *historyStoreStub) InsertBatch(_ context.Context, entries []models.HistoryEntry) error {
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, entries)
	return nil
}

func (s *historyStoreStub) List(context.Context, models.HistoryFilter) ([]models.HistoryEntry, int, error) {
	return nil, 0, nil
}

func newTestAppender(store HistoryStore) *Appender {
	a := NewAppender(store, NewCommentPolicy(10, 10))
	a.now = func() time.Time { return time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC) }
	return a
}

func TestAppendWritesOneEntryPerChange(t *testing.T) {
	store := &historyStoreStub{}
	appender := newTestAppender(store)
	actor := models.Actor{ID: "user-1", Name: "Sam Fitter"}

	changes := []Change{
		{Field: "current_mileage", Type: models.ValueMileage, OldValue: str("100"), NewValue: str("200")},
		{Field: "notes", Type: models.ValueText, OldValue: nil, NewValue: str("serviced")},
	}
	entries, err := appender.Append(context.Background(), Target{RecordType: models.RecordMaintenance, SubjectID: "veh-1"}, changes, "  annual service done ", actor)
	require.NoError(t, err)
	require.Len(t, store.batches, 1)
	require.Len(t, entries, 2)

	for i, entry := range entries {
		assert.NotEmpty(t, entry.ID)
		assert.Equal(t, changes[i].Field, entry.FieldName)
		assert.Equal(t, "annual service done", entry.Comment)
		assert.Equal(t, "veh-1", entry.SubjectID)
		assert.Equal(t, "Sam Fitter", entry.UpdatedByName)
		require.NotNil(t, entry.UpdatedBy)
		assert.Equal(t, "user-1", *entry.UpdatedBy)
		assert.Equal(t, entries[0].CreatedAt, entry.CreatedAt)
	}
}

func TestAppendNoChangesWritesMarker(t *testing.T) {
	store := &historyStoreStub{}
	appender := newTestAppender(store)

	entries, err := appender.Append(context.Background(), Target{RecordType: models.RecordAbsence, SubjectID: "abs-1"}, nil, "checked, nothing to change", models.Actor{ID: "u", Name: "Kim"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.NoChangesField, entries[0].FieldName)
	assert.Nil(t, entries[0].OldValue)
	assert.Nil(t, entries[0].NewValue)
}

func TestAppendSystemActor(t *testing.T) {
	entries := newTestAppender(&historyStoreStub{}).Build(Target{RecordType: models.RecordAction, SubjectID: "a-1"}, nil, models.AutoCompleteNote, models.SystemActor())
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].UpdatedBy)
	assert.Equal(t, models.SystemActorName, entries[0].UpdatedByName)
}

func TestAppendStoreFailure(t *testing.T) {
	appender := newTestAppender(&historyStoreStub{err: errors.New("connection reset")})
	entries, err := appender.Append(context.Background(), Target{RecordType: models.RecordAction, SubjectID: "a-1"}, nil, "comment long enough", models.Actor{ID: "u"})
	require.Error(t, err)
	assert.Nil(t, entries)
}

func TestCommentPolicy(t *testing.T) {
	policy := NewCommentPolicy(10, 5)

	err := policy.Validate(models.RecordMaintenance, "too short")
	require.ErrorIs(t, err, appErrors.ErrValidation)

	require.NoError(t, policy.Validate(models.RecordMaintenance, "long enough!"))
	require.ErrorIs(t, policy.Validate(models.RecordAbsence, "   "), appErrors.ErrValidation)
	require.NoError(t, policy.Validate(models.RecordAbsence, "fine."))
}

func TestHistoryStoreIsInsertOnly(t *testing.T) {
	storeType := reflect.TypeOf((*HistoryStore)(nil)).Elem()
	methods := make([]string, 0, storeType.NumMethod())
	for i := 0; i < storeType.NumMethod(); i++ {
		methods = append(methods, storeType.Method(i).Name)
	}
	assert.ElementsMatch(t, []string{"InsertBatch", "List"}, methods)
}
