package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetline/fleet-api/internal/authz"
	"github.com/fleetline/fleet-api/internal/dto"
	"github.com/fleetline/fleet-api/internal/models"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
)

type absenceRepoStub struct {
	rows    map[string]*models.Absence
	updates []map[string]*string
}

func (a *absenceRepoStub) Create(ctx context.Context, absence *models.Absence) error {
	absence.ID = "absence-" + absence.StartDate.Format("0102")
	stored := *absence
	a.rows[absence.ID] = &stored
	return nil
}

func (a *absenceRepoStub) FindByID(ctx context.Context, id string) (*models.Absence, error) {
	row, ok := a.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *row
	return &copy, nil
}

func (a *absenceRepoStub) List(ctx context.Context, filter models.AbsenceFilter) ([]models.Absence, int, error) {
	var out []models.Absence
	for _, row := range a.rows {
		if filter.EmployeeID == "" || row.EmployeeID == filter.EmployeeID {
			out = append(out, *row)
		}
	}
	return out, len(out), nil
}

func (a *absenceRepoStub) UpdateFields(ctx context.Context, id string, values map[string]*string, actorID *string) (*models.Absence, error) {
	a.updates = append(a.updates, values)
	row := a.rows[id]
	copy := *row
	return &copy, nil
}

func (a *absenceRepoStub) SaveStatus(ctx context.Context, absence *models.Absence) error {
	stored := *absence
	a.rows[absence.ID] = &stored
	return nil
}

type notifierStub struct {
	absences   []models.Absence
	timesheets []models.Timesheet
	fail       error
}

func (n *notifierStub) AbsenceDecision(ctx context.Context, absence *models.Absence, comment string) error {
	if n.fail != nil {
		return n.fail
	}
	n.absences = append(n.absences, *absence)
	return nil
}

func (n *notifierStub) TimesheetRejected(ctx context.Context, sheet *models.Timesheet, comment string) error {
	if n.fail != nil {
		return n.fail
	}
	n.timesheets = append(n.timesheets, *sheet)
	return nil
}

var absenceToday = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func newAbsenceFixture(rows ...models.Absence) (*AbsenceService, *absenceRepoStub, *notifierStub, *historyStoreStub) {
	repo := &absenceRepoStub{rows: map[string]*models.Absence{}}
	for i := range rows {
		row := rows[i]
		repo.rows[row.ID] = &row
	}
	store := &historyStoreStub{}
	notifier := &notifierStub{}
	runner, _, _ := newTestRunner()
	svc := NewAbsenceService(repo, newTestAppender(store), runner, notifier, authz.New(nil), nil, nil, nil)
	svc.now = func() time.Time { return absenceToday }
	return svc, repo, notifier, store
}

func pendingAbsence() models.Absence {
	end := date("2026-10-23")
	return models.Absence{
		ID: "abs-1", EmployeeID: employee.ID, Reason: "Annual leave",
		StartDate: date("2026-10-19"), EndDate: &end, DurationDays: 5, Status: models.AbsencePending,
	}
}

func TestAbsenceDuration(t *testing.T) {
	end := date("2026-10-26")
	assert.Equal(t, 6.0, AbsenceDuration(date("2026-10-19"), &end, false))
	assert.Equal(t, 1.0, AbsenceDuration(date("2026-10-19"), nil, false))
	assert.Equal(t, 0.5, AbsenceDuration(date("2026-10-19"), nil, true))
}

func TestAbsenceCreateForSelf(t *testing.T) {
	svc, _, _, _ := newAbsenceFixture()

	absence, err := svc.Create(context.Background(), employee, dto.CreateAbsenceRequest{
		Reason: "Dentist", StartDate: "2026-10-20", IsHalfDay: true, HalfDaySession: strPtr("AM"),
	})
	require.NoError(t, err)
	assert.Equal(t, employee.ID, absence.EmployeeID)
	assert.Equal(t, 0.5, absence.DurationDays)
	assert.Equal(t, models.AbsencePending, absence.Status)

	_, err = svc.Create(context.Background(), employee, dto.CreateAbsenceRequest{
		EmployeeID: manager.ID, Reason: "Holiday", StartDate: "2026-10-20",
	})
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Create(context.Background(), employee, dto.CreateAbsenceRequest{
		Reason: "Dentist", StartDate: "2026-10-20", IsHalfDay: true,
	})
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAbsenceApproveTwiceConflicts(t *testing.T) {
	svc, repo, notifier, store := newAbsenceFixture(pendingAbsence())

	result, err := svc.Approve(context.Background(), manager, "abs-1", "")
	require.NoError(t, err)
	assert.Equal(t, models.AbsenceApproved, result.Record.Status)
	assert.Equal(t, manager.ID, *result.Record.ApprovedBy)
	require.Len(t, notifier.absences, 1)
	require.Len(t, store.entries, 1)
	assert.Equal(t, "status", store.entries[0].FieldName)
	assert.Equal(t, "Absence approved", store.entries[0].Comment)

	_, err = svc.Approve(context.Background(), manager, "abs-1", "")
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	assert.Equal(t, models.AbsenceApproved, repo.rows["abs-1"].Status)
	assert.Len(t, store.entries, 1)
}

func TestAbsenceTransitionKeepsGivenComment(t *testing.T) {
	svc, _, _, store := newAbsenceFixture(pendingAbsence())

	_, err := svc.Approve(context.Background(), manager, "abs-1", "Cover arranged with depot")
	require.NoError(t, err)
	require.Len(t, store.entries, 1)
	assert.Equal(t, "Cover arranged with depot", store.entries[0].Comment)
}

func TestAbsenceReviewRequiresCapability(t *testing.T) {
	svc, _, _, _ := newAbsenceFixture(pendingAbsence())

	_, err := svc.Approve(context.Background(), employee, "abs-1", "")
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Reject(context.Background(), manager, "abs-1", "no")
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAbsenceCancelAfterStartIsRejected(t *testing.T) {
	started := pendingAbsence()
	started.StartDate = date("2026-10-12")
	svc, _, _, _ := newAbsenceFixture(started)

	_, err := svc.Cancel(context.Background(), employee, "abs-1", "")
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestAbsenceUpdateRecomputesDuration(t *testing.T) {
	svc, repo, _, _ := newAbsenceFixture(pendingAbsence())

	result, err := svc.Update(context.Background(), manager, "abs-1", rawPatch(t, `{"end_date": "2026-10-20"}`), "Shortened after call")
	require.NoError(t, err)
	require.Len(t, repo.updates, 1)
	assert.Equal(t, "2026-10-20", *repo.updates[0]["end_date"])
	assert.Equal(t, "2", *repo.updates[0]["duration_days"])

	require.Len(t, result.History, 2)
	assert.Equal(t, "end_date", result.History[0].FieldName)
	assert.Equal(t, "duration_days", result.History[1].FieldName)
}

func TestAbsenceUpdateRejectsEndBeforeStart(t *testing.T) {
	svc, repo, _, _ := newAbsenceFixture(pendingAbsence())

	_, err := svc.Update(context.Background(), manager, "abs-1", rawPatch(t, `{"end_date": "2026-10-01"}`), "Wrong dates entered")
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, repo.updates)
}

func TestAbsenceUpdateRejectsSessionOnFullDay(t *testing.T) {
	svc, repo, _, _ := newAbsenceFixture(pendingAbsence())

	for _, body := range []string{`{"half_day_session": "XY"}`, `{"half_day_session": "AM"}`} {
		_, err := svc.Update(context.Background(), manager, "abs-1", rawPatch(t, body), "Recording the session")
		require.ErrorIs(t, err, appErrors.ErrValidation, body)
	}
	assert.Empty(t, repo.updates)

	result, err := svc.Update(context.Background(), manager, "abs-1",
		rawPatch(t, `{"is_half_day": true, "half_day_session": "PM", "end_date": "2026-10-19"}`), "Reduced to an afternoon")
	require.NoError(t, err)
	require.Len(t, repo.updates, 1)
	assert.Equal(t, "PM", *repo.updates[0]["half_day_session"])
	assert.Equal(t, "0.5", *repo.updates[0]["duration_days"])
	assert.NotEmpty(t, result.History)
}

func TestAbsenceUpdateBoundsDuration(t *testing.T) {
	svc, repo, _, _ := newAbsenceFixture(pendingAbsence())

	_, err := svc.Update(context.Background(), manager, "abs-1", rawPatch(t, `{"duration_days": 10000}`), "Correcting the duration")
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Update(context.Background(), manager, "abs-1", rawPatch(t, `{"end_date": "2066-10-23"}`), "Extending the leave")
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, repo.updates)
}

func TestAbsenceListScopesEmployees(t *testing.T) {
	other := pendingAbsence()
	other.ID = "abs-2"
	other.EmployeeID = manager.ID
	svc, _, _, _ := newAbsenceFixture(pendingAbsence(), other)

	items, total, err := svc.List(context.Background(), employee, models.AbsenceFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "abs-1", items[0].ID)

	_, total, err = svc.List(context.Background(), manager, models.AbsenceFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}
