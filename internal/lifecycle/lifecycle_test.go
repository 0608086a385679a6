package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetline/fleet-api/internal/models"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
)

var today = time.Date(2026, 10, 18, 15, 30, 0, 0, time.UTC)

func TestAbsenceTransitions(t *testing.T) {
	future := today.AddDate(0, 0, 3)

	require.NoError(t, AbsenceTransition(models.AbsencePending, models.AbsenceApproved, future, today))
	require.NoError(t, AbsenceTransition(models.AbsencePending, models.AbsenceRejected, future, today))
	require.NoError(t, AbsenceTransition(models.AbsenceApproved, models.AbsenceCancelled, future, today))
	require.NoError(t, AbsenceTransition(models.AbsencePending, models.AbsenceCancelled, dateOnly(today), today))

	err := AbsenceTransition(models.AbsenceApproved, models.AbsenceApproved, future, today)
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	for _, terminal := range []models.AbsenceStatus{models.AbsenceRejected, models.AbsenceCancelled} {
		err := AbsenceTransition(terminal, models.AbsenceApproved, future, today)
		assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	}
}

func TestAbsenceCancelAfterStart(t *testing.T) {
	err := AbsenceTransition(models.AbsenceApproved, models.AbsenceCancelled, today.AddDate(0, 0, -1), today)
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestTimesheetTransitions(t *testing.T) {
	require.NoError(t, TimesheetTransition(models.TimesheetDraft, models.TimesheetSubmitted, ""))
	require.NoError(t, TimesheetTransition(models.TimesheetSubmitted, models.TimesheetApproved, "mgr"))
	require.NoError(t, TimesheetTransition(models.TimesheetSubmitted, models.TimesheetRejected, "mgr"))
	require.NoError(t, TimesheetTransition(models.TimesheetRejected, models.TimesheetSubmitted, ""))
	require.NoError(t, TimesheetTransition(models.TimesheetApproved, models.TimesheetProcessed, "payroll"))

	err := TimesheetTransition(models.TimesheetProcessed, models.TimesheetDraft, "mgr")
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	err = TimesheetTransition(models.TimesheetSubmitted, models.TimesheetProcessed, "mgr")
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	err = TimesheetTransition(models.TimesheetSubmitted, models.TimesheetApproved, " ")
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestTimesheetEditable(t *testing.T) {
	assert.True(t, TimesheetEditable(models.TimesheetDraft))
	assert.True(t, TimesheetEditable(models.TimesheetRejected))
	assert.False(t, TimesheetEditable(models.TimesheetSubmitted))
	assert.False(t, TimesheetEditable(models.TimesheetProcessed))
}

func TestInspectionLifecycle(t *testing.T) {
	require.NoError(t, InspectionTransition(models.InspectionDraft, models.InspectionSubmitted))
	require.ErrorIs(t, InspectionTransition(models.InspectionSubmitted, models.InspectionSubmitted), appErrors.ErrInvalidTransition)
	require.ErrorIs(t, InspectionTransition(models.InspectionSubmitted, models.InspectionDraft), appErrors.ErrInvalidTransition)

	assert.True(t, InspectionItemsEditable(models.InspectionDraft, false))
	assert.False(t, InspectionItemsEditable(models.InspectionSubmitted, false))
	assert.True(t, InspectionItemsEditable(models.InspectionSubmitted, true))
}

func TestActionUndoSymmetry(t *testing.T) {
	logged, err := LogAction(ActionPending{})
	require.NoError(t, err)
	back, err := UndoAction(logged)
	require.NoError(t, err)
	assert.Equal(t, ActionPending{}, back)

	completed, err := CompleteAction(logged)
	require.NoError(t, err)
	assert.Equal(t, ActionCompleted{WasLogged: true}, completed)
	back, err = UndoAction(completed)
	require.NoError(t, err)
	assert.Equal(t, ActionLogged{}, back)

	completed, err = CompleteAction(ActionPending{})
	require.NoError(t, err)
	back, err = UndoAction(completed)
	require.NoError(t, err)
	assert.Equal(t, ActionPending{}, back)
}

func TestActionInvalidTransitions(t *testing.T) {
	_, err := UndoAction(ActionPending{})
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	_, err = LogAction(ActionLogged{})
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	_, err = CompleteAction(ActionCompleted{})
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestActionStateOf(t *testing.T) {
	loggedAt := today
	assert.Equal(t, ActionCompleted{WasLogged: true}, ActionStateOf(&models.Action{Status: models.ActionCompleted, LoggedAt: &loggedAt}))
	assert.Equal(t, ActionCompleted{WasLogged: false}, ActionStateOf(&models.Action{Status: models.ActionCompleted}))
	assert.Equal(t, ActionLogged{}, ActionStateOf(&models.Action{Status: models.ActionLogged}))
	assert.Equal(t, ActionPending{}, ActionStateOf(&models.Action{Status: models.ActionPending}))
}
