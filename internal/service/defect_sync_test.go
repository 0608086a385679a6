package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetline/fleet-api/internal/models"
)

func testInspection() *models.Inspection {
	return &models.Inspection{ID: "insp-1", VehicleID: vehicleID, InspectorID: employee.ID, Status: models.InspectionDraft}
}

func item(id string, number, day int, status models.ItemStatus, comment string) models.InspectionItem {
	it := models.InspectionItem{
		ID: id, InspectionID: "insp-1", ItemNumber: number, DayOfWeek: day, Status: status,
		ItemDescription: map[int]string{1: "Tyres", 2: "Lights", 3: "Brakes"}[number],
	}
	if comment != "" {
		it.Comments = &comment
	}
	return it
}

func TestPlanDefectSyncGroupsDaysOfOneDefect(t *testing.T) {
	items := []models.InspectionItem{
		item("i-3", 2, 3, models.ItemAttention, ""),
		item("i-1", 2, 1, models.ItemAttention, "Nearside bulb out"),
		item("i-2", 1, 1, models.ItemOK, ""),
		item("i-4", 3, 2, models.ItemNA, ""),
	}

	plan := PlanDefectSync(testInspection(), items, nil)
	require.Len(t, plan.Create, 1)
	assert.Empty(t, plan.Complete)

	action := plan.Create[0]
	assert.Equal(t, "Defect: Lights", action.Title)
	assert.Equal(t, "Item 2 - Lights (Mon, Wed)\nNearside bulb out", *action.Description)
	assert.Equal(t, "i-1", *action.InspectionItemID)
	assert.Equal(t, models.PriorityHigh, action.Priority)
	assert.Equal(t, vehicleID, *action.VehicleID)
}

func newDefectFixture() (*DefectSynchronizer, *actionRepoStub, *historyStoreStub) {
	repo := newActionRepoStub()
	store := &historyStoreStub{}
	return NewDefectSynchronizer(repo, newTestAppender(store), nil, nil, nil), repo, store
}

func TestDefectSyncIsIdempotent(t *testing.T) {
	syncer, repo, _ := newDefectFixture()
	inspection := testInspection()
	items := []models.InspectionItem{
		item("i-1", 1, 1, models.ItemAttention, "Worn"),
		item("i-2", 3, 2, models.ItemAttention, "Spongy"),
	}

	_, err := syncer.Sync(context.Background(), inspection, items, employee)
	require.NoError(t, err)
	plan, err := syncer.Sync(context.Background(), inspection, items, employee)
	require.NoError(t, err)
	assert.Empty(t, plan.Create)
	assert.Empty(t, plan.Complete)

	inspection.Status = models.InspectionSubmitted
	_, err = syncer.Sync(context.Background(), inspection, items, employee)
	require.NoError(t, err)
	assert.Len(t, repo.open(), 2)
}

func TestDefectSyncKeepsTaskWhileAnyDayInAttention(t *testing.T) {
	syncer, repo, _ := newDefectFixture()
	inspection := testInspection()
	items := []models.InspectionItem{
		item("i-1", 2, 1, models.ItemAttention, "Bulb"),
		item("i-2", 2, 2, models.ItemAttention, ""),
	}
	_, err := syncer.Sync(context.Background(), inspection, items, employee)
	require.NoError(t, err)
	require.Len(t, repo.open(), 1)

	items[0].Status = models.ItemOK
	plan, err := syncer.Sync(context.Background(), inspection, items, employee)
	require.NoError(t, err)
	assert.Empty(t, plan.Create)
	assert.Empty(t, plan.Complete)
	assert.Len(t, repo.open(), 1)
}

func TestDefectSyncAutoCompletesResolvedDefects(t *testing.T) {
	syncer, repo, store := newDefectFixture()
	inspection := testInspection()
	items := []models.InspectionItem{item("i-1", 1, 1, models.ItemAttention, "Low tread")}
	_, err := syncer.Sync(context.Background(), inspection, items, employee)
	require.NoError(t, err)
	require.Len(t, repo.open(), 1)
	actionID := repo.order[0]

	items[0].Status = models.ItemOK
	plan, err := syncer.Sync(context.Background(), inspection, items, employee)
	require.NoError(t, err)
	require.Len(t, plan.Complete, 1)
	assert.Empty(t, repo.open())

	done := repo.actions[actionID]
	assert.Equal(t, models.ActionCompleted, done.Status)
	assert.Equal(t, models.AutoCompleteNote, *done.ActionedComment)
	assert.Nil(t, done.ActionedBy)

	history := store.forSubject(actionID)
	require.Len(t, history, 1)
	assert.Equal(t, models.SystemActorName, history[0].UpdatedByName)
	assert.Equal(t, "completed", *history[0].NewValue)

	items[0].Status = models.ItemAttention
	plan, err = syncer.Sync(context.Background(), inspection, items, employee)
	require.NoError(t, err)
	require.Len(t, plan.Create, 1)
	assert.Len(t, repo.open(), 1)
}

func TestDefectSyncRetriesAutoCompleteHistory(t *testing.T) {
	repo := newActionRepoStub()
	store := &historyStoreStub{}
	runner, queue, logs := newTestRunner()
	syncer := NewDefectSynchronizer(repo, newTestAppender(store), runner, nil, nil)
	inspection := testInspection()
	items := []models.InspectionItem{item("i-1", 1, 1, models.ItemAttention, "Low tread")}
	_, err := syncer.Sync(context.Background(), inspection, items, employee)
	require.NoError(t, err)
	actionID := repo.order[0]

	store.fail = errStoreDown
	items[0].Status = models.ItemOK
	plan, err := syncer.Sync(context.Background(), inspection, items, employee)
	require.NoError(t, err)
	require.Len(t, plan.Warnings, 1)
	assert.Contains(t, plan.Warnings[0], EffectHistory)
	assert.Equal(t, models.ActionCompleted, repo.actions[actionID].Status)
	assert.Empty(t, store.forSubject(actionID))
	require.Len(t, logs.entries, 1)

	plan, err = syncer.Sync(context.Background(), inspection, items, employee)
	require.NoError(t, err)
	assert.Empty(t, plan.Complete)

	store.fail = nil
	require.Len(t, queue.jobs, 1)
	require.NoError(t, queue.jobs[0].Run(context.Background()))
	history := store.forSubject(actionID)
	require.Len(t, history, 1)
	assert.Equal(t, models.SystemActorName, history[0].UpdatedByName)
	assert.Equal(t, models.AutoCompleteNote, history[0].Comment)
}

func TestDefectSyncIgnoresManualTasks(t *testing.T) {
	syncer, repo, _ := newDefectFixture()
	inspectionID := "insp-1"
	require.NoError(t, repo.Create(context.Background(), &models.Action{
		InspectionID: &inspectionID, Title: "Manual follow-up", Status: models.ActionPending,
	}))

	plan, err := syncer.Sync(context.Background(), testInspection(), nil, employee)
	require.NoError(t, err)
	assert.Empty(t, plan.Complete)
	require.Len(t, repo.open(), 1)
	assert.True(t, strings.HasPrefix(repo.open()[0].Title, "Manual"))
}
