package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/fleetline/fleet-api/internal/audit"
	"github.com/fleetline/fleet-api/internal/models"
	"github.com/fleetline/fleet-api/pkg/jobs"
)

var errStoreDown = errors.New("store unavailable")

type historyStoreStub struct {
	mu      sync.Mutex
	entries []models.HistoryEntry
	fail    error
}

func (h *historyStoreStub) InsertBatch(ctx context.Context, entries []models.HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail != nil {
		return h.fail
	}
	h.entries = append(h.entries, entries...)
	return nil
}

func (h *historyStoreStub) List(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []models.HistoryEntry
	for _, e := range h.entries {
		if e.RecordType == filter.RecordType && e.SubjectID == filter.SubjectID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (h *historyStoreStub) forSubject(id string) []models.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []models.HistoryEntry
	for _, e := range h.entries {
		if e.SubjectID == id {
			out = append(out, e)
		}
	}
	return out
}

type errorLogStub struct {
	entries []*models.ErrorLog
}

func (e *errorLogStub) Create(ctx context.Context, entry *models.ErrorLog) error {
	e.entries = append(e.entries, entry)
	return nil
}

type queueStub struct {
	jobs []jobs.Job
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

type auditLogStub struct {
	logs []*models.AuditLog
}

func (a *auditLogStub) Create(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newTestAppender(store audit.HistoryStore) *audit.Appender {
	return audit.NewAppender(store, audit.NewCommentPolicy(10, 10))
}

func newTestRunner() (*EffectRunner, *queueStub, *errorLogStub) {
	queue := &queueStub{}
	logs := &errorLogStub{}
	return NewEffectRunner(queue, logs, nil, nil), queue, logs
}

var (
	manager  = models.Actor{ID: "11111111-1111-1111-1111-111111111111", Name: "Mia Manager", Role: models.RoleManager}
	employee = models.Actor{ID: "22222222-2222-2222-2222-222222222222", Name: "Eli Employee", Role: models.RoleEmployee}
	workshop = models.Actor{ID: "33333333-3333-3333-3333-333333333333", Name: "Wes Workshop", Role: models.RoleWorkshop}
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func date(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

type maintenanceRepoStub struct {
	rows    map[string]*models.Maintenance
	updates []map[string]*string
	synced  []models.SyncUpdate
}

func (m *maintenanceRepoStub) FindByVehicleID(ctx context.Context, vehicleID string) (*models.Maintenance, error) {
	row, ok := m.rows[vehicleID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *row
	return &copy, nil
}

func (m *maintenanceRepoStub) UpdateFields(ctx context.Context, vehicleID string, values map[string]*string, actorID *string) (*models.Maintenance, error) {
	row, ok := m.rows[vehicleID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	m.updates = append(m.updates, values)
	mileage := map[string]**int{
		"current_mileage":      &row.CurrentMileage,
		"last_service_mileage": &row.LastServiceMileage,
		"next_service_mileage": &row.NextServiceMileage,
		"cambelt_due_mileage":  &row.CambeltDueMileage,
	}
	for field, value := range values {
		if dst, ok := mileage[field]; ok {
			if value == nil {
				*dst = nil
				continue
			}
			n, _ := strconv.Atoi(*value)
			*dst = &n
		}
		if field == "notes" {
			row.Notes = value
		}
	}
	row.LastUpdatedBy = actorID
	copy := *row
	return &copy, nil
}

func (m *maintenanceRepoStub) ApplySync(ctx context.Context, vehicleID string, update models.SyncUpdate, syncedAt time.Time) error {
	m.synced = append(m.synced, update)
	return nil
}

type actionRepoStub struct {
	actions map[string]*models.Action
	order   []string
	seq     int
}

func newActionRepoStub() *actionRepoStub {
	return &actionRepoStub{actions: make(map[string]*models.Action)}
}

func (a *actionRepoStub) Create(ctx context.Context, action *models.Action) error {
	a.seq++
	if action.ID == "" {
		action.ID = "action-" + strconv.Itoa(a.seq)
	}
	stored := *action
	a.actions[action.ID] = &stored
	a.order = append(a.order, action.ID)
	return nil
}

func (a *actionRepoStub) FindByID(ctx context.Context, id string) (*models.Action, error) {
	action, ok := a.actions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *action
	return &copy, nil
}

func (a *actionRepoStub) ListByInspection(ctx context.Context, inspectionID string) ([]models.Action, error) {
	var out []models.Action
	for _, id := range a.order {
		action := a.actions[id]
		if action.InspectionID != nil && *action.InspectionID == inspectionID {
			out = append(out, *action)
		}
	}
	return out, nil
}

func (a *actionRepoStub) List(ctx context.Context, filter models.ActionFilter) ([]models.Action, int, error) {
	var out []models.Action
	for _, id := range a.order {
		out = append(out, *a.actions[id])
	}
	return out, len(out), nil
}

func (a *actionRepoStub) UpdateFields(ctx context.Context, id string, values map[string]*string, actorID *string) (*models.Action, error) {
	action, ok := a.actions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	for field, value := range values {
		switch field {
		case "title":
			action.Title = *value
		case "description":
			action.Description = value
		case "priority":
			action.Priority = models.ActionPriority(*value)
		}
	}
	action.LastUpdatedBy = actorID
	copy := *action
	return &copy, nil
}

func (a *actionRepoStub) SaveState(ctx context.Context, action *models.Action) error {
	if _, ok := a.actions[action.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *action
	a.actions[action.ID] = &stored
	return nil
}

func (a *actionRepoStub) open() []models.Action {
	var out []models.Action
	for _, id := range a.order {
		if a.actions[id].Open() {
			out = append(out, *a.actions[id])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
