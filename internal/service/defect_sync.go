package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fleetline/fleet-api/internal/audit"
	"github.com/fleetline/fleet-api/internal/lifecycle"
	"github.com/fleetline/fleet-api/internal/models"
)

type defectActionStore interface {
	Create(ctx context.Context, action *models.Action) error
	ListByInspection(ctx context.Context, inspectionID string) ([]models.Action, error)
	SaveState(ctx context.Context, action *models.Action) error
}

var dayNames = [...]string{"", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// defectGroup is one defect of an inspection: all attention items sharing a number and
// description across the week.
type defectGroup struct {
	ItemNumber  int
	Description string
	Origin      models.InspectionItem
	Days        []int
	Comment     string
}

// DefectPlan is the set of task changes needed to bring actions in line with the items.
type DefectPlan struct {
	Create   []models.Action
	Complete []models.Action
	Warnings []string
}

// PlanDefectSync compares the attention items of an inspection with its existing tasks.
// A task belongs to the defect of the item it references, so a defect keeps its task while
// any day of it is still in attention. Every defect without an open task gets one; every
// open task whose defect is no longer in attention is completed.
func PlanDefectSync(inspection *models.Inspection, items []models.InspectionItem, actions []models.Action) DefectPlan {
	groups := groupDefects(items)

	byKey := make(map[defectKey]*defectGroup, len(groups))
	for _, g := range groups {
		byKey[g.key()] = g
	}
	itemKeys := make(map[string]defectKey, len(items))
	for _, item := range items {
		itemKeys[item.ID] = keyOf(item)
	}

	covered := make(map[defectKey]struct{})
	var plan DefectPlan
	for _, action := range actions {
		if !action.Open() || action.InspectionItemID == nil {
			continue
		}
		if k, ok := itemKeys[*action.InspectionItemID]; ok {
			if _, attention := byKey[k]; attention {
				covered[k] = struct{}{}
				continue
			}
		}
		plan.Complete = append(plan.Complete, action)
	}

	for _, g := range groups {
		if _, ok := covered[g.key()]; ok {
			continue
		}
		plan.Create = append(plan.Create, g.action(inspection))
	}
	return plan
}

type defectKey struct {
	number      int
	description string
}

func keyOf(item models.InspectionItem) defectKey {
	return defectKey{item.ItemNumber, strings.TrimSpace(item.ItemDescription)}
}

func (g *defectGroup) key() defectKey {
	return defectKey{g.ItemNumber, g.Description}
}

func groupDefects(items []models.InspectionItem) []*defectGroup {
	index := make(map[defectKey]*defectGroup)
	var groups []*defectGroup

	sorted := append([]models.InspectionItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ItemNumber != sorted[j].ItemNumber {
			return sorted[i].ItemNumber < sorted[j].ItemNumber
		}
		return sorted[i].DayOfWeek < sorted[j].DayOfWeek
	})

	for _, item := range sorted {
		if item.Status != models.ItemAttention || item.ID == "" {
			continue
		}
		k := keyOf(item)
		g, ok := index[k]
		if !ok {
			g = &defectGroup{ItemNumber: item.ItemNumber, Description: k.description, Origin: item}
			index[k] = g
			groups = append(groups, g)
		}
		g.Days = append(g.Days, item.DayOfWeek)
		if g.Comment == "" && item.Comments != nil {
			g.Comment = strings.TrimSpace(*item.Comments)
		}
	}
	return groups
}

func (g *defectGroup) action(inspection *models.Inspection) models.Action {
	days := make([]string, 0, len(g.Days))
	for _, d := range g.Days {
		if d >= 1 && d < len(dayNames) {
			days = append(days, dayNames[d])
		}
	}
	description := fmt.Sprintf("Item %d - %s (%s)", g.ItemNumber, g.Description, strings.Join(days, ", "))
	if g.Comment != "" {
		description += "\n" + g.Comment
	}
	inspectionID := inspection.ID
	vehicleID := inspection.VehicleID
	originID := g.Origin.ID
	return models.Action{
		VehicleID:        &vehicleID,
		InspectionID:     &inspectionID,
		InspectionItemID: &originID,
		Title:            "Defect: " + g.Description,
		Description:      &description,
		Priority:         models.PriorityHigh,
		Status:           models.ActionPending,
	}
}

// DefectSynchronizer applies defect plans to the action store.
type DefectSynchronizer struct {
	actions defectActionStore
	history historyAppender
	effects *EffectRunner
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewDefectSynchronizer constructs a DefectSynchronizer. When effects is set, history of an
// auto-completion that fails to insert is retried on its own with the entries already built.
func NewDefectSynchronizer(actions defectActionStore, history historyAppender, effects *EffectRunner, metrics *MetricsService, logger *zap.Logger) *DefectSynchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefectSynchronizer{actions: actions, history: history, effects: effects, metrics: metrics, logger: logger, now: time.Now}
}

// Sync reconciles the tasks of an inspection with its current items. Running it twice on
// the same items changes nothing the second time.
func (d *DefectSynchronizer) Sync(ctx context.Context, inspection *models.Inspection, items []models.InspectionItem, actor models.Actor) (DefectPlan, error) {
	existing, err := d.actions.ListByInspection(ctx, inspection.ID)
	if err != nil {
		return DefectPlan{}, fmt.Errorf("load inspection actions: %w", err)
	}
	plan := PlanDefectSync(inspection, items, existing)

	var errs []error
	created := 0
	for i := range plan.Create {
		action := &plan.Create[i]
		action.CreatedBy = actor.IDPtr()
		action.LastUpdatedBy = actor.IDPtr()
		if err := d.actions.Create(ctx, action); err != nil {
			errs = append(errs, fmt.Errorf("create defect action: %w", err))
			continue
		}
		created++
	}

	completed := 0
	system := models.SystemActor()
	for i := range plan.Complete {
		action := &plan.Complete[i]
		from := lifecycle.ActionStateOf(action)
		to, err := lifecycle.CompleteAction(from)
		if err != nil {
			continue
		}
		ApplyActionState(action, from, to, system, models.AutoCompleteNote, d.now().UTC())
		entries := d.history.Build(audit.Target{RecordType: models.RecordAction, SubjectID: action.ID},
			statusChange(string(from.Status()), string(to.Status())), models.AutoCompleteNote, system)
		if err := d.actions.SaveState(ctx, action); err != nil {
			errs = append(errs, fmt.Errorf("auto-complete action %s: %w", action.ID, err))
			continue
		}
		insert := func(ctx context.Context) error { return d.history.Insert(ctx, entries) }
		if d.effects != nil {
			if warning := d.effects.Run(ctx, EffectHistory, "action "+action.ID, insert); warning != "" {
				plan.Warnings = append(plan.Warnings, warning)
			}
		} else if err := insert(ctx); err != nil {
			errs = append(errs, fmt.Errorf("auto-complete history %s: %w", action.ID, err))
		}
		completed++
	}

	d.metrics.RecordDerivedTasks(created, completed)
	if created > 0 || completed > 0 {
		d.logger.Info("inspection defects synchronised",
			zap.String("inspection_id", inspection.ID),
			zap.Int("created", created),
			zap.Int("auto_completed", completed),
		)
	}
	return plan, errors.Join(errs...)
}
