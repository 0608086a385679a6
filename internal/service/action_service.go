package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fleetline/fleet-api/internal/audit"
	"github.com/fleetline/fleet-api/internal/dto"
	"github.com/fleetline/fleet-api/internal/lifecycle"
	"github.com/fleetline/fleet-api/internal/models"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
)

type actionStore interface {
	Create(ctx context.Context, action *models.Action) error
	FindByID(ctx context.Context, id string) (*models.Action, error)
	ListByInspection(ctx context.Context, inspectionID string) ([]models.Action, error)
	List(ctx context.Context, filter models.ActionFilter) ([]models.Action, int, error)
	UpdateFields(ctx context.Context, id string, values map[string]*string, actorID *string) (*models.Action, error)
	SaveState(ctx context.Context, action *models.Action) error
}

// ActionServiceConfig holds workshop task limits.
type ActionServiceConfig struct {
	LoggedCommentMax int
}

// ActionService manages workshop tasks.
type ActionService struct {
	repo      actionStore
	history   historyAppender
	rec       recorder
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ActionServiceConfig
	now       func() time.Time
}

// NewActionService constructs an ActionService.
func NewActionService(repo actionStore, history historyAppender, effects *EffectRunner, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, cfg ActionServiceConfig) *ActionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.LoggedCommentMax <= 0 {
		cfg.LoggedCommentMax = 40
	}
	return &ActionService{
		repo:      repo,
		history:   history,
		rec:       recorder{history: history, effects: effects, metrics: metrics},
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Create raises a manual task that is not linked to an inspection.
func (s *ActionService) Create(ctx context.Context, actor models.Actor, req dto.CreateActionRequest) (*models.Action, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid action payload")
	}
	priority := models.ActionPriority(req.Priority)
	if priority == "" {
		priority = models.PriorityMedium
	}
	action := &models.Action{
		VehicleID:     req.VehicleID,
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		Priority:      priority,
		Status:        models.ActionPending,
		CreatedBy:     actor.IDPtr(),
		LastUpdatedBy: actor.IDPtr(),
	}
	if err := s.repo.Create(ctx, action); err != nil {
		return nil, appErrors.Internal(err, "failed to create action")
	}
	return action, nil
}

// Get returns a task.
func (s *ActionService) Get(ctx context.Context, id string) (*models.Action, error) {
	action, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "action")
	}
	return action, nil
}

// List returns tasks with open ones first.
func (s *ActionService) List(ctx context.Context, filter models.ActionFilter) ([]models.Action, int, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Internal(err, "failed to list actions")
	}
	return items, total, nil
}

// Update applies an audited patch to title, description and priority.
func (s *ActionService) Update(ctx context.Context, actor models.Actor, id string, raw audit.RawPatch, comment string) (*MutationResult[*models.Action], error) {
	if err := s.history.Policy().Validate(models.RecordAction, comment); err != nil {
		return nil, rejected(s.metrics, models.RecordAction, err)
	}
	patch, err := audit.ParsePatch(audit.ActionSpec, raw)
	if err != nil {
		return nil, rejected(s.metrics, models.RecordAction, err)
	}
	if title, ok := patch["title"]; ok && title == nil {
		return nil, rejected(s.metrics, models.RecordAction, appErrors.Clone(appErrors.ErrValidation, "title is required"))
	}
	if priority, ok := patch["priority"]; ok {
		if priority == nil || !models.ActionPriority(*priority).Valid() {
			return nil, rejected(s.metrics, models.RecordAction, appErrors.Clone(appErrors.ErrValidation, "priority must be low, medium, high or urgent"))
		}
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := audit.Diff(audit.ActionSpec, current.AuditValues(), patch)
	record := current
	if len(changes) > 0 {
		record, err = s.repo.UpdateFields(ctx, id, changedValues(changes), actor.IDPtr())
		if err != nil {
			return nil, appErrors.Internal(err, "failed to update action")
		}
	}

	entries, warnings := s.rec.record(ctx, audit.Target{RecordType: models.RecordAction, SubjectID: id}, changes, comment, actor)
	return &MutationResult[*models.Action]{Record: record, History: entries, Warnings: warnings}, nil
}

// Log acknowledges a pending task with a short comment.
func (s *ActionService) Log(ctx context.Context, actor models.Actor, id, comment string) (*MutationResult[*models.Action], error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, rejected(s.metrics, models.RecordAction, appErrors.Clone(appErrors.ErrValidation, "comment is required"))
	}
	if utf8.RuneCountInString(comment) > s.cfg.LoggedCommentMax {
		return nil, rejected(s.metrics, models.RecordAction,
			appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("comment must be at most %d characters", s.cfg.LoggedCommentMax)))
	}
	return s.transition(ctx, actor, id, comment, lifecycle.LogAction)
}

// Complete finishes a pending or logged task. Logged data is kept.
func (s *ActionService) Complete(ctx context.Context, actor models.Actor, id, comment string) (*MutationResult[*models.Action], error) {
	return s.transition(ctx, actor, id, strings.TrimSpace(comment), lifecycle.CompleteAction)
}

// Undo reverses the last step of a task.
func (s *ActionService) Undo(ctx context.Context, actor models.Actor, id, comment string) (*MutationResult[*models.Action], error) {
	return s.transition(ctx, actor, id, strings.TrimSpace(comment), lifecycle.UndoAction)
}

func (s *ActionService) transition(ctx context.Context, actor models.Actor, id, comment string, step func(lifecycle.ActionState) (lifecycle.ActionState, error)) (*MutationResult[*models.Action], error) {
	action, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := lifecycle.ActionStateOf(action)
	to, err := step(from)
	if err != nil {
		return nil, rejected(s.metrics, models.RecordAction, err)
	}

	ApplyActionState(action, from, to, actor, comment, s.now().UTC())
	if err := s.repo.SaveState(ctx, action); err != nil {
		return nil, appErrors.Internal(err, "failed to save action state")
	}

	if comment == "" {
		comment = fmt.Sprintf("Action moved from %s to %s", from.Status(), to.Status())
	}
	entries, warnings := s.rec.record(ctx, audit.Target{RecordType: models.RecordAction, SubjectID: id},
		statusChange(string(from.Status()), string(to.Status())), comment, actor)

	s.logger.Info("action status changed",
		zap.String("action_id", id),
		zap.String("from", string(from.Status())),
		zap.String("to", string(to.Status())),
		zap.String("actor_id", actor.ID),
	)
	return &MutationResult[*models.Action]{Record: action, History: entries, Warnings: warnings}, nil
}

// History lists the history of a task.
func (s *ActionService) History(ctx context.Context, id string, page, size int) ([]models.HistoryEntry, int, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, 0, err
	}
	return s.rec.list(ctx, models.RecordAction, id, page, size)
}

// ApplyActionState stamps or clears the logged and actioned columns for a transition.
func ApplyActionState(action *models.Action, from, to lifecycle.ActionState, actor models.Actor, comment string, now time.Time) {
	var note *string
	if comment != "" {
		note = &comment
	}
	action.Status = to.Status()
	action.LastUpdatedBy = actor.IDPtr()

	switch to.(type) {
	case lifecycle.ActionLogged:
		if _, undo := from.(lifecycle.ActionCompleted); undo {
			clearActioned(action)
			return
		}
		action.LoggedComment, action.LoggedAt, action.LoggedBy = note, &now, actor.IDPtr()
	case lifecycle.ActionCompleted:
		action.ActionedComment, action.ActionedAt, action.ActionedBy = note, &now, actor.IDPtr()
	case lifecycle.ActionPending:
		if _, undo := from.(lifecycle.ActionLogged); undo {
			action.LoggedComment, action.LoggedAt, action.LoggedBy = nil, nil, nil
			return
		}
		clearActioned(action)
	}
}

func clearActioned(action *models.Action) {
	action.ActionedComment, action.ActionedAt, action.ActionedBy = nil, nil, nil
}
