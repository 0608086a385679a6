package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fleetline/fleet-api/internal/audit"
	"github.com/fleetline/fleet-api/internal/authz"
	"github.com/fleetline/fleet-api/internal/dto"
	"github.com/fleetline/fleet-api/internal/lifecycle"
	"github.com/fleetline/fleet-api/internal/models"
	"github.com/fleetline/fleet-api/pkg/database"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
)

type timesheetStore interface {
	Create(ctx context.Context, sheet *models.Timesheet) error
	FindByID(ctx context.Context, id string) (*models.Timesheet, error)
	List(ctx context.Context, filter models.TimesheetFilter) ([]models.Timesheet, int, error)
	UpdateFields(ctx context.Context, id string, values map[string]*string, actorID *string) (*models.Timesheet, error)
	ReplaceEntries(ctx context.Context, id string, entries []models.TimesheetEntry, totalHours float64, actorID *string) error
	SaveStatus(ctx context.Context, sheet *models.Timesheet) error
}

type timesheetNotifier interface {
	TimesheetRejected(ctx context.Context, sheet *models.Timesheet, comment string) error
}

// TimesheetService manages weekly timesheets through draft, review and payroll.
type TimesheetService struct {
	repo      timesheetStore
	history   historyAppender
	rec       recorder
	effects   *EffectRunner
	notifier  timesheetNotifier
	authz     *authz.Authorizer
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewTimesheetService constructs a TimesheetService.
func NewTimesheetService(repo timesheetStore, history historyAppender, effects *EffectRunner, notifier timesheetNotifier, authorizer *authz.Authorizer, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *TimesheetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if authorizer == nil {
		authorizer = authz.New(nil)
	}
	return &TimesheetService{
		repo:      repo,
		history:   history,
		rec:       recorder{history: history, effects: effects, metrics: metrics},
		effects:   effects,
		notifier:  notifier,
		authz:     authorizer,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Create opens a draft timesheet with optional entries.
func (s *TimesheetService) Create(ctx context.Context, actor models.Actor, req dto.CreateTimesheetRequest) (*models.Timesheet, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timesheet payload")
	}
	employeeID := req.EmployeeID
	if employeeID == "" {
		employeeID = actor.ID
	}
	if err := s.authz.Authorize(actor, authz.TimesheetWrite, authz.Resource{Kind: "timesheet", OwnerID: employeeID}).Err(); err != nil {
		return nil, err
	}

	entries, total, err := BuildTimesheetEntries(req.Entries)
	if err != nil {
		return nil, err
	}
	weekEnding, _ := time.Parse(models.DateLayout, req.WeekEnding)
	sheet := &models.Timesheet{
		EmployeeID:    employeeID,
		WeekEnding:    weekEnding,
		RegNumber:     normalizeOptionalReg(req.RegNumber),
		Notes:         req.Notes,
		TotalHours:    total,
		Status:        models.TimesheetDraft,
		LastUpdatedBy: actor.IDPtr(),
		Entries:       entries,
	}
	if err := s.repo.Create(ctx, sheet); err != nil {
		if _, ok := database.IsUniqueViolation(err); ok {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a timesheet already exists for that week")
		}
		return nil, appErrors.Internal(err, "failed to create timesheet")
	}
	return sheet, nil
}

// Get returns a timesheet visible to the actor.
func (s *TimesheetService) Get(ctx context.Context, actor models.Actor, id string) (*models.Timesheet, error) {
	sheet, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "timesheet")
	}
	if err := s.authz.Authorize(actor, authz.TimesheetRead, authz.Resource{Kind: "timesheet", ID: id, OwnerID: sheet.EmployeeID}).Err(); err != nil {
		return nil, err
	}
	return sheet, nil
}

// List returns timesheets. Own-scope callers only see their own.
func (s *TimesheetService) List(ctx context.Context, actor models.Actor, filter models.TimesheetFilter) ([]models.Timesheet, int, error) {
	if s.authz.OwnOnly(actor, authz.TimesheetRead) {
		filter.EmployeeID = actor.ID
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Internal(err, "failed to list timesheets")
	}
	return items, total, nil
}

func (s *TimesheetService) loadEditable(ctx context.Context, actor models.Actor, id string) (*models.Timesheet, error) {
	sheet, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, authz.TimesheetWrite, authz.Resource{Kind: "timesheet", ID: id, OwnerID: sheet.EmployeeID}).Err(); err != nil {
		return nil, err
	}
	if !lifecycle.TimesheetEditable(sheet.Status) {
		return nil, rejected(s.metrics, models.RecordTimesheet,
			appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s timesheets cannot be edited", sheet.Status)))
	}
	return sheet, nil
}

// Update applies an audited patch to the timesheet header. total_hours is derived from the
// entries and cannot be patched.
func (s *TimesheetService) Update(ctx context.Context, actor models.Actor, id string, raw audit.RawPatch, comment string) (*MutationResult[*models.Timesheet], error) {
	if err := s.history.Policy().Validate(models.RecordTimesheet, comment); err != nil {
		return nil, rejected(s.metrics, models.RecordTimesheet, err)
	}
	if _, ok := raw["total_hours"]; ok {
		return nil, rejected(s.metrics, models.RecordTimesheet, appErrors.Clone(appErrors.ErrValidation, "total_hours is computed from the entries"))
	}
	patch, err := audit.ParsePatch(audit.TimesheetSpec, raw)
	if err != nil {
		return nil, rejected(s.metrics, models.RecordTimesheet, err)
	}
	if week, ok := patch["week_ending"]; ok && week == nil {
		return nil, rejected(s.metrics, models.RecordTimesheet, appErrors.Clone(appErrors.ErrValidation, "week_ending is required"))
	}
	if reg, ok := patch["reg_number"]; ok && reg != nil {
		normalized := models.NormalizeReg(*reg)
		patch["reg_number"] = &normalized
	}

	current, err := s.loadEditable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	changes := audit.Diff(audit.TimesheetSpec, current.AuditValues(), patch)
	record := current
	if len(changes) > 0 {
		record, err = s.repo.UpdateFields(ctx, id, changedValues(changes), actor.IDPtr())
		if err != nil {
			if _, ok := database.IsUniqueViolation(err); ok {
				return nil, appErrors.Clone(appErrors.ErrConflict, "a timesheet already exists for that week")
			}
			return nil, appErrors.Internal(err, "failed to update timesheet")
		}
		record.Entries = current.Entries
	}

	entries, warnings := s.rec.record(ctx, audit.Target{RecordType: models.RecordTimesheet, SubjectID: id}, changes, comment, actor)
	return &MutationResult[*models.Timesheet]{Record: record, History: entries, Warnings: warnings}, nil
}

// ReplaceEntries rewrites the daily entries, recomputes the total and records the change of
// total hours.
func (s *TimesheetService) ReplaceEntries(ctx context.Context, actor models.Actor, id string, req dto.ReplaceEntriesRequest) (*MutationResult[*models.Timesheet], error) {
	if err := s.history.Policy().Validate(models.RecordTimesheet, req.Comment); err != nil {
		return nil, rejected(s.metrics, models.RecordTimesheet, err)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timesheet entries")
	}
	entries, total, err := BuildTimesheetEntries(req.Entries)
	if err != nil {
		return nil, rejected(s.metrics, models.RecordTimesheet, err)
	}

	current, err := s.loadEditable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceEntries(ctx, id, entries, total, actor.IDPtr()); err != nil {
		return nil, appErrors.Internal(err, "failed to save timesheet entries")
	}

	changes := audit.Diff(audit.TimesheetSpec, current.AuditValues(), audit.Values{"total_hours": models.FormatDecimal(total)})
	record := *current
	record.TotalHours = total
	record.Entries = entries
	record.LastUpdatedBy = actor.IDPtr()

	history, warnings := s.rec.record(ctx, audit.Target{RecordType: models.RecordTimesheet, SubjectID: id}, changes, req.Comment, actor)
	return &MutationResult[*models.Timesheet]{Record: &record, History: history, Warnings: warnings}, nil
}

// Submit sends a draft or rejected timesheet for review.
func (s *TimesheetService) Submit(ctx context.Context, actor models.Actor, id string) (*MutationResult[*models.Timesheet], error) {
	sheet, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, authz.TimesheetWrite, authz.Resource{Kind: "timesheet", ID: id, OwnerID: sheet.EmployeeID}).Err(); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, sheet, models.TimesheetSubmitted, "Timesheet submitted")
}

// Approve accepts a submitted timesheet.
func (s *TimesheetService) Approve(ctx context.Context, actor models.Actor, id, comment string) (*MutationResult[*models.Timesheet], error) {
	sheet, err := s.loadForReview(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, sheet, models.TimesheetApproved, comment)
}

// Reject returns a submitted timesheet to the employee with the manager's reason.
func (s *TimesheetService) Reject(ctx context.Context, actor models.Actor, id, comment string) (*MutationResult[*models.Timesheet], error) {
	if err := s.history.Policy().Validate(models.RecordTimesheet, comment); err != nil {
		return nil, rejected(s.metrics, models.RecordTimesheet, err)
	}
	sheet, err := s.loadForReview(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, sheet, models.TimesheetRejected, comment)
}

// Process marks an approved timesheet as handed to payroll.
func (s *TimesheetService) Process(ctx context.Context, actor models.Actor, id, comment string) (*MutationResult[*models.Timesheet], error) {
	sheet, err := s.loadForReview(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, sheet, models.TimesheetProcessed, comment)
}

func (s *TimesheetService) loadForReview(ctx context.Context, actor models.Actor, id string) (*models.Timesheet, error) {
	sheet, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "timesheet")
	}
	if err := s.authz.Authorize(actor, authz.TimesheetReview, authz.Resource{Kind: "timesheet", ID: id, OwnerID: sheet.EmployeeID}).Err(); err != nil {
		return nil, err
	}
	return sheet, nil
}

func (s *TimesheetService) transition(ctx context.Context, actor models.Actor, sheet *models.Timesheet, to models.TimesheetStatus, comment string) (*MutationResult[*models.Timesheet], error) {
	from := sheet.Status
	reviewer := ""
	if to != models.TimesheetSubmitted {
		reviewer = actor.ID
	}
	if err := lifecycle.TimesheetTransition(from, to, reviewer); err != nil {
		return nil, rejected(s.metrics, models.RecordTimesheet, err)
	}

	now := s.now().UTC()
	sheet.Status = to
	sheet.LastUpdatedBy = actor.IDPtr()
	comment = strings.TrimSpace(comment)
	switch to {
	case models.TimesheetSubmitted:
		sheet.SubmittedAt = &now
	case models.TimesheetApproved, models.TimesheetRejected:
		sheet.ReviewedBy, sheet.ReviewedAt = actor.IDPtr(), &now
		if comment != "" {
			sheet.ManagerComments = &comment
		}
	case models.TimesheetProcessed:
		sheet.ProcessedBy, sheet.ProcessedAt = actor.IDPtr(), &now
	}
	if err := s.repo.SaveStatus(ctx, sheet); err != nil {
		return nil, appErrors.Internal(err, "failed to save timesheet status")
	}

	if comment == "" {
		comment = "Timesheet " + string(to)
	}
	entries, warnings := s.rec.record(ctx, audit.Target{RecordType: models.RecordTimesheet, SubjectID: sheet.ID},
		statusChange(string(from), string(to)), comment, actor)

	if to == models.TimesheetRejected {
		rejectedSheet := *sheet
		if warning := s.effects.Run(ctx, EffectNotification, "timesheet "+sheet.ID, func(ctx context.Context) error {
			return s.notifier.TimesheetRejected(ctx, &rejectedSheet, comment)
		}); warning != "" {
			warnings = append(warnings, warning)
		}
	}

	s.logger.Info("timesheet status changed",
		zap.String("timesheet_id", sheet.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor_id", actor.ID),
	)
	return &MutationResult[*models.Timesheet]{Record: sheet, History: entries, Warnings: warnings}, nil
}

// History lists the history of a timesheet visible to the actor.
func (s *TimesheetService) History(ctx context.Context, actor models.Actor, id string, page, size int) ([]models.HistoryEntry, int, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, 0, err
	}
	return s.rec.list(ctx, models.RecordTimesheet, id, page, size)
}

// BuildTimesheetEntries validates the daily inputs and computes the daily and weekly totals.
// A finish time before the start is treated as an overnight shift.
func BuildTimesheetEntries(inputs []dto.TimesheetEntryInput) ([]models.TimesheetEntry, float64, error) {
	seen := make(map[int]struct{}, len(inputs))
	entries := make([]models.TimesheetEntry, 0, len(inputs))
	total := 0.0
	for _, in := range inputs {
		if in.DayOfWeek < 1 || in.DayOfWeek > 7 {
			return nil, 0, appErrors.Clone(appErrors.ErrValidation, "day_of_week must be between 1 and 7")
		}
		if _, dup := seen[in.DayOfWeek]; dup {
			return nil, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day %d appears more than once", in.DayOfWeek))
		}
		seen[in.DayOfWeek] = struct{}{}

		entry := models.TimesheetEntry{DayOfWeek: in.DayOfWeek, DidNotWork: in.DidNotWork, Remarks: in.Remarks}
		if !in.DidNotWork {
			if in.TimeStarted == nil || in.TimeFinished == nil {
				return nil, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day %d needs a start and finish time", in.DayOfWeek))
			}
			hours, err := hoursBetween(*in.TimeStarted, *in.TimeFinished)
			if err != nil {
				return nil, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day %d: %v", in.DayOfWeek, err))
			}
			entry.TimeStarted, entry.TimeFinished = in.TimeStarted, in.TimeFinished
			entry.DailyTotal = hours
		}
		total += entry.DailyTotal
		entries = append(entries, entry)
	}
	return entries, roundHours(total), nil
}

func hoursBetween(start, finish string) (float64, error) {
	from, err := time.Parse("15:04", strings.TrimSpace(start))
	if err != nil {
		return 0, fmt.Errorf("time_started must be HH:MM")
	}
	to, err := time.Parse("15:04", strings.TrimSpace(finish))
	if err != nil {
		return 0, fmt.Errorf("time_finished must be HH:MM")
	}
	if to.Equal(from) {
		return 0, fmt.Errorf("time_finished must differ from time_started")
	}
	if to.Before(from) {
		to = to.Add(24 * time.Hour)
	}
	return roundHours(to.Sub(from).Hours()), nil
}

func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}

func normalizeOptionalReg(reg *string) *string {
	if reg == nil {
		return nil
	}
	normalized := models.NormalizeReg(*reg)
	if normalized == "" {
		return nil
	}
	return &normalized
}
