package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fleetline/fleet-api/internal/audit"
	"github.com/fleetline/fleet-api/internal/authz"
	"github.com/fleetline/fleet-api/internal/dto"
	"github.com/fleetline/fleet-api/internal/lifecycle"
	"github.com/fleetline/fleet-api/internal/models"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
)

type absenceStore interface {
	Create(ctx context.Context, absence *models.Absence) error
	FindByID(ctx context.Context, id string) (*models.Absence, error)
	List(ctx context.Context, filter models.AbsenceFilter) ([]models.Absence, int, error)
	UpdateFields(ctx context.Context, id string, values map[string]*string, actorID *string) (*models.Absence, error)
	SaveStatus(ctx context.Context, absence *models.Absence) error
}

type absenceNotifier interface {
	AbsenceDecision(ctx context.Context, absence *models.Absence, comment string) error
}

// AbsenceService manages leave requests and their review.
type AbsenceService struct {
	repo      absenceStore
	history   historyAppender
	rec       recorder
	effects   *EffectRunner
	notifier  absenceNotifier
	authz     *authz.Authorizer
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewAbsenceService constructs an AbsenceService.
func NewAbsenceService(repo absenceStore, history historyAppender, effects *EffectRunner, notifier absenceNotifier, authorizer *authz.Authorizer, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *AbsenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if authorizer == nil {
		authorizer = authz.New(nil)
	}
	return &AbsenceService{
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

// Create books a pending absence. Own-scope callers can only book for themselves.
func (s *AbsenceService) Create(ctx context.Context, actor models.Actor, req dto.CreateAbsenceRequest) (*models.Absence, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid absence payload")
	}
	employeeID := req.EmployeeID
	if employeeID == "" {
		employeeID = actor.ID
	}
	if err := s.authz.Authorize(actor, authz.AbsenceRequest, authz.Resource{Kind: "absence", OwnerID: employeeID}).Err(); err != nil {
		return nil, err
	}

	start, _ := time.Parse(models.DateLayout, req.StartDate)
	absence := &models.Absence{
		EmployeeID:     employeeID,
		Reason:         strings.TrimSpace(req.Reason),
		StartDate:      start,
		IsHalfDay:      req.IsHalfDay,
		HalfDaySession: req.HalfDaySession,
		Notes:          req.Notes,
		Status:         models.AbsencePending,
		CreatedBy:      actor.ID,
		LastUpdatedBy:  actor.IDPtr(),
	}
	if req.EndDate != nil {
		end, _ := time.Parse(models.DateLayout, *req.EndDate)
		absence.EndDate = &end
	}
	if err := validateAbsenceShape(absence.StartDate, absence.EndDate, absence.IsHalfDay, absence.HalfDaySession); err != nil {
		return nil, err
	}
	absence.DurationDays = AbsenceDuration(absence.StartDate, absence.EndDate, absence.IsHalfDay)
	if err := checkAbsenceDuration(absence.DurationDays); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, absence); err != nil {
		return nil, appErrors.Internal(err, "failed to create absence")
	}
	return absence, nil
}

// Get returns an absence visible to the actor.
func (s *AbsenceService) Get(ctx context.Context, actor models.Actor, id string) (*models.Absence, error) {
	absence, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "absence")
	}
	if err := s.authz.Authorize(actor, authz.AbsenceRead, authz.Resource{Kind: "absence", ID: id, OwnerID: absence.EmployeeID}).Err(); err != nil {
		return nil, err
	}
	return absence, nil
}

// List returns absences. Own-scope callers only see their own.
func (s *AbsenceService) List(ctx context.Context, actor models.Actor, filter models.AbsenceFilter) ([]models.Absence, int, error) {
	if s.authz.OwnOnly(actor, authz.AbsenceRead) {
		filter.EmployeeID = actor.ID
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Internal(err, "failed to list absences")
	}
	return items, total, nil
}

// Update applies an audited patch. The duration is recomputed whenever the dates or the
// half-day flag change, unless the patch sets it explicitly.
func (s *AbsenceService) Update(ctx context.Context, actor models.Actor, id string, raw audit.RawPatch, comment string) (*MutationResult[*models.Absence], error) {
	if err := s.history.Policy().Validate(models.RecordAbsence, comment); err != nil {
		return nil, rejected(s.metrics, models.RecordAbsence, err)
	}
	patch, err := audit.ParsePatch(audit.AbsenceSpec, raw)
	if err != nil {
		return nil, rejected(s.metrics, models.RecordAbsence, err)
	}

	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, authz.AbsenceUpdate, authz.Resource{Kind: "absence", ID: id, OwnerID: current.EmployeeID}).Err(); err != nil {
		return nil, err
	}
	if !lifecycle.AbsenceEditable(current.Status) {
		return nil, rejected(s.metrics, models.RecordAbsence, appErrors.Clone(appErrors.ErrConflict, "absence can no longer be edited"))
	}

	if err := s.completeAbsencePatch(current, patch); err != nil {
		return nil, rejected(s.metrics, models.RecordAbsence, err)
	}

	changes := audit.Diff(audit.AbsenceSpec, current.AuditValues(), patch)
	record := current
	if len(changes) > 0 {
		record, err = s.repo.UpdateFields(ctx, id, changedValues(changes), actor.IDPtr())
		if err != nil {
			return nil, appErrors.Internal(err, "failed to update absence")
		}
	}

	entries, warnings := s.rec.record(ctx, audit.Target{RecordType: models.RecordAbsence, SubjectID: id}, changes, comment, actor)
	return &MutationResult[*models.Absence]{Record: record, History: entries, Warnings: warnings}, nil
}

func (s *AbsenceService) completeAbsencePatch(current *models.Absence, patch audit.Values) error {
	merged := audit.Merge(current.AuditValues(), patch)

	startRaw := merged["start_date"]
	if startRaw == nil {
		return appErrors.Clone(appErrors.ErrValidation, "start_date is required")
	}
	if reason := merged["reason"]; reason == nil {
		return appErrors.Clone(appErrors.ErrValidation, "reason is required")
	}
	start, _ := time.Parse(models.DateLayout, *startRaw)
	var end *time.Time
	if endRaw := merged["end_date"]; endRaw != nil {
		parsed, _ := time.Parse(models.DateLayout, *endRaw)
		end = &parsed
	}
	halfDay := merged["is_half_day"] != nil && *merged["is_half_day"] == "true"
	if !halfDay {
		if _, ok := patch["is_half_day"]; ok {
			patch["half_day_session"] = nil
			merged["half_day_session"] = nil
		}
	}
	if err := validateAbsenceShape(start, end, halfDay, merged["half_day_session"]); err != nil {
		return err
	}

	duration, durationSet := patch["duration_days"]
	if durationSet {
		if duration == nil {
			return appErrors.Clone(appErrors.ErrValidation, "duration_days is required")
		}
		value, err := strconv.ParseFloat(*duration, 64)
		if err != nil || value < 0 {
			return appErrors.Clone(appErrors.ErrValidation, "duration_days must be a non-negative number")
		}
		if err := checkAbsenceDuration(value); err != nil {
			return err
		}
	}
	_, startSet := patch["start_date"]
	_, endSet := patch["end_date"]
	_, halfSet := patch["is_half_day"]
	if !durationSet && (startSet || endSet || halfSet) {
		days := AbsenceDuration(start, end, halfDay)
		if err := checkAbsenceDuration(days); err != nil {
			return err
		}
		patch["duration_days"] = models.FormatDecimal(days)
	}
	return nil
}

// Approve approves a pending absence.
func (s *AbsenceService) Approve(ctx context.Context, actor models.Actor, id, comment string) (*MutationResult[*models.Absence], error) {
	return s.transition(ctx, actor, id, models.AbsenceApproved, authz.AbsenceReview, comment)
}

// Reject rejects a pending absence. A reason is required.
func (s *AbsenceService) Reject(ctx context.Context, actor models.Actor, id, comment string) (*MutationResult[*models.Absence], error) {
	if err := s.history.Policy().Validate(models.RecordAbsence, comment); err != nil {
		return nil, rejected(s.metrics, models.RecordAbsence, err)
	}
	return s.transition(ctx, actor, id, models.AbsenceRejected, authz.AbsenceReview, comment)
}

// Cancel withdraws a pending or approved absence that has not started.
func (s *AbsenceService) Cancel(ctx context.Context, actor models.Actor, id, comment string) (*MutationResult[*models.Absence], error) {
	return s.transition(ctx, actor, id, models.AbsenceCancelled, authz.AbsenceCancel, comment)
}

func (s *AbsenceService) transition(ctx context.Context, actor models.Actor, id string, to models.AbsenceStatus, capability authz.Capability, comment string) (*MutationResult[*models.Absence], error) {
	absence, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "absence")
	}
	if err := s.authz.Authorize(actor, capability, authz.Resource{Kind: "absence", ID: id, OwnerID: absence.EmployeeID}).Err(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	from := absence.Status
	if err := lifecycle.AbsenceTransition(from, to, absence.StartDate, now); err != nil {
		return nil, rejected(s.metrics, models.RecordAbsence, err)
	}

	absence.Status = to
	absence.LastUpdatedBy = actor.IDPtr()
	switch to {
	case models.AbsenceApproved:
		absence.ApprovedBy, absence.ApprovedAt = actor.IDPtr(), &now
	case models.AbsenceRejected:
		absence.RejectedBy, absence.RejectedAt = actor.IDPtr(), &now
	case models.AbsenceCancelled:
		absence.CancelledBy, absence.CancelledAt = actor.IDPtr(), &now
	}
	if err := s.repo.SaveStatus(ctx, absence); err != nil {
		return nil, appErrors.Internal(err, "failed to save absence status")
	}

	if strings.TrimSpace(comment) == "" {
		comment = "Absence " + string(to)
	}
	entries, warnings := s.rec.record(ctx, audit.Target{RecordType: models.RecordAbsence, SubjectID: id},
		statusChange(string(from), string(to)), comment, actor)

	if to == models.AbsenceApproved || to == models.AbsenceRejected {
		decided := *absence
		if warning := s.effects.Run(ctx, EffectNotification, "absence "+id, func(ctx context.Context) error {
			return s.notifier.AbsenceDecision(ctx, &decided, comment)
		}); warning != "" {
			warnings = append(warnings, warning)
		}
	}

	s.logger.Info("absence status changed",
		zap.String("absence_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor_id", actor.ID),
	)
	return &MutationResult[*models.Absence]{Record: absence, History: entries, Warnings: warnings}, nil
}

// History lists the history of an absence visible to the actor.
func (s *AbsenceService) History(ctx context.Context, actor models.Actor, id string, page, size int) ([]models.HistoryEntry, int, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, 0, err
	}
	return s.rec.list(ctx, models.RecordAbsence, id, page, size)
}

// AbsenceDuration counts the working days of an absence: 0.5 for a half day, otherwise the
// inclusive number of weekdays between start and end. A missing end is a single day.
func AbsenceDuration(start time.Time, end *time.Time, halfDay bool) float64 {
	if halfDay {
		return 0.5
	}
	if end == nil {
		return 1
	}
	days := 0
	for d := start; !d.After(*end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days++
		}
	}
	return float64(days)
}

func validateAbsenceShape(start time.Time, end *time.Time, halfDay bool, session *string) error {
	if end != nil && end.Before(start) {
		return appErrors.Clone(appErrors.ErrValidation, "end_date cannot be before start_date")
	}
	if !halfDay {
		if session != nil {
			return appErrors.Clone(appErrors.ErrValidation, "half_day_session only applies to half day absences")
		}
		return nil
	}
	if end != nil && !end.Equal(start) {
		return appErrors.Clone(appErrors.ErrValidation, "a half day absence must start and end on the same day")
	}
	if session == nil || (*session != "AM" && *session != "PM") {
		return appErrors.Clone(appErrors.ErrValidation, "half_day_session must be AM or PM")
	}
	return nil
}

// maxAbsenceDays is the largest duration_days the absences table can hold.
const maxAbsenceDays = 9999.9

func checkAbsenceDuration(days float64) error {
	if days > maxAbsenceDays {
		return appErrors.Clone(appErrors.ErrValidation, "duration_days must not exceed 9999.9")
	}
	return nil
}
