package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fleetline/fleet-api/internal/authz"
	"github.com/fleetline/fleet-api/internal/dto"
	"github.com/fleetline/fleet-api/internal/lifecycle"
	"github.com/fleetline/fleet-api/internal/models"
	"github.com/fleetline/fleet-api/internal/repository"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
)

type inspectionStore interface {
	Create(ctx context.Context, inspection *models.Inspection) error
	FindByID(ctx context.Context, id string) (*models.Inspection, error)
	Items(ctx context.Context, inspectionID string) ([]models.InspectionItem, error)
	List(ctx context.Context, filter models.InspectionFilter) ([]models.Inspection, int, error)
	UpsertItems(ctx context.Context, inspectionID string, items []models.InspectionItem, currentMileage *int) error
	MarkSubmitted(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

type vehicleFinder interface {
	FindByID(ctx context.Context, id string) (*models.Vehicle, error)
}

type defectSyncer interface {
	Sync(ctx context.Context, inspection *models.Inspection, items []models.InspectionItem, actor models.Actor) (DefectPlan, error)
}

// InspectionResult is an inspection together with warnings from post-commit effects.
type InspectionResult struct {
	Inspection *models.Inspection
	Warnings   []string
}

// InspectionService manages weekly vehicle checks and keeps their defect tasks in sync.
type InspectionService struct {
	repo      inspectionStore
	vehicles  vehicleFinder
	defects   defectSyncer
	effects   *EffectRunner
	authz     *authz.Authorizer
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewInspectionService constructs an InspectionService.
func NewInspectionService(repo inspectionStore, vehicles vehicleFinder, defects defectSyncer, effects *EffectRunner, authorizer *authz.Authorizer, validate *validator.Validate, logger *zap.Logger) *InspectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if authorizer == nil {
		authorizer = authz.New(nil)
	}
	return &InspectionService{
		repo:      repo,
		vehicles:  vehicles,
		defects:   defects,
		effects:   effects,
		authz:     authorizer,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Create opens a draft inspection for the actor and saves any initial items.
func (s *InspectionService) Create(ctx context.Context, actor models.Actor, req dto.CreateInspectionRequest) (*InspectionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid inspection payload")
	}
	items, err := buildInspectionItems(req.Items)
	if err != nil {
		return nil, err
	}
	vehicle, err := s.vehicles.FindByID(ctx, req.VehicleID)
	if err != nil {
		return nil, notFoundOr(err, "vehicle")
	}
	if vehicle.Status != models.VehicleActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "vehicle is inactive")
	}

	weekEnding, _ := time.Parse(models.DateLayout, req.WeekEnding)
	inspection := &models.Inspection{
		VehicleID:      vehicle.ID,
		InspectorID:    actor.ID,
		WeekEnding:     weekEnding,
		CurrentMileage: req.CurrentMileage,
		Status:         models.InspectionDraft,
	}
	if err := s.repo.Create(ctx, inspection); err != nil {
		return nil, appErrors.Internal(err, "failed to create inspection")
	}
	if len(items) == 0 {
		return &InspectionResult{Inspection: inspection}, nil
	}
	return s.saveItems(ctx, actor, inspection, items, req.CurrentMileage)
}

// Get returns an inspection visible to the actor.
func (s *InspectionService) Get(ctx context.Context, actor models.Actor, id string) (*models.Inspection, error) {
	inspection, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "inspection")
	}
	if err := s.authz.Authorize(actor, authz.InspectionRead, authz.Resource{Kind: "inspection", ID: id, OwnerID: inspection.InspectorID}).Err(); err != nil {
		return nil, err
	}
	return inspection, nil
}

// List returns inspections. Own-scope callers only see their own.
func (s *InspectionService) List(ctx context.Context, actor models.Actor, filter models.InspectionFilter) ([]models.Inspection, int, error) {
	if s.authz.OwnOnly(actor, authz.InspectionRead) {
		filter.InspectorID = actor.ID
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Internal(err, "failed to list inspections")
	}
	return items, total, nil
}

// SaveItems upserts the given items. Inspectors may edit their drafts; holders of
// inspection:amend may also amend submitted inspections, which stay submitted.
func (s *InspectionService) SaveItems(ctx context.Context, actor models.Actor, id string, req dto.SaveInspectionItemsRequest) (*InspectionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid inspection items")
	}
	items, err := buildInspectionItems(req.Items)
	if err != nil {
		return nil, err
	}

	inspection, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "inspection")
	}
	resource := authz.Resource{Kind: "inspection", ID: id, OwnerID: inspection.InspectorID}
	canAmend := s.authz.Can(actor, authz.InspectionAmend, resource)
	if inspection.Status == models.InspectionDraft && !canAmend {
		if err := s.authz.Authorize(actor, authz.InspectionWrite, resource).Err(); err != nil {
			return nil, err
		}
	}
	if !lifecycle.InspectionItemsEditable(inspection.Status, canAmend) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "submitted inspections can only be amended by a manager")
	}
	return s.saveItems(ctx, actor, inspection, items, req.CurrentMileage)
}

func (s *InspectionService) saveItems(ctx context.Context, actor models.Actor, inspection *models.Inspection, items []models.InspectionItem, mileage *int) (*InspectionResult, error) {
	if err := s.repo.UpsertItems(ctx, inspection.ID, items, mileage); err != nil {
		return nil, appErrors.Internal(err, "failed to save inspection items")
	}
	if mileage != nil {
		inspection.CurrentMileage = mileage
	}
	all, err := s.repo.Items(ctx, inspection.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load inspection items")
	}
	inspection.Items = all
	return &InspectionResult{Inspection: inspection, Warnings: s.syncDefects(ctx, actor, inspection)}, nil
}

// Submit closes a draft inspection. Every attention item needs a comment.
func (s *InspectionService) Submit(ctx context.Context, actor models.Actor, id string) (*InspectionResult, error) {
	inspection, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "inspection")
	}
	if err := s.authz.Authorize(actor, authz.InspectionWrite, authz.Resource{Kind: "inspection", ID: id, OwnerID: inspection.InspectorID}).Err(); err != nil {
		return nil, err
	}
	if err := lifecycle.InspectionTransition(inspection.Status, models.InspectionSubmitted); err != nil {
		return nil, err
	}
	if len(inspection.Items) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "inspection has no items")
	}
	if missing := attentionWithoutComment(inspection.Items); len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			"attention items need a comment: "+strings.Join(missing, ", "))
	}

	now := s.now().UTC()
	if err := s.repo.MarkSubmitted(ctx, id, now); err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "inspection was already submitted")
		}
		return nil, appErrors.Internal(err, "failed to submit inspection")
	}
	inspection.Status = models.InspectionSubmitted
	inspection.SubmittedAt = &now

	s.logger.Info("inspection submitted", zap.String("inspection_id", id), zap.String("actor_id", actor.ID))
	return &InspectionResult{Inspection: inspection, Warnings: s.syncDefects(ctx, actor, inspection)}, nil
}

// Delete removes a draft inspection. Open defect tasks raised from it are auto-completed
// first so none are left orphaned.
func (s *InspectionService) Delete(ctx context.Context, actor models.Actor, id string) error {
	inspection, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "inspection")
	}
	if err := s.authz.Authorize(actor, authz.InspectionWrite, authz.Resource{Kind: "inspection", ID: id, OwnerID: inspection.InspectorID}).Err(); err != nil {
		return err
	}
	if inspection.Status != models.InspectionDraft {
		return appErrors.Clone(appErrors.ErrConflict, "only draft inspections can be deleted")
	}
	if _, err := s.defects.Sync(ctx, inspection, nil, actor); err != nil {
		return appErrors.Internal(err, "failed to close inspection defects")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Internal(err, "failed to delete inspection")
	}
	return nil
}

func (s *InspectionService) syncDefects(ctx context.Context, actor models.Actor, inspection *models.Inspection) []string {
	snapshot := *inspection
	items := append([]models.InspectionItem(nil), inspection.Items...)
	var warnings []string
	first := true
	warning := s.effects.Run(ctx, EffectDerivedTasks, "inspection "+inspection.ID, func(ctx context.Context) error {
		plan, err := s.defects.Sync(ctx, &snapshot, items, actor)
		if first {
			warnings = append(warnings, plan.Warnings...)
			first = false
		}
		return err
	})
	if warning != "" {
		warnings = append(warnings, warning)
	}
	return warnings
}

func buildInspectionItems(inputs []dto.InspectionItemInput) ([]models.InspectionItem, error) {
	type slot struct{ number, day int }
	seen := make(map[slot]struct{}, len(inputs))
	items := make([]models.InspectionItem, 0, len(inputs))
	for _, in := range inputs {
		k := slot{in.ItemNumber, in.DayOfWeek}
		if _, dup := seen[k]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("item %d appears twice for day %d", in.ItemNumber, in.DayOfWeek))
		}
		seen[k] = struct{}{}

		var comments *string
		if in.Comments != nil {
			if trimmed := strings.TrimSpace(*in.Comments); trimmed != "" {
				comments = &trimmed
			}
		}
		items = append(items, models.InspectionItem{
			ItemNumber:      in.ItemNumber,
			ItemDescription: strings.TrimSpace(in.ItemDescription),
			DayOfWeek:       in.DayOfWeek,
			Status:          models.ItemStatus(in.Status),
			Comments:        comments,
		})
	}
	return items, nil
}

func attentionWithoutComment(items []models.InspectionItem) []string {
	var missing []string
	for _, item := range items {
		if item.Status != models.ItemAttention {
			continue
		}
		if item.Comments == nil || strings.TrimSpace(*item.Comments) == "" {
			missing = append(missing, fmt.Sprintf("item %d (%s)", item.ItemNumber, dayNames[item.DayOfWeek]))
		}
	}
	return missing
}
