package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/fleetline/fleet-api/internal/audit"
	"github.com/fleetline/fleet-api/internal/models"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
)

type maintenanceStore interface {
	FindByVehicleID(ctx context.Context, vehicleID string) (*models.Maintenance, error)
	UpdateFields(ctx context.Context, vehicleID string, values map[string]*string, actorID *string) (*models.Maintenance, error)
}

// reportCachePrefix namespaces cached maintenance-due reports.
const reportCachePrefix = "reports:maintenance-due"

// MaintenanceService applies audited updates to vehicle maintenance records.
type MaintenanceService struct {
	repo    maintenanceStore
	history historyAppender
	rec     recorder
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewMaintenanceService constructs a MaintenanceService.
func NewMaintenanceService(repo maintenanceStore, history historyAppender, effects *EffectRunner, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceService{
		repo:    repo,
		history: history,
		rec:     recorder{history: history, effects: effects, metrics: metrics},
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// Get returns the maintenance record of a vehicle.
func (s *MaintenanceService) Get(ctx context.Context, vehicleID string) (*models.Maintenance, error) {
	record, err := s.repo.FindByVehicleID(ctx, vehicleID)
	if err != nil {
		return nil, notFoundOr(err, "maintenance record")
	}
	return record, nil
}

// Update validates the comment, diffs the patch against the stored row, writes the changed
// fields and appends history. An empty diff writes nothing but still records a no_changes
// entry.
func (s *MaintenanceService) Update(ctx context.Context, vehicleID string, raw audit.RawPatch, comment string, actor models.Actor) (*MutationResult[*models.Maintenance], error) {
	if err := s.history.Policy().Validate(models.RecordMaintenance, comment); err != nil {
		return nil, rejected(s.metrics, models.RecordMaintenance, err)
	}
	patch, err := audit.ParsePatch(audit.MaintenanceSpec, raw)
	if err != nil {
		return nil, rejected(s.metrics, models.RecordMaintenance, err)
	}

	current, err := s.repo.FindByVehicleID(ctx, vehicleID)
	if err != nil {
		return nil, notFoundOr(err, "maintenance record")
	}
	if !current.IsActive {
		return nil, rejected(s.metrics, models.RecordMaintenance, appErrors.Clone(appErrors.ErrConflict, "vehicle is inactive"))
	}

	changes := audit.Diff(audit.MaintenanceSpec, current.AuditValues(), patch)
	record := current
	if len(changes) > 0 {
		record, err = s.repo.UpdateFields(ctx, vehicleID, changedValues(changes), actor.IDPtr())
		if err != nil {
			return nil, appErrors.Internal(err, "failed to update maintenance record")
		}
		s.cache.Invalidate(ctx, reportCachePrefix)
	}

	entries, warnings := s.rec.record(ctx, audit.Target{RecordType: models.RecordMaintenance, SubjectID: vehicleID}, changes, comment, actor)
	s.logger.Info("maintenance updated",
		zap.String("vehicle_id", vehicleID),
		zap.Int("changes", len(changes)),
		zap.String("actor_id", actor.ID),
	)
	return &MutationResult[*models.Maintenance]{Record: record, History: entries, Warnings: warnings}, nil
}

// History lists history entries of the vehicle's maintenance record.
func (s *MaintenanceService) History(ctx context.Context, vehicleID string, page, size int) ([]models.HistoryEntry, int, error) {
	if _, err := s.repo.FindByVehicleID(ctx, vehicleID); err != nil {
		return nil, 0, notFoundOr(err, "maintenance record")
	}
	return s.rec.list(ctx, models.RecordMaintenance, vehicleID, page, size)
}
