package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fleetline/fleet-api/internal/dto"
	"github.com/fleetline/fleet-api/internal/models"
	"github.com/fleetline/fleet-api/pkg/database"
	"github.com/fleetline/fleet-api/pkg/dvla"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
)

type vehicleStore interface {
	Create(ctx context.Context, vehicle *models.Vehicle) error
	FindByID(ctx context.Context, id string) (*models.Vehicle, error)
	List(ctx context.Context, filter models.VehicleFilter) ([]models.Vehicle, int, error)
	UpdateSyncStatus(ctx context.Context, id string, status models.SyncStatus, syncErr *string, syncedAt *time.Time) error
	SetStatus(ctx context.Context, id string, status models.VehicleStatus) error
	HasInspections(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

type maintenanceSyncWriter interface {
	ApplySync(ctx context.Context, vehicleID string, update models.SyncUpdate, syncedAt time.Time) error
}

type auditLogWriter interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

type dvlaLookup interface {
	Configured() bool
	LookupVehicle(ctx context.Context, reg string) (*dvla.Vehicle, error)
}

// VehicleResult is a vehicle together with non-fatal warnings.
type VehicleResult struct {
	Vehicle  *models.Vehicle
	Warnings []string
}

// VehicleService manages the vehicle registry.
type VehicleService struct {
	repo        vehicleStore
	maintenance maintenanceSyncWriter
	auditLogs   auditLogWriter
	dvla        dvlaLookup
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewVehicleService constructs a VehicleService. dvlaClient may be nil.
func NewVehicleService(repo vehicleStore, maintenance maintenanceSyncWriter, auditLogs auditLogWriter, dvlaClient dvlaLookup, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *VehicleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &VehicleService{
		repo:        repo,
		maintenance: maintenance,
		auditLogs:   auditLogs,
		dvla:        dvlaClient,
		cache:       cache,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Create registers a vehicle and enriches it from DVLA when configured. A DVLA failure
// leaves the vehicle pending for the next sync and is returned as a warning.
func (s *VehicleService) Create(ctx context.Context, actor models.Actor, req dto.CreateVehicleRequest) (*VehicleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid vehicle payload")
	}
	reg := models.NormalizeReg(req.RegNumber)
	if reg == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reg_number is required")
	}

	vehicle := &models.Vehicle{
		RegNumber:         reg,
		Make:              req.Make,
		Model:             req.Model,
		Colour:            req.Colour,
		FuelType:          req.FuelType,
		YearOfManufacture: req.YearOfManufacture,
		Category:          models.VehicleCategory(req.Category),
		Status:            models.VehicleActive,
		DVLASyncStatus:    models.SyncPending,
	}

	var warnings []string
	var details *dvla.Vehicle
	if s.dvla != nil && s.dvla.Configured() {
		found, err := s.dvla.LookupVehicle(ctx, reg)
		if err != nil {
			warnings = append(warnings, "DVLA lookup failed: "+err.Error())
			s.logger.Warn("dvla enrichment failed", zap.String("reg_number", reg), zap.Error(err))
			message := err.Error()
			vehicle.DVLASyncStatus = models.SyncError
			vehicle.DVLASyncError = &message
		} else {
			details = found
			enrichVehicle(vehicle, found)
		}
	}

	if err := s.repo.Create(ctx, vehicle); err != nil {
		if _, ok := database.IsUniqueViolation(err); ok {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a vehicle with that registration already exists")
		}
		return nil, appErrors.Internal(err, "failed to create vehicle")
	}

	if details != nil {
		now := s.now().UTC()
		update := models.SyncUpdate{TaxDueDate: details.TaxDueDate, MOTDueDate: details.MOTExpiryDate, DVLASynced: true}
		if err := s.maintenance.ApplySync(ctx, vehicle.ID, update, now); err != nil {
			warnings = append(warnings, "failed to store DVLA due dates")
			s.logger.Warn("failed to apply dvla dates", zap.String("vehicle_id", vehicle.ID), zap.Error(err))
		} else if err := s.repo.UpdateSyncStatus(ctx, vehicle.ID, models.SyncSuccess, nil, &now); err == nil {
			vehicle.DVLASyncStatus = models.SyncSuccess
			vehicle.LastDVLASync = &now
		}
	}

	if vehicle.DVLASyncStatus == models.SyncError {
		s.writeAudit(ctx, actor, models.AuditActionUpstreamFailed, vehicle, map[string]interface{}{"error": *vehicle.DVLASyncError})
	}
	s.writeAudit(ctx, actor, models.AuditActionVehicleCreate, vehicle, map[string]interface{}{"reg_number": vehicle.RegNumber, "category": vehicle.Category})
	s.cache.Invalidate(ctx, reportCachePrefix)
	return &VehicleResult{Vehicle: vehicle, Warnings: warnings}, nil
}

// Get returns a vehicle.
func (s *VehicleService) Get(ctx context.Context, id string) (*models.Vehicle, error) {
	vehicle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "vehicle")
	}
	return vehicle, nil
}

// List returns vehicles matching the filter.
func (s *VehicleService) List(ctx context.Context, filter models.VehicleFilter) ([]models.Vehicle, int, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Internal(err, "failed to list vehicles")
	}
	return items, total, nil
}

// Delete removes a vehicle without inspection history. Vehicles that have been inspected are
// deactivated instead so their records remain.
func (s *VehicleService) Delete(ctx context.Context, actor models.Actor, id string) (*dto.DeleteVehicleResponse, error) {
	vehicle, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	inspected, err := s.repo.HasInspections(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check vehicle inspections")
	}

	result := &dto.DeleteVehicleResponse{ID: id}
	if inspected {
		if err := s.repo.SetStatus(ctx, id, models.VehicleInactive); err != nil {
			return nil, appErrors.Internal(err, "failed to deactivate vehicle")
		}
		result.Deactivated = true
	} else {
		if err := s.repo.Delete(ctx, id); err != nil {
			return nil, appErrors.Internal(err, "failed to delete vehicle")
		}
		result.Deleted = true
	}

	s.writeAudit(ctx, actor, models.AuditActionVehicleDelete, vehicle, map[string]interface{}{
		"reg_number":  vehicle.RegNumber,
		"deleted":     result.Deleted,
		"deactivated": result.Deactivated,
	})
	s.cache.Invalidate(ctx, reportCachePrefix)
	return result, nil
}

func (s *VehicleService) writeAudit(ctx context.Context, actor models.Actor, action string, vehicle *models.Vehicle, values map[string]interface{}) {
	if s.auditLogs == nil {
		return
	}
	payload, err := json.Marshal(values)
	if err != nil {
		payload = nil
	}
	id := vehicle.ID
	info := RequestFromContext(ctx)
	entry := &models.AuditLog{
		UserID:     actor.IDPtr(),
		Action:     action,
		Resource:   "vehicle",
		ResourceID: &id,
		NewValues:  payload,
		IPAddress:  info.ClientIP,
		UserAgent:  info.UserAgent,
	}
	if err := s.auditLogs.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

// enrichVehicle fills descriptive fields the vehicle lacks and reports whether any changed.
func enrichVehicle(vehicle *models.Vehicle, details *dvla.Vehicle) bool {
	changed := false
	fill := func(dst **string, value string) {
		if *dst == nil && value != "" {
			v := value
			*dst = &v
			changed = true
		}
	}
	fill(&vehicle.Make, details.Make)
	fill(&vehicle.Colour, details.Colour)
	fill(&vehicle.FuelType, details.FuelType)
	if vehicle.YearOfManufacture == nil && details.YearOfManufacture > 0 {
		year := details.YearOfManufacture
		vehicle.YearOfManufacture = &year
		changed = true
	}
	return changed
}
