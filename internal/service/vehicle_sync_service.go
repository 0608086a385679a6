package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fleetline/fleet-api/internal/models"
	"github.com/fleetline/fleet-api/pkg/dvla"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
	"github.com/fleetline/fleet-api/pkg/mot"
)

type syncVehicleStore interface {
	ListStale(ctx context.Context, cutoff time.Time) ([]models.Vehicle, error)
	CountActive(ctx context.Context) (int, error)
	UpdateDetails(ctx context.Context, vehicle *models.Vehicle) error
	UpdateSyncStatus(ctx context.Context, id string, status models.SyncStatus, syncErr *string, syncedAt *time.Time) error
}

type motLookup interface {
	Configured() bool
	FetchHistory(ctx context.Context, reg string) (*mot.History, error)
}

// VehicleSyncConfig tunes the scheduled DVLA/MOT sync.
type VehicleSyncConfig struct {
	StaleAfter time.Duration
	Pacing     time.Duration
	Budget     time.Duration
}

// VehicleSyncService refreshes tax, MOT and mileage data of stale vehicles. Vehicles are
// processed one at a time with external calls paced by a rate limiter; when the budget runs
// out the batch stops and reports itself truncated.
type VehicleSyncService struct {
	vehicles    syncVehicleStore
	maintenance maintenanceSyncWriter
	auditLogs   auditLogWriter
	dvla        dvlaLookup
	mot         motLookup
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	cfg         VehicleSyncConfig
	now         func() time.Time
}

// NewVehicleSyncService constructs a VehicleSyncService.
func NewVehicleSyncService(vehicles syncVehicleStore, maintenance maintenanceSyncWriter, auditLogs auditLogWriter, dvlaClient dvlaLookup, motClient motLookup, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg VehicleSyncConfig) *VehicleSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 6 * 24 * time.Hour
	}
	if cfg.Pacing <= 0 {
		cfg.Pacing = time.Second
	}
	if cfg.Budget <= 0 {
		cfg.Budget = 5 * time.Minute
	}
	return &VehicleSyncService{
		vehicles:    vehicles,
		maintenance: maintenance,
		auditLogs:   auditLogs,
		dvla:        dvlaClient,
		mot:         motClient,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

func (s *VehicleSyncService) dvlaEnabled() bool { return s.dvla != nil && s.dvla.Configured() }
func (s *VehicleSyncService) motEnabled() bool  { return s.mot != nil && s.mot.Configured() }

// Run syncs every stale active vehicle. Running it again straight away does nothing because
// successfully synced vehicles are no longer stale.
func (s *VehicleSyncService) Run(ctx context.Context) (*models.SyncReport, error) {
	if !s.dvlaEnabled() && !s.motEnabled() {
		return nil, appErrors.Clone(appErrors.ErrUpstream, "no DVLA or MOT provider is configured")
	}
	started := s.now()

	active, err := s.vehicles.CountActive(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count vehicles")
	}
	stale, err := s.vehicles.ListStale(ctx, started.UTC().Add(-s.cfg.StaleAfter))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list stale vehicles")
	}

	report := &models.SyncReport{Total: active, Results: make([]models.VehicleSyncResult, 0, len(stale))}
	report.Skipped = active - len(stale)
	if report.Skipped < 0 {
		report.Skipped = 0
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Budget)
	defer cancel()
	limiter := rate.NewLimiter(rate.Every(s.cfg.Pacing), 1)

	for i := range stale {
		vehicle := &stale[i]
		result, ok := s.syncVehicle(runCtx, limiter, vehicle)
		if !ok {
			report.Truncated = true
			break
		}
		report.Results = append(report.Results, result)
		if result.Outcome == models.SyncOutcomeSuccess {
			report.Successful++
		} else {
			report.Failed++
		}
	}
	report.Synced = report.Successful + report.Failed

	if report.Synced > 0 {
		s.cache.Invalidate(ctx, reportCachePrefix)
	}
	duration := s.now().Sub(started)
	s.metrics.RecordSyncRun(report.Successful, report.Failed, report.Skipped, duration)
	s.logger.Info("vehicle sync finished",
		zap.Int("total", report.Total),
		zap.Int("successful", report.Successful),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Bool("truncated", report.Truncated),
		zap.Duration("duration", duration),
	)
	return report, nil
}

// syncVehicle returns false when the budget ran out before the vehicle was finished. A
// vehicle interrupted that way is left untouched.
func (s *VehicleSyncService) syncVehicle(ctx context.Context, limiter *rate.Limiter, vehicle *models.Vehicle) (models.VehicleSyncResult, bool) {
	result := models.VehicleSyncResult{VehicleID: vehicle.ID, RegNumber: vehicle.RegNumber}
	var update models.SyncUpdate
	var failures []string

	if s.dvlaEnabled() {
		if err := limiter.Wait(ctx); err != nil {
			return result, false
		}
		details, err := s.dvla.LookupVehicle(ctx, vehicle.RegNumber)
		switch {
		case err == nil:
			update.TaxDueDate = details.TaxDueDate
			update.MOTDueDate = details.MOTExpiryDate
			update.DVLASynced = true
			s.refreshDetails(context.WithoutCancel(ctx), vehicle, details)
		case ctx.Err() != nil:
			return result, false
		case errors.Is(err, dvla.ErrVehicleNotFound):
			failures = append(failures, "DVLA: vehicle not found")
		default:
			failures = append(failures, "DVLA: "+err.Error())
		}
	}

	if s.motEnabled() {
		if err := limiter.Wait(ctx); err != nil {
			return result, false
		}
		history, err := s.mot.FetchHistory(ctx, vehicle.RegNumber)
		switch {
		case err == nil:
			if expiry := history.LatestExpiry(); expiry != nil {
				update.MOTDueDate = expiry
			}
			update.CurrentMileage = history.LatestMileage()
			update.MOTSynced = true
		case ctx.Err() != nil:
			return result, false
		case errors.Is(err, mot.ErrVehicleNotFound):
			// New vehicles have no MOT history yet.
			update.MOTSynced = true
			result.Warnings = append(result.Warnings, "MOT: no test history")
		default:
			failures = append(failures, "MOT: "+err.Error())
		}
	}

	// Results already fetched are stored even if the budget expires meanwhile.
	ctx = context.WithoutCancel(ctx)
	now := s.now().UTC()
	if update.DVLASynced || update.MOTSynced {
		if err := s.maintenance.ApplySync(ctx, vehicle.ID, update, now); err != nil {
			failures = append(failures, "store: "+err.Error())
		}
	}

	if len(failures) == 0 {
		result.Outcome = models.SyncOutcomeSuccess
		if err := s.vehicles.UpdateSyncStatus(ctx, vehicle.ID, models.SyncSuccess, nil, &now); err != nil {
			s.logger.Warn("failed to record sync status", zap.String("vehicle_id", vehicle.ID), zap.Error(err))
		}
	} else {
		result.Outcome = models.SyncOutcomeFailed
		result.Error = strings.Join(failures, "; ")
		message := result.Error
		if err := s.vehicles.UpdateSyncStatus(ctx, vehicle.ID, models.SyncError, &message, nil); err != nil {
			s.logger.Warn("failed to record sync status", zap.String("vehicle_id", vehicle.ID), zap.Error(err))
		}
		s.logger.Warn("vehicle sync failed", zap.String("reg_number", vehicle.RegNumber), zap.String("error", result.Error))
	}

	s.writeSyncLog(ctx, vehicle, result, update)
	return result, true
}

func (s *VehicleSyncService) refreshDetails(ctx context.Context, vehicle *models.Vehicle, details *dvla.Vehicle) {
	if !enrichVehicle(vehicle, details) {
		return
	}
	if err := s.vehicles.UpdateDetails(ctx, vehicle); err != nil {
		s.logger.Warn("failed to store dvla details", zap.String("vehicle_id", vehicle.ID), zap.Error(err))
	}
}

func (s *VehicleSyncService) writeSyncLog(ctx context.Context, vehicle *models.Vehicle, result models.VehicleSyncResult, update models.SyncUpdate) {
	if s.auditLogs == nil {
		return
	}
	values := map[string]interface{}{
		"reg_number":   vehicle.RegNumber,
		"outcome":      result.Outcome,
		"tax_due_date": models.FormatDate(update.TaxDueDate),
		"mot_due_date": models.FormatDate(update.MOTDueDate),
		"mileage":      update.CurrentMileage,
	}
	if result.Error != "" {
		values["error"] = result.Error
	}
	payload, _ := json.Marshal(values)
	id := vehicle.ID
	if err := s.auditLogs.Create(ctx, &models.AuditLog{
		Action:     models.AuditActionVehicleSync,
		Resource:   "vehicle",
		ResourceID: &id,
		NewValues:  payload,
		UserAgent:  "fleet-sync",
	}); err != nil {
		s.logger.Warn("failed to write sync log", zap.String("vehicle_id", vehicle.ID), zap.Error(err))
	}
}
