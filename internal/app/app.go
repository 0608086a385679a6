// Package app wires repositories, clients and services from configuration. It is shared by
// the HTTP server and the fleetctl operations CLI.
package app

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fleetline/fleet-api/internal/audit"
	"github.com/fleetline/fleet-api/internal/authz"
	"github.com/fleetline/fleet-api/internal/handler"
	"github.com/fleetline/fleet-api/internal/middleware"
	"github.com/fleetline/fleet-api/internal/migrations"
	"github.com/fleetline/fleet-api/internal/repository"
	"github.com/fleetline/fleet-api/internal/service"
	"github.com/fleetline/fleet-api/pkg/cache"
	"github.com/fleetline/fleet-api/pkg/config"
	"github.com/fleetline/fleet-api/pkg/database"
	"github.com/fleetline/fleet-api/pkg/dvla"
	"github.com/fleetline/fleet-api/pkg/export"
	"github.com/fleetline/fleet-api/pkg/jobs"
	"github.com/fleetline/fleet-api/pkg/mailer"
	"github.com/fleetline/fleet-api/pkg/mot"
)

const historyExportLimit = 5000

// Container holds every long-lived dependency of the process.
type Container struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client
	Queue  *jobs.Queue

	Metrics     *service.MetricsService
	Tokens      *service.TokenService
	Authorizer  *authz.Authorizer
	Vehicles    *service.VehicleService
	Sync        *service.VehicleSyncService
	Maintenance *service.MaintenanceService
	Absences    *service.AbsenceService
	Timesheets  *service.TimesheetService
	Actions     *service.ActionService
	Inspections *service.InspectionService
	Reports     *service.ReportService

	AuditLogs *repository.AuditLogRepository
	ErrorLogs *repository.ErrorLogRepository
}

// Build opens the database, optionally migrates it, and assembles the services. The effect
// queue is started on ctx; Close stops it.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(ctx, db, migrations.FS, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", zap.Error(err))
		redisClient = nil
	}

	c := &Container{Config: cfg, Logger: logger, DB: db, Redis: redisClient}
	c.wire(ctx)
	return c, nil
}

func (c *Container) wire(ctx context.Context) {
	cfg, logger := c.Config, c.Logger
	validate := validator.New()

	users := repository.NewUserRepository(c.DB)
	vehicles := repository.NewVehicleRepository(c.DB)
	maintenance := repository.NewMaintenanceRepository(c.DB)
	absences := repository.NewAbsenceRepository(c.DB)
	timesheets := repository.NewTimesheetRepository(c.DB)
	actions := repository.NewActionRepository(c.DB)
	inspections := repository.NewInspectionRepository(c.DB)
	history := repository.NewHistoryRepository(c.DB)
	c.AuditLogs = repository.NewAuditLogRepository(c.DB)
	c.ErrorLogs = repository.NewErrorLogRepository(c.DB)

	c.Metrics = service.NewMetricsService()
	c.Queue = jobs.NewQueue("effects", nil, jobs.QueueConfig{
		Workers:    cfg.Effects.Workers,
		BufferSize: cfg.Effects.BufferSize,
		MaxRetries: cfg.Effects.MaxRetries,
		RetryDelay: cfg.Effects.RetryDelay,
		Logger:     logger,
		Observer:   c.Metrics,
	})
	c.Queue.Start(ctx)

	cacheSvc := service.NewCacheService(repository.NewCacheRepository(c.Redis, logger), c.Metrics, cfg.Reports.CacheTTL, logger, c.Redis != nil)
	effects := service.NewEffectRunner(c.Queue, c.ErrorLogs, c.Metrics, logger)
	appender := audit.NewAppender(history, audit.NewCommentPolicy(cfg.Audit.MaintenanceMinComment, cfg.Audit.RecordMinComment))
	c.Authorizer = authz.New(nil)

	var sender mailer.Sender
	if cfg.Notifications.Enabled {
		sender = mailer.New(cfg.Notifications.APIURL, cfg.Notifications.APIKey, cfg.Notifications.From, cfg.Sync.HTTPTimeout, logger)
	}
	notifications := service.NewNotificationService(sender, users, logger)

	dvlaClient := dvla.New(cfg.Sync.DVLABaseURL, cfg.Sync.DVLAAPIKey, cfg.Sync.HTTPTimeout, logger)
	motClient := mot.New(mot.Config{
		BaseURL:      cfg.Sync.MOTBaseURL,
		APIKey:       cfg.Sync.MOTAPIKey,
		TokenURL:     cfg.Sync.MOTTokenURL,
		ClientID:     cfg.Sync.MOTClientID,
		ClientSecret: cfg.Sync.MOTClientSecret,
		Scope:        cfg.Sync.MOTScope,
		Timeout:      cfg.Sync.HTTPTimeout,
	}, logger)

	c.Tokens = service.NewTokenService(users, logger, service.TokenConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: cfg.JWT.Expiration,
	})
	c.Vehicles = service.NewVehicleService(vehicles, maintenance, c.AuditLogs, dvlaClient, cacheSvc, validate, logger)
	c.Sync = service.NewVehicleSyncService(vehicles, maintenance, c.AuditLogs, dvlaClient, motClient, cacheSvc, c.Metrics, logger, service.VehicleSyncConfig{
		StaleAfter: cfg.Sync.StaleAfter,
		Pacing:     cfg.Sync.Pacing,
		Budget:     cfg.Sync.Budget,
	})
	c.Maintenance = service.NewMaintenanceService(maintenance, appender, effects, cacheSvc, c.Metrics, logger)
	c.Absences = service.NewAbsenceService(absences, appender, effects, notifications, c.Authorizer, validate, c.Metrics, logger)
	c.Timesheets = service.NewTimesheetService(timesheets, appender, effects, notifications, c.Authorizer, validate, c.Metrics, logger)
	c.Actions = service.NewActionService(actions, appender, effects, validate, c.Metrics, logger, service.ActionServiceConfig{
		LoggedCommentMax: cfg.Audit.LoggedCommentMax,
	})
	defects := service.NewDefectSynchronizer(actions, appender, effects, c.Metrics, logger)
	c.Inspections = service.NewInspectionService(inspections, vehicles, defects, effects, c.Authorizer, validate, logger)
	c.Reports = service.NewReportService(maintenance, history, vehicles,
		service.NewExportService(export.NewCSVExporter(), export.NewPDFExporter()), cacheSvc, logger,
		service.ReportServiceConfig{
			DueWithinDays: cfg.Reports.DueWithinDays,
			ServiceMargin: cfg.Reports.ServiceMarginMi,
			CacheTTL:      cfg.Reports.CacheTTL,
			HistoryLimit:  historyExportLimit,
		})
}

// Router assembles the HTTP surface.
func (c *Container) Router() *handler.Router {
	return &handler.Router{
		Config: handler.RouterConfig{
			APIPrefix:      c.Config.APIPrefix,
			AllowedOrigins: c.Config.CORS.AllowedOrigins,
			CronSecret:     c.Config.Sync.CronSecret,
			EnableDocs:     c.Config.Env != config.EnvProduction,
		},
		Logger:      c.Logger,
		Tokens:      c.Tokens,
		Guard:       middleware.NewGuard(c.Authorizer, c.AuditLogs, c.Logger),
		ErrorLogs:   c.ErrorLogs,
		Metrics:     c.Metrics,
		Vehicles:    handler.NewVehicleHandler(c.Vehicles),
		Maintenance: handler.NewMaintenanceHandler(c.Maintenance),
		Absences:    handler.NewAbsenceHandler(c.Absences),
		Timesheets:  handler.NewTimesheetHandler(c.Timesheets),
		Actions:     handler.NewActionHandler(c.Actions),
		Inspections: handler.NewInspectionHandler(c.Inspections),
		Reports:     handler.NewReportHandler(c.Reports),
		Sync:        handler.NewSyncHandler(c.Sync),
		Health:      handler.NewMetricsHandler(c.Metrics, c.DB),
	}
}

// Close releases the queue, cache and database.
func (c *Container) Close() {
	if c.Queue != nil {
		c.Queue.Stop()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
}
