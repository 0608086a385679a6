package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/fleetline/fleet-api/internal/authz"
	"github.com/fleetline/fleet-api/internal/middleware"
	"github.com/fleetline/fleet-api/internal/service"
	"github.com/fleetline/fleet-api/pkg/logger"
	corsmiddleware "github.com/fleetline/fleet-api/pkg/middleware/cors"
	reqidmiddleware "github.com/fleetline/fleet-api/pkg/middleware/requestid"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	CronSecret     string
	EnableDocs     bool
}

// Router bundles every handler and middleware dependency of the HTTP API.
type Router struct {
	Config RouterConfig
	Logger *zap.Logger

	Tokens    middleware.TokenValidator
	Guard     *middleware.Guard
	ErrorLogs middleware.ErrorLogWriter
	Metrics   *service.MetricsService

	Vehicles    *VehicleHandler
	Maintenance *MaintenanceHandler
	Absences    *AbsenceHandler
	Timesheets  *TimesheetHandler
	Actions     *ActionHandler
	Inspections *InspectionHandler
	Reports     *ReportHandler
	Sync        *SyncHandler
	Health      *MetricsHandler
}

// Engine builds the gin engine with every route registered.
func (r *Router) Engine() *gin.Engine {
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	prefix := r.Config.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	health := r.Health
	if health == nil {
		health = NewMetricsHandler(r.Metrics, nil)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(reqidmiddleware.Middleware())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(corsmiddleware.New(r.Config.AllowedOrigins))
	engine.Use(middleware.Metrics(r.Metrics))
	engine.Use(middleware.ErrorLog(r.ErrorLogs, log))

	engine.GET("/health", health.Health)
	engine.GET("/ready", health.Ready)
	engine.GET("/metrics", health.Prometheus)
	if r.Config.EnableDocs {
		engine.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := engine.Group(prefix)
	if r.Sync != nil {
		api.POST("/sync/vehicles", middleware.RequestContext(), middleware.CronSecret(r.Config.CronSecret), r.Sync.Vehicles)
	}

	secured := api.Group("")
	secured.Use(middleware.JWT(r.Tokens))
	g := r.Guard
	if g == nil {
		g = middleware.NewGuard(nil, nil, log)
	}

	if h := r.Vehicles; h != nil {
		secured.POST("/vehicles", g.Require(authz.VehicleManage), h.Create)
		secured.GET("/vehicles", g.Require(authz.VehicleRead), h.List)
		secured.GET("/vehicles/:id", g.Require(authz.VehicleRead), h.Get)
		secured.DELETE("/vehicles/:id", g.Require(authz.VehicleManage), h.Delete)
	}
	if h := r.Maintenance; h != nil {
		secured.GET("/vehicles/:id/maintenance", g.Require(authz.MaintenanceRead), h.Get)
		secured.PATCH("/vehicles/:id/maintenance", g.Require(authz.MaintenanceUpdate), h.Update)
		secured.GET("/vehicles/:id/maintenance/history", g.Require(authz.MaintenanceRead), h.History)
	}
	if h := r.Reports; h != nil {
		secured.GET("/vehicles/:id/maintenance/history/export", g.Require(authz.ReportRead), h.ExportMaintenanceHistory)
		secured.GET("/reports/maintenance-due", g.Require(authz.ReportRead), h.MaintenanceDue)
	}
	if h := r.Absences; h != nil {
		secured.POST("/absences", g.Require(authz.AbsenceRequest), h.Create)
		secured.GET("/absences", g.Require(authz.AbsenceRead), h.List)
		secured.GET("/absences/:id", g.Require(authz.AbsenceRead), h.Get)
		secured.PATCH("/absences/:id", g.Require(authz.AbsenceUpdate), h.Update)
		secured.POST("/absences/:id/approve", g.Require(authz.AbsenceReview), h.Approve)
		secured.POST("/absences/:id/reject", g.Require(authz.AbsenceReview), h.Reject)
		secured.POST("/absences/:id/cancel", g.Require(authz.AbsenceCancel), h.Cancel)
		secured.GET("/absences/:id/history", g.Require(authz.AbsenceRead), h.History)
	}
	if h := r.Timesheets; h != nil {
		secured.POST("/timesheets", g.Require(authz.TimesheetWrite), h.Create)
		secured.GET("/timesheets", g.Require(authz.TimesheetRead), h.List)
		secured.GET("/timesheets/:id", g.Require(authz.TimesheetRead), h.Get)
		secured.PATCH("/timesheets/:id", g.Require(authz.TimesheetWrite), h.Update)
		secured.PUT("/timesheets/:id/entries", g.Require(authz.TimesheetWrite), h.ReplaceEntries)
		secured.POST("/timesheets/:id/submit", g.Require(authz.TimesheetWrite), h.Submit)
		secured.POST("/timesheets/:id/approve", g.Require(authz.TimesheetReview), h.Approve)
		secured.POST("/timesheets/:id/reject", g.Require(authz.TimesheetReview), h.Reject)
		secured.POST("/timesheets/:id/process", g.Require(authz.TimesheetReview), h.Process)
		secured.GET("/timesheets/:id/history", g.Require(authz.TimesheetRead), h.History)
	}
	if h := r.Actions; h != nil {
		secured.POST("/actions", g.Require(authz.ActionManage), h.Create)
		secured.GET("/actions", g.Require(authz.ActionRead), h.List)
		secured.GET("/actions/:id", g.Require(authz.ActionRead), h.Get)
		secured.PATCH("/actions/:id", g.Require(authz.ActionManage), h.Update)
		secured.POST("/actions/:id/log", g.Require(authz.ActionManage), h.Log)
		secured.POST("/actions/:id/complete", g.Require(authz.ActionManage), h.Complete)
		secured.POST("/actions/:id/undo", g.Require(authz.ActionManage), h.Undo)
		secured.GET("/actions/:id/history", g.Require(authz.ActionRead), h.History)
	}
	if h := r.Inspections; h != nil {
		secured.POST("/inspections", g.Require(authz.InspectionWrite), h.Create)
		secured.GET("/inspections", g.Require(authz.InspectionRead), h.List)
		secured.GET("/inspections/:id", g.Require(authz.InspectionRead), h.Get)
		secured.DELETE("/inspections/:id", g.Require(authz.InspectionWrite), h.Delete)
		secured.PUT("/inspections/:id/items", g.Require(authz.InspectionWrite, authz.InspectionAmend), h.SaveItems)
		secured.POST("/inspections/:id/submit", g.Require(authz.InspectionWrite), h.Submit)
	}

	return engine
}
