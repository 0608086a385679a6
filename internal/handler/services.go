package handler

import (
	"context"

	"github.com/fleetline/fleet-api/internal/audit"
	"github.com/fleetline/fleet-api/internal/dto"
	"github.com/fleetline/fleet-api/internal/models"
	"github.com/fleetline/fleet-api/internal/service"
)

type vehicleService interface {
	Create(ctx context.Context, actor models.Actor, req dto.CreateVehicleRequest) (*service.VehicleResult, error)
	Get(ctx context.Context, id string) (*models.Vehicle, error)
	List(ctx context.Context, filter models.VehicleFilter) ([]models.Vehicle, int, error)
	Delete(ctx context.Context, actor models.Actor, id string) (*dto.DeleteVehicleResponse, error)
}

type maintenanceService interface {
	Get(ctx context.Context, vehicleID string) (*models.Maintenance, error)
	Update(ctx context.Context, vehicleID string, raw audit.RawPatch, comment string, actor models.Actor) (*service.MutationResult[*models.Maintenance], error)
	History(ctx context.Context, vehicleID string, page, size int) ([]models.HistoryEntry, int, error)
}

type absenceService interface {
	Create(ctx context.Context, actor models.Actor, req dto.CreateAbsenceRequest) (*models.Absence, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.Absence, error)
	List(ctx context.Context, actor models.Actor, filter models.AbsenceFilter) ([]models.Absence, int, error)
	Update(ctx context.Context, actor models.Actor, id string, raw audit.RawPatch, comment string) (*service.MutationResult[*models.Absence], error)
	Approve(ctx context.Context, actor models.Actor, id, comment string) (*service.MutationResult[*models.Absence], error)
	Reject(ctx context.Context, actor models.Actor, id, comment string) (*service.MutationResult[*models.Absence], error)
	Cancel(ctx context.Context, actor models.Actor, id, comment string) (*service.MutationResult[*models.Absence], error)
	History(ctx context.Context, actor models.Actor, id string, page, size int) ([]models.HistoryEntry, int, error)
}

type timesheetService interface {
	Create(ctx context.Context, actor models.Actor, req dto.CreateTimesheetRequest) (*models.Timesheet, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.Timesheet, error)
	List(ctx context.Context, actor models.Actor, filter models.TimesheetFilter) ([]models.Timesheet, int, error)
	Update(ctx context.Context, actor models.Actor, id string, raw audit.RawPatch, comment string) (*service.MutationResult[*models.Timesheet], error)
	ReplaceEntries(ctx context.Context, actor models.Actor, id string, req dto.ReplaceEntriesRequest) (*service.MutationResult[*models.Timesheet], error)
	Submit(ctx context.Context, actor models.Actor, id string) (*service.MutationResult[*models.Timesheet], error)
	Approve(ctx context.Context, actor models.Actor, id, comment string) (*service.MutationResult[*models.Timesheet], error)
	Reject(ctx context.Context, actor models.Actor, id, comment string) (*service.MutationResult[*models.Timesheet], error)
	Process(ctx context.Context, actor models.Actor, id, comment string) (*service.MutationResult[*models.Timesheet], error)
	History(ctx context.Context, actor models.Actor, id string, page, size int) ([]models.HistoryEntry, int, error)
}

type actionService interface {
	Create(ctx context.Context, actor models.Actor, req dto.CreateActionRequest) (*models.Action, error)
	Get(ctx context.Context, id string) (*models.Action, error)
	List(ctx context.Context, filter models.ActionFilter) ([]models.Action, int, error)
	Update(ctx context.Context, actor models.Actor, id string, raw audit.RawPatch, comment string) (*service.MutationResult[*models.Action], error)
	Log(ctx context.Context, actor models.Actor, id, comment string) (*service.MutationResult[*models.Action], error)
	Complete(ctx context.Context, actor models.Actor, id, comment string) (*service.MutationResult[*models.Action], error)
	Undo(ctx context.Context, actor models.Actor, id, comment string) (*service.MutationResult[*models.Action], error)
	History(ctx context.Context, id string, page, size int) ([]models.HistoryEntry, int, error)
}

type inspectionService interface {
	Create(ctx context.Context, actor models.Actor, req dto.CreateInspectionRequest) (*service.InspectionResult, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.Inspection, error)
	List(ctx context.Context, actor models.Actor, filter models.InspectionFilter) ([]models.Inspection, int, error)
	SaveItems(ctx context.Context, actor models.Actor, id string, req dto.SaveInspectionItemsRequest) (*service.InspectionResult, error)
	Submit(ctx context.Context, actor models.Actor, id string) (*service.InspectionResult, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
}

type reportService interface {
	MaintenanceDue(ctx context.Context, withinDays int) (*service.MaintenanceDueReport, error)
	RenderMaintenanceDue(ctx context.Context, withinDays int, format string) (*service.RenderedFile, error)
	ExportMaintenanceHistory(ctx context.Context, vehicleID, format string) (*service.RenderedFile, error)
}

type syncService interface {
	Run(ctx context.Context) (*models.SyncReport, error)
}
