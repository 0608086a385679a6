package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fleetline/fleet-api/internal/models"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
	"github.com/fleetline/fleet-api/pkg/export"
)

type dueLister interface {
	ListDue(ctx context.Context, today, cutoff time.Time, margin int) ([]models.MaintenanceDueItem, error)
}

type historyLister interface {
	List(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, int, error)
}

// ReportServiceConfig governs report windows and caching.
type ReportServiceConfig struct {
	DueWithinDays int
	ServiceMargin int
	CacheTTL      time.Duration
	HistoryLimit  int
}

// MaintenanceDueReport lists maintenance items falling due.
type MaintenanceDueReport struct {
	GeneratedAt time.Time                   `json:"generated_at"`
	WithinDays  int                         `json:"within_days"`
	Cutoff      string                      `json:"cutoff"`
	Overdue     int                         `json:"overdue"`
	Items       []models.MaintenanceDueItem `json:"items"`
}

// ReportService builds the maintenance-due report and history exports.
type ReportService struct {
	due      dueLister
	history  historyLister
	vehicles vehicleFinder
	exporter *ExportService
	cache    *CacheService
	logger   *zap.Logger
	cfg      ReportServiceConfig
	now      func() time.Time
}

// NewReportService constructs a ReportService.
func NewReportService(due dueLister, history historyLister, vehicles vehicleFinder, exporter *ExportService, cache *CacheService, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if exporter == nil {
		exporter = NewExportService(nil, nil)
	}
	if cfg.DueWithinDays <= 0 {
		cfg.DueWithinDays = 30
	}
	if cfg.ServiceMargin <= 0 {
		cfg.ServiceMargin = 1000
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 5000
	}
	return &ReportService{due: due, history: history, vehicles: vehicles, exporter: exporter, cache: cache, logger: logger, cfg: cfg, now: time.Now}
}

// MaintenanceDue returns items due within the window, served from cache when possible.
func (s *ReportService) MaintenanceDue(ctx context.Context, withinDays int) (*MaintenanceDueReport, error) {
	if withinDays <= 0 {
		withinDays = s.cfg.DueWithinDays
	}
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	cutoff := today.AddDate(0, 0, withinDays)
	key := fmt.Sprintf("%s:%s:%d", reportCachePrefix, today.Format(models.DateLayout), withinDays)

	var cached MaintenanceDueReport
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	items, err := s.due.ListDue(ctx, today, cutoff, s.cfg.ServiceMargin)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to build maintenance due report")
	}
	if items == nil {
		items = []models.MaintenanceDueItem{}
	}
	report := &MaintenanceDueReport{
		GeneratedAt: now,
		WithinDays:  withinDays,
		Cutoff:      cutoff.Format(models.DateLayout),
		Items:       items,
	}
	for _, item := range items {
		if item.Overdue {
			report.Overdue++
		}
	}
	s.cache.Set(ctx, key, report, s.cfg.CacheTTL)
	return report, nil
}

// RenderMaintenanceDue renders the report as CSV or PDF.
func (s *ReportService) RenderMaintenanceDue(ctx context.Context, withinDays int, format string) (*RenderedFile, error) {
	report, err := s.MaintenanceDue(ctx, withinDays)
	if err != nil {
		return nil, err
	}
	data := export.Dataset{
		Title:   fmt.Sprintf("Maintenance due by %s", report.Cutoff),
		Headers: []string{"Registration", "Category", "Item", "Due date", "Due mileage", "Current mileage", "Overdue"},
	}
	for _, item := range report.Items {
		data.AddRow(
			item.RegNumber,
			item.Category,
			item.Item,
			deref(models.FormatDate(item.DueDate)),
			deref(models.FormatInt(item.DueMileage)),
			deref(models.FormatInt(item.CurrentMile)),
			yesNo(item.Overdue),
		)
	}
	return s.exporter.Render(data, format, "maintenance-due")
}

// ExportMaintenanceHistory renders a vehicle's maintenance history, newest first.
func (s *ReportService) ExportMaintenanceHistory(ctx context.Context, vehicleID, format string) (*RenderedFile, error) {
	vehicle, err := s.vehicles.FindByID(ctx, vehicleID)
	if err != nil {
		return nil, notFoundOr(err, "vehicle")
	}
	entries, total, err := s.history.List(ctx, models.HistoryFilter{
		RecordType: models.RecordMaintenance,
		SubjectID:  vehicleID,
		Limit:      s.cfg.HistoryLimit,
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load maintenance history")
	}
	if total > len(entries) {
		s.logger.Warn("history export truncated", zap.String("vehicle_id", vehicleID), zap.Int("total", total), zap.Int("exported", len(entries)))
	}

	data := export.Dataset{
		Title:   "Maintenance history " + vehicle.RegNumber,
		Headers: []string{"When", "Field", "Old value", "New value", "Type", "Comment", "Updated by"},
	}
	for _, entry := range entries {
		data.AddRow(
			entry.CreatedAt.UTC().Format("2006-01-02 15:04"),
			entry.FieldName,
			deref(entry.OldValue),
			deref(entry.NewValue),
			string(entry.ValueType),
			entry.Comment,
			entry.UpdatedByName,
		)
	}
	return s.exporter.Render(data, format, "maintenance-history-"+vehicle.RegNumber)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
