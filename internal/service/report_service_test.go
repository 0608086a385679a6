package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetline/fleet-api/internal/audit"
	"github.com/fleetline/fleet-api/internal/models"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
)

type memoryCache struct {
	values      map[string][]byte
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func (m *memoryCache) Invalidate(ctx context.Context, prefix string) error {
	m.invalidated = append(m.invalidated, prefix)
	for key := range m.values {
		if strings.HasPrefix(key, prefix) {
			delete(m.values, key)
		}
	}
	return nil
}

type dueStub struct {
	items  []models.MaintenanceDueItem
	calls  int
	cutoff time.Time
	margin int
}

func (d *dueStub) ListDue(ctx context.Context, today, cutoff time.Time, margin int) ([]models.MaintenanceDueItem, error) {
	d.calls++
	d.cutoff = cutoff
	d.margin = margin
	return d.items, nil
}

var reportNow = time.Date(2026, 10, 18, 14, 30, 0, 0, time.UTC)

func dueItems() []models.MaintenanceDueItem {
	overdue := date("2026-10-01")
	soon := date("2026-11-02")
	return []models.MaintenanceDueItem{
		{VehicleID: "v1", RegNumber: "AB12CDE", Category: "van", Item: "mot", DueDate: &overdue, Overdue: true},
		{VehicleID: "v2", RegNumber: "XY65ZZZ", Category: "car", Item: "tax", DueDate: &soon},
		{VehicleID: "v2", RegNumber: "XY65ZZZ", Category: "car", Item: "service", DueMileage: intPtr(60000), CurrentMile: intPtr(59500)},
	}
}

func newReportFixture(cacheRepo CacheRepository) (*ReportService, *dueStub) {
	due := &dueStub{items: dueItems()}
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, cacheRepo != nil)
	svc := NewReportService(due, &historyStoreStub{}, newVehicleRepoStub(activeVehicle("v1", "AB12CDE")), nil, cache, nil, ReportServiceConfig{})
	svc.now = func() time.Time { return reportNow }
	svc.exporter.now = func() time.Time { return reportNow }
	return svc, due
}

func TestMaintenanceDueReport(t *testing.T) {
	svc, due := newReportFixture(nil)

	report, err := svc.MaintenanceDue(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 30, report.WithinDays)
	assert.Equal(t, "2026-11-17", report.Cutoff)
	assert.Equal(t, 1, report.Overdue)
	assert.Len(t, report.Items, 3)
	assert.Equal(t, 1000, due.margin)
}

func TestMaintenanceDueReportIsCached(t *testing.T) {
	cache := newMemoryCache()
	svc, due := newReportFixture(cache)

	_, err := svc.MaintenanceDue(context.Background(), 14)
	require.NoError(t, err)
	report, err := svc.MaintenanceDue(context.Background(), 14)
	require.NoError(t, err)
	assert.Equal(t, 1, due.calls)
	assert.Equal(t, 1, report.Overdue)
	assert.Contains(t, cache.values, "reports:maintenance-due:2026-10-18:14")

	svc.cache.Invalidate(context.Background(), reportCachePrefix)
	_, err = svc.MaintenanceDue(context.Background(), 14)
	require.NoError(t, err)
	assert.Equal(t, 2, due.calls)
}

func TestRenderMaintenanceDueCSV(t *testing.T) {
	svc, _ := newReportFixture(nil)

	file, err := svc.RenderMaintenanceDue(context.Background(), 30, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "maintenance-due-20261018-143000.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	body := string(file.Body)
	assert.Contains(t, body, "Registration,Category,Item,Due date,Due mileage,Current mileage,Overdue")
	assert.Contains(t, body, "AB12CDE,van,mot,2026-10-01,,,yes")
	assert.Contains(t, body, "XY65ZZZ,car,service,,60000,59500,no")
}

func TestExportMaintenanceHistory(t *testing.T) {
	svc, _ := newReportFixture(nil)
	store := &historyStoreStub{}
	svc.history = store
	appender := newTestAppender(store)
	entries := appender.Build(audit.Target{RecordType: models.RecordMaintenance, SubjectID: "v1"}, nil, "Weekly check complete", manager)
	require.NoError(t, appender.Insert(context.Background(), entries))

	file, err := svc.ExportMaintenanceHistory(context.Background(), "v1", FormatPDF)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(file.Filename, ".pdf"))
	assert.True(t, strings.HasPrefix(string(file.Body), "%PDF"))

	_, err = svc.ExportMaintenanceHistory(context.Background(), "missing", FormatCSV)
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}
