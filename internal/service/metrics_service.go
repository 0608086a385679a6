package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	mutations       *prometheus.CounterVec
	historyEntries  *prometheus.CounterVec
	effects         *prometheus.CounterVec
	derivedTasks    *prometheus.CounterVec
	syncVehicles    *prometheus.CounterVec
	syncDuration    prometheus.Histogram
	cacheLookups    *prometheus.CounterVec
	cacheWrite      prometheus.Observer
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_audited_mutations_total",
		Help: "Audited mutations by record type and outcome",
	}, []string{"record_type", "outcome"})

	historyEntries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_history_entries_total",
		Help: "History entries written by record type",
	}, []string{"record_type"})

	effects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_post_commit_effects_total",
		Help: "Post-commit effect attempts by effect and outcome",
	}, []string{"effect", "outcome"})

	derivedTasks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_derived_tasks_total",
		Help: "Workshop actions created or auto-completed from inspections",
	}, []string{"operation"})

	syncVehicles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_vehicle_sync_total",
		Help: "Vehicles processed by the DVLA/MOT sync by outcome",
	}, []string{"outcome"})

	syncDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fleet_vehicle_sync_duration_seconds",
		Help:    "Duration of sync runs",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, mutations, historyEntries, effects, derivedTasks,
		syncVehicles, syncDuration, cacheLookups, cacheWrite, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		mutations:       mutations,
		historyEntries:  historyEntries,
		effects:         effects,
		derivedTasks:    derivedTasks,
		syncVehicles:    syncVehicles,
		syncDuration:    syncDuration,
		cacheLookups:    cacheLookups,
		cacheWrite:      cacheWrite,
	}
}

// Registry exposes the underlying registry for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordMutation counts an audited mutation. outcome is "changed", "unchanged" or "rejected".
func (m *MetricsService) RecordMutation(recordType, outcome string, historyRows int) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(recordType, outcome).Inc()
	if historyRows > 0 {
		m.historyEntries.WithLabelValues(recordType).Add(float64(historyRows))
	}
}

// RecordEffect counts a post-commit effect attempt.
func (m *MetricsService) RecordEffect(effect, outcome string) {
	if m == nil {
		return
	}
	m.effects.WithLabelValues(effect, outcome).Inc()
}

// JobAttempted implements jobs.Observer for retried effects.
func (m *MetricsService) JobAttempted(_ string, jobType string, _ int, err error, exhausted bool) {
	switch {
	case err == nil:
		m.RecordEffect(jobType, "retry_succeeded")
	case exhausted:
		m.RecordEffect(jobType, "exhausted")
	default:
		m.RecordEffect(jobType, "retry_failed")
	}
}

// RecordDerivedTasks counts actions created and auto-completed by the synchronizer.
func (m *MetricsService) RecordDerivedTasks(created, completed int) {
	if m == nil {
		return
	}
	m.derivedTasks.WithLabelValues("created").Add(float64(created))
	m.derivedTasks.WithLabelValues("auto_completed").Add(float64(completed))
}

// RecordSyncRun records the per-vehicle outcomes and duration of a sync run.
func (m *MetricsService) RecordSyncRun(successful, failed, skipped int, duration time.Duration) {
	if m == nil {
		return
	}
	m.syncVehicles.WithLabelValues("success").Add(float64(successful))
	m.syncVehicles.WithLabelValues("failed").Add(float64(failed))
	m.syncVehicles.WithLabelValues("skipped").Add(float64(skipped))
	m.syncDuration.Observe(duration.Seconds())
}

// RecordCacheLookup records a cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}
