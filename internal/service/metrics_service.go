package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generation scopes used as metric labels.
const (
	GenerationScopeClass  = "class"
	GenerationScopeSchool = "school"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic,
// caching and the timetable engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	generationDuration *prometheus.HistogramVec
	slotsCreated       *prometheus.CounterVec
	unplaced           *prometheus.CounterVec
	teacherConflicts   *prometheus.GaugeVec
	lockTimeouts          *prometheus.CounterVec
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	generationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_generation_duration_seconds",
		Help:    "Duration of timetable generation runs",
		Buckets: prometheus.DefBuckets,
	}, []string{"scope"})

	slotsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_slots_created_total",
		Help: "Timetable slots written by the generator",
	}, []string{"scope"})

	unplaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_unplaced_instances_total",
		Help: "Allocation instances the generator could not place",
	}, []string{"scope"})

	teacherConflicts := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "timetable_teacher_conflicts",
		Help: "Teacher double bookings found by the latest audit",
	}, []string{"school_id"})

	lockTimeouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_lock_timeouts_total",
		Help: "Timetable lock acquisitions that timed out",
	}, []string{"scope"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses,
		generationDuration, slotsCreated, unplaced, teacherConflicts, lockTimeouts, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		generationDuration: generationDuration,
		slotsCreated:       slotsCreated,
		unplaced:           unplaced,
		teacherConflicts:   teacherConflicts,
		lockTimeouts:          lockTimeouts,
	}
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

// Registry exposes the underlying registry for tests and extra collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveGeneration records one generation run.
func (m *MetricsService) ObserveGeneration(scope string, duration time.Duration, slotsCreated, unplaced int) {
	if m == nil {
		return
	}
	m.generationDuration.WithLabelValues(scope).Observe(duration.Seconds())
	m.slotsCreated.WithLabelValues(scope).Add(float64(slotsCreated))
	m.unplaced.WithLabelValues(scope).Add(float64(unplaced))
}

// SetTeacherConflicts publishes the latest audit result for a school.
func (m *MetricsService) SetTeacherConflicts(schoolID string, count int) {
	if m == nil {
		return
	}
	m.teacherConflicts.WithLabelValues(schoolID).Set(float64(count))
}

// RecordLockTimeout counts a lock acquisition that gave up.
func (m *MetricsService) RecordLockTimeout(scope string) {
	if m == nil {
		return
	}
	m.lockTimeouts.WithLabelValues(scope).Inc()
}
