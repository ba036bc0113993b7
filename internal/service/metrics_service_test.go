package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceExposesTimetableCollectors(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveGeneration(GenerationScopeClass, 120*time.Millisecond, 10, 2)
	metrics.SetTeacherConflicts(testSchool, 3)
	metrics.RecordLockTimeout(GenerationScopeSchool)
	metrics.ObserveHTTPRequest(http.MethodGet, "/api/v1/timetable/conflicts", http.StatusOK, 5*time.Millisecond)

	assert.Equal(t, float64(10), testutil.ToFloat64(metrics.slotsCreated.WithLabelValues(GenerationScopeClass)))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.unplaced.WithLabelValues(GenerationScopeClass)))

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, name := range []string{
		"timetable_generation_duration_seconds",
		"timetable_slots_created_total",
		"timetable_unplaced_instances_total",
		"timetable_teacher_conflicts",
		"timetable_lock_timeouts_total",
		"http_requests_total",
	} {
		assert.True(t, strings.Contains(body, name), "missing %s", name)
	}
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var metrics *MetricsService
	assert.NotPanics(t, func() {
		metrics.ObserveGeneration(GenerationScopeClass, time.Second, 1, 1)
		metrics.SetTeacherConflicts(testSchool, 1)
		metrics.RecordLockTimeout(GenerationScopeClass)
		metrics.RecordCacheOperation(true, time.Millisecond)
	})
}
