package telemetry

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renderpulse/renderpulse/pkg/domain"
)

func sampleSnapshot() domain.PerformanceSnapshot {
	return domain.PerformanceSnapshot{
		CurrentFPS:         25,
		AverageFrameTimeMs: 40,
		RenderMode:         domain.RenderLowPower,
		CacheMode:          domain.CacheAggressive,
		ActiveHandleCount:  4,
		MemoryUsageBytes:   128 << 20,
		HealthScore:        55,
		Timestamp:          time.Now(),
	}
}

func TestPromSinkReportSetsGauges(t *testing.T) {
	s := NewPromSink()
	s.Report(context.Background(), sampleSnapshot())

	assert.Equal(t, 25.0, testutil.ToFloat64(s.fps))
	assert.Equal(t, 40.0, testutil.ToFloat64(s.frameTimeMs))
	assert.Equal(t, 55.0, testutil.ToFloat64(s.healthScore))
	assert.Equal(t, float64(128<<20), testutil.ToFloat64(s.memoryBytes))
	assert.Equal(t, 4.0, testutil.ToFloat64(s.activeHandles))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.renderLowPower))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.cacheAggro))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.reportsTotal))
}

func TestPromSinkModeFlagsResetOnRecovery(t *testing.T) {
	s := NewPromSink()
	s.Report(context.Background(), sampleSnapshot())

	recovered := sampleSnapshot()
	recovered.RenderMode = domain.RenderNormal
	recovered.CacheMode = domain.CacheNormal
	s.Report(context.Background(), recovered)

	assert.Equal(t, 0.0, testutil.ToFloat64(s.renderLowPower))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.cacheAggro))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.reportsTotal))
}

func TestPromSinkHandlerServesMetrics(t *testing.T) {
	s := NewPromSink()
	s.Report(context.Background(), sampleSnapshot())

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "governor_fps 25")
	assert.Contains(t, body, "governor_health_score 55")
	assert.Contains(t, body, "governor_reports_total 1")
}
