package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/renderpulse/renderpulse/pkg/domain"
)

// PromSink exposes governor snapshots on a Prometheus scrape endpoint. It
// implements domain.ReportSink so the governor's reporting task can push
// snapshots into it directly.
type PromSink struct {
	fps            prometheus.Gauge
	frameTimeMs    prometheus.Gauge
	healthScore    prometheus.Gauge
	memoryBytes    prometheus.Gauge
	activeHandles  prometheus.Gauge
	renderLowPower prometheus.Gauge
	cacheAggro     prometheus.Gauge
	reportsTotal   prometheus.Counter

	registry *prometheus.Registry
}

// NewPromSink creates a sink with a private registry.
func NewPromSink() *PromSink {
	registry := prometheus.NewRegistry()

	s := &PromSink{
		fps: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "governor_fps",
			Help: "Last computed average frames per second",
		}),
		frameTimeMs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "governor_frame_time_ms",
			Help: "Average frame render latency over the sliding window in milliseconds",
		}),
		healthScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "governor_health_score",
			Help: "Weighted 0-100 performance health score",
		}),
		memoryBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "governor_memory_usage_bytes",
			Help: "Memory usage reported by the probe in bytes",
		}),
		activeHandles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "governor_active_animation_handles",
			Help: "Number of live animation handles",
		}),
		renderLowPower: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "governor_render_low_power",
			Help: "1 when the render axis is in low-power mode",
		}),
		cacheAggro: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "governor_cache_aggressive",
			Help: "1 when the cache axis is in aggressive mode",
		}),
		reportsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "governor_reports_total",
			Help: "Total snapshots pushed by the reporting task",
		}),
		registry: registry,
	}

	registry.MustRegister(
		s.fps,
		s.frameTimeMs,
		s.healthScore,
		s.memoryBytes,
		s.activeHandles,
		s.renderLowPower,
		s.cacheAggro,
		s.reportsTotal,
	)

	return s
}

// Report implements domain.ReportSink.
func (s *PromSink) Report(_ context.Context, snap domain.PerformanceSnapshot) {
	s.fps.Set(snap.CurrentFPS)
	s.frameTimeMs.Set(snap.AverageFrameTimeMs)
	s.healthScore.Set(snap.HealthScore)
	s.memoryBytes.Set(float64(snap.MemoryUsageBytes))
	s.activeHandles.Set(float64(snap.ActiveHandleCount))

	if snap.RenderMode == domain.RenderLowPower {
		s.renderLowPower.Set(1)
	} else {
		s.renderLowPower.Set(0)
	}
	if snap.CacheMode == domain.CacheAggressive {
		s.cacheAggro.Set(1)
	} else {
		s.cacheAggro.Set(0)
	}

	s.reportsTotal.Inc()
}

// Handler returns the HTTP handler for the scrape endpoint.
func (s *PromSink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Registry exposes the private registry for tests.
func (s *PromSink) Registry() *prometheus.Registry {
	return s.registry
}
