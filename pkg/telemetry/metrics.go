// Package telemetry records governor observability signals through the
// OpenTelemetry metric API and exposes a Prometheus scrape surface for the
// demo daemon. Everything stays in-process: there is no remote export.
package telemetry

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/renderpulse/renderpulse/pkg/domain"
)

var (
	collectorOnce    sync.Once
	collectorInitErr error
	collectorInst    *Collector
)

// Collector handles governor-specific metrics collection.
type Collector struct {
	// Rendering metrics
	fpsGauge      metric.Float64Gauge
	frameTime     metric.Float64Histogram
	activeHandles metric.Int64Gauge

	// Health metrics
	healthScore metric.Float64Gauge
	memoryUsage metric.Int64Gauge

	// Control loop metrics
	modeTransitions      metric.Int64Counter
	forcedOptimizations  metric.Int64Counter
	collaboratorFailures metric.Int64Counter
	skippedChecks        metric.Int64Counter
	taskFailures         metric.Int64Counter

	logger *slog.Logger
}

// GetCollector returns the singleton governor metrics collector.
func GetCollector(logger *slog.Logger) (*Collector, error) {
	collectorOnce.Do(func() {
		collectorInst, collectorInitErr = newCollector(logger)
	})
	return collectorInst, collectorInitErr
}

func newCollector(logger *slog.Logger) (*Collector, error) {
	if logger == nil {
		logger = slog.Default()
	}

	meter := otel.GetMeterProvider().Meter("renderpulse.governor")

	c := &Collector{logger: logger}

	var err error

	c.fpsGauge, err = meter.Float64Gauge(
		"governor_fps",
		metric.WithDescription("Last computed average frames per second"),
		metric.WithUnit("{frame}/s"),
	)
	if err != nil {
		return nil, err
	}

	c.frameTime, err = meter.Float64Histogram(
		"governor_frame_time_ms",
		metric.WithDescription("Average frame render latency over the sliding window"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	c.activeHandles, err = meter.Int64Gauge(
		"governor_active_animation_handles",
		metric.WithDescription("Number of live animation handles"),
		metric.WithUnit("{handle}"),
	)
	if err != nil {
		return nil, err
	}

	c.healthScore, err = meter.Float64Gauge(
		"governor_health_score",
		metric.WithDescription("Weighted 0-100 performance health score"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	c.memoryUsage, err = meter.Int64Gauge(
		"governor_memory_usage_bytes",
		metric.WithDescription("Memory usage reported by the probe"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	c.modeTransitions, err = meter.Int64Counter(
		"governor_mode_transitions_total",
		metric.WithDescription("Mode transitions partitioned by axis and target mode"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	c.forcedOptimizations, err = meter.Int64Counter(
		"governor_forced_optimizations_total",
		metric.WithDescription("Forced memory optimization runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	c.collaboratorFailures, err = meter.Int64Counter(
		"governor_collaborator_failures_total",
		metric.WithDescription("Collaborator calls that failed and were substituted with defaults"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	c.skippedChecks, err = meter.Int64Counter(
		"governor_skipped_checks_total",
		metric.WithDescription("Adaptive checks skipped because a previous run was in flight"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	c.taskFailures, err = meter.Int64Counter(
		"governor_task_failures_total",
		metric.WithDescription("Periodic tasks terminated by a recovered panic"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// RecordSnapshot emits the gauges describing one performance snapshot.
func (c *Collector) RecordSnapshot(ctx context.Context, snap domain.PerformanceSnapshot) {
	if c == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("render_mode", snap.RenderMode.String()),
		attribute.String("cache_mode", snap.CacheMode.String()),
	)
	c.fpsGauge.Record(ctx, snap.CurrentFPS, attrs)
	c.healthScore.Record(ctx, snap.HealthScore, attrs)
	c.activeHandles.Record(ctx, int64(snap.ActiveHandleCount), attrs)
	c.memoryUsage.Record(ctx, int64(snap.MemoryUsageBytes), attrs)
	if snap.AverageFrameTimeMs > 0 {
		c.frameTime.Record(ctx, snap.AverageFrameTimeMs, attrs)
	}
}

// RecordModeTransition counts one transition on the given axis.
func (c *Collector) RecordModeTransition(ctx context.Context, axis, to string) {
	if c == nil {
		return
	}
	c.modeTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("axis", axis),
		attribute.String("to", to),
	))
}

// RecordForcedOptimization counts one forced reclamation run.
func (c *Collector) RecordForcedOptimization(ctx context.Context, trigger string) {
	if c == nil {
		return
	}
	c.forcedOptimizations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("trigger", trigger),
	))
}

// RecordCollaboratorFailure counts a failed collaborator call.
func (c *Collector) RecordCollaboratorFailure(ctx context.Context, collaborator string) {
	if c == nil {
		return
	}
	c.collaboratorFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("collaborator", collaborator),
	))
}

// RecordSkippedCheck counts an adaptive check skipped by the busy guard.
func (c *Collector) RecordSkippedCheck(ctx context.Context) {
	if c == nil {
		return
	}
	c.skippedChecks.Add(ctx, 1)
}

// RecordTaskFailure counts a periodic task terminated by a recovered panic.
func (c *Collector) RecordTaskFailure(ctx context.Context, task string) {
	if c == nil {
		return
	}
	c.taskFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("task", task),
	))
}
