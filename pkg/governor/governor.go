// Package governor orchestrates the adaptive performance control loop: it
// owns the frame timing monitor, the hysteresis mode controller and the
// animation handle registry, runs the periodic adaptive-check and reporting
// tasks, and exposes the public contract consumed by the host application.
//
// A Governor is a single explicitly-owned instance passed by reference to all
// consumers. Initialize and Dispose are the only lifecycle entry points; all
// shared state (sliding window, handle table, mode state) is owned by the
// instance and mutated only through its public operations.
package governor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/renderpulse/renderpulse/pkg/animation"
	"github.com/renderpulse/renderpulse/pkg/config"
	"github.com/renderpulse/renderpulse/pkg/domain"
	"github.com/renderpulse/renderpulse/pkg/health"
	"github.com/renderpulse/renderpulse/pkg/modes"
	"github.com/renderpulse/renderpulse/pkg/telemetry"
	"github.com/renderpulse/renderpulse/pkg/timing"
)

// Deps are the external collaborators the governor queries or commands but
// does not own. Frames, Sink and Lifecycle are optional; Cache and Memory may
// be nil, in which case their signals degrade to safe defaults.
type Deps struct {
	Frames    domain.FrameSource
	Cache     domain.CacheStatsProvider
	Memory    domain.MemoryProbe
	Sink      domain.ReportSink
	Lifecycle domain.LifecycleSignal
}

// Governor drives the adaptive performance control loop.
type Governor struct {
	mu     sync.Mutex
	cfg    config.Config
	deps   Deps
	logger *slog.Logger

	monitor    *timing.Monitor
	controller *modes.Controller
	registry   *animation.Registry
	metrics    *telemetry.Collector

	running         bool
	stopCh          chan struct{}
	wg              sync.WaitGroup
	cancelLifecycle func()

	// alive gates side effects of async resumptions: a collaborator call that
	// completes after Dispose must become a no-op.
	alive atomic.Bool
	// checkBusy is the re-entrancy guard for the adaptive check; overlapping
	// invocations are skipped, not queued.
	checkBusy atomic.Bool

	lastHealthScore float64
}

// New creates a governor. The configuration is validated immediately;
// misconfiguration is fatal and propagated, never silently swallowed.
func New(cfg config.Config, deps Deps, logger *slog.Logger) (*Governor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	collector, err := telemetry.GetCollector(logger)
	if err != nil {
		logger.Warn("Metrics collector unavailable, continuing without metrics", "error", err)
	}

	g := &Governor{
		cfg:     cfg,
		deps:    deps,
		logger:  logger,
		metrics: collector,
	}

	g.registry = animation.NewRegistry(animation.Options{
		CreationScale:          cfg.LowPowerCreationScale,
		EntryScale:             cfg.LowPowerEntryScale,
		LongAnimationThreshold: cfg.LongAnimationThreshold,
		RenderMode:             func() domain.RenderMode { return g.controller.RenderMode() },
	}, logger)

	g.controller = modes.NewController(modes.Thresholds{
		MinAcceptableFPS: cfg.MinAcceptableFPS,
		RecoveryFPS:      cfg.RenderExitFPS(),
		MemoryCriticalMB: cfg.MemoryCriticalMB,
		MemoryWarningMB:  cfg.MemoryWarningMB,
	}, modes.Callbacks{
		OnEnterLowPower: func() {
			scaled := g.registry.ApplyLowPowerScaling()
			g.logger.Info("Entered low-power rendering", "scaled_animations", scaled)
		},
	}, logger)

	g.monitor = timing.NewMonitor(deps.Frames, timing.Options{
		WindowSize:        cfg.WindowSize,
		SampleEveryFrames: cfg.SampleEveryFrames,
		OnSample:          g.onFPSSample,
	}, logger)

	return g, nil
}

// Initialize starts the frame monitor, the adaptive-check and reporting tasks
// and the lifecycle subscription. Calling Initialize while already running is
// a no-op. State is rebuilt from zero on every (re-)initialization.
func (g *Governor) Initialize() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		return nil
	}

	if err := g.cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	g.stopCh = make(chan struct{})
	g.alive.Store(true)

	g.monitor.Start()

	if g.deps.Lifecycle != nil {
		g.cancelLifecycle = g.deps.Lifecycle.Subscribe(func() {
			g.logger.Info("Host backgrounded, forcing memory reclamation")
			go g.ForceMemoryOptimization(context.Background())
		})
	}

	g.wg.Add(2)
	go g.adaptiveLoop(g.stopCh, g.cfg.AdaptiveCheckInterval)
	go g.reportLoop(g.stopCh, g.cfg.ReportingInterval)

	g.running = true
	g.logger.Info("Governor initialized",
		"adaptive_check_interval", g.cfg.AdaptiveCheckInterval,
		"reporting_interval", g.cfg.ReportingInterval,
	)
	return nil
}

// Dispose stops the periodic tasks and subscriptions synchronously, then
// clears the handle registry and the sliding window. Idempotent: a second
// call produces no error and no duplicate cleanup. In-flight collaborator
// awaits become no-ops on resumption.
func (g *Governor) Dispose() {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return
	}
	g.running = false
	g.alive.Store(false)
	close(g.stopCh)
	cancelLifecycle := g.cancelLifecycle
	g.cancelLifecycle = nil
	g.mu.Unlock()

	if cancelLifecycle != nil {
		cancelLifecycle()
	}
	g.monitor.Stop()
	g.wg.Wait()

	g.registry.Clear()
	g.monitor.Reset()
	g.controller.Reset()

	g.logger.Info("Governor disposed")
}

// Running reports whether the governor is between Initialize and Dispose.
func (g *Governor) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// OnFrame feeds one frame latency sample directly, for hosts that push frame
// timings instead of providing a FrameSource.
func (g *Governor) OnFrame(latencyMs float64) {
	g.monitor.OnFrame(latencyMs)
}

// onFPSSample runs on the monitor's sampling cadence, strictly after the
// window update and FPS recomputation.
func (g *Governor) onFPSSample(fps float64) {
	if !g.alive.Load() {
		return
	}
	mode, transitioned := g.controller.EvaluateRender(fps)
	if transitioned {
		g.metrics.RecordModeTransition(context.Background(), "render", mode.String())
	}
}

// Snapshot queries the memory probe and cache collaborator, reads the last
// computed FPS, runs the health evaluator and returns the combined result.
// Collaborator failures are substituted with safe defaults and logged; the
// snapshot itself always succeeds while the governor is initialized.
func (g *Governor) Snapshot(ctx context.Context) (domain.PerformanceSnapshot, error) {
	if !g.Running() {
		return domain.PerformanceSnapshot{}, domain.ErrNotInitialized
	}
	snap := g.collect(ctx)
	if !g.alive.Load() {
		return domain.PerformanceSnapshot{}, domain.ErrAlreadyDisposed
	}
	return snap, nil
}

// collect gathers collaborator signals and computes the snapshot. Failures
// degrade to "assume healthy" rather than interrupting the caller.
func (g *Governor) collect(ctx context.Context) domain.PerformanceSnapshot {
	memBytes := g.memoryUsage(ctx)
	stats := g.cacheStatistics(ctx)

	fps := g.monitor.CurrentFPS()
	memMB := float64(memBytes) / (1024 * 1024)

	report := health.Evaluate(health.Inputs{
		FPS:               fps,
		MemoryMB:          memMB,
		CacheHitRate:      stats.HitRate,
		ActiveHandleCount: g.registry.Count(),
		TargetFPS:         g.cfg.TargetFPS,
		MemoryScaleMB:     g.cfg.MemoryScaleMB,
	})

	g.mu.Lock()
	g.lastHealthScore = report.Score
	g.mu.Unlock()

	return domain.PerformanceSnapshot{
		CurrentFPS:         fps,
		AverageFrameTimeMs: g.monitor.AverageFrameTimeMs(),
		RenderMode:         g.controller.RenderMode(),
		CacheMode:          g.controller.CacheMode(),
		ActiveHandleCount:  g.registry.Count(),
		MemoryUsageBytes:   memBytes,
		HealthScore:        report.Score,
		Recommendations:    report.Recommendations,
		Timestamp:          time.Now(),
	}
}

// memoryUsage reads the probe, assuming zero pressure when it fails.
func (g *Governor) memoryUsage(ctx context.Context) uint64 {
	if g.deps.Memory == nil {
		return 0
	}
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.CollaboratorTimeout)
	defer cancel()

	usage, err := g.deps.Memory.CurrentUsageBytes(callCtx)
	if err != nil {
		g.logger.Warn("Memory probe unavailable, assuming zero pressure", "error", err)
		g.metrics.RecordCollaboratorFailure(ctx, "memory_probe")
		return 0
	}
	return usage
}

// cacheStatistics reads the cache collaborator, assuming a healthy cache when
// it fails.
func (g *Governor) cacheStatistics(ctx context.Context) domain.CacheStatistics {
	if g.deps.Cache == nil {
		return domain.CacheStatistics{HitRate: 1}
	}
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.CollaboratorTimeout)
	defer cancel()

	stats, err := g.deps.Cache.Statistics(callCtx)
	if err != nil {
		g.logger.Warn("Cache statistics unavailable, assuming healthy cache", "error", err)
		g.metrics.RecordCollaboratorFailure(ctx, "cache_stats")
		return domain.CacheStatistics{HitRate: 1}
	}
	return stats
}

// ForceMemoryOptimization invokes the cache collaborator's reclamation routine
// and a host-level memory-reclaim hint. It never propagates failures; they
// are logged only, so it is safe to call from UI code paths.
func (g *Governor) ForceMemoryOptimization(ctx context.Context) {
	if g.deps.Cache != nil {
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.CollaboratorTimeout)
		err := g.deps.Cache.OptimizeMemoryUsage(callCtx)
		cancel()

		if !g.alive.Load() {
			return
		}
		if err != nil {
			g.logger.Warn("Cache memory optimization failed", "error", err)
			g.metrics.RecordCollaboratorFailure(ctx, "cache_optimize")
		}
	}

	debug.FreeOSMemory()
	g.metrics.RecordForcedOptimization(ctx, "forced")
	g.logger.Info("Forced memory optimization completed")
}

// adaptiveLoop drives the cache-mode axis on its own cadence, decoupled from
// the frame cadence.
func (g *Governor) adaptiveLoop(stopCh <-chan struct{}, interval time.Duration) {
	defer g.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			// Scheduling failure: log and count, but do not restart; silent
			// restarts could mask a host-level problem.
			g.logger.Error("Adaptive check task terminated", "panic", r)
			g.metrics.RecordTaskFailure(context.Background(), "adaptive_check")
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.runAdaptiveCheck()
		case <-stopCh:
			return
		}
	}
}

// runAdaptiveCheck performs one control cycle: fetch memory and cache stats,
// recompute the health score, and drive the cache-mode axis. A cycle that is
// still awaiting collaborators causes subsequent invocations to be skipped
// rather than queued.
func (g *Governor) runAdaptiveCheck() {
	if !g.checkBusy.CompareAndSwap(false, true) {
		g.logger.Debug("Adaptive check still in flight, skipping")
		g.metrics.RecordSkippedCheck(context.Background())
		return
	}
	defer g.checkBusy.Store(false)

	ctx := context.Background()
	memBytes := g.memoryUsage(ctx)
	stats := g.cacheStatistics(ctx)

	// The awaits above may have outlived a Dispose; apply nothing if so.
	if !g.alive.Load() {
		return
	}

	memMB := float64(memBytes) / (1024 * 1024)
	mode, transitioned := g.controller.EvaluateCache(memMB)
	if transitioned {
		g.metrics.RecordModeTransition(ctx, "cache", mode.String())
		if mode == domain.CacheAggressive && g.deps.Cache != nil {
			callCtx, cancel := context.WithTimeout(ctx, g.cfg.CollaboratorTimeout)
			err := g.deps.Cache.OptimizeMemoryUsage(callCtx)
			cancel()
			if err != nil && g.alive.Load() {
				g.logger.Warn("Cache memory optimization failed on aggressive entry", "error", err)
				g.metrics.RecordCollaboratorFailure(ctx, "cache_optimize")
			}
		}
	}

	report := health.Evaluate(health.Inputs{
		FPS:               g.monitor.CurrentFPS(),
		MemoryMB:          memMB,
		CacheHitRate:      stats.HitRate,
		ActiveHandleCount: g.registry.Count(),
		TargetFPS:         g.cfg.TargetFPS,
		MemoryScaleMB:     g.cfg.MemoryScaleMB,
	})

	g.mu.Lock()
	g.lastHealthScore = report.Score
	g.mu.Unlock()

	g.logger.Debug("Adaptive check completed",
		"memory_mb", memMB,
		"cache_mode", mode,
		"health_score", report.Score,
	)
}

// reportLoop pushes periodic structured snapshots to the reporting sink.
func (g *Governor) reportLoop(stopCh <-chan struct{}, interval time.Duration) {
	defer g.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("Reporting task terminated", "panic", r)
			g.metrics.RecordTaskFailure(context.Background(), "reporting")
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx := context.Background()
			snap := g.collect(ctx)
			if !g.alive.Load() {
				return
			}
			g.metrics.RecordSnapshot(ctx, snap)
			if g.deps.Sink != nil {
				g.deps.Sink.Report(ctx, snap)
			}
			g.logger.Info("Performance report",
				"fps", snap.CurrentFPS,
				"frame_time_ms", snap.AverageFrameTimeMs,
				"render_mode", snap.RenderMode,
				"cache_mode", snap.CacheMode,
				"memory_bytes", snap.MemoryUsageBytes,
				"health_score", snap.HealthScore,
				"active_handles", snap.ActiveHandleCount,
			)
		case <-stopCh:
			return
		}
	}
}

// RegisterAnimation creates a handle for an externally-owned animated value.
func (g *Governor) RegisterAnimation(nominal time.Duration, label string) animation.Handle {
	return g.registry.Register(nominal, label)
}

// RemoveAnimation removes a handle on its owner's completion signal.
// Idempotent.
func (g *Governor) RemoveAnimation(id string) {
	g.registry.Remove(id)
}

// ActiveAnimationCount returns the number of live handles.
func (g *Governor) ActiveAnimationCount() int {
	return g.registry.Count()
}

// AnimationHandle returns the current view of a live handle.
func (g *Governor) AnimationHandle(id string) (animation.Handle, bool) {
	return g.registry.Get(id)
}

// RenderMode returns the current render-axis mode.
func (g *Governor) RenderMode() domain.RenderMode {
	return g.controller.RenderMode()
}

// CacheMode returns the current cache-axis mode.
func (g *Governor) CacheMode() domain.CacheMode {
	return g.controller.CacheMode()
}

// LastHealthScore returns the most recently computed health score.
func (g *Governor) LastHealthScore() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastHealthScore
}

// ModeStats exposes controller statistics for status surfaces.
func (g *Governor) ModeStats() modes.Stats {
	return g.controller.Stats()
}

// ApplyConfig swaps in updated hysteresis thresholds from a config reload.
// Sampling cadence and task intervals keep their initialize-time values until
// the next Initialize.
func (g *Governor) ApplyConfig(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	g.controller.UpdateThresholds(modes.Thresholds{
		MinAcceptableFPS: cfg.MinAcceptableFPS,
		RecoveryFPS:      cfg.RenderExitFPS(),
		MemoryCriticalMB: cfg.MemoryCriticalMB,
		MemoryWarningMB:  cfg.MemoryWarningMB,
	})

	g.mu.Lock()
	g.cfg.MinAcceptableFPS = cfg.MinAcceptableFPS
	g.cfg.RenderRecoveryFraction = cfg.RenderRecoveryFraction
	g.cfg.MemoryCriticalMB = cfg.MemoryCriticalMB
	g.cfg.MemoryWarningMB = cfg.MemoryWarningMB
	g.mu.Unlock()

	g.logger.Info("Governor thresholds updated",
		"min_acceptable_fps", cfg.MinAcceptableFPS,
		"recovery_fps", cfg.RenderExitFPS(),
		"memory_critical_mb", cfg.MemoryCriticalMB,
		"memory_warning_mb", cfg.MemoryWarningMB,
	)
	return nil
}
