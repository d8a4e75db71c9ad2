// Package modes implements the hysteresis state machine that owns the render
// and cache operating modes. Each axis has distinct enter and exit thresholds
// so the mode cannot flap near a single boundary: no transition occurs while
// the signal sits inside the dead band between them.
package modes

import (
	"log/slog"
	"sync"
	"time"

	"github.com/renderpulse/renderpulse/pkg/domain"
)

// Thresholds defines the hysteresis bands for both axes.
type Thresholds struct {
	// MinAcceptableFPS is the render-axis entry threshold (Normal → LowPower).
	MinAcceptableFPS float64
	// RecoveryFPS is the render-axis exit threshold (LowPower → Normal).
	// Must be strictly above MinAcceptableFPS.
	RecoveryFPS float64
	// MemoryCriticalMB is the cache-axis entry threshold (Normal → Aggressive).
	MemoryCriticalMB float64
	// MemoryWarningMB is the cache-axis exit threshold (Aggressive → Normal).
	// Must be strictly below MemoryCriticalMB.
	MemoryWarningMB float64
}

// Callbacks fire on state transitions, at most once per transition, never per
// check. Exits carry no side effects beyond the mode change itself; the
// callbacks exist so the registry and cache collaborator can react to entries.
type Callbacks struct {
	OnEnterLowPower   func()
	OnEnterAggressive func()
}

// Controller evaluates both hysteresis axes. The render axis is evaluated on
// the frame monitor's sampling cadence; the cache axis on the governor's
// adaptive-check cadence. The two never influence each other.
type Controller struct {
	mu         sync.RWMutex
	thresholds Thresholds
	callbacks  Callbacks
	logger     *slog.Logger

	renderMode domain.RenderMode
	cacheMode  domain.CacheMode

	renderTransitions uint64
	cacheTransitions  uint64
	lastRenderChange  time.Time
	lastCacheChange   time.Time
}

// NewController creates a controller starting in Normal on both axes.
func NewController(t Thresholds, cb Callbacks, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		thresholds: t,
		callbacks:  cb,
		logger:     logger,
		renderMode: domain.RenderNormal,
		cacheMode:  domain.CacheNormal,
	}
}

// EvaluateRender applies the render-axis hysteresis rules to a freshly
// computed FPS value. Returns the resulting mode and whether a transition
// occurred. Values inside the dead band [MinAcceptableFPS, RecoveryFPS] never
// transition.
func (c *Controller) EvaluateRender(fps float64) (domain.RenderMode, bool) {
	c.mu.Lock()
	var fired func()

	transitioned := false
	switch c.renderMode {
	case domain.RenderNormal:
		if fps < c.thresholds.MinAcceptableFPS {
			c.renderMode = domain.RenderLowPower
			c.renderTransitions++
			c.lastRenderChange = time.Now()
			transitioned = true
			fired = c.callbacks.OnEnterLowPower
		}
	case domain.RenderLowPower:
		if fps > c.thresholds.RecoveryFPS {
			c.renderMode = domain.RenderNormal
			c.renderTransitions++
			c.lastRenderChange = time.Now()
			transitioned = true
			// Exit carries no side effect: already-running animations keep
			// their scaled durations, only future registrations revert.
		}
	}
	mode := c.renderMode
	c.mu.Unlock()

	if transitioned {
		c.logger.Info("Render mode transition", "mode", mode, "fps", fps)
	}
	if fired != nil {
		fired()
	}
	return mode, transitioned
}

// EvaluateCache applies the cache-axis hysteresis rules to a memory usage
// reading in megabytes. Entering Aggressive fires OnEnterAggressive once;
// exiting resets the flag and nothing else. Readings inside the dead band
// [MemoryWarningMB, MemoryCriticalMB] never transition.
func (c *Controller) EvaluateCache(memoryMB float64) (domain.CacheMode, bool) {
	c.mu.Lock()
	var fired func()

	transitioned := false
	switch c.cacheMode {
	case domain.CacheNormal:
		if memoryMB > c.thresholds.MemoryCriticalMB {
			c.cacheMode = domain.CacheAggressive
			c.cacheTransitions++
			c.lastCacheChange = time.Now()
			transitioned = true
			fired = c.callbacks.OnEnterAggressive
		}
	case domain.CacheAggressive:
		if memoryMB < c.thresholds.MemoryWarningMB {
			c.cacheMode = domain.CacheNormal
			c.cacheTransitions++
			c.lastCacheChange = time.Now()
			transitioned = true
		}
	}
	mode := c.cacheMode
	c.mu.Unlock()

	if transitioned {
		c.logger.Info("Cache mode transition", "mode", mode, "memory_mb", memoryMB)
	}
	if fired != nil {
		fired()
	}
	return mode, transitioned
}

// RenderMode returns the current render-axis state.
func (c *Controller) RenderMode() domain.RenderMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.renderMode
}

// CacheMode returns the current cache-axis state.
func (c *Controller) CacheMode() domain.CacheMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cacheMode
}

// UpdateThresholds swaps in new hysteresis bands, used on config hot reload.
// Current modes are preserved; the new bands apply from the next evaluation.
func (c *Controller) UpdateThresholds(t Thresholds) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.thresholds = t
}

// Stats exposes controller status information.
type Stats struct {
	RenderMode        string `json:"render_mode"`
	CacheMode         string `json:"cache_mode"`
	RenderTransitions uint64 `json:"render_transitions"`
	CacheTransitions  uint64 `json:"cache_transitions"`
	LastRenderChange  string `json:"last_render_change,omitempty"`
	LastCacheChange   string `json:"last_cache_change,omitempty"`
}

// Stats returns current controller statistics.
func (c *Controller) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{
		RenderMode:        c.renderMode.String(),
		CacheMode:         c.cacheMode.String(),
		RenderTransitions: c.renderTransitions,
		CacheTransitions:  c.cacheTransitions,
	}
	if !c.lastRenderChange.IsZero() {
		s.LastRenderChange = c.lastRenderChange.Format(time.RFC3339)
	}
	if !c.lastCacheChange.IsZero() {
		s.LastCacheChange = c.lastCacheChange.Format(time.RFC3339)
	}
	return s
}

// Reset returns both axes to Normal without firing callbacks. Used on
// teardown so a disposed governor leaves no residual mode state.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderMode = domain.RenderNormal
	c.cacheMode = domain.CacheNormal
}
