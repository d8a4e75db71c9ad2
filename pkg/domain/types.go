package domain

import "time"

// RenderMode describes the rendering cost profile the governor has selected.
type RenderMode string

const (
	// RenderNormal indicates full-cost rendering with unscaled animations.
	RenderNormal RenderMode = "normal"
	// RenderLowPower indicates reduced-cost rendering with throttled animations.
	RenderLowPower RenderMode = "low-power"
)

// CacheMode describes how eagerly caches should reclaim memory.
type CacheMode string

const (
	// CacheNormal indicates caches operate at their configured capacity.
	CacheNormal CacheMode = "normal"
	// CacheAggressive indicates caches should reclaim memory eagerly.
	CacheAggressive CacheMode = "aggressive"
)

func (m RenderMode) String() string { return string(m) }

func (m CacheMode) String() string { return string(m) }

// PerformanceSnapshot is an immutable computed view of current performance.
// It is recomputed on demand and never mutated in place.
type PerformanceSnapshot struct {
	CurrentFPS         float64    `json:"current_fps"`
	AverageFrameTimeMs float64    `json:"average_frame_time_ms"`
	RenderMode         RenderMode `json:"render_mode"`
	CacheMode          CacheMode  `json:"cache_mode"`
	ActiveHandleCount  int        `json:"active_handle_count"`
	MemoryUsageBytes   uint64     `json:"memory_usage_bytes"`
	HealthScore        float64    `json:"health_score"`
	Recommendations    []string   `json:"recommendations,omitempty"`
	Timestamp          time.Time  `json:"timestamp"`
}

// CacheStatistics is supplied by the cache collaborator. The governor reads
// it and never mutates it.
type CacheStatistics struct {
	HitRate    float64 `json:"hit_rate"` // 0..1
	Hits       uint64  `json:"hits"`
	Misses     uint64  `json:"misses"`
	Evictions  uint64  `json:"evictions"`
	EntryCount int     `json:"entry_count"`
}

// HealthReport is the output of the health evaluator: a 0-100 weighted score
// plus human-readable recommendations in rule insertion order.
type HealthReport struct {
	Score           float64  `json:"score"`
	Recommendations []string `json:"recommendations,omitempty"`
}
