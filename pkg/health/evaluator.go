// Package health computes the weighted 0-100 performance health score.
package health

import "github.com/renderpulse/renderpulse/pkg/domain"

// Weights for the score components. Rendering smoothness is weighted highest
// as the most user-visible signal; memory pressure and cache effectiveness are
// equally weighted secondary signals.
const (
	fpsWeight    = 40.0
	memoryWeight = 30.0
	cacheWeight  = 30.0
)

// Recommendation thresholds.
const (
	lowFPSThreshold       = 45.0
	highMemoryMBThreshold = 100.0
	lowHitRateThreshold   = 0.7
	manyHandlesThreshold  = 5
)

// Inputs carries the signals combined into a health report.
type Inputs struct {
	FPS               float64
	MemoryMB          float64
	CacheHitRate      float64
	ActiveHandleCount int

	// TargetFPS and MemoryScaleMB normalize the FPS and memory components.
	// Zero values fall back to 60 and 200.
	TargetFPS     float64
	MemoryScaleMB float64
}

// Evaluate is a pure function: it combines FPS, memory usage and cache hit
// rate into a single weighted score and a list of recommendations.
// Recommendations appear in rule insertion order, not priority order; several
// may fire at once.
func Evaluate(in Inputs) domain.HealthReport {
	target := in.TargetFPS
	if target <= 0 {
		target = 60
	}
	memScale := in.MemoryScaleMB
	if memScale <= 0 {
		memScale = 200
	}

	score := clamp01(in.FPS/target)*fpsWeight +
		(1-clamp01(in.MemoryMB/memScale))*memoryWeight +
		clamp01(in.CacheHitRate)*cacheWeight

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	var recs []string
	if in.FPS < lowFPSThreshold {
		recs = append(recs, "reduce animation complexity")
	}
	if in.MemoryMB > highMemoryMBThreshold {
		recs = append(recs, "clear caches")
	}
	if in.CacheHitRate < lowHitRateThreshold {
		recs = append(recs, "review caching strategy")
	}
	if in.ActiveHandleCount > manyHandlesThreshold {
		recs = append(recs, "stagger animations")
	}

	return domain.HealthReport{Score: score, Recommendations: recs}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
