package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestEvaluatePerfectConditionsScoreHundred(t *testing.T) {
	report := Evaluate(Inputs{
		FPS:          60,
		MemoryMB:     0,
		CacheHitRate: 1,
	})

	assert.InDelta(t, 100, report.Score, 1e-9)
	assert.Empty(t, report.Recommendations)
}

func TestEvaluateWorstConditionsScoreZero(t *testing.T) {
	report := Evaluate(Inputs{
		FPS:               0,
		MemoryMB:          400,
		CacheHitRate:      0,
		ActiveHandleCount: 10,
	})

	assert.Zero(t, report.Score)
	assert.Equal(t, []string{
		"reduce animation complexity",
		"clear caches",
		"review caching strategy",
		"stagger animations",
	}, report.Recommendations)
}

func TestEvaluateComponentWeights(t *testing.T) {
	// Each component isolated at its full contribution.
	fpsOnly := Evaluate(Inputs{FPS: 60, MemoryMB: 400, CacheHitRate: 0})
	assert.InDelta(t, 40, fpsOnly.Score, 1e-9)

	memOnly := Evaluate(Inputs{FPS: 0, MemoryMB: 0, CacheHitRate: 0})
	assert.InDelta(t, 30, memOnly.Score, 1e-9)

	cacheOnly := Evaluate(Inputs{FPS: 0, MemoryMB: 400, CacheHitRate: 1})
	assert.InDelta(t, 30, cacheOnly.Score, 1e-9)
}

func TestEvaluateFPSAboveTargetDoesNotOverflow(t *testing.T) {
	report := Evaluate(Inputs{FPS: 120, MemoryMB: 0, CacheHitRate: 1})
	assert.InDelta(t, 100, report.Score, 1e-9)
}

func TestEvaluateRecommendationBoundaries(t *testing.T) {
	// Values exactly at the threshold do not fire; rules are strict comparisons.
	report := Evaluate(Inputs{
		FPS:               45,
		MemoryMB:          100,
		CacheHitRate:      0.7,
		ActiveHandleCount: 5,
	})
	assert.Empty(t, report.Recommendations)

	report = Evaluate(Inputs{
		FPS:               44.9,
		MemoryMB:          100.1,
		CacheHitRate:      0.69,
		ActiveHandleCount: 6,
	})
	assert.Len(t, report.Recommendations, 4)
}

func TestEvaluateCustomNormalization(t *testing.T) {
	// Hitting a 30fps target exactly earns the full FPS component.
	report := Evaluate(Inputs{
		FPS:           30,
		TargetFPS:     30,
		MemoryMB:      50,
		MemoryScaleMB: 100,
		CacheHitRate:  1,
	})
	assert.InDelta(t, 40+15+30, report.Score, 1e-9)
}

// Score stays inside [0,100] for any inputs, including nonsense ones.
func TestEvaluateScoreBoundsProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		report := Evaluate(Inputs{
			FPS:               rapid.Float64Range(-100, 10000).Draw(rt, "fps"),
			MemoryMB:          rapid.Float64Range(-100, 100000).Draw(rt, "memory_mb"),
			CacheHitRate:      rapid.Float64Range(-2, 2).Draw(rt, "hit_rate"),
			ActiveHandleCount: rapid.IntRange(0, 1000).Draw(rt, "handles"),
		})
		assert.GreaterOrEqual(rt, report.Score, 0.0)
		assert.LessOrEqual(rt, report.Score, 100.0)
	})
}
