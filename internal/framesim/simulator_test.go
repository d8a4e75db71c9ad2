package framesim

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriberReceivesFramesWithinPhaseBounds(t *testing.T) {
	phases := []Phase{
		{Name: "steady", BaseLatencyMs: 5, JitterMs: 2, Duration: time.Minute},
	}
	sim := New(phases, 42, nil)

	var mu sync.Mutex
	var latencies []float64
	cancel := sim.Subscribe(func(latencyMs float64) {
		mu.Lock()
		latencies = append(latencies, latencyMs)
		mu.Unlock()
	})
	defer cancel()

	sim.Start()
	defer sim.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(latencies) >= 5
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, l := range latencies {
		assert.GreaterOrEqual(t, l, 3.0)
		assert.LessOrEqual(t, l, 7.0)
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	sim := New([]Phase{{Name: "steady", BaseLatencyMs: 2, Duration: time.Minute}}, 1, nil)

	var count int
	var mu sync.Mutex
	cancel := sim.Subscribe(func(float64) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	sim.Start()
	defer sim.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count > 0
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	cancel() // idempotent

	mu.Lock()
	after := count
	mu.Unlock()

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, after, count, "no frames after cancel")
	mu.Unlock()
}

func TestStartAndStopAreIdempotent(t *testing.T) {
	sim := New(nil, 1, nil)
	sim.Start()
	sim.Start()
	sim.Stop()
	sim.Stop()
}

func TestSampleNeverBelowOneMillisecond(t *testing.T) {
	sim := New(nil, 7, nil)
	phase := Phase{BaseLatencyMs: 1, JitterMs: 10}
	for i := 0; i < 1000; i++ {
		assert.GreaterOrEqual(t, sim.sample(phase), 1.0)
	}
}

func TestDefaultPhasesCoverBothHysteresisDirections(t *testing.T) {
	phases := DefaultPhases()
	require.NotEmpty(t, phases)

	var hasSmooth, hasDegraded bool
	for _, p := range phases {
		if 1000/p.BaseLatencyMs > 54 {
			hasSmooth = true
		}
		if 1000/p.BaseLatencyMs < 45 {
			hasDegraded = true
		}
	}
	assert.True(t, hasSmooth, "needs a phase above the recovery threshold")
	assert.True(t, hasDegraded, "needs a phase below the low-power threshold")
}
