package timing

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource lets tests drive frames manually through Subscribe.
type fakeSource struct {
	mu        sync.Mutex
	fn        func(latencyMs float64)
	cancelled bool
}

func (s *fakeSource) Subscribe(fn func(latencyMs float64)) func() {
	s.mu.Lock()
	s.fn = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.cancelled = true
		s.fn = nil
		s.mu.Unlock()
	}
}

func (s *fakeSource) emit(latencyMs float64) {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	if fn != nil {
		fn(latencyMs)
	}
}

func TestMonitorDefaultFPSBeforeFirstSample(t *testing.T) {
	m := NewMonitor(nil, Options{WindowSize: 60, SampleEveryFrames: 60}, nil)
	assert.Equal(t, float64(DefaultFPS), m.CurrentFPS())
}

func TestMonitorComputesSixtyFPSFromSmoothFrames(t *testing.T) {
	m := NewMonitor(nil, Options{WindowSize: 60, SampleEveryFrames: 60}, nil)

	for i := 0; i < 60; i++ {
		m.OnFrame(1000.0 / 60.0)
	}

	assert.InDelta(t, 60, m.CurrentFPS(), 0.5)
	assert.InDelta(t, 1000.0/60.0, m.AverageFrameTimeMs(), 0.01)
}

func TestMonitorComputesDegradedFPS(t *testing.T) {
	m := NewMonitor(nil, Options{WindowSize: 60, SampleEveryFrames: 60}, nil)

	for i := 0; i < 60; i++ {
		m.OnFrame(40)
	}

	assert.InDelta(t, 25, m.CurrentFPS(), 0.5)
}

func TestMonitorClampsImplausiblyFastFrames(t *testing.T) {
	m := NewMonitor(nil, Options{WindowSize: 60, SampleEveryFrames: 60}, nil)

	// 1ms frames would be 1000fps raw.
	for i := 0; i < 60; i++ {
		m.OnFrame(1)
	}

	assert.Equal(t, float64(MaxFPS), m.CurrentFPS())
}

func TestMonitorRecomputesOnlyOnSamplingCadence(t *testing.T) {
	var samples []float64
	m := NewMonitor(nil, Options{
		WindowSize:        60,
		SampleEveryFrames: 10,
		OnSample:          func(fps float64) { samples = append(samples, fps) },
	}, nil)

	for i := 0; i < 9; i++ {
		m.OnFrame(40)
	}
	assert.Empty(t, samples, "no recomputation before the cadence boundary")
	assert.Equal(t, float64(DefaultFPS), m.CurrentFPS())

	m.OnFrame(40)
	require.Len(t, samples, 1)
	assert.InDelta(t, 25, samples[0], 0.5)

	for i := 0; i < 10; i++ {
		m.OnFrame(40)
	}
	assert.Len(t, samples, 2)
}

func TestMonitorCallbackMayReenterMonitor(t *testing.T) {
	var m *Monitor
	var observed float64
	m = NewMonitor(nil, Options{
		WindowSize:        10,
		SampleEveryFrames: 10,
		OnSample: func(float64) {
			// Reading back from inside the callback must not deadlock.
			observed = m.CurrentFPS()
		},
	}, nil)

	for i := 0; i < 10; i++ {
		m.OnFrame(20)
	}
	assert.InDelta(t, 50, observed, 0.5)
}

func TestMonitorStartSubscribesAndStopCancels(t *testing.T) {
	src := &fakeSource{}
	m := NewMonitor(src, Options{WindowSize: 60, SampleEveryFrames: 60}, nil)

	m.Start()
	m.Start() // idempotent

	src.emit(40)
	assert.Equal(t, 1, m.WindowLen())

	m.Stop()
	m.Stop() // idempotent
	assert.True(t, src.cancelled)

	src.emit(40)
	assert.Equal(t, 1, m.WindowLen(), "frames after Stop must not be ingested")
}

func TestMonitorReset(t *testing.T) {
	m := NewMonitor(nil, Options{WindowSize: 60, SampleEveryFrames: 10}, nil)
	for i := 0; i < 10; i++ {
		m.OnFrame(40)
	}
	require.InDelta(t, 25, m.CurrentFPS(), 0.5)

	m.Reset()
	assert.Zero(t, m.WindowLen())
	assert.Equal(t, float64(DefaultFPS), m.CurrentFPS())
}
