// Package timing implements the frame timing monitor: a sliding window of
// per-frame render latencies and the periodic FPS recomputation that drives
// render-mode evaluation.
package timing

import (
	"log/slog"
	"sync"

	"github.com/renderpulse/renderpulse/pkg/domain"
)

const (
	// MaxFPS is the upper clamp for computed FPS values.
	MaxFPS = 120
	// DefaultFPS is assumed while the window is empty.
	DefaultFPS = 60
)

// Options configures a Monitor.
type Options struct {
	// WindowSize is the sliding window capacity. Defaults to 60.
	WindowSize int
	// SampleEveryFrames is how many OnFrame calls pass between FPS
	// recomputations. Defaults to 60 (~once per second at 60fps), which bounds
	// recomputation cost while staying responsive to sustained degradation.
	SampleEveryFrames int
	// OnSample is invoked with the freshly computed FPS after every
	// recomputation, strictly after the window update.
	OnSample func(fps float64)
}

// Monitor ingests per-frame latency events and periodically recomputes the
// average FPS over the sliding window.
type Monitor struct {
	mu sync.Mutex

	source domain.FrameSource
	logger *slog.Logger

	window      *sampleWindow
	frameCount  uint64
	sampleEvery int
	currentFPS  float64
	onSample    func(fps float64)

	cancel  func()
	started bool
}

// NewMonitor creates a monitor for the given frame source.
func NewMonitor(source domain.FrameSource, opts Options, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SampleEveryFrames <= 0 {
		opts.SampleEveryFrames = 60
	}
	return &Monitor{
		source:      source,
		logger:      logger,
		window:      newSampleWindow(opts.WindowSize),
		sampleEvery: opts.SampleEveryFrames,
		currentFPS:  DefaultFPS,
		onSample:    opts.OnSample,
	}
}

// Start subscribes to the frame source. Calling Start while already started
// is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return
	}
	m.started = true
	if m.source != nil {
		m.cancel = m.source.Subscribe(m.OnFrame)
	}
	m.logger.Debug("Frame monitor started", "window_size", m.window.capacity, "sample_every", m.sampleEvery)
}

// Stop unsubscribes from the frame source. Idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	wasStarted := m.started
	m.started = false
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if wasStarted {
		m.logger.Debug("Frame monitor stopped")
	}
}

// OnFrame pushes one frame latency sample. Every SampleEveryFrames-th call it
// recomputes the average FPS and invokes the registered callback with the
// result. The callback runs outside the monitor lock so it may call back into
// the monitor.
func (m *Monitor) OnFrame(latencyMs float64) {
	m.mu.Lock()
	m.window.push(latencyMs)
	m.frameCount++

	var (
		fire bool
		fps  float64
	)
	if m.frameCount%uint64(m.sampleEvery) == 0 {
		fps = m.computeFPSLocked()
		m.currentFPS = fps
		fire = m.onSample != nil
	}
	cb := m.onSample
	m.mu.Unlock()

	if fire {
		cb(fps)
	}
}

// computeFPSLocked derives FPS from the mean frame latency, clamped to
// [0, MaxFPS]. An empty window yields DefaultFPS.
func (m *Monitor) computeFPSLocked() float64 {
	mean := m.window.mean()
	if mean <= 0 {
		return DefaultFPS
	}
	return clamp(1000/mean, 0, MaxFPS)
}

// CurrentFPS returns the last computed FPS, or DefaultFPS before the first
// recomputation.
func (m *Monitor) CurrentFPS() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentFPS
}

// AverageFrameTimeMs returns the mean latency over the current window.
func (m *Monitor) AverageFrameTimeMs() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.window.mean()
}

// WindowLen returns the number of samples currently held.
func (m *Monitor) WindowLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.window.len()
}

// Reset clears the window and the frame counter. The last computed FPS
// reverts to the default.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.window.clear()
	m.frameCount = 0
	m.currentFPS = DefaultFPS
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
