// Package framesim is a synthetic frame source for the demo daemon: it emits
// per-frame render latencies following a scripted sequence of load phases so
// the governor's mode transitions can be observed without a real renderer.
package framesim

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// Phase describes one stretch of simulated load. Latencies are drawn uniformly
// from [BaseLatencyMs-JitterMs, BaseLatencyMs+JitterMs].
type Phase struct {
	Name          string
	BaseLatencyMs float64
	JitterMs      float64
	Duration      time.Duration
}

// DefaultPhases cycles between smooth 60fps rendering and a degraded stretch
// around 25fps, which is enough to exercise both directions of the render
// hysteresis band.
func DefaultPhases() []Phase {
	return []Phase{
		{Name: "steady", BaseLatencyMs: 16.6, JitterMs: 2, Duration: 2 * time.Minute},
		{Name: "degraded", BaseLatencyMs: 40, JitterMs: 8, Duration: time.Minute},
		{Name: "recovering", BaseLatencyMs: 18, JitterMs: 3, Duration: time.Minute},
	}
}

// Simulator implements domain.FrameSource. Subscribers receive one callback
// per simulated frame; the emission loop paces itself by sleeping for each
// frame's latency.
type Simulator struct {
	mu     sync.Mutex
	subs   map[int]func(latencyMs float64)
	nextID int

	phases []Phase
	rng    *rand.Rand
	logger *slog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

// New creates a simulator over the given phases, cycling forever.
func New(phases []Phase, seed int64, logger *slog.Logger) *Simulator {
	if len(phases) == 0 {
		phases = DefaultPhases()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		subs:   make(map[int]func(latencyMs float64)),
		phases: phases,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger,
	}
}

// Subscribe implements domain.FrameSource. The returned cancel func is
// idempotent.
func (s *Simulator) Subscribe(fn func(latencyMs float64)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Start launches the emission loop. Idempotent.
func (s *Simulator) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true
	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.stopCh)
}

// Stop halts the emission loop and waits for it to exit. Idempotent.
func (s *Simulator) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Simulator) run(stopCh <-chan struct{}) {
	defer s.wg.Done()

	for {
		for _, phase := range s.phases {
			s.logger.Info("Frame simulation phase",
				"phase", phase.Name,
				"base_latency_ms", phase.BaseLatencyMs,
				"duration", phase.Duration,
			)
			if !s.runPhase(stopCh, phase) {
				return
			}
		}
	}
}

// runPhase emits frames for one phase; returns false when stopped.
func (s *Simulator) runPhase(stopCh <-chan struct{}, phase Phase) bool {
	deadline := time.Now().Add(phase.Duration)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for time.Now().Before(deadline) {
		latency := s.sample(phase)
		timer.Reset(time.Duration(latency * float64(time.Millisecond)))

		select {
		case <-timer.C:
			s.emit(latency)
		case <-stopCh:
			return false
		}
	}
	return true
}

func (s *Simulator) sample(phase Phase) float64 {
	s.mu.Lock()
	jitter := (s.rng.Float64()*2 - 1) * phase.JitterMs
	s.mu.Unlock()

	latency := phase.BaseLatencyMs + jitter
	if latency < 1 {
		latency = 1
	}
	return latency
}

func (s *Simulator) emit(latencyMs float64) {
	s.mu.Lock()
	fns := make([]func(latencyMs float64), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(latencyMs)
	}
}
