// Package animation tracks externally-owned animated-value handles and applies
// duration scaling when the governor selects low-power rendering.
package animation

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/renderpulse/renderpulse/pkg/domain"
)

// Handle is the caller-facing view of one registered animation. The nominal
// duration is immutable once registered; the effective duration is always
// derived from it, so repeated low-power entries can never compound the
// scale-down.
type Handle struct {
	ID                string
	Label             string
	NominalDuration   time.Duration
	EffectiveDuration time.Duration
	RegisteredAt      time.Time
}

// Options configures registry scaling behaviour.
type Options struct {
	// CreationScale is applied to animations registered while render mode is
	// low-power. Defaults to 0.8.
	CreationScale float64
	// EntryScale is applied to long live animations when low-power mode is
	// entered. Defaults to 0.7.
	EntryScale float64
	// LongAnimationThreshold marks animations worth scaling on entry.
	// Defaults to 500ms.
	LongAnimationThreshold time.Duration
	// RenderMode reports the current render mode at registration time.
	RenderMode func() domain.RenderMode
}

type entry struct {
	label        string
	nominal      time.Duration
	effective    time.Duration
	registeredAt time.Time
}

// Registry is the owning table of live animation handles. Handles are created
// on registration and removed on an explicit completion or dismissal signal
// from their owner; nothing is garbage-collected implicitly.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*entry
	opts    Options
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.CreationScale <= 0 || opts.CreationScale > 1 {
		opts.CreationScale = 0.8
	}
	if opts.EntryScale <= 0 || opts.EntryScale > 1 {
		opts.EntryScale = 0.7
	}
	if opts.LongAnimationThreshold <= 0 {
		opts.LongAnimationThreshold = 500 * time.Millisecond
	}
	return &Registry{
		handles: make(map[string]*entry),
		opts:    opts,
		logger:  logger,
	}
}

// Register creates a handle for an externally-owned animated value. While the
// render mode is low-power the effective duration is scaled at creation time;
// otherwise it equals the nominal duration.
func (r *Registry) Register(nominal time.Duration, label string) Handle {
	effective := nominal
	if r.opts.RenderMode != nil && r.opts.RenderMode() == domain.RenderLowPower {
		effective = scale(nominal, r.opts.CreationScale)
	}

	id := uuid.NewString()
	now := time.Now()

	r.mu.Lock()
	r.handles[id] = &entry{
		label:        label,
		nominal:      nominal,
		effective:    effective,
		registeredAt: now,
	}
	count := len(r.handles)
	r.mu.Unlock()

	r.logger.Debug("Animation registered",
		"handle_id", id,
		"label", label,
		"nominal_ms", nominal.Milliseconds(),
		"effective_ms", effective.Milliseconds(),
		"active", count,
	)

	return Handle{
		ID:                id,
		Label:             label,
		NominalDuration:   nominal,
		EffectiveDuration: effective,
		RegisteredAt:      now,
	}
}

// ApplyLowPowerScaling rewrites the effective duration of live handles whose
// nominal duration exceeds the long-animation threshold. Invoked once per
// render-axis transition into low-power mode. The effective value is derived
// from the immutable nominal duration.
func (r *Registry) ApplyLowPowerScaling() int {
	r.mu.Lock()
	scaled := 0
	for _, e := range r.handles {
		if e.nominal > r.opts.LongAnimationThreshold {
			e.effective = scale(e.nominal, r.opts.EntryScale)
			scaled++
		}
	}
	r.mu.Unlock()

	if scaled > 0 {
		r.logger.Debug("Low-power scaling applied", "scaled", scaled)
	}
	return scaled
}

// Remove deletes a handle on its owner's completion or dismissal signal.
// Removing an unknown or already-removed handle is a no-op.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	_, exists := r.handles[id]
	if exists {
		delete(r.handles, id)
	}
	r.mu.Unlock()

	if exists {
		r.logger.Debug("Animation removed", "handle_id", id)
	}
	return exists
}

// Get returns the current view of a live handle.
func (r *Registry) Get(id string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.handles[id]
	if !ok {
		return Handle{}, false
	}
	return Handle{
		ID:                id,
		Label:             e.label,
		NominalDuration:   e.nominal,
		EffectiveDuration: e.effective,
		RegisteredAt:      e.registeredAt,
	}, true
}

// Count returns the number of live handles.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Clear drops all handles. Used on governor teardown.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles = make(map[string]*entry)
}

func scale(d time.Duration, factor float64) time.Duration {
	return time.Duration(float64(d) * factor)
}
