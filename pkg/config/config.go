// Package config holds governor configuration, YAML loading and hot reload.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config controls sampling cadence, hysteresis thresholds and task intervals.
type Config struct {
	// WindowSize is the capacity of the frame latency sliding window.
	WindowSize int `yaml:"window_size"`
	// SampleEveryFrames is how many frames pass between FPS recomputations.
	SampleEveryFrames int `yaml:"sample_every_frames"`

	// TargetFPS is the rendering target used for health scoring and recovery.
	TargetFPS float64 `yaml:"target_fps"`
	// MinAcceptableFPS is the render-axis entry threshold into low-power mode.
	MinAcceptableFPS float64 `yaml:"min_acceptable_fps"`
	// RenderRecoveryFraction of TargetFPS is the render-axis exit threshold.
	// The gap between entry and exit thresholds is the hysteresis band.
	RenderRecoveryFraction float64 `yaml:"render_recovery_fraction"`

	// MemoryCriticalMB is the cache-axis entry threshold into aggressive mode.
	MemoryCriticalMB float64 `yaml:"memory_critical_mb"`
	// MemoryWarningMB is the cache-axis exit threshold. Must be strictly below
	// MemoryCriticalMB.
	MemoryWarningMB float64 `yaml:"memory_warning_mb"`
	// MemoryScaleMB normalizes memory usage for health scoring.
	MemoryScaleMB float64 `yaml:"memory_scale_mb"`

	// AdaptiveCheckInterval is the cadence of the memory/cache control cycle.
	AdaptiveCheckInterval time.Duration `yaml:"adaptive_check_interval"`
	// ReportingInterval is the cadence of snapshot reporting.
	ReportingInterval time.Duration `yaml:"reporting_interval"`
	// CollaboratorTimeout bounds each memory probe and cache statistics call so
	// a hung collaborator cannot stall the adaptive-check cycle forever.
	CollaboratorTimeout time.Duration `yaml:"collaborator_timeout"`

	// LowPowerEntryScale is applied to long-running live animations when the
	// render axis enters low-power mode.
	LowPowerEntryScale float64 `yaml:"low_power_entry_scale"`
	// LowPowerCreationScale is applied to animations registered while in
	// low-power mode.
	LowPowerCreationScale float64 `yaml:"low_power_creation_scale"`
	// LongAnimationThreshold marks animations long enough to be worth scaling
	// on low-power entry.
	LongAnimationThreshold time.Duration `yaml:"long_animation_threshold"`
}

// DefaultConfig returns the governor defaults.
func DefaultConfig() Config {
	return Config{
		WindowSize:             60,
		SampleEveryFrames:      60,
		TargetFPS:              60,
		MinAcceptableFPS:       45,
		RenderRecoveryFraction: 0.9,
		MemoryCriticalMB:       150,
		MemoryWarningMB:        100,
		MemoryScaleMB:          200,
		AdaptiveCheckInterval:  30 * time.Second,
		ReportingInterval:      60 * time.Second,
		CollaboratorTimeout:    5 * time.Second,
		LowPowerEntryScale:     0.7,
		LowPowerCreationScale:  0.8,
		LongAnimationThreshold: 500 * time.Millisecond,
	}
}

// Validate checks configuration consistency. Hysteresis bands must be real
// bands: the exit threshold of each axis has to sit strictly on the healthy
// side of its entry threshold, otherwise the mode would flap at one boundary.
func (c Config) Validate() error {
	if c.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive, got %d", c.WindowSize)
	}
	if c.SampleEveryFrames <= 0 {
		return fmt.Errorf("sample_every_frames must be positive, got %d", c.SampleEveryFrames)
	}
	if c.TargetFPS <= 0 {
		return fmt.Errorf("target_fps must be positive, got %g", c.TargetFPS)
	}
	if c.RenderRecoveryFraction <= 0 || c.RenderRecoveryFraction > 1 {
		return fmt.Errorf("render_recovery_fraction must be in (0,1], got %g", c.RenderRecoveryFraction)
	}
	if c.MinAcceptableFPS <= 0 || c.MinAcceptableFPS >= c.TargetFPS*c.RenderRecoveryFraction {
		return fmt.Errorf("min_acceptable_fps %g must be positive and below the recovery threshold %g",
			c.MinAcceptableFPS, c.TargetFPS*c.RenderRecoveryFraction)
	}
	if c.MemoryWarningMB <= 0 || c.MemoryWarningMB >= c.MemoryCriticalMB {
		return fmt.Errorf("memory_warning_mb %g must be positive and below memory_critical_mb %g",
			c.MemoryWarningMB, c.MemoryCriticalMB)
	}
	if c.MemoryScaleMB <= 0 {
		return fmt.Errorf("memory_scale_mb must be positive, got %g", c.MemoryScaleMB)
	}
	if c.AdaptiveCheckInterval <= 0 {
		return fmt.Errorf("adaptive_check_interval must be positive, got %s", c.AdaptiveCheckInterval)
	}
	if c.ReportingInterval <= 0 {
		return fmt.Errorf("reporting_interval must be positive, got %s", c.ReportingInterval)
	}
	if c.CollaboratorTimeout <= 0 {
		return fmt.Errorf("collaborator_timeout must be positive, got %s", c.CollaboratorTimeout)
	}
	if c.LowPowerEntryScale <= 0 || c.LowPowerEntryScale > 1 {
		return fmt.Errorf("low_power_entry_scale must be in (0,1], got %g", c.LowPowerEntryScale)
	}
	if c.LowPowerCreationScale <= 0 || c.LowPowerCreationScale > 1 {
		return fmt.Errorf("low_power_creation_scale must be in (0,1], got %g", c.LowPowerCreationScale)
	}
	if c.LongAnimationThreshold < 0 {
		return fmt.Errorf("long_animation_threshold must not be negative, got %s", c.LongAnimationThreshold)
	}
	return nil
}

// RenderExitFPS is the render-axis exit threshold derived from the target.
func (c Config) RenderExitFPS() float64 {
	return c.TargetFPS * c.RenderRecoveryFraction
}

// Load reads a YAML config file, applies defaults for zero-valued fields and
// validates the result.
func Load(path string) (Config, error) {
	// #nosec G304 -- File path is configured at startup
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes on top of the defaults.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
