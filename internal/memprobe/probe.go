// Package memprobe reports process memory usage to the governor's adaptive
// check. It reads the resident set size of the current process and falls back
// to system-wide used memory when per-process accounting is unavailable.
package memprobe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Probe implements domain.MemoryProbe backed by the host OS accounting.
type Probe struct {
	logger *slog.Logger

	mu   sync.Mutex
	proc *process.Process
}

// New creates a probe for the current process.
func New(logger *slog.Logger) *Probe {
	if logger == nil {
		logger = slog.Default()
	}
	return &Probe{logger: logger}
}

// CurrentUsageBytes returns the resident set size of the current process.
// When per-process accounting fails it falls back to system-wide used memory
// so the governor still sees a pressure signal.
func (p *Probe) CurrentUsageBytes(ctx context.Context) (uint64, error) {
	proc, err := p.self(ctx)
	if err == nil {
		info, memErr := proc.MemoryInfoWithContext(ctx)
		if memErr == nil {
			return info.RSS, nil
		}
		err = memErr
	}

	p.logger.Debug("Per-process memory accounting unavailable, using system-wide", "error", err)

	vm, vmErr := mem.VirtualMemoryWithContext(ctx)
	if vmErr != nil {
		return 0, fmt.Errorf("reading memory usage: %w", vmErr)
	}
	return vm.Used, nil
}

func (p *Probe) self(ctx context.Context) (*process.Process, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.proc != nil {
		return p.proc, nil
	}
	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	p.proc = proc
	return proc, nil
}
