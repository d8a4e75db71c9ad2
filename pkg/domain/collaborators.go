package domain

import "context"

// FrameSource delivers per-frame render latency events. Subscribe registers a
// callback invoked once per frame with the frame's latency in milliseconds and
// returns a cancel function that stops delivery. Cancel must be safe to call
// more than once.
type FrameSource interface {
	Subscribe(fn func(latencyMs float64)) (cancel func())
}

// CacheStatsProvider is the cache collaborator the governor queries and
// commands but does not own.
type CacheStatsProvider interface {
	// Statistics returns current cache effectiveness counters.
	Statistics(ctx context.Context) (CacheStatistics, error)

	// OptimizeMemoryUsage asks the cache to reclaim memory. Invoked once per
	// transition into aggressive cache mode and on forced reclamation.
	OptimizeMemoryUsage(ctx context.Context) error
}

// MemoryProbe reports current memory usage of the process.
type MemoryProbe interface {
	CurrentUsageBytes(ctx context.Context) (uint64, error)
}

// ReportSink receives periodic structured snapshots for logging and metrics.
// Implementations must not block; the governor calls Report from its periodic
// reporting task.
type ReportSink interface {
	Report(ctx context.Context, snapshot PerformanceSnapshot)
}

// LifecycleSignal delivers host lifecycle notifications. Subscribe registers a
// callback fired when the host application is backgrounded and returns a
// cancel function; the governor responds by forcing memory reclamation.
type LifecycleSignal interface {
	Subscribe(onBackgrounded func()) (cancel func())
}
