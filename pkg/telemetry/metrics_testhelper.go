package telemetry

import "sync"

// ResetCollectorForTest clears the cached collector so tests can reinitialize
// it against a fresh MeterProvider. This is intended for use in test code
// only.
func ResetCollectorForTest() {
	collectorOnce = sync.Once{}
	collectorInitErr = nil
	collectorInst = nil
}
