package syncpump

import "time"

// Metrics captures engine-level telemetry.
type Metrics interface {
	// ObserveChunkDuration records the time to transmit one chunk.
	ObserveChunkDuration(duration time.Duration)
	// AddSynced increments the count of rows confirmed by the remote.
	AddSynced(count int)
	// AddFailed increments the count of rows rejected by validation.
	AddFailed(count int)
	// AddIncompatible increments the count of rows excluded by local preconditions.
	AddIncompatible(count int)
	// AddPutBack increments the count of rows returned to the queue.
	AddPutBack(count int)
	// SetQueued updates the current queued row count.
	SetQueued(count int)
}

// NopMetrics is a no-op metrics recorder.
type NopMetrics struct{}

// ObserveChunkDuration implements Metrics.
func (NopMetrics) ObserveChunkDuration(time.Duration) {}

// AddSynced implements Metrics.
func (NopMetrics) AddSynced(int) {}

// AddFailed implements Metrics.
func (NopMetrics) AddFailed(int) {}

// AddIncompatible implements Metrics.
func (NopMetrics) AddIncompatible(int) {}

// AddPutBack implements Metrics.
func (NopMetrics) AddPutBack(int) {}

// SetQueued implements Metrics.
func (NopMetrics) SetQueued(int) {}
