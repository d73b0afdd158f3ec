// Package monitoring - metrics.go provides simple counters.
//
// DESIGN: Lightweight in-memory counters for operational metrics:
//   - received/accepted:  Track requests accepted into the queue
//   - relayed/failed:     Dispatch outcomes against ingestion
//   - retries:            Extra attempts spent on transient failures
//   - dead_lettered:      Envelopes parked after retry exhaustion
//
// For production, export these to Prometheus or similar.
package monitoring

import "sync/atomic"

// MetricsCollector collects operational metrics.
type MetricsCollector struct {
	received     atomic.Int64
	rejected     atomic.Int64
	relayed      atomic.Int64
	failed       atomic.Int64
	retries      atomic.Int64
	deadLettered atomic.Int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// RecordReceived records a track request accepted into the queue.
func (mc *MetricsCollector) RecordReceived() { mc.received.Add(1) }

// RecordRejected records a refused track request.
func (mc *MetricsCollector) RecordRejected() { mc.rejected.Add(1) }

// RecordDispatch records a dispatch outcome and the retries it cost.
func (mc *MetricsCollector) RecordDispatch(success bool, attempts int) {
	if success {
		mc.relayed.Add(1)
	} else {
		mc.failed.Add(1)
	}
	if attempts > 1 {
		mc.retries.Add(int64(attempts - 1))
	}
}

// RecordDeadLetter records an envelope parked in the dead-letter store.
func (mc *MetricsCollector) RecordDeadLetter() { mc.deadLettered.Add(1) }

// Stats returns current metrics.
func (mc *MetricsCollector) Stats() map[string]int64 {
	return map[string]int64{
		"received":      mc.received.Load(),
		"rejected":      mc.rejected.Load(),
		"relayed":       mc.relayed.Load(),
		"failed":        mc.failed.Load(),
		"retries":       mc.retries.Load(),
		"dead_lettered": mc.deadLettered.Load(),
	}
}
