// Package monitoring - alerts.go flags anomalies and errors.
//
// DESIGN: AlertManager logs notable events at appropriate levels:
//   - FlagHighLatency:     Warn when a dispatch exceeds threshold
//   - FlagIngestionReject: Warn when ingestion accepts fewer items than sent
//   - FlagQueueFull:       Warn when the dispatch queue refuses an envelope
//   - FlagPanic:           Error on recovered panics
package monitoring

import "time"

// AlertManager flags anomalies and errors.
type AlertManager struct {
	logger               *Logger
	highLatencyThreshold time.Duration
}

// NewAlertManager creates a new alert manager.
func NewAlertManager(logger *Logger, cfg AlertConfig) *AlertManager {
	threshold := cfg.HighLatencyThreshold
	if threshold == 0 {
		threshold = 5 * time.Second
	}
	return &AlertManager{logger: logger, highLatencyThreshold: threshold}
}

// FlagHighLatency logs when a dispatch exceeds the latency threshold.
func (am *AlertManager) FlagHighLatency(requestID string, latency time.Duration) {
	if latency < am.highLatencyThreshold {
		return
	}
	am.logger.Warn().
		Str("request_id", requestID).
		Dur("latency", latency).
		Msg("high_latency")
}

// FlagIngestionReject logs when ingestion accepts fewer items than sent.
func (am *AlertManager) FlagIngestionReject(requestID string, received, accepted int) {
	if accepted >= received {
		return
	}
	am.logger.Warn().
		Str("request_id", requestID).
		Int("items_received", received).
		Int("items_accepted", accepted).
		Msg("ingestion_partial_accept")
}

// FlagQueueFull logs when the dispatch queue refuses an envelope.
func (am *AlertManager) FlagQueueFull(requestID string, depth int) {
	am.logger.Warn().
		Str("request_id", requestID).
		Int("queue_depth", depth).
		Msg("queue_full")
}

// FlagPanic logs a recovered panic.
func (am *AlertManager) FlagPanic(requestID string, value any, stack string) {
	am.logger.Error().
		Str("request_id", requestID).
		Interface("panic", value).
		Str("stack", stack).
		Msg("panic_recovered")
}
