// Package monitoring - types.go defines shared types.
//
// DESIGN: These types are used by both relay/ and monitoring/ packages.
// Defined here ONCE to avoid duplication and circular imports.
//
// TYPES:
//   - RelayEvent:   Telemetry data for each relayed envelope
//   - RejectEvent:  A request the relay refused to accept
//   - Config types: TelemetryConfig, LoggerConfig, AlertConfig
package monitoring

import "time"

// RelayEvent captures one envelope's trip through the relay.
type RelayEvent struct {
	RequestID      string    `json:"request_id"`
	Timestamp      time.Time `json:"timestamp"`
	Kind           string    `json:"kind"`
	Name           string    `json:"name"`
	OperationID    string    `json:"operation_id,omitempty"`
	ClientIP       string    `json:"client_ip,omitempty"`
	BodySize       int       `json:"body_size"`
	StatusCode     int       `json:"status_code,omitempty"`
	Attempts       int       `json:"attempts"`
	ItemsAccepted  int       `json:"items_accepted,omitempty"`
	Success        bool      `json:"success"`
	DeadLettered   bool      `json:"dead_lettered,omitempty"`
	Error          string    `json:"error,omitempty"`
	QueueLatencyMs int64     `json:"queue_latency_ms"`
	SendLatencyMs  int64     `json:"send_latency_ms"`
}

// RejectEvent captures a request the relay refused before dispatch.
type RejectEvent struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	Reason    string    `json:"reason"`
	ClientIP  string    `json:"client_ip,omitempty"`
}

// TelemetryConfig contains relay telemetry configuration.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	LogPath     string `yaml:"log_path"`
	LogToStdout bool   `yaml:"log_to_stdout"`
}

// LoggerConfig contains logging configuration.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// AlertConfig contains alert thresholds.
type AlertConfig struct {
	HighLatencyThreshold time.Duration `yaml:"high_latency_threshold"`
}
