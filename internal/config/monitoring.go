// Monitoring configuration - telemetry and logging settings.
//
// DESIGN: Separates logging (zerolog) from relay telemetry (JSONL files).
// Logging is for operators, telemetry is for analytics/debugging.
package config

// MonitoringConfig contains all monitoring settings.
type MonitoringConfig struct {
	// Logging settings
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // json, console
	LogOutput string `yaml:"log_output"` // stdout, stderr, or file path

	// Relay telemetry settings
	TelemetryEnabled bool   `yaml:"telemetry_enabled"` // Enable relay event tracking
	TelemetryPath    string `yaml:"telemetry_path"`    // Path to relay event JSONL file
	LogToStdout      bool   `yaml:"log_to_stdout"`     // Also log relay events to stdout

	// Tail stream settings
	TailEnabled bool `yaml:"tail_enabled"` // Enable the /v2/tail websocket stream
}
