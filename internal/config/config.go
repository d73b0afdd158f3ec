// Package config loads and validates the relay configuration.
//
// DESIGN: All configuration MUST come from YAML files. No defaults for
// required fields. This ensures explicit, auditable configuration for
// production deployments.
//
// FILES:
//   - config.go:     Root Config struct, Load(), Validate()
//   - monitoring.go: Logging and relay telemetry settings
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the telemetry relay.
type Config struct {
	Server     ServerConfig     `yaml:"server"`     // HTTP server settings
	Ingestion  IngestionConfig  `yaml:"ingestion"`  // Application Insights ingestion endpoint
	Relay      RelayConfig      `yaml:"relay"`      // Queue and dispatch settings
	DeadLetter DeadLetterConfig `yaml:"deadletter"` // Exhausted-envelope store
	Monitoring MonitoringConfig `yaml:"monitoring"` // Telemetry and logging
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`           // Port to listen on
	ReadTimeout  time.Duration `yaml:"read_timeout"`   // Max time to read request
	WriteTimeout time.Duration `yaml:"write_timeout"`  // Max time to write response
	RateLimit    int           `yaml:"rate_limit_rps"` // Per-IP requests per second
}

// IngestionConfig contains the upstream ingestion endpoint settings.
type IngestionConfig struct {
	EndpointURL        string        `yaml:"endpoint_url"`        // Track endpoint URL
	InstrumentationKey string        `yaml:"instrumentation_key"` // Target resource iKey
	AuthHeader         string        `yaml:"auth_header"`         // Optional Authorization value
	RoleName           string        `yaml:"role_name"`           // ai.cloud.role for relayed items
	MaxRetries         int           `yaml:"max_retries"`         // Re-attempts on transient failure; 0 = default, negative disables
	AttemptTimeout     time.Duration `yaml:"attempt_timeout"`     // Per-attempt HTTP deadline
	BackoffBase        time.Duration `yaml:"backoff_base"`        // First retry delay, doubled per retry
}

// RelayConfig contains dispatch queue settings.
type RelayConfig struct {
	QueueSize int `yaml:"queue_size"` // Pending envelope buffer
	Workers   int `yaml:"workers"`    // Dispatch goroutines
}

// DeadLetterConfig contains the exhausted-envelope store settings.
type DeadLetterConfig struct {
	Path string        `yaml:"path"` // SQLite file path; empty disables the store
	TTL  time.Duration `yaml:"ttl"`  // How long dead letters are retained
}

// expandEnvWithDefaults expands environment variables with support for
// default values. Supports both ${VAR} and ${VAR:-default} syntax.
func expandEnvWithDefaults(s string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// Load reads configuration from a YAML file.
// Returns an error if the file doesn't exist or is invalid.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration from raw YAML bytes.
// Supports ${VAR:-default} env var expansion, env overrides, and validation.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvWithDefaults(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// This lets deployment tooling redirect log paths and retarget the
// Application Insights resource without modifying the base config files.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RELAY_TELEMETRY_LOG"); v != "" {
		c.Monitoring.TelemetryPath = v
	}
	if v := os.Getenv("APPINSIGHTS_INSTRUMENTATION_KEY"); v != "" {
		c.Ingestion.InstrumentationKey = v
	}
	if v := os.Getenv("APPINSIGHTS_ENDPOINT_URL"); v != "" {
		c.Ingestion.EndpointURL = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ReadTimeout == 0 {
		return fmt.Errorf("server.read_timeout is required")
	}
	if c.Server.WriteTimeout == 0 {
		return fmt.Errorf("server.write_timeout is required")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("invalid server.rate_limit_rps: %d", c.Server.RateLimit)
	}

	// Ingestion validation
	if c.Ingestion.EndpointURL == "" {
		return fmt.Errorf("ingestion.endpoint_url is required")
	}
	u, err := url.Parse(c.Ingestion.EndpointURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid ingestion.endpoint_url: %q", c.Ingestion.EndpointURL)
	}
	if c.Ingestion.InstrumentationKey == "" {
		return fmt.Errorf("ingestion.instrumentation_key is required")
	}

	// Relay validation
	if c.Relay.QueueSize <= 0 {
		return fmt.Errorf("relay.queue_size is required")
	}
	if c.Relay.Workers <= 0 {
		return fmt.Errorf("relay.workers is required")
	}

	// Dead-letter validation
	if c.DeadLetter.Path != "" && c.DeadLetter.TTL == 0 {
		return fmt.Errorf("deadletter.ttl is required when deadletter.path is set")
	}

	return nil
}
