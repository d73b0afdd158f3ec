package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/russrimm/appinsights-relay/internal/config"
)

const validYAML = `
server:
  port: 18090
  read_timeout: 30s
  write_timeout: 30s
  rate_limit_rps: 50
ingestion:
  endpoint_url: https://dc.services.visualstudio.com/v2/track
  instrumentation_key: 00000000-1111-2222-3333-444444444444
  role_name: relay
  max_retries: 2
  attempt_timeout: 3s
  backoff_base: 250ms
relay:
  queue_size: 256
  workers: 2
deadletter:
  path: dead.db
  ttl: 24h
monitoring:
  log_level: info
  log_format: console
  telemetry_enabled: true
  telemetry_path: logs/relay.jsonl
`

func TestLoadFromBytes_Valid(t *testing.T) {
	cfg, err := config.LoadFromBytes([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, 18090, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 2, cfg.Ingestion.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Ingestion.BackoffBase)
	assert.Equal(t, 256, cfg.Relay.QueueSize)
	assert.Equal(t, 24*time.Hour, cfg.DeadLetter.TTL)
	assert.True(t, cfg.Monitoring.TelemetryEnabled)
}

func TestLoadFromBytes_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_RELAY_IKEY", "key-from-env")

	yaml := `
server:
  port: ${TEST_RELAY_PORT:-18090}
  read_timeout: 30s
  write_timeout: 30s
ingestion:
  endpoint_url: https://dc.services.visualstudio.com/v2/track
  instrumentation_key: ${TEST_RELAY_IKEY}
relay:
  queue_size: 16
  workers: 1
`
	cfg, err := config.LoadFromBytes([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, 18090, cfg.Server.Port)
	assert.Equal(t, "key-from-env", cfg.Ingestion.InstrumentationKey)
}

func TestLoadFromBytes_EnvOverrides(t *testing.T) {
	t.Setenv("APPINSIGHTS_INSTRUMENTATION_KEY", "override-key")
	t.Setenv("RELAY_TELEMETRY_LOG", "/tmp/redirected.jsonl")

	cfg, err := config.LoadFromBytes([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "override-key", cfg.Ingestion.InstrumentationKey)
	assert.Equal(t, "/tmp/redirected.jsonl", cfg.Monitoring.TelemetryPath)
}

func TestValidate_MissingPort(t *testing.T) {
	yaml := `
server:
  read_timeout: 30s
  write_timeout: 30s
ingestion:
  endpoint_url: https://dc.services.visualstudio.com/v2/track
  instrumentation_key: k
relay:
  queue_size: 16
  workers: 1
`
	_, err := config.LoadFromBytes([]byte(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestValidate_BadEndpointURL(t *testing.T) {
	yaml := `
server:
  port: 18090
  read_timeout: 30s
  write_timeout: 30s
ingestion:
  endpoint_url: "not a url"
  instrumentation_key: k
relay:
  queue_size: 16
  workers: 1
`
	_, err := config.LoadFromBytes([]byte(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint_url")
}

func TestValidate_DeadLetterTTLRequiredWithPath(t *testing.T) {
	yaml := `
server:
  port: 18090
  read_timeout: 30s
  write_timeout: 30s
ingestion:
  endpoint_url: https://dc.services.visualstudio.com/v2/track
  instrumentation_key: k
relay:
  queue_size: 16
  workers: 1
deadletter:
  path: dead.db
`
	_, err := config.LoadFromBytes([]byte(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadletter.ttl")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load("does-not-exist.yaml")
	require.Error(t, err)
}
