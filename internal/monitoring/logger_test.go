package monitoring_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/russrimm/appinsights-relay/internal/monitoring"
)

func TestLogger_LevelFiltersWarn(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "alerts.log")
	logger := monitoring.New(monitoring.LoggerConfig{
		Level:  "error",
		Format: "json",
		Output: logPath,
	})

	logger.Warn().Msg("suppressed")
	logger.Error().Msg("surfaced")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "suppressed")
	assert.Contains(t, string(data), "surfaced")
}

func TestLogger_WarnLevelWritesBoth(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "alerts.log")
	logger := monitoring.New(monitoring.LoggerConfig{
		Level:  "warn",
		Format: "json",
		Output: logPath,
	})

	logger.Warn().Msg("queue_full")
	logger.Error().Msg("panic_recovered")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "queue_full")
	assert.Contains(t, string(data), "panic_recovered")
}

func TestRequestIDContext_RoundTrip(t *testing.T) {
	ctx := monitoring.WithRequestIDContext(context.Background(), "req-42")
	assert.Equal(t, "req-42", monitoring.RequestIDFromContext(ctx))

	// A bare context yields an empty id, never a panic.
	assert.Empty(t, monitoring.RequestIDFromContext(context.Background()))
}
