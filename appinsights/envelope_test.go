package appinsights_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/russrimm/appinsights-relay/appinsights"
)

// =============================================================================
// ENVELOPE BUILDER TESTS
// =============================================================================

func TestNewEvent_PreservesNameVerbatim(t *testing.T) {
	env, err := appinsights.NewEvent("FlowStarted", map[string]string{"flowName": "Invoice"}, nil)
	require.NoError(t, err)

	assert.Equal(t, appinsights.KindEvent, env.Kind)
	assert.Equal(t, "FlowStarted", env.Name)
	assert.Equal(t, "Invoice", env.Properties["flowName"])
}

func TestNewEvent_EmptyNameRejected(t *testing.T) {
	_, err := appinsights.NewEvent("", nil, nil)
	require.Error(t, err)

	var verr *appinsights.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestNewEvent_KeyCollisionAfterNormalization(t *testing.T) {
	_, err := appinsights.NewEvent("Ev", map[string]string{
		"flowName":  "a",
		" flowName": "b",
	}, nil)
	require.Error(t, err)

	var verr *appinsights.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "properties", verr.Field)
}

func TestNewEvent_MeasurementKeyCollision(t *testing.T) {
	_, err := appinsights.NewEvent("Ev", nil, map[string]float64{
		"durationMs":  1,
		"durationMs ": 2,
	})
	require.Error(t, err)

	var verr *appinsights.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "measurements", verr.Field)
}

func TestNewEvent_BlankKeyRejected(t *testing.T) {
	_, err := appinsights.NewEvent("Ev", map[string]string{"  ": "x"}, nil)
	require.Error(t, err)
}

func TestNewEvent_CopiesCallerMaps(t *testing.T) {
	props := map[string]string{"a": "1"}
	meas := map[string]float64{"m": 1}

	env, err := appinsights.NewEvent("Ev", props, meas)
	require.NoError(t, err)

	// Mutating the caller's maps must not reach the envelope.
	props["a"] = "changed"
	meas["m"] = 99

	assert.Equal(t, "1", env.Properties["a"])
	assert.Equal(t, float64(1), env.Measurements["m"])
}

func TestNewException_CarriesMessageAndType(t *testing.T) {
	env, err := appinsights.NewException("boom", "System.InvalidOperationException", map[string]string{"screen": "Home"})
	require.NoError(t, err)

	assert.Equal(t, appinsights.KindException, env.Kind)
	assert.Equal(t, "boom", env.Name)
	require.NotNil(t, env.Exception)
	assert.Equal(t, "boom", env.Exception.Message)
	assert.Equal(t, "System.InvalidOperationException", env.Exception.TypeName)
	assert.Equal(t, "Home", env.Properties["screen"])
}

func TestNewDependency_CarriesCallFields(t *testing.T) {
	env, err := appinsights.NewDependency("GetInvoice", "HTTP", "api.contoso.com", true, 420*time.Millisecond, nil)
	require.NoError(t, err)

	assert.Equal(t, appinsights.KindDependency, env.Kind)
	require.NotNil(t, env.Dependency)
	assert.Equal(t, "HTTP", env.Dependency.Type)
	assert.Equal(t, "api.contoso.com", env.Dependency.Target)
	assert.True(t, env.Dependency.Success)
	assert.Equal(t, 420*time.Millisecond, env.Dependency.Duration)
}

// =============================================================================
// ROUND-TRIP
// =============================================================================

func TestTelemetryEnvelope_JSONRoundTrip(t *testing.T) {
	env, err := appinsights.NewEvent("FlowStarted",
		map[string]string{"flowName": "Invoice", "env": "prod"},
		map[string]float64{"items": 12, "durationMs": 431.5})
	require.NoError(t, err)
	env.Timestamp = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	env.OperationID = "op-1"
	env.SessionID = "sess-1"

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var back appinsights.TelemetryEnvelope
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, env.Name, back.Name)
	assert.Equal(t, env.Kind, back.Kind)
	assert.Equal(t, env.Properties, back.Properties)
	assert.Equal(t, env.Measurements, back.Measurements)
	assert.Equal(t, env.OperationID, back.OperationID)
	assert.True(t, env.Timestamp.Equal(back.Timestamp))
}
