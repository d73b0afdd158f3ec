// Package appinsights is a telemetry relay shim for Azure Application
// Insights.
//
// DESIGN: The package is split along the send path:
//   - envelope.go:    TelemetryEnvelope construction and validation
//   - correlation.go: Operation ids passed by value, no ambient globals
//   - enrich.go:      Pure merge of standard context fields
//   - wire.go:        Conversion to the ingestion wire schema
//   - transport.go:   HTTP POST with bounded retry, result-as-data
//   - client.go:      TrackEvent / TrackException / TrackDependency
//
// Transport failures are reported in TransportResult, never raised, so a
// telemetry outage cannot break the host's primary logic. The only error
// the package returns is ValidationError, which indicates a caller bug.
package appinsights

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies the telemetry record type.
type Kind string

const (
	KindEvent      Kind = "Event"
	KindException  Kind = "Exception"
	KindDependency Kind = "Dependency"
)

// TelemetryEnvelope is a single telemetry record before wire encoding.
// Properties hold string values, Measurements numeric values; the split is
// validated at construction so loosely-typed bags never reach the wire.
type TelemetryEnvelope struct {
	Kind         Kind               `json:"kind"`
	Name         string             `json:"name"`
	Timestamp    time.Time          `json:"timestamp"`
	OperationID  string             `json:"operation_id,omitempty"`
	ParentID     string             `json:"parent_id,omitempty"`
	SessionID    string             `json:"session_id,omitempty"`
	RoleName     string             `json:"role_name,omitempty"`
	Properties   map[string]string  `json:"properties,omitempty"`
	Measurements map[string]float64 `json:"measurements,omitempty"`

	// Exception is set only for KindException.
	Exception *ExceptionInfo `json:"exception,omitempty"`

	// Dependency is set only for KindDependency.
	Dependency *DependencyInfo `json:"dependency,omitempty"`
}

// ExceptionInfo carries the exception-specific fields.
type ExceptionInfo struct {
	Message  string `json:"message"`
	TypeName string `json:"type_name"`
}

// DependencyInfo carries the dependency-specific fields.
type DependencyInfo struct {
	Type     string        `json:"type,omitempty"`
	Target   string        `json:"target,omitempty"`
	Success  bool          `json:"success"`
	Duration time.Duration `json:"duration"`
}

// ValidationError reports a malformed envelope. It is returned to the
// caller immediately instead of being sent, since it indicates a bug at
// the call site rather than a transport condition.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid telemetry envelope: %s: %s", e.Field, e.Reason)
}

// NewEvent builds an Event envelope. Name must be non-empty and is
// preserved verbatim. Property and measurement maps are copied; keys are
// normalized with whitespace trimming, and a collision after normalization
// is a ValidationError.
func NewEvent(name string, properties map[string]string, measurements map[string]float64) (TelemetryEnvelope, error) {
	return newEnvelope(KindEvent, name, properties, measurements)
}

// NewException builds an Exception envelope. Message must be non-empty;
// it doubles as the envelope name so exception records group by message.
func NewException(message, typeName string, properties map[string]string) (TelemetryEnvelope, error) {
	env, err := newEnvelope(KindException, message, properties, nil)
	if err != nil {
		return TelemetryEnvelope{}, err
	}
	env.Exception = &ExceptionInfo{Message: message, TypeName: typeName}
	return env, nil
}

// NewDependency builds a RemoteDependency envelope for an outbound call.
func NewDependency(name, depType, target string, success bool, duration time.Duration, properties map[string]string) (TelemetryEnvelope, error) {
	env, err := newEnvelope(KindDependency, name, properties, nil)
	if err != nil {
		return TelemetryEnvelope{}, err
	}
	env.Dependency = &DependencyInfo{
		Type:     depType,
		Target:   target,
		Success:  success,
		Duration: duration,
	}
	return env, nil
}

func newEnvelope(kind Kind, name string, properties map[string]string, measurements map[string]float64) (TelemetryEnvelope, error) {
	if name == "" {
		return TelemetryEnvelope{}, &ValidationError{Field: "name", Reason: "must be non-empty"}
	}

	props, err := normalizeStringMap(properties)
	if err != nil {
		return TelemetryEnvelope{}, err
	}
	meas, err := normalizeNumberMap(measurements)
	if err != nil {
		return TelemetryEnvelope{}, err
	}

	return TelemetryEnvelope{
		Kind:         kind,
		Name:         name,
		Properties:   props,
		Measurements: meas,
	}, nil
}

// normalizeStringMap copies the caller's property map with trimmed keys.
// Two distinct keys that collapse to the same trimmed key would silently
// drop a value, so that is rejected.
func normalizeStringMap(in map[string]string) (map[string]string, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		nk := strings.TrimSpace(k)
		if nk == "" {
			return nil, &ValidationError{Field: "properties", Reason: fmt.Sprintf("blank key %q", k)}
		}
		if _, exists := out[nk]; exists {
			return nil, &ValidationError{Field: "properties", Reason: fmt.Sprintf("key %q collides after normalization", nk)}
		}
		out[nk] = v
	}
	return out, nil
}

func normalizeNumberMap(in map[string]float64) (map[string]float64, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		nk := strings.TrimSpace(k)
		if nk == "" {
			return nil, &ValidationError{Field: "measurements", Reason: fmt.Sprintf("blank key %q", k)}
		}
		if _, exists := out[nk]; exists {
			return nil, &ValidationError{Field: "measurements", Reason: fmt.Sprintf("key %q collides after normalization", nk)}
		}
		out[nk] = v
	}
	return out, nil
}
