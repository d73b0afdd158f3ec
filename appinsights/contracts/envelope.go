// Package contracts defines the wire schema for the Application Insights
// ingestion endpoint.
//
// DESIGN: These types mirror the ingestion JSON exactly — field names and
// casing are dictated by the endpoint, not by Go conventions. Everything
// the relay sends is wrapped in an Envelope whose Data carries one of the
// base types (EventData, ExceptionData, RemoteDependencyData).
package contracts

// Field size limits enforced by the ingestion endpoint. Oversized fields
// are truncated, not rejected, so a single bad field cannot drop a record.
const (
	MaxNameLength = 1024
	MaxTimeLength = 64
	MaxIKeyLength = 40
)

// Envelope is the outer record for a single telemetry item.
type Envelope struct {
	// Ver is the envelope schema version. Always 1.
	Ver int `json:"ver"`

	// Name identifies the telemetry type, e.g.
	// "Microsoft.ApplicationInsights.Event".
	Name string `json:"name"`

	// Time is the wall-clock creation time in UTC ISO 8601 with a
	// trailing 'Z' (2009-06-15T13:45:30.0000000Z).
	Time string `json:"time"`

	// SampleRate is the sampling percentage; this item represents
	// 100/sampleRate actual items.
	SampleRate float64 `json:"sampleRate"`

	// IKey is the instrumentation key of the target resource.
	IKey string `json:"iKey"`

	// Tags carries context properties keyed by the ai.* tag names
	// (see tagkeys.go).
	Tags map[string]string `json:"tags,omitempty"`

	// Data is the wrapped base-type payload.
	Data *Data `json:"data"`
}

// Data wraps the base-type payload inside an envelope.
type Data struct {
	BaseType string `json:"baseType"`
	BaseData any    `json:"baseData"`
}

// NewEnvelope returns an envelope with schema defaults applied.
func NewEnvelope() *Envelope {
	return &Envelope{
		Ver:        1,
		SampleRate: 100.0,
	}
}

// Sanitize truncates string fields that exceed the ingestion limits and
// returns a warning per affected field.
func (e *Envelope) Sanitize() []string {
	var warnings []string

	if len(e.Name) > MaxNameLength {
		e.Name = e.Name[:MaxNameLength]
		warnings = append(warnings, "Envelope.Name exceeded maximum length of 1024")
	}
	if len(e.Time) > MaxTimeLength {
		e.Time = e.Time[:MaxTimeLength]
		warnings = append(warnings, "Envelope.Time exceeded maximum length of 64")
	}
	if len(e.IKey) > MaxIKeyLength {
		e.IKey = e.IKey[:MaxIKeyLength]
		warnings = append(warnings, "Envelope.IKey exceeded maximum length of 40")
	}

	return warnings
}
