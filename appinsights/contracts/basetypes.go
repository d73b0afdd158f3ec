// Base-type payloads carried inside Envelope.Data.
package contracts

import (
	"fmt"
	"time"
)

// Envelope names and base types recognized by the ingestion endpoint.
const (
	EventEnvelopeName      = "Microsoft.ApplicationInsights.Event"
	ExceptionEnvelopeName  = "Microsoft.ApplicationInsights.Exception"
	DependencyEnvelopeName = "Microsoft.ApplicationInsights.RemoteDependency"

	EventBaseType      = "EventData"
	ExceptionBaseType  = "ExceptionData"
	DependencyBaseType = "RemoteDependencyData"
)

// TimeFormat is the timestamp layout the endpoint expects: UTC ISO 8601
// with seven fractional digits and a trailing Z.
const TimeFormat = "2006-01-02T15:04:05.0000000Z"

// EventData is the payload for a custom event.
type EventData struct {
	Ver          int                `json:"ver"`
	Name         string             `json:"name"`
	Properties   map[string]string  `json:"properties,omitempty"`
	Measurements map[string]float64 `json:"measurements,omitempty"`
}

// ExceptionDetails describes one exception in a chain.
type ExceptionDetails struct {
	TypeName     string `json:"typeName"`
	Message      string `json:"message"`
	HasFullStack bool   `json:"hasFullStack"`
	Stack        string `json:"stack,omitempty"`
}

// ExceptionData is the payload for a tracked exception.
type ExceptionData struct {
	Ver          int                `json:"ver"`
	Exceptions   []ExceptionDetails `json:"exceptions"`
	Properties   map[string]string  `json:"properties,omitempty"`
	Measurements map[string]float64 `json:"measurements,omitempty"`
}

// RemoteDependencyData is the payload for an outbound dependency call.
type RemoteDependencyData struct {
	Ver          int                `json:"ver"`
	Name         string             `json:"name"`
	ID           string             `json:"id,omitempty"`
	ResultCode   string             `json:"resultCode,omitempty"`
	Duration     string             `json:"duration"`
	Success      bool               `json:"success"`
	Data         string             `json:"data,omitempty"`
	Target       string             `json:"target,omitempty"`
	Type         string             `json:"type,omitempty"`
	Properties   map[string]string  `json:"properties,omitempty"`
	Measurements map[string]float64 `json:"measurements,omitempty"`
}

// FormatTime renders t in the ingestion timestamp layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// FormatDuration renders d in the DD.HH:MM:SS.mmm layout used by
// RemoteDependencyData.Duration.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	d -= seconds * time.Second
	millis := d / time.Millisecond

	return fmt.Sprintf("%d.%02d:%02d:%02d.%03d", days, hours, minutes, seconds, millis)
}
