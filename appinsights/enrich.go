// Context enrichment: merging standard fields into a built envelope.
package appinsights

import "time"

// Standard property names injected by Enrich. Injection never overwrites
// a caller-supplied property of the same name, with the single exception
// of PropOperationID which always reflects the ambient operation.
const (
	PropOperationID = "operationId"
	PropSessionID   = "sessionId"
	PropRoleName    = "roleName"
)

// Ambient is the context an envelope is enriched with: the current
// operation plus the session and role the host configured.
type Ambient struct {
	Operation Operation
	SessionID string
	RoleName  string

	// Timestamp overrides the envelope timestamp when non-zero;
	// otherwise the current UTC time is used.
	Timestamp time.Time
}

// Enrich returns a copy of env with the ambient fields merged in.
//
// Pure function: env is not modified, no I/O. Caller-supplied properties
// take precedence over standard fields on key collision, except the
// correlation id, which is always the ambient operation id.
func Enrich(env TelemetryEnvelope, amb Ambient) TelemetryEnvelope {
	out := env
	out.OperationID = amb.Operation.OperationID
	out.ParentID = amb.Operation.ParentID
	out.SessionID = amb.SessionID
	out.RoleName = amb.RoleName

	if !amb.Timestamp.IsZero() {
		out.Timestamp = amb.Timestamp.UTC()
	} else if out.Timestamp.IsZero() {
		out.Timestamp = time.Now().UTC()
	}

	// Copy-on-write: the input property map belongs to the caller.
	props := make(map[string]string, len(env.Properties)+3)
	for k, v := range env.Properties {
		props[k] = v
	}
	if amb.SessionID != "" {
		if _, exists := props[PropSessionID]; !exists {
			props[PropSessionID] = amb.SessionID
		}
	}
	if amb.RoleName != "" {
		if _, exists := props[PropRoleName]; !exists {
			props[PropRoleName] = amb.RoleName
		}
	}
	if !amb.Operation.IsZero() {
		props[PropOperationID] = amb.Operation.OperationID
	}
	if len(props) > 0 {
		out.Properties = props
	}

	return out
}
