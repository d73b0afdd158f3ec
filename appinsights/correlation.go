// Correlation ids for linking telemetry across a logical operation.
//
// DESIGN: One Operation value is created at operation entry (Begin) and
// handed down through call parameters. There is no package-level current
// operation: ambient globals leak across operations in concurrent hosts,
// so the id travels by value and is immutable after creation.
package appinsights

import "github.com/google/uuid"

// Operation identifies one logical operation (an app session action, a
// flow run). Nested work derives a child via Child; the parent value is
// never mutated.
type Operation struct {
	OperationID string `json:"operation_id"`
	ParentID    string `json:"parent_id,omitempty"`
}

// Begin starts a new logical operation with a fresh id. Call it once at
// operation entry; every nested call within the operation reads the same
// value via Current.
func Begin() Operation {
	return Operation{OperationID: uuid.NewString()}
}

// Current returns the operation id all telemetry in this operation is
// correlated under.
func (o Operation) Current() string {
	return o.OperationID
}

// Child derives a nested operation: a distinct id whose parent is this
// operation. The receiver is unchanged.
func (o Operation) Child() Operation {
	return Operation{
		OperationID: uuid.NewString(),
		ParentID:    o.OperationID,
	}
}

// IsZero reports whether no operation has been started.
func (o Operation) IsZero() bool {
	return o.OperationID == ""
}
