// Context tag keys for Envelope.Tags.
//
// Only the tags the relay actually emits are listed; the endpoint accepts
// the full ai.* tag set but ignores unknown keys either way.
package contracts

const (
	// OperationID links all telemetry items belonging to one logical
	// operation (app session action, flow run).
	OperationID = "ai.operation.id"

	// OperationParentID is the id of the item's immediate parent
	// operation.
	OperationParentID = "ai.operation.parentId"

	// OperationName is the group name of the operation.
	OperationName = "ai.operation.name"

	// SessionID identifies one user interaction session with the app.
	SessionID = "ai.session.id"

	// CloudRole is the name of the role/component emitting telemetry.
	CloudRole = "ai.cloud.role"

	// CloudRoleInstance is the instance of the emitting role.
	CloudRoleInstance = "ai.cloud.roleInstance"

	// InternalSDKVersion records the SDK that produced the item.
	InternalSDKVersion = "ai.internal.sdkVersion"
)
