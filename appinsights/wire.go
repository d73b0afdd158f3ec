// Conversion from TelemetryEnvelope to the ingestion wire schema.
package appinsights

import (
	"github.com/russrimm/appinsights-relay/appinsights/contracts"
)

const sdkVersion = "go-relay:1.0"

// ToWire converts an enriched envelope into the contracts.Envelope sent
// to the ingestion endpoint, stamped with the given instrumentation key.
func ToWire(env TelemetryEnvelope, instrumentationKey string) *contracts.Envelope {
	wire := contracts.NewEnvelope()
	wire.IKey = instrumentationKey
	wire.Time = contracts.FormatTime(env.Timestamp)
	wire.Tags = buildTags(env)

	switch env.Kind {
	case KindException:
		wire.Name = contracts.ExceptionEnvelopeName
		info := env.Exception
		if info == nil {
			info = &ExceptionInfo{Message: env.Name}
		}
		wire.Data = &contracts.Data{
			BaseType: contracts.ExceptionBaseType,
			BaseData: &contracts.ExceptionData{
				Ver: 2,
				Exceptions: []contracts.ExceptionDetails{{
					TypeName:     info.TypeName,
					Message:      info.Message,
					HasFullStack: false,
				}},
				Properties:   env.Properties,
				Measurements: env.Measurements,
			},
		}

	case KindDependency:
		wire.Name = contracts.DependencyEnvelopeName
		info := env.Dependency
		if info == nil {
			info = &DependencyInfo{}
		}
		wire.Data = &contracts.Data{
			BaseType: contracts.DependencyBaseType,
			BaseData: &contracts.RemoteDependencyData{
				Ver:          2,
				Name:         env.Name,
				ID:           env.OperationID,
				Duration:     contracts.FormatDuration(info.Duration),
				Success:      info.Success,
				Target:       info.Target,
				Type:         info.Type,
				Properties:   env.Properties,
				Measurements: env.Measurements,
			},
		}

	default:
		wire.Name = contracts.EventEnvelopeName
		wire.Data = &contracts.Data{
			BaseType: contracts.EventBaseType,
			BaseData: &contracts.EventData{
				Ver:          2,
				Name:         env.Name,
				Properties:   env.Properties,
				Measurements: env.Measurements,
			},
		}
	}

	wire.Sanitize()
	return wire
}

func buildTags(env TelemetryEnvelope) map[string]string {
	tags := map[string]string{
		contracts.InternalSDKVersion: sdkVersion,
	}
	if env.OperationID != "" {
		tags[contracts.OperationID] = env.OperationID
	}
	if env.ParentID != "" {
		tags[contracts.OperationParentID] = env.ParentID
	}
	if env.SessionID != "" {
		tags[contracts.SessionID] = env.SessionID
	}
	if env.RoleName != "" {
		tags[contracts.CloudRole] = env.RoleName
	}
	return tags
}
