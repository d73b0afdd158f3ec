// Track endpoint handlers.
//
// DESIGN: POST /v2/track accepts two payload shapes:
//   - A raw ingestion envelope (has "data"): the relay stamps the
//     configured instrumentation key and missing context tags into the
//     raw JSON and forwards it as-is. This is the Power Automate /
//     API Management path where the flow builds the envelope itself.
//   - A track request (kind/name/properties/measurements): the relay
//     builds, enriches and encodes the envelope. This is the canvas-app
//     path where the caller only has a property bag.
//
// Both paths end in the dispatch queue; the handler never waits on the
// ingestion endpoint.
package relay

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/russrimm/appinsights-relay/appinsights"
	"github.com/russrimm/appinsights-relay/appinsights/contracts"
	"github.com/russrimm/appinsights-relay/internal/monitoring"
)

// maxTrackBody bounds a single track request.
const maxTrackBody = 1 << 20

// TrackRequest is the structured submission shape.
type TrackRequest struct {
	Kind         string             `json:"kind"` // Event, Exception, Dependency
	Name         string             `json:"name"`
	Properties   map[string]string  `json:"properties,omitempty"`
	Measurements map[string]float64 `json:"measurements,omitempty"`

	// Correlation supplied by the caller; a missing operation id gets a
	// fresh one so every record is correlatable.
	OperationID string `json:"operationId,omitempty"`
	ParentID    string `json:"parentId,omitempty"`
	SessionID   string `json:"sessionId,omitempty"`

	Exception *struct {
		Message  string `json:"message"`
		TypeName string `json:"typeName,omitempty"`
	} `json:"exception,omitempty"`

	Dependency *struct {
		Type       string  `json:"type,omitempty"`
		Target     string  `json:"target,omitempty"`
		Success    bool    `json:"success"`
		DurationMs float64 `json:"durationMs"`
	} `json:"dependency,omitempty"`
}

func (rly *Relay) handleTrack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rly.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := monitoring.RequestIDFromContext(r.Context())
	clientIP := rly.getClientIP(r)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxTrackBody+1))
	if err != nil {
		rly.reject(w, requestID, clientIP, "read body failed", http.StatusBadRequest)
		return
	}
	if len(body) > maxTrackBody {
		rly.reject(w, requestID, clientIP, "body too large", http.StatusRequestEntityTooLarge)
		return
	}
	if !gjson.ValidBytes(body) {
		rly.reject(w, requestID, clientIP, "body is not valid JSON", http.StatusBadRequest)
		return
	}

	var item *Item
	if gjson.GetBytes(body, "data").Exists() {
		item, err = rly.itemFromRawEnvelope(body)
	} else {
		item, err = rly.itemFromTrackRequest(body)
	}
	if err != nil {
		rly.reject(w, requestID, clientIP, err.Error(), http.StatusBadRequest)
		return
	}

	item.RequestID = requestID
	item.ClientIP = clientIP

	if !rly.dispatcher.Enqueue(item) {
		rly.alerts.FlagQueueFull(requestID, rly.dispatcher.Depth())
		rly.metrics.RecordRejected()
		w.Header().Set("Retry-After", "1")
		rly.writeError(w, "dispatch queue full", http.StatusServiceUnavailable)
		return
	}
	rly.metrics.RecordReceived()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted":    true,
		"id":          item.ID,
		"queue_depth": rly.dispatcher.Depth(),
	})
}

// itemFromRawEnvelope forwards a caller-built envelope, stamping the
// configured instrumentation key and any missing context tags into the
// raw JSON without re-encoding the whole document.
func (rly *Relay) itemFromRawEnvelope(body []byte) (*Item, error) {
	name := gjson.GetBytes(body, "name").String()
	if name == "" {
		return nil, &appinsights.ValidationError{Field: "name", Reason: "must be non-empty"}
	}

	stamped, err := sjson.SetBytes(body, "iKey", rly.cfg.Ingestion.InstrumentationKey)
	if err != nil {
		return nil, err
	}
	if !gjson.GetBytes(stamped, `tags.ai\.cloud\.role`).Exists() && rly.cfg.Ingestion.RoleName != "" {
		stamped, err = sjson.SetBytes(stamped, `tags.ai\.cloud\.role`, rly.cfg.Ingestion.RoleName)
		if err != nil {
			return nil, err
		}
	}
	opID := gjson.GetBytes(stamped, `tags.ai\.operation\.id`).String()
	if opID == "" {
		opID = uuid.NewString()
		stamped, err = sjson.SetBytes(stamped, `tags.ai\.operation\.id`, opID)
		if err != nil {
			return nil, err
		}
	}
	if gjson.GetBytes(stamped, "time").String() == "" {
		stamped, err = sjson.SetBytes(stamped, "time", contracts.FormatTime(time.Now()))
		if err != nil {
			return nil, err
		}
	}

	return &Item{
		ID:          uuid.NewString(),
		Kind:        gjson.GetBytes(stamped, "data.baseType").String(),
		Name:        name,
		OperationID: opID,
		Body:        stamped,
	}, nil
}

// itemFromTrackRequest builds the envelope from a structured request.
func (rly *Relay) itemFromTrackRequest(body []byte) (*Item, error) {
	var req TrackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}

	var env appinsights.TelemetryEnvelope
	var err error
	switch appinsights.Kind(req.Kind) {
	case appinsights.KindException:
		message := req.Name
		typeName := ""
		if req.Exception != nil {
			if req.Exception.Message != "" {
				message = req.Exception.Message
			}
			typeName = req.Exception.TypeName
		}
		env, err = appinsights.NewException(message, typeName, req.Properties)
	case appinsights.KindDependency:
		dep := req.Dependency
		if dep == nil {
			return nil, &appinsights.ValidationError{Field: "dependency", Reason: "required for kind Dependency"}
		}
		env, err = appinsights.NewDependency(
			req.Name, dep.Type, dep.Target, dep.Success,
			time.Duration(dep.DurationMs*float64(time.Millisecond)), req.Properties)
	case appinsights.KindEvent, "":
		env, err = appinsights.NewEvent(req.Name, req.Properties, req.Measurements)
	default:
		return nil, &appinsights.ValidationError{Field: "kind", Reason: "must be Event, Exception or Dependency"}
	}
	if err != nil {
		return nil, err
	}

	op := appinsights.Operation{OperationID: req.OperationID, ParentID: req.ParentID}
	if op.IsZero() {
		op = appinsights.Begin()
	}

	enriched := appinsights.Enrich(env, appinsights.Ambient{
		Operation: op,
		SessionID: req.SessionID,
		RoleName:  rly.cfg.Ingestion.RoleName,
	})

	wireBody, err := json.Marshal(appinsights.ToWire(enriched, rly.cfg.Ingestion.InstrumentationKey))
	if err != nil {
		return nil, err
	}

	return &Item{
		ID:          uuid.NewString(),
		Kind:        string(enriched.Kind),
		Name:        enriched.Name,
		OperationID: op.OperationID,
		Body:        wireBody,
	}, nil
}

func (rly *Relay) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":      "ok",
		"queue_depth": rly.dispatcher.Depth(),
		"stats":       rly.metrics.Stats(),
	}
	if rly.dead != nil {
		if n, err := rly.dead.Count(); err == nil {
			resp["dead_letters"] = n
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDeadLetters lists parked envelopes for operator inspection.
func (rly *Relay) handleDeadLetters(w http.ResponseWriter, r *http.Request) {
	if rly.dead == nil {
		rly.writeError(w, "dead-letter store disabled", http.StatusNotFound)
		return
	}
	letters, err := rly.dead.List(100)
	if err != nil {
		rly.writeError(w, "dead-letter list failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dead_letters": letters})
}

func (rly *Relay) reject(w http.ResponseWriter, requestID, clientIP, reason string, status int) {
	rly.metrics.RecordRejected()
	rly.tracker.RecordReject(&monitoring.RejectEvent{
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
		Reason:    reason,
		ClientIP:  clientIP,
	})
	rly.writeError(w, reason, status)
}

func (rly *Relay) writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]any{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
