// Client: the Track* surface composing builder, enricher and transport.
package appinsights

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

// ClientConfig configures a telemetry client. The instrumentation key and
// endpoint come from the environment or a config store; the client does
// not manage secrets.
type ClientConfig struct {
	EndpointURL        string
	InstrumentationKey string
	AuthHeader         string

	// RoleName and SessionID are stamped on every envelope.
	RoleName  string
	SessionID string

	MaxRetries     int
	AttemptTimeout time.Duration
	BackoffBase    time.Duration
}

// Client tracks events, exceptions and dependencies against one
// Application Insights resource. Safe for concurrent use; each Track call
// is independent.
type Client struct {
	cfg       ClientConfig
	transport *Transport
}

// NewClient creates a client for the configured ingestion endpoint.
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		cfg: cfg,
		transport: NewTransport(TransportConfig{
			EndpointURL:    cfg.EndpointURL,
			AuthHeader:     cfg.AuthHeader,
			MaxRetries:     cfg.MaxRetries,
			AttemptTimeout: cfg.AttemptTimeout,
			BackoffBase:    cfg.BackoffBase,
		}),
	}
}

// TrackEvent sends a custom event. The returned error is non-nil only for
// a ValidationError; transport failures are reported in the result.
func (c *Client) TrackEvent(ctx context.Context, op Operation, name string, properties map[string]string, measurements map[string]float64) (TransportResult, error) {
	env, err := NewEvent(name, properties, measurements)
	if err != nil {
		return TransportResult{}, err
	}
	return c.send(ctx, op, env), nil
}

// TrackException sends an exception record.
func (c *Client) TrackException(ctx context.Context, op Operation, message, typeName string, properties map[string]string) (TransportResult, error) {
	env, err := NewException(message, typeName, properties)
	if err != nil {
		return TransportResult{}, err
	}
	return c.send(ctx, op, env), nil
}

// TrackDependency sends a remote dependency record for an outbound call.
func (c *Client) TrackDependency(ctx context.Context, op Operation, name, depType, target string, success bool, duration time.Duration, properties map[string]string) (TransportResult, error) {
	env, err := NewDependency(name, depType, target, success, duration, properties)
	if err != nil {
		return TransportResult{}, err
	}
	return c.send(ctx, op, env), nil
}

// Send transmits an already-built envelope. Useful when the caller
// constructs envelopes directly, e.g. the relay's dispatcher.
func (c *Client) Send(ctx context.Context, op Operation, env TelemetryEnvelope) TransportResult {
	return c.send(ctx, op, env)
}

func (c *Client) send(ctx context.Context, op Operation, env TelemetryEnvelope) TransportResult {
	enriched := Enrich(env, Ambient{
		Operation: op,
		SessionID: c.cfg.SessionID,
		RoleName:  c.cfg.RoleName,
	})

	wire := ToWire(enriched, c.cfg.InstrumentationKey)
	body, err := json.Marshal(wire)
	if err != nil {
		// Only reachable with non-finite measurement values.
		return TransportResult{ErrorMessage: "encode envelope: " + err.Error()}
	}

	result := c.transport.Send(ctx, body)
	if !result.Success {
		log.Warn().
			Str("kind", string(env.Kind)).
			Str("name", env.Name).
			Str("operation_id", op.OperationID).
			Int("status", result.StatusCode).
			Int("attempts", result.Attempts).
			Msg("telemetry delivery failed")
	}
	return result
}
