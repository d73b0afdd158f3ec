// Transport: HTTPS POST to the ingestion endpoint with bounded retry.
//
// DESIGN: The send path is an explicit state machine,
//
//	Idle → Sending → {Success | Retrying → Sending | Failed}
//
// rather than an ad hoc retry loop, so the retry budget and backoff are
// testable. Classification:
//   - 2xx:                     Success
//   - 4xx:                     permanent, exactly one attempt
//   - 5xx / timeout / network: transient, retried with exponential backoff
//
// Send never returns a Go error. Failures come back as data in
// TransportResult so a telemetry outage cannot abort the host's workflow.
package appinsights

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// Transport defaults. Small on purpose: the shim sits on the host's call
// path and must bound its worst case.
const (
	DefaultMaxRetries     = 2
	DefaultAttemptTimeout = 3 * time.Second
	DefaultBackoffBase    = 250 * time.Millisecond
)

// sendState tracks the transport state machine.
type sendState int

const (
	stateIdle sendState = iota
	stateSending
	stateRetrying
	stateSuccess
	stateFailed
)

// TransportResult reports the outcome of one Send, including retries.
// Produced per send; never persisted.
type TransportResult struct {
	Success       bool   `json:"success"`
	StatusCode    int    `json:"status_code,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
	Attempts      int    `json:"attempts"`
	ItemsReceived int    `json:"items_received,omitempty"`
	ItemsAccepted int    `json:"items_accepted,omitempty"`
}

// TransportConfig configures the ingestion transport.
type TransportConfig struct {
	// EndpointURL is the ingestion track endpoint.
	EndpointURL string

	// AuthHeader, when set, is sent as the Authorization header value.
	AuthHeader string

	// MaxRetries is the number of re-attempts after the first try on
	// transient failures. 0 applies DefaultMaxRetries; negative means
	// try exactly once.
	MaxRetries int

	// AttemptTimeout bounds each individual HTTP attempt.
	AttemptTimeout time.Duration

	// BackoffBase is the first retry delay; doubled per retry.
	BackoffBase time.Duration
}

// Transport posts envelope payloads to the ingestion endpoint.
// Each Send is independent; a Transport is safe for concurrent use.
type Transport struct {
	cfg    TransportConfig
	client *http.Client
}

// NewTransport creates a transport, applying defaults for unset knobs.
func NewTransport(cfg TransportConfig) *Transport {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	} else if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}
	return &Transport{
		cfg: cfg,
		// Per-attempt deadlines come from the request context, so the
		// client itself carries no timeout.
		client: &http.Client{},
	}
}

// Send posts body as JSON and reports the outcome. Transient failures are
// retried up to MaxRetries with exponential backoff; 4xx responses fail
// immediately. Cancelling ctx abandons the send best-effort.
func (t *Transport) Send(ctx context.Context, body []byte) TransportResult {
	result := TransportResult{}
	state := stateIdle
	backoff := t.cfg.BackoffBase

	for {
		switch state {
		case stateIdle:
			state = stateSending

		case stateSending:
			result.Attempts++
			status, respBody, err := t.attempt(ctx, body)
			switch {
			case err != nil:
				result.ErrorMessage = err.Error()
				if ctx.Err() != nil {
					// Host gave up; do not burn retries against a dead context.
					state = stateFailed
				} else {
					state = stateRetrying
				}
			case status >= 200 && status < 300:
				result.StatusCode = status
				result.ErrorMessage = ""
				result.ItemsReceived = int(gjson.GetBytes(respBody, "itemsReceived").Int())
				result.ItemsAccepted = int(gjson.GetBytes(respBody, "itemsAccepted").Int())
				state = stateSuccess
			case status >= 500:
				result.StatusCode = status
				result.ErrorMessage = fmt.Sprintf("ingestion returned %d", status)
				state = stateRetrying
			default:
				// 4xx: the payload is wrong, retrying cannot help.
				result.StatusCode = status
				result.ErrorMessage = ingestionError(respBody, status)
				state = stateFailed
			}

		case stateRetrying:
			if result.Attempts > t.cfg.MaxRetries {
				state = stateFailed
				continue
			}
			if !sleepCtx(ctx, backoff) {
				state = stateFailed
				continue
			}
			backoff *= 2
			state = stateSending

		case stateSuccess:
			result.Success = true
			return result

		case stateFailed:
			result.Success = false
			log.Debug().
				Int("attempts", result.Attempts).
				Int("status", result.StatusCode).
				Str("error", result.ErrorMessage).
				Msg("telemetry send failed")
			return result
		}
	}
}

// attempt performs one HTTP POST within its own deadline.
func (t *Transport) attempt(ctx context.Context, body []byte) (int, []byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, t.cfg.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, t.cfg.EndpointURL, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build ingestion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.cfg.AuthHeader != "" {
		req.Header.Set("Authorization", t.cfg.AuthHeader)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("post ingestion request: %w", err)
	}
	defer resp.Body.Close()

	// The track response is a small JSON summary; cap the read anyway.
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	return resp.StatusCode, respBody, nil
}

// ingestionError extracts the first error message from a track response,
// falling back to the status code.
func ingestionError(respBody []byte, status int) string {
	if msg := gjson.GetBytes(respBody, "errors.0.message"); msg.Exists() {
		return fmt.Sprintf("ingestion returned %d: %s", status, msg.String())
	}
	return fmt.Sprintf("ingestion returned %d", status)
}

// sleepCtx waits for d unless ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
