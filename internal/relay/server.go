// Package relay is the HTTP service that accepts telemetry from low-code
// callers and forwards it to the Application Insights ingestion endpoint.
//
// DESIGN: Routes:
//   - POST /v2/track       Accept an envelope or track request (202)
//   - GET  /healthz        Liveness plus queue/dispatch stats
//   - GET  /v2/deadletters Parked envelopes for inspection
//   - GET  /v2/tail        Websocket stream of relay events (debug)
//
// The handler path only validates and enqueues; the dispatcher owns
// delivery so callers never block on ingestion.
package relay

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/russrimm/appinsights-relay/appinsights"
	"github.com/russrimm/appinsights-relay/internal/config"
	"github.com/russrimm/appinsights-relay/internal/deadletter"
	"github.com/russrimm/appinsights-relay/internal/monitoring"
)

// Relay wires the HTTP surface, dispatcher and monitoring together.
type Relay struct {
	cfg        *config.Config
	dispatcher *Dispatcher
	dead       *deadletter.Store
	tracker    *monitoring.Tracker
	metrics    *monitoring.MetricsCollector
	alerts     *monitoring.AlertManager
	limiter    *rateLimiter
	tail       *TailHub
	server     *http.Server
}

// New builds a relay from configuration.
func New(cfg *config.Config) (*Relay, error) {
	logger := monitoring.New(monitoring.LoggerConfig{
		Level:  cfg.Monitoring.LogLevel,
		Format: cfg.Monitoring.LogFormat,
		Output: cfg.Monitoring.LogOutput,
	})

	tracker, err := monitoring.NewTracker(monitoring.TelemetryConfig{
		Enabled:     cfg.Monitoring.TelemetryEnabled,
		LogPath:     cfg.Monitoring.TelemetryPath,
		LogToStdout: cfg.Monitoring.LogToStdout,
	})
	if err != nil {
		return nil, fmt.Errorf("create tracker: %w", err)
	}

	var dead *deadletter.Store
	if cfg.DeadLetter.Path != "" {
		dead, err = deadletter.Open(cfg.DeadLetter.Path, cfg.DeadLetter.TTL)
		if err != nil {
			return nil, err
		}
	}

	var tail *TailHub
	if cfg.Monitoring.TailEnabled {
		tail = NewTailHub()
	}

	metrics := monitoring.NewMetricsCollector()
	alerts := monitoring.NewAlertManager(logger, monitoring.AlertConfig{})

	transport := appinsights.NewTransport(appinsights.TransportConfig{
		EndpointURL:    cfg.Ingestion.EndpointURL,
		AuthHeader:     cfg.Ingestion.AuthHeader,
		MaxRetries:     cfg.Ingestion.MaxRetries,
		AttemptTimeout: cfg.Ingestion.AttemptTimeout,
		BackoffBase:    cfg.Ingestion.BackoffBase,
	})

	rly := &Relay{
		cfg:     cfg,
		dead:    dead,
		tracker: tracker,
		metrics: metrics,
		alerts:  alerts,
		tail:    tail,
		dispatcher: NewDispatcher(
			transport, cfg.Relay.QueueSize, cfg.Relay.Workers,
			dead, tracker, metrics, alerts, tail,
		),
	}

	rate := cfg.Server.RateLimit
	if rate == 0 {
		rate = 100
	}
	rly.limiter = newRateLimiter(rate)

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/track", rly.handleTrack)
	mux.HandleFunc("/healthz", rly.handleHealth)
	mux.HandleFunc("/v2/deadletters", rly.handleDeadLetters)
	if tail != nil {
		mux.HandleFunc("/v2/tail", tail.handleTail)
	}

	var handler http.Handler = mux
	handler = rly.security(handler)
	handler = rly.loggingMiddleware(handler)
	handler = rly.rateLimit(handler)
	handler = rly.panicRecovery(handler)

	rly.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return rly, nil
}

// Start launches the dispatcher and serves HTTP until shutdown.
func (rly *Relay) Start() error {
	rly.dispatcher.Start()
	log.Info().
		Int("port", rly.cfg.Server.Port).
		Str("endpoint", rly.cfg.Ingestion.EndpointURL).
		Msg("telemetry relay listening")
	return rly.server.ListenAndServe()
}

// Shutdown stops the HTTP server, drains the dispatch queue and closes
// the monitoring and dead-letter resources.
func (rly *Relay) Shutdown(ctx context.Context) error {
	err := rly.server.Shutdown(ctx)

	rly.dispatcher.Stop()
	rly.limiter.stop()
	_ = rly.tracker.Close()
	if rly.dead != nil {
		_ = rly.dead.Close()
	}

	return err
}
