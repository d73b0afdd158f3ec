// Background dispatcher draining queued envelopes to ingestion.
//
// DESIGN: Accepting a track request and forwarding it are decoupled by a
// bounded queue so the caller's critical path never waits on the
// ingestion endpoint (fire-and-forget with an observable outcome in the
// relay log). Workers drain the queue; retry policy lives entirely in the
// transport. Envelopes that still fail are parked in the dead-letter
// store.
package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/russrimm/appinsights-relay/appinsights"
	"github.com/russrimm/appinsights-relay/internal/deadletter"
	"github.com/russrimm/appinsights-relay/internal/monitoring"
)

// Item is one queued envelope awaiting dispatch.
type Item struct {
	ID          string
	RequestID   string
	Kind        string
	Name        string
	OperationID string
	ClientIP    string
	Body        []byte // wire envelope JSON
	EnqueuedAt  time.Time
}

// Dispatcher owns the queue and worker pool.
type Dispatcher struct {
	transport *appinsights.Transport
	dead      *deadletter.Store // nil disables dead-lettering
	tracker   *monitoring.Tracker
	metrics   *monitoring.MetricsCollector
	alerts    *monitoring.AlertManager
	tail      *TailHub // nil disables the tail stream

	queue   chan *Item
	workers int

	mu      sync.RWMutex
	running bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher with a bounded queue.
func NewDispatcher(transport *appinsights.Transport, queueSize, workers int, dead *deadletter.Store, tracker *monitoring.Tracker, metrics *monitoring.MetricsCollector, alerts *monitoring.AlertManager, tail *TailHub) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		dead:      dead,
		tracker:   tracker,
		metrics:   metrics,
		alerts:    alerts,
		tail:      tail,
		queue:     make(chan *Item, queueSize),
		workers:   workers,
	}
}

// Start launches the worker pool.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	log.Info().Int("workers", d.workers).Msg("starting dispatch workers")
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.drain(i)
	}
}

// Stop drains the queue and waits for workers to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	log.Info().Msg("dispatch workers stopped")
}

// Enqueue queues an envelope for dispatch. Returns false when the relay
// is stopping or the queue is full; the caller decides what to tell the
// submitter.
func (d *Dispatcher) Enqueue(item *Item) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.running {
		return false
	}
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now()
	}
	select {
	case d.queue <- item:
		return true
	default:
		return false
	}
}

// Depth returns the current queue depth.
func (d *Dispatcher) Depth() int {
	return len(d.queue)
}

func (d *Dispatcher) drain(worker int) {
	defer d.wg.Done()
	for item := range d.queue {
		d.process(item)
	}
	log.Debug().Int("worker", worker).Msg("dispatch worker exit")
}

func (d *Dispatcher) process(item *Item) {
	queueLatency := time.Since(item.EnqueuedAt)

	// Dispatch outlives the submitting request; it runs on its own
	// context so a closed client connection cannot abandon the send.
	start := time.Now()
	result := d.transport.Send(context.Background(), item.Body)
	sendLatency := time.Since(start)

	d.metrics.RecordDispatch(result.Success, result.Attempts)
	d.alerts.FlagHighLatency(item.RequestID, sendLatency)
	d.alerts.FlagIngestionReject(item.RequestID, result.ItemsReceived, result.ItemsAccepted)

	event := &monitoring.RelayEvent{
		RequestID:      item.RequestID,
		Timestamp:      time.Now().UTC(),
		Kind:           item.Kind,
		Name:           item.Name,
		OperationID:    item.OperationID,
		ClientIP:       item.ClientIP,
		BodySize:       len(item.Body),
		StatusCode:     result.StatusCode,
		Attempts:       result.Attempts,
		ItemsAccepted:  result.ItemsAccepted,
		Success:        result.Success,
		Error:          result.ErrorMessage,
		QueueLatencyMs: queueLatency.Milliseconds(),
		SendLatencyMs:  sendLatency.Milliseconds(),
	}

	if !result.Success && d.dead != nil {
		err := d.dead.Put(deadletter.Letter{
			ID:       item.ID,
			Kind:     item.Kind,
			Name:     item.Name,
			Body:     item.Body,
			Error:    result.ErrorMessage,
			Attempts: result.Attempts,
		})
		if err != nil {
			log.Error().Err(err).Str("id", item.ID).Msg("dead-letter put failed")
		} else {
			event.DeadLettered = true
			d.metrics.RecordDeadLetter()
		}
	}

	d.tracker.RecordRelay(event)

	if d.tail != nil {
		if msg, err := json.Marshal(event); err == nil {
			d.tail.Broadcast(msg)
		}
	}
}
