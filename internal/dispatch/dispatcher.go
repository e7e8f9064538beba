// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

// Package dispatch executes delivery sink calls asynchronously so a slow
// or failing delivery never blocks change processing.
//
// The queue is deliberately unbounded: Submit never blocks the watch
// callback, while consumer concurrency is capped at the configured worker
// count. Deliveries for different documents may complete out of order;
// no cross-document ordering is guaranteed or required.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/luolongfei/firewatch/internal/logging"
	"github.com/luolongfei/firewatch/internal/metrics"
	"github.com/luolongfei/firewatch/internal/sink"
)

// Config holds dispatcher configuration.
type Config struct {
	// Workers is the fixed number of delivery workers.
	// Default: 1
	Workers int

	// TaskTimeout bounds a single sink invocation. Zero means no
	// timeout: a slow delivery occupies its worker slot until it
	// returns.
	TaskTimeout time.Duration

	// DrainTimeout is how long Close waits for queued and in-flight
	// deliveries before abandoning them.
	// Default: 5s
	DrainTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Workers:      1,
		TaskTimeout:  0,
		DrainTimeout: 5 * time.Second,
	}
}

// Dispatcher is a fixed-size worker pool over an unbounded task queue.
type Dispatcher struct {
	sink sink.Sink
	cfg  Config
	log  zerolog.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Task
	closed bool

	wg sync.WaitGroup
}

// New creates a dispatcher and starts its workers immediately.
func New(s sink.Sink, cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 5 * time.Second
	}

	d := &Dispatcher{
		sink: s,
		cfg:  cfg,
		log:  logging.With().Str("component", "dispatch").Logger(),
	}
	d.cond = sync.NewCond(&d.mu)

	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.worker()
	}

	d.log.Debug().Int("workers", cfg.Workers).Msg("Dispatcher started")
	return d
}

// Submit enqueues a task for asynchronous delivery. Never blocks. Tasks
// submitted after Close are dropped.
func (d *Dispatcher) Submit(t Task) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.Warn().Str("task_id", t.ID).Str("document_id", t.DocumentID).Msg("Dispatcher closed, dropping task")
		metrics.TasksDropped.Inc()
		return
	}
	d.queue = append(d.queue, t)
	metrics.QueueDepth.Set(float64(len(d.queue)))
	d.cond.Signal()
	d.mu.Unlock()
}

// QueueLen returns the number of tasks waiting for a worker.
func (d *Dispatcher) QueueLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// worker pops tasks until the queue is drained and the dispatcher closed.
func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		t := d.queue[0]
		d.queue = d.queue[1:]
		metrics.QueueDepth.Set(float64(len(d.queue)))
		d.mu.Unlock()

		d.deliver(t)
	}
}

// deliver invokes the sink once. A failure is logged and the task
// dropped; it must never propagate upward or affect other tasks.
func (d *Dispatcher) deliver(t Task) {
	metrics.DeliveriesInFlight.Inc()
	defer metrics.DeliveriesInFlight.Dec()

	ctx := context.Background()
	if d.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.TaskTimeout)
		defer cancel()
	}

	start := time.Now()
	err := d.sink.Deliver(ctx, t.Payload)
	metrics.DeliveryDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.DeliveriesFailed.Inc()
		d.log.Error().
			Err(err).
			Str("task_id", t.ID).
			Str("document_id", t.DocumentID).
			Dur("elapsed", time.Since(start)).
			Msg("Delivery failed, task dropped")
		return
	}

	metrics.DeliveriesTotal.Inc()
	d.log.Debug().
		Str("task_id", t.ID).
		Str("document_id", t.DocumentID).
		Dur("elapsed", time.Since(start)).
		Msg("Delivered")
}

// Close stops accepting tasks and waits up to DrainTimeout for the queue
// and in-flight deliveries to finish, then abandons whatever remains.
// Never blocks indefinitely. Idempotent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.cond.Broadcast()
	d.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		d.log.Debug().Msg("Dispatcher drained")
	case <-time.After(d.cfg.DrainTimeout):
		d.log.Warn().
			Int("queued", d.QueueLen()).
			Dur("timeout", d.cfg.DrainTimeout).
			Msg("Drain timeout exceeded, abandoning remaining tasks")
	}
}
