// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

// Package metrics exposes Prometheus instrumentation for the watcher:
// snapshot batches, classified events, delivery throughput, and session
// supervisor health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Watch session metrics
	BatchesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firewatch_batches_received_total",
			Help: "Total number of snapshot batches received from the change source",
		},
	)

	BatchesSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firewatch_batches_suppressed_total",
			Help: "Total number of initial snapshot batches suppressed as pre-existing data",
		},
	)

	EventsObserved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "firewatch_events_observed_total",
			Help: "Total number of change events observed, by kind",
		},
		[]string{"kind"}, // "added", "modified", "removed"
	)

	PayloadErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firewatch_payload_errors_total",
			Help: "Total number of documents skipped because payload encoding failed",
		},
	)

	// Dispatcher metrics
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "firewatch_dispatch_queue_depth",
			Help: "Current number of delivery tasks waiting in the dispatch queue",
		},
	)

	DeliveriesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "firewatch_deliveries_in_flight",
			Help: "Number of deliveries currently executing",
		},
	)

	DeliveriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firewatch_deliveries_total",
			Help: "Total number of successful deliveries",
		},
	)

	DeliveriesFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firewatch_deliveries_failed_total",
			Help: "Total number of failed deliveries (dropped, never retried)",
		},
	)

	TasksDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firewatch_tasks_dropped_total",
			Help: "Total number of tasks dropped because the dispatcher was closed",
		},
	)

	DeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "firewatch_delivery_duration_seconds",
			Help:    "Duration of delivery sink invocations in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Session supervisor metrics
	SessionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "firewatch_session_state",
			Help: "Current supervisor state (0=starting, 1=running, 2=failed, 3=restarting, 4=stopped)",
		},
	)

	SessionRestarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firewatch_session_restarts_total",
			Help: "Total number of watch session restart attempts",
		},
	)

	SubscriptionsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firewatch_subscriptions_opened_total",
			Help: "Total number of change source subscriptions opened",
		},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "firewatch_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"breaker"},
	)
)
