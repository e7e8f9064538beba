// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

// Package main is the entry point for the Firewatch watcher process.
//
// Firewatch watches a Firestore collection for new documents and pushes
// each one, exactly once per run, through an external delivery command
// (by default `php artisan command:fcmpushformessage <payload>`). It is
// the always-on companion process of an app backend whose mobile push
// notifications are driven by Firestore writes.
//
// # Application Architecture
//
// The watcher initializes components in the following order:
//
//  1. Configuration: layered defaults, config file, environment (Koanf v2)
//  2. Logging: zerolog, optionally teeing into daily-rotated files
//  3. Firestore source: snapshot listener on the configured query window
//  4. Delivery sink: external command, optionally behind a circuit breaker
//  5. Dispatcher: bounded-concurrency delivery worker pool
//  6. Supervisor tree: session supervisor plus optional metrics server
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (FIRESTORE_CREDENTIALS_FILE, WATCH_COLLECTION, ...)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// # Session Lifecycle
//
// A dropped Firestore listen stream is restarted exactly once. If the
// restart itself fails, the process exits nonzero so an outer process
// manager (systemd, Docker) can apply its own restart policy.
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the listen stream is
// closed, queued deliveries are drained (bounded by
// DISPATCH_DRAIN_TIMEOUT), and the metrics server is shut down.
//
// # Example Usage
//
// Minimal deployment:
//
//	export FIRESTORE_CREDENTIALS_FILE=/etc/firewatch/serviceAccountKey.json
//	./firewatch
//
// Watching a different collection with more delivery workers:
//
//	export FIRESTORE_CREDENTIALS_FILE=/etc/firewatch/serviceAccountKey.json
//	export WATCH_COLLECTION=Orders
//	export WATCH_LIMIT=5
//	export DISPATCH_WORKERS=4
//	./firewatch
//
// With the Prometheus endpoint:
//
//	export METRICS_ENABLED=true
//	export METRICS_LISTEN_ADDR=:9090
//	./firewatch
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/luolongfei/firewatch/internal/classify"
	"github.com/luolongfei/firewatch/internal/config"
	"github.com/luolongfei/firewatch/internal/dispatch"
	"github.com/luolongfei/firewatch/internal/logging"
	"github.com/luolongfei/firewatch/internal/sink"
	"github.com/luolongfei/firewatch/internal/source"
	"github.com/luolongfei/firewatch/internal/supervisor"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// run owns every resource so deferred closes complete before the
	// process picks its exit code.
	if err := run(cfg); err != nil {
		logging.Error().Err(err).Msg("Watcher terminated with error")
		os.Exit(1)
	}
	logging.Info().Msg("Watcher stopped gracefully")
}

func run(cfg *config.Config) error {

	// Initialize zerolog with configuration, teeing into daily files
	// when enabled.
	var output io.Writer = os.Stderr
	if cfg.Logging.FileEnabled {
		daily, err := logging.NewDailyWriter(cfg.Logging.Directory)
		if err != nil {
			return fmt.Errorf("open log directory: %w", err)
		}
		defer daily.Close()
		output = io.MultiWriter(os.Stderr, daily)
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Output: output,
	})

	logging.Info().
		Str("collection", cfg.Watch.Collection).
		Str("order_by", cfg.Watch.OrderBy).
		Int("limit", cfg.Watch.Limit).
		Int("workers", cfg.Dispatch.Workers).
		Msg("Starting Firewatch")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Firestore source
	src, err := source.NewFirestoreSource(ctx, cfg.Firestore.ProjectID, cfg.Firestore.CredentialsFile)
	if err != nil {
		return fmt.Errorf("connect to Firestore: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing Firestore client")
		}
	}()
	logging.Info().Msg("Firestore client initialized")

	// Delivery sink: external command, optionally behind a circuit
	// breaker so a persistently failing command stops getting spawned.
	var deliverySink sink.Sink
	execSink, err := sink.NewExecSink(cfg.Sink.Command, cfg.Sink.Args...)
	if err != nil {
		return fmt.Errorf("invalid sink command: %w", err)
	}
	deliverySink = execSink
	if cfg.Sink.BreakerEnabled {
		deliverySink = sink.NewBreakerSink(execSink, "delivery")
		logging.Info().Msg("Delivery circuit breaker enabled")
	}

	dispatcher := dispatch.New(deliverySink, dispatch.Config{
		Workers:      cfg.Dispatch.Workers,
		TaskTimeout:  cfg.Dispatch.TaskTimeout,
		DrainTimeout: cfg.Dispatch.DrainTimeout,
	})
	defer dispatcher.Close()

	query := source.Query{
		Collection: cfg.Watch.Collection,
		OrderBy:    cfg.Watch.OrderBy,
		Limit:      cfg.Watch.Limit,
	}
	if !cfg.Watch.Descending {
		query.Direction = source.Ascending
	}

	sup := supervisor.New(src, query, classify.NewClassifier(), dispatcher, supervisor.Config{
		PollInterval:    cfg.Watch.PollInterval,
		RestartCooldown: cfg.Watch.RestartCooldown,
	})

	// Supervisor tree: sutureslog bridges suture's lifecycle events into
	// the zerolog output.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.Add(sup)

	if cfg.Metrics.Enabled {
		tree.Add(newMetricsService(cfg.Metrics.ListenAddr, sup))
		logging.Info().Str("addr", cfg.Metrics.ListenAddr).Msg("Metrics server enabled")
	}

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
		treeErr = <-errCh
	case treeErr = <-errCh:
	}

	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		return treeErr
	}
	return nil
}
