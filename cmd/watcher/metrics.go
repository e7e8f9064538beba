// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luolongfei/firewatch/internal/logging"
	"github.com/luolongfei/firewatch/internal/supervisor"
)

// metricsService exposes the Prometheus registry and a health probe as
// a supervised HTTP server. It translates http.Server's blocking
// ListenAndServe into suture's context-aware Serve: the server runs in
// a goroutine and context cancellation triggers a graceful Shutdown.
type metricsService struct {
	server          *http.Server
	shutdownTimeout time.Duration
}

func newMetricsService(addr string, sup *supervisor.SessionSupervisor) *metricsService {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		state := sup.State()
		status := http.StatusOK
		if state == supervisor.StateFailed || state == supervisor.StateStopped {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(map[string]string{
			"session": state.String(),
		}); err != nil {
			logging.Error().Err(err).Msg("Failed to write health response")
		}
	})

	return &metricsService{
		server: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		shutdownTimeout: 10 * time.Second,
	}
}

// Serve implements suture.Service.
func (m *metricsService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		// The serve context is already canceled; shutdown needs its own.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), m.shutdownTimeout)
		defer cancel()
		if err := m.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

// String implements fmt.Stringer; suture uses it in lifecycle logs.
func (m *metricsService) String() string {
	return "metrics-server"
}
