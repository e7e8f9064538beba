// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

// Package supervisor owns the watch session lifecycle and restart policy.
//
// The SessionSupervisor runs as a suture service. Its internal state
// machine is deliberately unforgiving: a dropped session gets exactly one
// restart attempt, and a second consecutive failure stops the whole
// process. An external process manager is expected to restart the
// process; the supervisor never loops restart attempts on its own.
package supervisor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/luolongfei/firewatch/internal/classify"
	"github.com/luolongfei/firewatch/internal/dispatch"
	"github.com/luolongfei/firewatch/internal/logging"
	"github.com/luolongfei/firewatch/internal/metrics"
	"github.com/luolongfei/firewatch/internal/source"
	"github.com/luolongfei/firewatch/internal/watch"
)

// State is the supervisor's position in its lifecycle.
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateFailed
	StateRestarting
	StateStopped
)

// String returns the lowercase state label.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	case StateRestarting:
		return "restarting"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

var (
	// ErrOpenFailed marks a failure to open the initial watch session.
	ErrOpenFailed = errors.New("watch session open failed")

	// ErrRestartFailed marks the single restart attempt failing, which
	// is fatal to the control loop.
	ErrRestartFailed = errors.New("watch session restart failed")
)

// Config holds supervisor configuration.
type Config struct {
	// PollInterval is the fallback health-check cadence. Disconnects
	// normally surface through the subscription's done channel; the
	// ticker bounds restart latency if that signal is ever missed.
	// Default: 250ms
	PollInterval time.Duration

	// RestartCooldown is the pause after a successful restart before
	// polling resumes, so a persistent fault cannot cause a restart
	// storm.
	// Default: 1s
	RestartCooldown time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:    250 * time.Millisecond,
		RestartCooldown: time.Second,
	}
}

// SessionSupervisor opens a watch session, monitors its health, and
// recreates it once on failure. At most one non-closed session exists at
// any time; all session handoff happens inside Serve's single goroutine.
type SessionSupervisor struct {
	src        source.Source
	query      source.Query
	classifier *classify.Classifier
	dispatcher *dispatch.Dispatcher
	cfg        Config
	log        zerolog.Logger

	mu    sync.Mutex
	state State
}

// New creates a session supervisor.
func New(src source.Source, query source.Query, classifier *classify.Classifier, dispatcher *dispatch.Dispatcher, cfg Config) *SessionSupervisor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	if cfg.RestartCooldown <= 0 {
		cfg.RestartCooldown = time.Second
	}

	return &SessionSupervisor{
		src:        src,
		query:      query,
		classifier: classifier,
		dispatcher: dispatcher,
		cfg:        cfg,
		log:        logging.With().Str("component", "supervisor").Str("collection", query.Collection).Logger(),
	}
}

// String names the service in suture's event log.
func (s *SessionSupervisor) String() string {
	return "session-supervisor"
}

// State returns the supervisor's current state.
func (s *SessionSupervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SessionSupervisor) setState(state State) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()

	metrics.SessionState.Set(float64(state))
	if prev != state {
		s.log.Debug().Str("from", prev.String()).Str("to", state.String()).Msg("State transition")
	}
}

// Serve implements suture.Service. It blocks until the context is
// canceled or the control loop reaches its terminal state, in which case
// the returned error tells suture to take the whole tree down.
func (s *SessionSupervisor) Serve(ctx context.Context) error {
	s.setState(StateStarting)

	sess, err := s.openSession(ctx)
	if err != nil {
		s.setState(StateStopped)
		s.log.Error().Err(err).Msg("Failed to open watch session")
		return errors.Join(ErrOpenFailed, err, suture.ErrTerminateSupervisorTree)
	}
	s.setState(StateRunning)
	s.log.Info().Str("order_by", s.query.OrderBy).Int("limit", s.query.Limit).Msg("Watch session established")

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.teardown(sess)
			return ctx.Err()

		case <-sess.Done():
			// Transport died without a terminal callback.

		case <-ticker.C:
			if !sess.Closed() {
				continue
			}
		}

		s.setState(StateFailed)
		s.log.Warn().Msg("Watch session dropped, attempting restart")
		metrics.SessionRestarts.Inc()

		// Best-effort close of the dead handle before reopening.
		if err := sess.Close(); err != nil {
			s.log.Debug().Err(err).Msg("Closing dead session")
		}

		s.setState(StateRestarting)
		next, err := s.openSession(ctx)
		if err != nil {
			s.setState(StateStopped)
			s.log.Error().Err(err).Msg("Restart failed, stopping control loop")
			return errors.Join(ErrRestartFailed, err, suture.ErrTerminateSupervisorTree)
		}

		sess = next
		s.setState(StateRunning)
		s.log.Info().Msg("Watch session restarted")

		// Cooldown before resuming health checks.
		select {
		case <-ctx.Done():
			s.teardown(sess)
			return ctx.Err()
		case <-time.After(s.cfg.RestartCooldown):
		}
	}
}

// openSession opens a fresh session whose batches flow through the
// classifier into the dispatcher.
func (s *SessionSupervisor) openSession(ctx context.Context) (*watch.Session, error) {
	metrics.SubscriptionsOpened.Inc()

	return watch.Open(ctx, s.src, s.query, func(sess *watch.Session, events []source.ChangeEvent, _ time.Time) {
		metrics.BatchesReceived.Inc()
		for _, task := range s.classifier.Classify(sess, events) {
			s.dispatcher.Submit(task)
		}
	})
}

func (s *SessionSupervisor) teardown(sess *watch.Session) {
	if err := sess.Close(); err != nil {
		s.log.Debug().Err(err).Msg("Closing session on shutdown")
	}
	s.setState(StateStopped)
	s.log.Info().Msg("Supervisor stopped")
}
