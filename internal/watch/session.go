// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

// Package watch owns the watch session: one live subscription plus its
// first-batch suppression state. A fresh session always starts with the
// suppression window open, so every restart cleanly swallows the initial
// snapshot replay.
package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/luolongfei/firewatch/internal/logging"
	"github.com/luolongfei/firewatch/internal/source"
)

// Session is one live subscription instance. All mutation goes through a
// single owning mutex so that a teardown racing a mid-flight batch stays
// consistent.
type Session struct {
	mu         sync.Mutex
	query      source.Query
	firstBatch bool
	closed     bool
	sub        source.Subscription
}

// NewSession creates an unbound session with the suppression window open.
func NewSession(q source.Query) *Session {
	return &Session{query: q, firstBatch: true}
}

// BatchHandler processes one batch of change events for a session.
type BatchHandler func(sess *Session, events []source.ChangeEvent, readTime time.Time)

// Open establishes a subscription against the source and returns the
// session feeding it. The handler runs behind a recovery boundary: a
// panic while processing one batch is logged and swallowed, it never
// takes down the subscription pump.
func Open(ctx context.Context, src source.Source, q source.Query, handler BatchHandler) (*Session, error) {
	sess := NewSession(q)

	sub, err := src.Subscribe(ctx, q, func(events []source.ChangeEvent, readTime time.Time) {
		defer func() {
			if r := recover(); r != nil {
				logging.Error().
					Str("collection", q.Collection).
					Int("events", len(events)).
					Interface("panic", r).
					Msg("Batch processing failed, batch dropped")
			}
		}()
		handler(sess, events, readTime)
	})
	if err != nil {
		return nil, fmt.Errorf("open watch session: %w", err)
	}

	sess.bind(sub)
	return sess, nil
}

func (s *Session) bind(sub source.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sub = sub
}

// Query returns the query definition this session watches.
func (s *Session) Query() source.Query {
	return s.query
}

// BeginBatch reports whether the session accepts the incoming batch and
// whether it is the session's first. The first-batch flag flips to false
// exactly once, atomically with the closed check, so a batch racing a
// teardown is either fully processed or fully dropped.
func (s *Session) BeginBatch() (first, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, false
	}
	first = s.firstBatch
	s.firstBatch = false
	return first, true
}

// FirstBatchPending reports whether the initial snapshot has been
// observed yet.
func (s *Session) FirstBatchPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstBatch
}

// Closed reports whether the session was closed by its owner or its
// subscription died underneath it.
func (s *Session) Closed() bool {
	s.mu.Lock()
	sub := s.sub
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return true
	}
	return sub != nil && sub.Closed()
}

// Done is closed when the underlying subscription terminates. Only valid
// on sessions returned by Open.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub.Done()
}

// Close tears the session down. Best-effort and idempotent: closing an
// already-dead subscription is not an error.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sub := s.sub
	s.mu.Unlock()

	if sub == nil {
		return nil
	}
	return sub.Close()
}
