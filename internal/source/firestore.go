// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"cloud.google.com/go/firestore"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/luolongfei/firewatch/internal/logging"
)

// FirestoreSource implements Source on Firestore snapshot listeners.
type FirestoreSource struct {
	client *firestore.Client
}

// serviceAccountKey is the subset of a Google service-account JSON key
// needed to derive the project when none is configured explicitly.
type serviceAccountKey struct {
	ProjectID string `json:"project_id"`
}

// NewFirestoreSource creates a Firestore client from a service-account
// credential file. If projectID is empty it is read from the key file,
// matching the behavior of client construction from a key alone.
func NewFirestoreSource(ctx context.Context, projectID, credentialsFile string) (*FirestoreSource, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("credentials file path is required")
	}

	if projectID == "" {
		raw, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		var key serviceAccountKey
		if err := json.Unmarshal(raw, &key); err != nil {
			return nil, fmt.Errorf("parse credentials file: %w", err)
		}
		if key.ProjectID == "" {
			return nil, fmt.Errorf("credentials file %s has no project_id; set the project explicitly", credentialsFile)
		}
		projectID = key.ProjectID
	}

	client, err := firestore.NewClient(ctx, projectID, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}

	return &FirestoreSource{client: client}, nil
}

// Close releases the underlying client.
func (s *FirestoreSource) Close() error {
	return s.client.Close()
}

// Subscribe opens a snapshot listener on the top-K documents of the
// collection, ordered by the query's update field.
func (s *FirestoreSource) Subscribe(ctx context.Context, q Query, fn BatchFunc) (Subscription, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid watch query: %w", err)
	}

	dir := firestore.Desc
	if q.Direction == Ascending {
		dir = firestore.Asc
	}

	streamCtx, cancel := context.WithCancel(ctx)
	snaps := s.client.Collection(q.Collection).
		OrderBy(q.OrderBy, dir).
		Limit(q.Limit).
		Snapshots(streamCtx)

	sub := &firestoreSubscription{
		snaps:  snaps,
		cancel: cancel,
		done:   make(chan struct{}),
		log:    logging.With().Str("component", "firestore-source").Str("collection", q.Collection).Logger(),
	}
	go sub.run(fn)

	return sub, nil
}

// firestoreSubscription wraps one QuerySnapshotIterator. The iterator
// reports transport failures as errors from Next, outside any callback
// flow; run translates that into the closed flag and the done channel.
type firestoreSubscription struct {
	snaps  *firestore.QuerySnapshotIterator
	cancel context.CancelFunc
	log    zerolog.Logger

	mu     sync.Mutex
	closed bool

	done     chan struct{}
	doneOnce sync.Once
}

// run pumps snapshots until the iterator terminates. Each snapshot is the
// full current query window, not a diff against history.
func (s *firestoreSubscription) run(fn BatchFunc) {
	defer s.markClosed()

	for {
		snap, err := s.snaps.Next()
		if err != nil {
			if !s.deliberate(err) {
				s.log.Error().Err(err).Msg("Snapshot stream terminated")
			}
			return
		}

		// A Close racing with Next must not start a new batch.
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}

		fn(convertChanges(snap), snap.ReadTime)
	}
}

// deliberate reports whether the stream error is the expected result of
// Close cancelling the context rather than a transport failure.
func (s *firestoreSubscription) deliberate(err error) bool {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return true
	}
	return errors.Is(err, context.Canceled) || status.Code(err) == codes.Canceled
}

func (s *firestoreSubscription) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.doneOnce.Do(func() { close(s.done) })
}

// Closed reports whether the snapshot stream has terminated.
func (s *firestoreSubscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Done is closed when the snapshot stream terminates.
func (s *firestoreSubscription) Done() <-chan struct{} {
	return s.done
}

// Close stops the snapshot stream. Safe to call more than once.
func (s *firestoreSubscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.snaps.Stop()
	s.doneOnce.Do(func() { close(s.done) })
	return nil
}
