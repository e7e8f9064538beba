// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

// Package source abstracts the live-query subscription mechanism that
// pushes batches of document mutations. The production implementation is
// backed by Firestore snapshot listeners; tests use FakeSource.
//
// A Subscription can terminate asynchronously without a terminal callback
// from the transport. Health is therefore exposed two ways: Closed() for
// polling and Done() for event-driven waiters.
package source

import (
	"context"
	"fmt"
	"time"
)

// ChangeKind categorizes a single document mutation.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota
	ChangeModified
	ChangeRemoved
)

// String returns the lowercase label used in logs and metrics.
func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeModified:
		return "modified"
	case ChangeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// ChangeEvent is one mutation visible in the watched query window.
// Immutable once produced.
type ChangeEvent struct {
	Kind       ChangeKind
	DocumentID string
	Fields     map[string]any
	ReadTime   time.Time
}

// Direction is the sort direction of the watched query.
type Direction int

const (
	Descending Direction = iota
	Ascending
)

// Query restricts a subscription to the top-K documents of a collection
// by the given ordering field.
type Query struct {
	Collection string
	OrderBy    string
	Direction  Direction
	Limit      int
}

// Validate reports whether the query is complete enough to subscribe.
func (q Query) Validate() error {
	if q.Collection == "" {
		return fmt.Errorf("query collection must not be empty")
	}
	if q.OrderBy == "" {
		return fmt.Errorf("query ordering field must not be empty")
	}
	if q.Limit < 1 {
		return fmt.Errorf("query limit must be at least 1, got %d", q.Limit)
	}
	return nil
}

// BatchFunc receives the full current batch of changes each time the
// source has new data. Batches to a given subscription are serialized:
// at most one call is in flight at a time.
type BatchFunc func(events []ChangeEvent, readTime time.Time)

// Source establishes live subscriptions against a document store.
type Source interface {
	// Subscribe opens a subscription for the query. fn is invoked once
	// per snapshot batch until the subscription closes.
	Subscribe(ctx context.Context, q Query, fn BatchFunc) (Subscription, error)
}

// Subscription is one live query stream.
type Subscription interface {
	// Closed reports whether the stream has terminated, deliberately or
	// otherwise. Suitable for polling.
	Closed() bool

	// Done is closed when the stream terminates. Suitable for selecting.
	Done() <-chan struct{}

	// Close stops the stream. Idempotent. After Close returns, no new
	// batch callback will begin.
	Close() error
}
