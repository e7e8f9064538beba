// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

package source

import (
	"context"
	"sync"
	"time"
)

// FakeSource is an in-memory Source for tests. It records every
// subscription it opens and lets callers drive batches and simulate the
// silent transport deaths the supervisor must recover from.
type FakeSource struct {
	mu      sync.Mutex
	subs    []*FakeSubscription
	nextErr error
}

// NewFakeSource returns an empty fake source.
func NewFakeSource() *FakeSource {
	return &FakeSource{}
}

// FailNextSubscribe makes the next Subscribe call return err.
func (f *FakeSource) FailNextSubscribe(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextErr = err
}

// Subscribe opens a fake subscription, or fails if FailNextSubscribe is
// armed.
func (f *FakeSource) Subscribe(_ context.Context, q Query, fn BatchFunc) (Subscription, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nextErr != nil {
		err := f.nextErr
		f.nextErr = nil
		return nil, err
	}

	sub := &FakeSubscription{fn: fn, done: make(chan struct{})}
	f.subs = append(f.subs, sub)
	return sub, nil
}

// Opens returns how many subscriptions have been opened.
func (f *FakeSource) Opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Latest returns the most recently opened subscription, or nil.
func (f *FakeSource) Latest() *FakeSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.subs) == 0 {
		return nil
	}
	return f.subs[len(f.subs)-1]
}

// FakeSubscription is the Subscription produced by FakeSource.
type FakeSubscription struct {
	fn BatchFunc

	mu     sync.Mutex
	closed bool

	done     chan struct{}
	doneOnce sync.Once
}

// Emit delivers a batch to the subscriber callback, synchronously, unless
// the subscription is closed.
func (s *FakeSubscription) Emit(events []ChangeEvent, readTime time.Time) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	s.fn(events, readTime)
}

// Drop simulates the transport dying without a terminal callback: the
// subscription reports closed but Close was never called by the owner.
func (s *FakeSubscription) Drop() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.doneOnce.Do(func() { close(s.done) })
}

// Closed reports whether the subscription has terminated.
func (s *FakeSubscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Done is closed when the subscription terminates.
func (s *FakeSubscription) Done() <-chan struct{} {
	return s.done
}

// Close terminates the subscription deliberately.
func (s *FakeSubscription) Close() error {
	s.Drop()
	return nil
}
