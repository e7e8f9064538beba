// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

package watch

import (
	"context"
	"testing"
	"time"

	"github.com/luolongfei/firewatch/internal/source"
)

var testQuery = source.Query{Collection: "Message", OrderBy: "updatedAt", Limit: 1}

func TestSessionFirstBatch(t *testing.T) {
	t.Run("flag flips exactly once", func(t *testing.T) {
		sess := NewSession(testQuery)
		if !sess.FirstBatchPending() {
			t.Fatal("fresh session should have first batch pending")
		}

		first, ok := sess.BeginBatch()
		if !ok || !first {
			t.Errorf("first BeginBatch = (%v, %v), want (true, true)", first, ok)
		}

		first, ok = sess.BeginBatch()
		if !ok || first {
			t.Errorf("second BeginBatch = (%v, %v), want (false, true)", first, ok)
		}
		if sess.FirstBatchPending() {
			t.Error("first batch should no longer be pending")
		}
	})

	t.Run("closed session rejects batches", func(t *testing.T) {
		sess := NewSession(testQuery)
		if err := sess.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}

		if _, ok := sess.BeginBatch(); ok {
			t.Error("closed session should not accept batches")
		}
	})
}

func TestSessionClose(t *testing.T) {
	t.Run("close is idempotent and closes the subscription", func(t *testing.T) {
		src := source.NewFakeSource()
		sess, err := Open(context.Background(), src, testQuery, func(*Session, []source.ChangeEvent, time.Time) {})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}

		if err := sess.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if err := sess.Close(); err != nil {
			t.Errorf("second Close: %v", err)
		}
		if !src.Latest().Closed() {
			t.Error("underlying subscription should be closed")
		}
		if !sess.Closed() {
			t.Error("session should report closed")
		}
	})

	t.Run("dead subscription surfaces through Closed", func(t *testing.T) {
		src := source.NewFakeSource()
		sess, err := Open(context.Background(), src, testQuery, func(*Session, []source.ChangeEvent, time.Time) {})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}

		if sess.Closed() {
			t.Fatal("session should start open")
		}
		src.Latest().Drop()
		if !sess.Closed() {
			t.Error("session should report closed after the transport dies")
		}

		select {
		case <-sess.Done():
		case <-time.After(time.Second):
			t.Error("Done should fire when the transport dies")
		}
	})
}

func TestOpen(t *testing.T) {
	t.Run("handler receives session and events", func(t *testing.T) {
		src := source.NewFakeSource()
		var gotSess *Session
		var gotEvents []source.ChangeEvent

		sess, err := Open(context.Background(), src, testQuery, func(s *Session, events []source.ChangeEvent, _ time.Time) {
			gotSess = s
			gotEvents = events
		})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}

		src.Latest().Emit([]source.ChangeEvent{{Kind: source.ChangeAdded, DocumentID: "doc1"}}, time.Now())

		if gotSess != sess {
			t.Error("handler should receive the session returned by Open")
		}
		if len(gotEvents) != 1 || gotEvents[0].DocumentID != "doc1" {
			t.Errorf("handler received %v, want one event for doc1", gotEvents)
		}
	})

	t.Run("subscribe failure propagates", func(t *testing.T) {
		src := source.NewFakeSource()
		src.FailNextSubscribe(context.DeadlineExceeded)

		if _, err := Open(context.Background(), src, testQuery, func(*Session, []source.ChangeEvent, time.Time) {}); err == nil {
			t.Error("expected subscribe failure to propagate")
		}
	})

	t.Run("panicking handler does not kill the pump", func(t *testing.T) {
		src := source.NewFakeSource()
		calls := 0
		_, err := Open(context.Background(), src, testQuery, func(_ *Session, events []source.ChangeEvent, _ time.Time) {
			calls++
			if events[0].DocumentID == "bad" {
				panic("corrupt batch")
			}
		})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}

		sub := src.Latest()
		sub.Emit([]source.ChangeEvent{{Kind: source.ChangeAdded, DocumentID: "bad"}}, time.Now())
		sub.Emit([]source.ChangeEvent{{Kind: source.ChangeAdded, DocumentID: "good"}}, time.Now())

		if calls != 2 {
			t.Errorf("expected both batches handled, got %d", calls)
		}
		if sub.Closed() {
			t.Error("subscription should survive a panicking batch")
		}
	})
}
