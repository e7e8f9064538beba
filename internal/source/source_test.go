// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

package source

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestQueryValidate(t *testing.T) {
	valid := Query{Collection: "Message", OrderBy: "updatedAt", Limit: 1}

	t.Run("accepts complete query", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rejects missing collection", func(t *testing.T) {
		q := valid
		q.Collection = ""
		if err := q.Validate(); err == nil {
			t.Error("expected error for empty collection")
		}
	})

	t.Run("rejects missing ordering field", func(t *testing.T) {
		q := valid
		q.OrderBy = ""
		if err := q.Validate(); err == nil {
			t.Error("expected error for empty ordering field")
		}
	})

	t.Run("rejects non-positive limit", func(t *testing.T) {
		q := valid
		q.Limit = 0
		if err := q.Validate(); err == nil {
			t.Error("expected error for zero limit")
		}
	})
}

func TestChangeKindString(t *testing.T) {
	cases := map[ChangeKind]string{
		ChangeAdded:    "added",
		ChangeModified: "modified",
		ChangeRemoved:  "removed",
		ChangeKind(42): "unknown",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("ChangeKind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

func TestFakeSubscription(t *testing.T) {
	query := Query{Collection: "Message", OrderBy: "updatedAt", Limit: 1}

	t.Run("emit reaches the callback", func(t *testing.T) {
		src := NewFakeSource()
		var got []ChangeEvent
		_, err := src.Subscribe(context.Background(), query, func(events []ChangeEvent, _ time.Time) {
			got = events
		})
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}

		src.Latest().Emit([]ChangeEvent{{Kind: ChangeAdded, DocumentID: "doc1"}}, time.Now())
		if len(got) != 1 || got[0].DocumentID != "doc1" {
			t.Errorf("callback received %v, want one event for doc1", got)
		}
	})

	t.Run("no callbacks after close", func(t *testing.T) {
		src := NewFakeSource()
		calls := 0
		_, err := src.Subscribe(context.Background(), query, func([]ChangeEvent, time.Time) {
			calls++
		})
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}

		sub := src.Latest()
		if err := sub.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		sub.Emit([]ChangeEvent{{Kind: ChangeAdded, DocumentID: "doc1"}}, time.Now())
		if calls != 0 {
			t.Errorf("expected no callbacks after close, got %d", calls)
		}
	})

	t.Run("drop closes done and flags closed", func(t *testing.T) {
		src := NewFakeSource()
		_, err := src.Subscribe(context.Background(), query, func([]ChangeEvent, time.Time) {})
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}

		sub := src.Latest()
		if sub.Closed() {
			t.Fatal("subscription should start open")
		}
		sub.Drop()
		if !sub.Closed() {
			t.Error("subscription should report closed after drop")
		}
		select {
		case <-sub.Done():
		default:
			t.Error("done channel should be closed after drop")
		}
	})

	t.Run("armed failure affects exactly one subscribe", func(t *testing.T) {
		src := NewFakeSource()
		boom := errors.New("permission denied")
		src.FailNextSubscribe(boom)

		if _, err := src.Subscribe(context.Background(), query, func([]ChangeEvent, time.Time) {}); !errors.Is(err, boom) {
			t.Errorf("expected armed error, got %v", err)
		}
		if _, err := src.Subscribe(context.Background(), query, func([]ChangeEvent, time.Time) {}); err != nil {
			t.Errorf("second subscribe should succeed, got %v", err)
		}
	})
}
