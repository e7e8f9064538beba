// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

package source

import (
	"testing"
	"time"
)

func TestNormalizeValue(t *testing.T) {
	t.Run("timestamps become epoch seconds", func(t *testing.T) {
		ts := time.Date(2020, 10, 12, 15, 5, 0, 500000000, time.UTC)
		got, ok := normalizeValue(ts).(float64)
		if !ok {
			t.Fatalf("expected float64, got %T", normalizeValue(ts))
		}
		want := float64(ts.UnixNano()) / float64(time.Second)
		if got != want {
			t.Errorf("normalizeValue(%v) = %v, want %v", ts, got, want)
		}
	})

	t.Run("nested maps and slices recurse", func(t *testing.T) {
		ts := time.Unix(1602515100, 0)
		fields := map[string]any{
			"title": "hello",
			"meta": map[string]any{
				"updatedAt": ts,
			},
			"tags": []any{"a", ts},
		}

		out := normalizeFields(fields)

		meta, ok := out["meta"].(map[string]any)
		if !ok {
			t.Fatalf("meta should remain a map, got %T", out["meta"])
		}
		if _, ok := meta["updatedAt"].(float64); !ok {
			t.Errorf("nested timestamp not normalized: %T", meta["updatedAt"])
		}

		tags, ok := out["tags"].([]any)
		if !ok {
			t.Fatalf("tags should remain a slice, got %T", out["tags"])
		}
		if tags[0] != "a" {
			t.Errorf("scalar slice element changed: %v", tags[0])
		}
		if _, ok := tags[1].(float64); !ok {
			t.Errorf("timestamp slice element not normalized: %T", tags[1])
		}
	})

	t.Run("plain values pass through", func(t *testing.T) {
		for _, v := range []any{"text", int64(7), 3.14, true, nil} {
			if got := normalizeValue(v); got != v {
				t.Errorf("normalizeValue(%v) = %v, want unchanged", v, got)
			}
		}
	})
}
