// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

package source

import (
	"time"

	"cloud.google.com/go/firestore"
)

// convertChanges maps a Firestore query snapshot onto ChangeEvents.
func convertChanges(snap *firestore.QuerySnapshot) []ChangeEvent {
	events := make([]ChangeEvent, 0, len(snap.Changes))
	for _, change := range snap.Changes {
		events = append(events, ChangeEvent{
			Kind:       convertKind(change.Kind),
			DocumentID: change.Doc.Ref.ID,
			Fields:     normalizeFields(change.Doc.Data()),
			ReadTime:   snap.ReadTime,
		})
	}
	return events
}

func convertKind(kind firestore.DocumentChangeKind) ChangeKind {
	switch kind {
	case firestore.DocumentAdded:
		return ChangeAdded
	case firestore.DocumentModified:
		return ChangeModified
	default:
		return ChangeRemoved
	}
}

// normalizeFields rewrites Firestore-specific value types into plain JSON
// encodable values. Timestamps become epoch seconds with fractional
// precision, document references become their path string. The result is
// what the payload encoder sees, so normalization must be deterministic.
func normalizeFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for name, value := range fields {
		out[name] = normalizeValue(value)
	}
	return out
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case time.Time:
		return float64(v.UnixNano()) / float64(time.Second)
	case map[string]any:
		return normalizeFields(v)
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = normalizeValue(item)
		}
		return items
	case *firestore.DocumentRef:
		if v == nil {
			return nil
		}
		return v.Path
	default:
		return v
	}
}
