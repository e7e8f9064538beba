// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

package dispatch

import (
	"time"

	"github.com/google/uuid"
)

// Task is one document's pending delivery. The dispatcher owns a task
// from submission until completion and discards it afterwards, success
// or failure; there is no retry and no dead-letter queue.
type Task struct {
	// ID identifies the task in logs.
	ID string

	// DocumentID is the source document, carried for diagnostics only.
	DocumentID string

	// Payload is the serialized document body handed to the sink.
	Payload []byte

	// EnqueuedAt is when the task was created.
	EnqueuedAt time.Time
}

// NewTask builds a task for one document payload.
func NewTask(documentID string, payload []byte) Task {
	return Task{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Payload:    payload,
		EnqueuedAt: time.Now(),
	}
}
