// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

// Package classify turns batches of change events into delivery tasks.
//
// The watched query is a live snapshot, not a pure tail: the first batch
// a fresh subscription delivers replays every pre-existing document as a
// spurious Added event. The classifier consumes that batch without
// emitting anything, and only Added events in later batches produce
// deliveries.
package classify

import (
	"github.com/rs/zerolog"

	"github.com/luolongfei/firewatch/internal/dispatch"
	"github.com/luolongfei/firewatch/internal/logging"
	"github.com/luolongfei/firewatch/internal/metrics"
	"github.com/luolongfei/firewatch/internal/source"
	"github.com/luolongfei/firewatch/internal/watch"
)

// Classifier categorizes change events and decides which produce
// deliveries. Stateless apart from the session's own first-batch flag,
// so classification of a post-first batch is a pure function of its
// input.
type Classifier struct {
	log zerolog.Logger
}

// NewClassifier creates a classifier.
func NewClassifier() *Classifier {
	return &Classifier{
		log: logging.With().Str("component", "classify").Logger(),
	}
}

// Classify returns one delivery task per qualifying Added event. The
// session's first batch is consumed whole and yields nothing, whatever
// it contains. Modified and Removed events are recorded for
// observability only. A document whose payload cannot be encoded is
// skipped without affecting the rest of the batch.
func (c *Classifier) Classify(sess *watch.Session, events []source.ChangeEvent) []dispatch.Task {
	first, ok := sess.BeginBatch()
	if !ok {
		c.log.Debug().Int("events", len(events)).Msg("Session closed, batch discarded")
		return nil
	}
	if first {
		metrics.BatchesSuppressed.Inc()
		c.log.Info().Int("events", len(events)).Msg("Initial snapshot consumed, replay suppressed")
		return nil
	}

	var tasks []dispatch.Task
	for _, ev := range events {
		metrics.EventsObserved.WithLabelValues(ev.Kind.String()).Inc()

		switch ev.Kind {
		case source.ChangeAdded:
			payload, err := EncodePayload(ev.Fields)
			if err != nil {
				metrics.PayloadErrors.Inc()
				c.log.Error().Err(err).Str("document_id", ev.DocumentID).Msg("Payload encoding failed, document skipped")
				continue
			}
			tasks = append(tasks, dispatch.NewTask(ev.DocumentID, payload))
			c.log.Debug().Str("document_id", ev.DocumentID).Msg("New document queued for delivery")
		case source.ChangeModified:
			c.log.Debug().Str("document_id", ev.DocumentID).Msg("Document modified")
		case source.ChangeRemoved:
			c.log.Debug().Str("document_id", ev.DocumentID).Msg("Document removed from snapshot")
		}
	}
	return tasks
}
