// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

package sink

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/luolongfei/firewatch/internal/logging"
	"github.com/luolongfei/firewatch/internal/metrics"
)

// BreakerSink wraps a Sink with a circuit breaker so a persistently
// failing delivery command fails fast instead of tying worker slots up
// in doomed process spawns. A rejected delivery is still just logged and
// dropped by the dispatcher; the breaker changes how fast it fails, not
// the no-retry contract.
type BreakerSink struct {
	next Sink
	cb   *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerSink wraps next with a breaker that opens after a 60%
// failure rate across at least 5 deliveries, and probes recovery after
// 30 seconds.
func NewBreakerSink(next Sink, name string) *BreakerSink {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &BreakerSink{next: next, cb: cb}
}

// Deliver passes the payload through the breaker. When the breaker is
// open it returns gobreaker.ErrOpenState without invoking the command.
func (s *BreakerSink) Deliver(ctx context.Context, payload []byte) error {
	_, err := s.cb.Execute(func() (struct{}, error) {
		return struct{}{}, s.next.Deliver(ctx, payload)
	})
	return err
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
