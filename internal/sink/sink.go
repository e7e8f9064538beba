// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

// Package sink defines the delivery mechanism invoked once per new
// document. The production sink shells out to an external push command;
// tests substitute in-process fakes.
package sink

import "context"

// Sink consumes one serialized payload per new document and reports
// success or failure. Implementations must be safe for concurrent use:
// the dispatcher invokes the sink from multiple workers at once.
type Sink interface {
	Deliver(ctx context.Context, payload []byte) error
}
