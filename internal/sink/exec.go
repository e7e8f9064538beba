// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

package sink

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ExecSink delivers a payload by running an external command with the
// payload appended as the final argument, e.g.
//
//	php artisan command:fcmpushformessage <base64-payload>
//
// A non-zero exit status is a delivery failure. Each delivery spawns a
// fresh process, so concurrent invocations are inherently safe.
type ExecSink struct {
	command string
	args    []string
}

// NewExecSink creates a sink for the given command and fixed arguments.
func NewExecSink(command string, args ...string) (*ExecSink, error) {
	if command == "" {
		return nil, fmt.Errorf("sink command must not be empty")
	}
	return &ExecSink{command: command, args: args}, nil
}

// Deliver runs the command once. The context bounds the process lifetime
// when the dispatcher imposes a per-task timeout.
func (s *ExecSink) Deliver(ctx context.Context, payload []byte) error {
	argv := make([]string, 0, len(s.args)+1)
	argv = append(argv, s.args...)
	argv = append(argv, string(payload))

	cmd := exec.CommandContext(ctx, s.command, argv...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("delivery command exited %d: %s", exitErr.ExitCode(), summarize(out))
		}
		return fmt.Errorf("run delivery command: %w", err)
	}
	return nil
}

// summarize trims command output to a single log-friendly line.
func summarize(out []byte) string {
	text := strings.TrimSpace(string(out))
	if text == "" {
		return "(no output)"
	}
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx] + " ..."
	}
	const maxLen = 200
	if len(text) > maxLen {
		text = text[:maxLen] + "..."
	}
	return text
}
