// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit(t *testing.T) {
	t.Run("json format emits structured output", func(t *testing.T) {
		var buf bytes.Buffer
		Init(Config{Level: "debug", Format: "json", Output: &buf})
		defer Init(DefaultConfig())

		Info().Str("collection", "Message").Msg("watching")

		out := buf.String()
		if !strings.Contains(out, `"collection":"Message"`) {
			t.Errorf("expected structured field in output, got %q", out)
		}
		if !strings.Contains(out, `"message":"watching"`) {
			t.Errorf("expected message in output, got %q", out)
		}
	})

	t.Run("level filters lower-severity events", func(t *testing.T) {
		var buf bytes.Buffer
		Init(Config{Level: "warn", Format: "json", Output: &buf})
		defer Init(DefaultConfig())

		Debug().Msg("invisible")
		Warn().Msg("visible")

		out := buf.String()
		if strings.Contains(out, "invisible") {
			t.Errorf("debug event should have been filtered, got %q", out)
		}
		if !strings.Contains(out, "visible") {
			t.Errorf("warn event missing from output %q", out)
		}
	})

	t.Run("empty config falls back to defaults", func(t *testing.T) {
		Init(Config{})
		defer Init(DefaultConfig())

		if zerolog.GlobalLevel() != zerolog.InfoLevel {
			t.Errorf("expected info level default, got %v", zerolog.GlobalLevel())
		}
	})
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":    zerolog.TraceLevel,
		"debug":    zerolog.DebugLevel,
		"info":     zerolog.InfoLevel,
		"warn":     zerolog.WarnLevel,
		"warning":  zerolog.WarnLevel,
		"ERROR":    zerolog.ErrorLevel,
		"fatal":    zerolog.FatalLevel,
		"disabled": zerolog.Disabled,
		"bogus":    zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	slogger := NewSlogLogger()
	slogger.Info("service started", "service", "watcher", "attempt", int64(2))

	out := buf.String()
	if !strings.Contains(out, `"service":"watcher"`) {
		t.Errorf("expected slog attr in zerolog output, got %q", out)
	}
	if !strings.Contains(out, `"attempt":2`) {
		t.Errorf("expected int attr in zerolog output, got %q", out)
	}
	if !strings.Contains(out, `"message":"service started"`) {
		t.Errorf("expected message in zerolog output, got %q", out)
	}
}
