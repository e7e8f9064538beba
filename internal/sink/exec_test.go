// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

package sink

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("exec sink tests require a POSIX shell")
	}
}

func TestExecSink(t *testing.T) {
	t.Run("rejects empty command", func(t *testing.T) {
		if _, err := NewExecSink(""); err == nil {
			t.Error("expected error for empty command")
		}
	})

	t.Run("zero exit is success", func(t *testing.T) {
		skipWithoutShell(t)
		s, err := NewExecSink("true")
		if err != nil {
			t.Fatalf("NewExecSink: %v", err)
		}
		if err := s.Deliver(context.Background(), []byte("aGVsbG8=")); err != nil {
			t.Errorf("Deliver: %v", err)
		}
	})

	t.Run("non-zero exit is failure", func(t *testing.T) {
		skipWithoutShell(t)
		s, err := NewExecSink("false")
		if err != nil {
			t.Fatalf("NewExecSink: %v", err)
		}
		err = s.Deliver(context.Background(), []byte("aGVsbG8="))
		if err == nil {
			t.Fatal("expected failure for non-zero exit")
		}
		if !strings.Contains(err.Error(), "exited 1") {
			t.Errorf("error should carry the exit status, got %v", err)
		}
	})

	t.Run("payload arrives as final argument", func(t *testing.T) {
		skipWithoutShell(t)
		outFile := filepath.Join(t.TempDir(), "payload.txt")
		s, err := NewExecSink("sh", "-c", `printf %s "$1" > "$0"`, outFile)
		if err != nil {
			t.Fatalf("NewExecSink: %v", err)
		}

		if err := s.Deliver(context.Background(), []byte("ZG9jMQ==")); err != nil {
			t.Fatalf("Deliver: %v", err)
		}

		data, err := os.ReadFile(outFile)
		if err != nil {
			t.Fatalf("reading capture file: %v", err)
		}
		if string(data) != "ZG9jMQ==" {
			t.Errorf("command received %q, want the payload", data)
		}
	})

	t.Run("context cancellation kills the process", func(t *testing.T) {
		skipWithoutShell(t)
		s, err := NewExecSink("sleep", "30")
		if err != nil {
			t.Fatalf("NewExecSink: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		if err := s.Deliver(ctx, []byte("x")); err == nil {
			t.Error("expected error when the context expires")
		}
		if time.Since(start) > 5*time.Second {
			t.Error("Deliver did not return promptly after cancellation")
		}
	})
}

func TestSummarize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "(no output)"},
		{"one line", "one line"},
		{"first\nsecond", "first ..."},
		{strings.Repeat("x", 300), strings.Repeat("x", 200) + "..."},
	}
	for _, tc := range cases {
		if got := summarize([]byte(tc.in)); got != tc.want {
			t.Errorf("summarize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
