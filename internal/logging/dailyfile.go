// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DailyWriter is an io.Writer that appends to <dir>/<YYYY-MM-DD>.log and
// reopens the file when the local date changes. Log files are the only
// on-disk state Firewatch keeps; they are an observability sink, never
// read back.
type DailyWriter struct {
	mu   sync.Mutex
	dir  string
	day  string
	file *os.File
}

// NewDailyWriter creates the log directory if needed and opens today's file.
func NewDailyWriter(dir string) (*DailyWriter, error) {
	if dir == "" {
		return nil, fmt.Errorf("log directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory %s: %w", dir, err)
	}

	w := &DailyWriter{dir: dir}
	if err := w.reopen(time.Now().Format(dayFormat)); err != nil {
		return nil, err
	}
	return w, nil
}

const dayFormat = "2006-01-02"

// Write appends to the current day's log file, rotating first if the date
// has rolled over since the last write.
func (w *DailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	day := time.Now().Format(dayFormat)
	if day != w.day {
		if err := w.reopen(day); err != nil {
			return 0, err
		}
	}
	return w.file.Write(p)
}

// reopen closes the previous file (if any) and opens <dir>/<day>.log for
// appending. Must be called with mu held.
func (w *DailyWriter) reopen(day string) error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return fmt.Errorf("close log file: %w", err)
		}
	}

	path := filepath.Join(w.dir, day+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", path, err)
	}

	w.file = file
	w.day = day
	return nil
}

// Close closes the underlying file. The writer must not be used afterwards.
func (w *DailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
