// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package diag provides the injectable diagnostic sink used across the
// client. The core calls a sink for visibility but never depends on it
// for correctness, so every consumer accepts it as an optional
// collaborator rather than reaching for a package-level logger.
package diag

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Sink receives diagnostic lines.
type Sink interface {
	Logf(format string, args ...any)
}

// =============================================================================
// NOP SINK
// =============================================================================

type nopSink struct{}

func (nopSink) Logf(string, ...any) {}

// Nop returns a sink that discards everything.
func Nop() Sink {
	return nopSink{}
}

// =============================================================================
// FILE SINK
// =============================================================================

type fileSink struct {
	logger *log.Logger
	file   *os.File
}

// NewFileSink appends diagnostics to the given path, creating parent
// directories as needed.
func NewFileSink(path string) (Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return &fileSink{
		logger: log.New(f, "", log.LstdFlags),
		file:   f,
	}, nil
}

func (s *fileSink) Logf(format string, args ...any) {
	s.logger.Printf(format, args...)
}

// Close flushes and closes the underlying file, when the sink has one.
func Close(s Sink) error {
	if fs, ok := s.(*fileSink); ok {
		return fs.file.Close()
	}
	return nil
}
