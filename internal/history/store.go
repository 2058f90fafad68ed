// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history provides a local SQLite cache of thread messages so
// reopened threads render instantly while the remote history fetch is
// still in flight.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/bondchat-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed      = errors.New("history store closed")
	ErrEmptyThread = errors.New("empty thread id")
)

// =============================================================================
// STORE
// =============================================================================

// Store caches decoded chat messages per thread.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	thread_id   TEXT    NOT NULL,
	seq         INTEGER NOT NULL,
	id          TEXT    NOT NULL,
	role        TEXT    NOT NULL,
	kind        INTEGER NOT NULL,
	text        TEXT    NOT NULL,
	image_b64   TEXT    NOT NULL DEFAULT '',
	is_error    INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL,
	PRIMARY KEY (thread_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id);
`

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite supports one writer at a time; keep the pool at one
	// connection so writes never contend.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Append stores messages at the end of a thread's cached history.
func (s *Store) Append(ctx context.Context, threadID string, msgs ...model.ChatMessage) error {
	if s.db == nil {
		return ErrClosed
	}
	if threadID == "" {
		return ErrEmptyThread
	}
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var next int64
	row := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM messages WHERE thread_id = ?`, threadID)
	if err := row.Scan(&next); err != nil {
		return fmt.Errorf("failed to read sequence: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (thread_id, seq, id, role, kind, text, image_b64, is_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range msgs {
		isErr := 0
		if m.IsError {
			isErr = 1
		}
		ts := m.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			threadID, next+int64(i), m.ID, string(m.Role), int(m.Kind),
			m.Text, m.ImageBase64, isErr, ts.Unix()); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	return tx.Commit()
}

// Load returns a thread's cached messages in insertion order.
func (s *Store) Load(ctx context.Context, threadID string) ([]model.ChatMessage, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	if threadID == "" {
		return nil, ErrEmptyThread
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, kind, text, image_b64, is_error, created_at
		FROM messages WHERE thread_id = ? ORDER BY seq`, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.ChatMessage
	for rows.Next() {
		var (
			m       model.ChatMessage
			role    string
			kind    int
			isErr   int
			created int64
		)
		if err := rows.Scan(&m.ID, &role, &kind, &m.Text, &m.ImageBase64, &isErr, &created); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = model.Role(role)
		m.Kind = model.ContentKind(kind)
		m.IsError = isErr != 0
		m.ThreadID = threadID
		m.Timestamp = time.Unix(created, 0)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Replace swaps a thread's cached history for a fresh copy, typically
// after a successful remote fetch.
func (s *Store) Replace(ctx context.Context, threadID string, msgs []model.ChatMessage) error {
	if err := s.Clear(ctx, threadID); err != nil {
		return err
	}
	return s.Append(ctx, threadID, msgs...)
}

// Clear removes a thread's cached messages.
func (s *Store) Clear(ctx context.Context, threadID string) error {
	if s.db == nil {
		return ErrClosed
	}
	if threadID == "" {
		return ErrEmptyThread
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE thread_id = ?`, threadID)
	return err
}
