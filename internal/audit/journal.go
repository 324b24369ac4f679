// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audit keeps a local SQLite journal of session lifecycle events:
// sign-in, warnings, extensions, expiry and sign-out.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/campustour-tui/internal/session"
)

// recordTimeout bounds a journal write made from a watchdog callback.
const recordTimeout = 2 * time.Second

// ErrClosed is returned after Close.
var ErrClosed = errors.New("audit journal closed")

// Entry is one journaled event.
type Entry struct {
	ID        int64
	SessionID string
	Kind      string
	At        time.Time
	Detail    string
}

// Journal is an append-only session event log.
type Journal struct {
	db  *sql.DB
	log *logrus.Entry
}

// Open opens or creates the journal at path. Use ":memory:" for a
// throwaway journal.
func Open(path string, logger *logrus.Logger) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps ":memory:"
	// pointing at one database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(`INSERT OR REPLACE INTO metadata(key, value) VALUES ('schema_version', ?)`,
		strconv.Itoa(SchemaVersion)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to write schema version: %w", err)
	}

	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Journal{db: db, log: logger.WithField("component", "audit")}, nil
}

// Record appends e. A zero At is stored as the current time.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if j.db == nil {
		return ErrClosed
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO session_events(session_id, kind, at, detail) VALUES (?, ?, ?, ?)`,
		e.SessionID, e.Kind, e.At.UnixNano(), e.Detail)
	if err != nil {
		return fmt.Errorf("record %s: %w", e.Kind, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if j.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, session_id, kind, at, detail FROM session_events ORDER BY at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			at int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &at, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.At = time.Unix(0, at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the database. Safe to call more than once.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

// =============================================================================
// WATCHDOG OBSERVER
// =============================================================================

// Observe journals watchdog transitions. Countdown ticks and activity
// resets are skipped: they fire up to once per second and Observe runs on
// the caller's goroutine. The returned function detaches the observer.
func (j *Journal) Observe(wd *session.Watchdog) (cancel func()) {
	id := wd.ID()
	return wd.Subscribe(func(ev session.Event) {
		switch ev.Kind {
		case session.EventTick, session.EventReset:
			return
		}
		e := Entry{
			SessionID: id,
			Kind:      ev.Kind.String(),
			At:        time.Now(),
			Detail:    detailFor(ev),
		}
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := j.Record(ctx, e); err != nil {
			j.log.WithError(err).WithField("kind", e.Kind).Warn("failed to journal session event")
		}
	})
}

func detailFor(ev session.Event) string {
	switch {
	case ev.Err != nil:
		return ev.Err.Error()
	case ev.Kind == session.EventWarning:
		return fmt.Sprintf("remaining=%ds", ev.State.SecondsRemaining())
	}
	return ""
}
