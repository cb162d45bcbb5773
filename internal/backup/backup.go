/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package backup is the local durability channel: an embedded SQLite store
// holding, per document, the latest field-collection snapshot and the
// pending remote-sync marker. The snapshot write happens synchronously on
// every observed change and is the crash-recovery line of defense; the
// pending marker keeps a failed remote write's obligation alive across
// process restarts.
package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"formpress/internal/domain"
	applog "formpress/internal/log"
	"formpress/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// DefaultFileName is the store file under the user data directory.
	DefaultFileName = "backup.sqlite"

	// schemaVersion tracks the local SQLite schema. Bump on breaking changes
	// and add a migration.
	schemaVersion = 1
)

// language=SQL
// dialect=SQLite
const upsertSnapshotSQL = `INSERT INTO snapshots(document_id, fields, ts) VALUES (?, ?, ?)
	ON CONFLICT(document_id) DO UPDATE SET fields=excluded.fields, ts=excluded.ts`

// language=SQL
// dialect=SQLite
const selectSnapshotSQL = `SELECT fields, ts FROM snapshots WHERE document_id = ?`

// language=SQL
// dialect=SQLite
const deleteSnapshotSQL = `DELETE FROM snapshots WHERE document_id = ?`

// language=SQL
// dialect=SQLite
const upsertPendingSQL = `INSERT INTO pending_sync(document_id, fields, ts, retry_count) VALUES (?, ?, ?, ?)
	ON CONFLICT(document_id) DO UPDATE SET fields=excluded.fields, ts=excluded.ts, retry_count=excluded.retry_count`

// language=SQL
// dialect=SQLite
const selectPendingSQL = `SELECT fields, ts, retry_count FROM pending_sync WHERE document_id = ?`

// language=SQL
// dialect=SQLite
const deletePendingSQL = `DELETE FROM pending_sync WHERE document_id = ?`

// Store wraps the embedded database. Open once per process; it is keyed
// per-document inside, so one open-document session per process means a
// single writer per key.
type Store struct {
	db *sql.DB
}

// Open ensures the parent directory exists, opens the database, enables WAL
// mode, and brings the schema up to date.
func Open(path string) (*Store, error) {
	l := applog.WithOperation(applog.WithComponent("backup"), "open").With(slog.String("path", path))
	if path == "" {
		return nil, errors.New("backup store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	l.Debug("backup store ready")
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id         INTEGER PRIMARY KEY CHECK(id=1),
			schema     INTEGER NOT NULL,
			app        TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			document_id TEXT PRIMARY KEY,
			fields      BLOB NOT NULL,
			ts          TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS pending_sync (
			document_id TEXT PRIMARY KEY,
			fields      BLOB NOT NULL,
			ts          TEXT NOT NULL,
			retry_count INTEGER NOT NULL DEFAULT 0
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// SaveSnapshot serializes the collection and replaces the document's local
// snapshot. Called synchronously on every observed change.
func (s *Store) SaveSnapshot(ctx context.Context, documentID string, fields []domain.Field, ts time.Time) error {
	if documentID == "" {
		return errors.New("document id is required")
	}
	blob, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	_, err = s.db.ExecContext(ctx, upsertSnapshotSQL, documentID, blob, ts.UTC().Format(time.RFC3339Nano))
	return err
}

// LoadSnapshot returns the document's local snapshot, or nil if none exists
// or the stored payload fails schema validation.
func (s *Store) LoadSnapshot(ctx context.Context, documentID string) (*domain.LocalSnapshot, error) {
	var blob []byte
	var tsStr string
	err := s.db.QueryRowContext(ctx, selectSnapshotSQL, documentID).Scan(&blob, &tsStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateFieldsJSON(blob); err != nil {
		return nil, fmt.Errorf("stored snapshot rejected: %w", err)
	}
	var fields []domain.Field
	if err := json.Unmarshal(blob, &fields); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, tsStr)
	if err != nil {
		ts = time.Time{}
	}
	return &domain.LocalSnapshot{DocumentID: documentID, Fields: fields, Timestamp: ts}, nil
}

// ClearSnapshot removes the document's local snapshot. Called after a
// successful remote write; an optimization, not a correctness requirement.
func (s *Store) ClearSnapshot(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, deleteSnapshotSQL, documentID)
	return err
}

// SavePending persists a remote-write obligation so a reload cannot lose it.
func (s *Store) SavePending(ctx context.Context, p domain.PendingSync) error {
	if p.DocumentID == "" {
		return errors.New("document id is required")
	}
	blob, err := json.Marshal(p.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	_, err = s.db.ExecContext(ctx, upsertPendingSQL, p.DocumentID, blob, p.Timestamp.UTC().Format(time.RFC3339Nano), p.RetryCount)
	return err
}

// LoadPending returns the document's pending-sync marker, or nil if none.
func (s *Store) LoadPending(ctx context.Context, documentID string) (*domain.PendingSync, error) {
	var blob []byte
	var tsStr string
	var retries int
	err := s.db.QueryRowContext(ctx, selectPendingSQL, documentID).Scan(&blob, &tsStr, &retries)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateFieldsJSON(blob); err != nil {
		return nil, fmt.Errorf("stored pending marker rejected: %w", err)
	}
	var fields []domain.Field
	if err := json.Unmarshal(blob, &fields); err != nil {
		return nil, fmt.Errorf("decode pending marker: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, tsStr)
	if err != nil {
		ts = time.Time{}
	}
	return &domain.PendingSync{DocumentID: documentID, Fields: fields, Timestamp: ts, RetryCount: retries}, nil
}

// ClearPending removes the document's pending-sync marker.
func (s *Store) ClearPending(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, deletePendingSQL, documentID)
	return err
}

// DefaultPath returns the per-user location of the backup store.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, "formpress", DefaultFileName), nil
}
