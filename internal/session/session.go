/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session binds one document's field store to one sync engine. The
// session owns the lifecycle: reconcile on open, observer wiring while live,
// last-chance snapshot and timer teardown on close. Switching documents goes
// through the Manager so the outgoing engine's timers are cancelled before
// the next document loads.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"formpress/internal/backup"
	"formpress/internal/domain"
	applog "formpress/internal/log"
	"formpress/internal/store"
	"formpress/internal/syncer"
	"formpress/internal/telemetry"
	"formpress/internal/undo"
)

// Session is one open document: a field store, its sync engine, and an undo
// history. Create through Open or Manager.OpenDocument.
type Session struct {
	documentID string
	store      *store.Store
	engine     *syncer.Engine
	local      *backup.Store
	history    *undo.Manager
	log        *slog.Logger

	mu      sync.Mutex
	current []byte // marshaled current collection, undo bookkeeping
	closed  bool
}

// Open reconciles the document's durable copies and returns a live session.
// The store is populated with the reconciled collection and wired to the
// engine; every later mutation flows through both durability channels.
func Open(ctx context.Context, documentID string, local *backup.Store, remote syncer.RemoteStore, cfg syncer.Config) (*Session, error) {
	if documentID == "" {
		return nil, errors.New("session: empty document id")
	}
	engine := syncer.New(documentID, local, remote, cfg)
	engine.OnRetriesExhausted = func(_ string, attempts int) {
		telemetry.SyncFailure(attempts)
	}
	fields, err := engine.Reconcile(ctx)
	if err != nil {
		engine.Close()
		return nil, err
	}

	s := &Session{
		documentID: documentID,
		store:      store.New(documentID),
		engine:     engine,
		local:      local,
		history:    undo.NewManager(undo.Config{}),
		log:        applog.WithComponent("session").With(slog.String("doc", documentID)),
	}
	s.store.Import(fields)
	s.current = marshal(fields)
	s.store.SetOnChange(s.onStoreChange)
	s.log.Info("session opened", slog.Int("fields", len(fields)))
	return s, nil
}

// DocumentID returns the document this session serves.
func (s *Session) DocumentID() string { return s.documentID }

// Store exposes the field store for editing operations.
func (s *Session) Store() *store.Store { return s.store }

// Engine exposes the sync engine, mainly for status queries.
func (s *Session) Engine() *syncer.Engine { return s.engine }

// onStoreChange runs on every store mutation: feed the sync pipeline and
// record the prior state for undo.
func (s *Session) onStoreChange(fields []domain.Field) {
	blob := marshal(fields)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	prior := s.current
	s.current = blob
	s.mu.Unlock()

	s.history.PushSnapshot(undo.Snapshot{DocumentID: s.documentID, Blob: prior, TS: time.Now()})
	s.engine.OnChange(fields)
}

// Undo restores the previous field collection state. Returns false when the
// history is empty. The restored state re-enters the sync pipeline like any
// other change.
func (s *Session) Undo() bool {
	return s.restore(func(cur undo.Snapshot) (undo.Snapshot, bool) {
		return s.history.Undo(s.documentID, cur)
	})
}

// Redo re-applies the most recently undone state.
func (s *Session) Redo() bool {
	return s.restore(func(cur undo.Snapshot) (undo.Snapshot, bool) {
		return s.history.Redo(s.documentID, cur)
	})
}

func (s *Session) restore(step func(undo.Snapshot) (undo.Snapshot, bool)) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	cur := undo.Snapshot{DocumentID: s.documentID, Blob: s.current, TS: time.Now()}
	prev, ok := step(cur)
	if !ok {
		s.mu.Unlock()
		return false
	}
	var fields []domain.Field
	if err := json.Unmarshal(prev.Blob, &fields); err != nil {
		s.log.Error("undo snapshot unreadable", slog.Any("err", err))
		s.mu.Unlock()
		return false
	}
	s.current = prev.Blob
	s.mu.Unlock()

	// Import bypasses the store observer, so the sync channels are fed
	// explicitly. A restored state is a real change and must persist.
	s.store.Import(fields)
	s.engine.OnChange(fields)
	return true
}

// LoadBackupIfNewer checks whether the local snapshot holds more work than
// the live collection (a crashed previous session, typically) and restores it
// when so. Returns true when the snapshot was applied.
func (s *Session) LoadBackupIfNewer(ctx context.Context) (bool, error) {
	snap, err := s.local.LoadSnapshot(ctx, s.documentID)
	if err != nil {
		return false, err
	}
	if snap == nil || len(snap.Fields) <= s.store.Len() {
		return false, nil
	}
	s.log.Info("restoring local snapshot over live state",
		slog.Int("snapshot_fields", len(snap.Fields)), slog.Int("live_fields", s.store.Len()))

	s.mu.Lock()
	s.current = marshal(snap.Fields)
	s.mu.Unlock()

	s.store.Import(snap.Fields)
	s.engine.OnChange(snap.Fields)
	return true, nil
}

// HandleOnline forwards the connectivity signal to the engine.
func (s *Session) HandleOnline() { s.engine.HandleOnline() }

// ForceSave flushes both durability channels immediately.
func (s *Session) ForceSave(ctx context.Context) error { return s.engine.ForceSave(ctx) }

// Close writes a last-chance local snapshot, cancels the engine's timers, and
// drops the undo history. Safe to call more than once.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.engine.Unload(ctx)
	s.engine.Close()
	s.history.ClearDocument(s.documentID)
	s.log.Info("session closed")
}

func marshal(fields []domain.Field) []byte {
	b, err := json.Marshal(fields)
	if err != nil {
		// Field is a plain data struct; marshal cannot fail in practice.
		return []byte("[]")
	}
	return b
}

// Manager serializes document switching: at most one session is open, and the
// previous one is fully closed (timers cancelled, snapshot written) before
// the next document reconciles.
type Manager struct {
	local  *backup.Store
	remote syncer.RemoteStore
	cfg    syncer.Config

	mu      sync.Mutex
	current *Session
}

func NewManager(local *backup.Store, remote syncer.RemoteStore, cfg syncer.Config) *Manager {
	return &Manager{local: local, remote: remote, cfg: cfg}
}

// OpenDocument closes any current session and opens the given document.
// Reopening the already-open document is a no-op.
func (m *Manager) OpenDocument(ctx context.Context, documentID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		if m.current.DocumentID() == documentID {
			return m.current, nil
		}
		m.current.Close(ctx)
		m.current = nil
	}
	s, err := Open(ctx, documentID, m.local, m.remote, m.cfg)
	if err != nil {
		return nil, err
	}
	m.current = s
	return s, nil
}

// Current returns the open session, or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// CloseAll closes the open session, if any.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.Close(ctx)
		m.current = nil
	}
}
