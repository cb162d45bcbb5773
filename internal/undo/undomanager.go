/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"
	"time"
)

// Snapshot represents a reversible field-collection state for a document.
// Blob content is opaque to the manager; size is estimated as len(Blob).
// TS is when the snapshot was captured.
type Snapshot struct {
	DocumentID string
	Blob       []byte
	TS         time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerDocument limits snapshots per document kept in memory (0 means unlimited).
	MaxPerDocument int
	// MinInterval coalesces snapshots captured within the interval for the
	// same document, replacing the previous one instead of pushing a new
	// entry. Keeps a drag from flooding the stack.
	MinInterval time.Duration
}

// Manager provides an in-memory undo/redo stack per document with
// performance safeguards. It is safe for concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex
	// per-document stacks
	undo map[string][]Snapshot
	redo map[string][]Snapshot
	// accounting
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	// Set conservative defaults if not provided
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &Manager{cfg: cfg, undo: make(map[string][]Snapshot), redo: make(map[string][]Snapshot)}
}

// PushSnapshot records the state a document had before a change. If within
// MinInterval from the last snapshot on the same document, it replaces the
// last one. Clears the redo stack for that document.
func (m *Manager) PushSnapshot(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[s.DocumentID]
	if n := len(stack); n > 0 {
		last := stack[n-1]
		if s.TS.Sub(last.TS) < m.cfg.MinInterval {
			// Coalesce: adjust accounting and replace
			m.totalBytes -= len(last.Blob)
			m.totalBytes += len(s.Blob)
			stack[n-1] = s
			m.undo[s.DocumentID] = stack
			m.redo[s.DocumentID] = nil
			m.enforceCapsLocked(s.DocumentID)
			return
		}
	}
	stack = append(stack, s)
	m.undo[s.DocumentID] = stack
	m.totalBytes += len(s.Blob)
	// Any new change invalidates redo for the document
	m.redo[s.DocumentID] = nil
	m.enforceCapsLocked(s.DocumentID)
}

// Undo pops the prior state for a document and records current on the redo
// stack, so a later Redo can restore it. Returns false when there is nothing
// to undo.
func (m *Manager) Undo(documentID string, current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[documentID]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[documentID] = stack[:len(stack)-1]
	m.totalBytes -= len(s.Blob)
	m.redo[documentID] = append(m.redo[documentID], current)
	return s, true
}

// Redo pops the most recently undone state and records current back on the
// undo stack.
func (m *Manager) Redo(documentID string, current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[documentID]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[documentID] = r[:len(r)-1]
	m.undo[documentID] = append(m.undo[documentID], current)
	m.totalBytes += len(current.Blob)
	m.enforceCapsLocked(documentID)
	return s, true
}

// ClearDocument clears undo/redo stacks for a document to free memory.
func (m *Manager) ClearDocument(documentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[documentID] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.undo, documentID)
	delete(m.redo, documentID)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, documents int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	documents = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	return m.totalBytes, documents, totalSnapshots
}

func (m *Manager) enforceCapsLocked(documentID string) {
	// Per-document depth cap
	if m.cfg.MaxPerDocument > 0 {
		stack := m.undo[documentID]
		if len(stack) > m.cfg.MaxPerDocument {
			toDrop := len(stack) - m.cfg.MaxPerDocument
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[documentID] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune oldest across all documents
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldestDoc := ""
		oldestIdx := -1
		var oldestTS time.Time
		for doc, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if oldestIdx == -1 || stack[0].TS.Before(oldestTS) {
				oldestDoc = doc
				oldestIdx = 0
				oldestTS = stack[0].TS
			}
		}
		if oldestIdx == -1 {
			break
		}
		stack := m.undo[oldestDoc]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldestDoc] = stack[1:]
		if len(m.undo[oldestDoc]) == 0 {
			delete(m.undo, oldestDoc)
		}
	}
}
