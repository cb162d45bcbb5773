/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"formpress/internal/backup"
	"formpress/internal/domain"
	"formpress/internal/geometry"
	"formpress/internal/syncer"
)

type fakeRemote struct {
	mu     sync.Mutex
	stored map[string][]domain.Field
	saves  int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{stored: make(map[string][]domain.Field)}
}

func (f *fakeRemote) LoadFields(_ context.Context, documentID string) ([]domain.Field, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.CloneFields(f.stored[documentID]), nil
}

func (f *fakeRemote) SaveFields(_ context.Context, documentID string, fields []domain.Field) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored[documentID] = domain.CloneFields(fields)
	f.saves++
	return nil
}

func (f *fakeRemote) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

func (f *fakeRemote) fieldCount(documentID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stored[documentID])
}

func testConfig() syncer.Config {
	return syncer.Config{
		Debounce:     20 * time.Millisecond,
		RetryDelay:   20 * time.Millisecond,
		MaxRetries:   3,
		WriteTimeout: 2 * time.Second,
		Freshness:    24 * time.Hour,
	}
}

func openLocal(t *testing.T) *backup.Store {
	t.Helper()
	local, err := backup.Open(filepath.Join(t.TempDir(), "backup.db"))
	if err != nil {
		t.Fatalf("open backup: %v", err)
	}
	t.Cleanup(func() { local.Close() })
	return local
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestOpenPopulatesStoreFromRemote(t *testing.T) {
	remote := newFakeRemote()
	remote.stored["doc-1"] = []domain.Field{{
		ID: "f1", DocumentID: "doc-1", Slug: "name", Label: "Name",
		InputType: domain.InputText, PageNumber: 1, XCoord: 10, YCoord: 10, Width: 120, Height: 24,
	}}

	s, err := Open(context.Background(), "doc-1", openLocal(t), remote, testConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close(context.Background())

	if s.Store().Len() != 1 {
		t.Fatalf("store has %d fields, want 1", s.Store().Len())
	}
	if s.Engine().State() != syncer.StateSteady {
		t.Fatalf("state = %v, want steady", s.Engine().State())
	}
}

func TestMutationFlowsToRemote(t *testing.T) {
	remote := newFakeRemote()
	s, err := Open(context.Background(), "doc-1", openLocal(t), remote, testConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close(context.Background())

	if _, err := s.Store().Create(1, geometry.Pt{X: 50, Y: 60}, domain.InputText); err != nil {
		t.Fatalf("create: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return remote.fieldCount("doc-1") == 1 })
}

func TestUndoRestoresAndSyncs(t *testing.T) {
	remote := newFakeRemote()
	s, err := Open(context.Background(), "doc-1", openLocal(t), remote, testConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close(context.Background())

	f, _ := s.Store().Create(1, geometry.Pt{X: 50, Y: 60}, domain.InputText)
	waitFor(t, 2*time.Second, func() bool { return remote.fieldCount("doc-1") == 1 })

	// Let the undo coalescing interval pass so the delete gets its own entry.
	time.Sleep(300 * time.Millisecond)
	s.Store().Delete(f.ID)
	waitFor(t, 2*time.Second, func() bool { return remote.fieldCount("doc-1") == 0 })

	if !s.Undo() {
		t.Fatalf("undo should succeed")
	}
	if s.Store().Len() != 1 {
		t.Fatalf("store has %d fields after undo, want 1", s.Store().Len())
	}
	waitFor(t, 2*time.Second, func() bool { return remote.fieldCount("doc-1") == 1 })

	if !s.Redo() {
		t.Fatalf("redo should succeed")
	}
	if s.Store().Len() != 0 {
		t.Fatalf("store has %d fields after redo, want 0", s.Store().Len())
	}
}

func TestUndoEmptyHistory(t *testing.T) {
	remote := newFakeRemote()
	s, err := Open(context.Background(), "doc-1", openLocal(t), remote, testConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close(context.Background())
	if s.Undo() {
		t.Fatalf("undo on empty history should return false")
	}
}

func TestLoadBackupIfNewer(t *testing.T) {
	ctx := context.Background()
	local := openLocal(t)
	remote := newFakeRemote()

	// A crashed previous session left a two-field snapshot behind.
	crashFields := []domain.Field{
		{ID: "f1", DocumentID: "doc-1", Slug: "a", Label: "A", InputType: domain.InputText, PageNumber: 1, XCoord: 1, YCoord: 1, Width: 120, Height: 24},
		{ID: "f2", DocumentID: "doc-1", Slug: "b", Label: "B", InputType: domain.InputText, PageNumber: 1, XCoord: 2, YCoord: 2, Width: 120, Height: 24},
	}

	s, err := Open(ctx, "doc-1", local, remote, testConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close(ctx)

	if err := local.SaveSnapshot(ctx, "doc-1", crashFields, time.Now()); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	applied, err := s.LoadBackupIfNewer(ctx)
	if err != nil {
		t.Fatalf("load backup: %v", err)
	}
	if !applied {
		t.Fatalf("snapshot with more fields should be applied")
	}
	if s.Store().Len() != 2 {
		t.Fatalf("store has %d fields, want 2", s.Store().Len())
	}

	// A second call finds nothing newer.
	applied, err = s.LoadBackupIfNewer(ctx)
	if err != nil {
		t.Fatalf("load backup: %v", err)
	}
	if applied {
		t.Fatalf("equal-sized snapshot should not be applied")
	}
}

func TestManagerSwitchesDocuments(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	m := NewManager(openLocal(t), remote, testConfig())

	s1, err := m.OpenDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("open doc-1: %v", err)
	}
	if _, err := s1.Store().Create(1, geometry.Pt{X: 10, Y: 10}, domain.InputText); err != nil {
		t.Fatalf("create: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return remote.fieldCount("doc-1") == 1 })

	s2, err := m.OpenDocument(ctx, "doc-2")
	if err != nil {
		t.Fatalf("open doc-2: %v", err)
	}
	if s2 == s1 {
		t.Fatalf("expected a fresh session for doc-2")
	}
	if m.Current() != s2 {
		t.Fatalf("manager should track the new session")
	}

	// The old session is closed: its mutations no longer reach the pipeline.
	before := remote.saveCount()
	s1.Store().Create(1, geometry.Pt{X: 20, Y: 20}, domain.InputText)
	time.Sleep(100 * time.Millisecond)
	if remote.saveCount() != before {
		t.Fatalf("closed session should not produce remote writes")
	}

	// Reopening the current document is a no-op.
	again, err := m.OpenDocument(ctx, "doc-2")
	if err != nil {
		t.Fatalf("reopen doc-2: %v", err)
	}
	if again != s2 {
		t.Fatalf("reopening the open document should return the same session")
	}
	m.CloseAll(ctx)
	if m.Current() != nil {
		t.Fatalf("CloseAll should clear the current session")
	}
}

func TestCloseWritesLastChanceSnapshot(t *testing.T) {
	ctx := context.Background()
	local := openLocal(t)
	remote := newFakeRemote()

	// Hour-long debounce so the remote write never fires in this test.
	cfg := testConfig()
	cfg.Debounce = time.Hour

	s, err := Open(ctx, "doc-1", local, remote, cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.Store().Create(1, geometry.Pt{X: 10, Y: 10}, domain.InputText); err != nil {
		t.Fatalf("create: %v", err)
	}
	s.Close(ctx)

	snap, err := local.LoadSnapshot(ctx, "doc-1")
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if snap == nil || len(snap.Fields) != 1 {
		t.Fatalf("last-chance snapshot missing or wrong size: %+v", snap)
	}
	// Closing twice is harmless.
	s.Close(ctx)
}
