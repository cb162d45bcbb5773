/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"formpress/internal/domain"
)

func testFields(docID string) []domain.Field {
	return []domain.Field{
		{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", DocumentID: docID, Slug: "text-field-1", Label: "Text Field 1",
			InputType: domain.InputText, PageNumber: 1, XCoord: 100, YCoord: 200, Width: 150, Height: 20},
		{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAW", DocumentID: docID, Slug: "checkbox-1", Label: "Checkbox 1",
			InputType: domain.InputCheckbox, PageNumber: 2, XCoord: 10, YCoord: 10, Width: 16, Height: 16},
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "backup.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ts := time.Now()

	if err := s.SaveSnapshot(ctx, "doc-1", testFields("doc-1"), ts); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap, err := s.LoadSnapshot(ctx, "doc-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap == nil {
		t.Fatalf("expected snapshot")
	}
	if len(snap.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(snap.Fields))
	}
	if snap.Fields[0].XCoord != 100 || snap.Fields[0].Slug != "text-field-1" {
		t.Fatalf("field content mangled: %+v", snap.Fields[0])
	}
	if snap.Timestamp.Unix() != ts.Unix() {
		t.Fatalf("timestamp mismatch: %v vs %v", snap.Timestamp, ts)
	}
}

func TestSnapshotOverwrite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveSnapshot(ctx, "doc-1", testFields("doc-1"), time.Now()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveSnapshot(ctx, "doc-1", testFields("doc-1")[:1], time.Now()); err != nil {
		t.Fatalf("save 2: %v", err)
	}
	snap, err := s.LoadSnapshot(ctx, "doc-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Fields) != 1 {
		t.Fatalf("expected overwrite with 1 field, got %d", len(snap.Fields))
	}
}

func TestSnapshotMissingIsNil(t *testing.T) {
	s := openTestStore(t)
	snap, err := s.LoadSnapshot(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap != nil {
		t.Fatalf("expected nil snapshot, got %+v", snap)
	}
}

func TestSnapshotsAreKeyedPerDocument(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.SaveSnapshot(ctx, "doc-a", testFields("doc-a"), time.Now()); err != nil {
		t.Fatalf("save a: %v", err)
	}
	if err := s.SaveSnapshot(ctx, "doc-b", testFields("doc-b")[:1], time.Now()); err != nil {
		t.Fatalf("save b: %v", err)
	}
	if err := s.ClearSnapshot(ctx, "doc-a"); err != nil {
		t.Fatalf("clear a: %v", err)
	}
	if snap, _ := s.LoadSnapshot(ctx, "doc-a"); snap != nil {
		t.Fatalf("doc-a should be cleared")
	}
	if snap, _ := s.LoadSnapshot(ctx, "doc-b"); snap == nil || len(snap.Fields) != 1 {
		t.Fatalf("doc-b affected by doc-a clear")
	}
}

func TestPendingMarkerRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := domain.PendingSync{
		DocumentID: "doc-1",
		Fields:     testFields("doc-1"),
		Timestamp:  time.Now(),
		RetryCount: 3,
	}
	if err := s.SavePending(ctx, p); err != nil {
		t.Fatalf("save pending: %v", err)
	}
	got, err := s.LoadPending(ctx, "doc-1")
	if err != nil {
		t.Fatalf("load pending: %v", err)
	}
	if got == nil || got.RetryCount != 3 || len(got.Fields) != 2 {
		t.Fatalf("pending marker: %+v", got)
	}
	if err := s.ClearPending(ctx, "doc-1"); err != nil {
		t.Fatalf("clear pending: %v", err)
	}
	if got, _ := s.LoadPending(ctx, "doc-1"); got != nil {
		t.Fatalf("pending should be cleared")
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backup.sqlite")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.SaveSnapshot(ctx, "doc-1", testFields("doc-1"), time.Now()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s2.Close() }()
	snap, err := s2.LoadSnapshot(ctx, "doc-1")
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if snap == nil || len(snap.Fields) != 2 {
		t.Fatalf("snapshot lost across reopen")
	}
}
