/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"testing"

	"formpress/internal/domain"
	"formpress/internal/geometry"
)

func TestCreateAssignsIdentityAndDefaults(t *testing.T) {
	s := New("doc-1")
	f, err := s.Create(1, geometry.Pt{X: 100, Y: 200}, domain.InputText)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if f.ID == "" || f.Slug == "" {
		t.Fatalf("missing identity: %+v", f)
	}
	if f.DocumentID != "doc-1" {
		t.Fatalf("wrong document id: %q", f.DocumentID)
	}
	if f.XCoord != 100 || f.YCoord != 200 {
		t.Fatalf("placement: (%v, %v)", f.XCoord, f.YCoord)
	}
	if f.Width <= 0 || f.Height <= 0 {
		t.Fatalf("default geometry not positive: %+v", f)
	}
	if f.Text == nil || f.Text.FontSize < domain.MinFontSize {
		t.Fatalf("text defaults missing: %+v", f.Text)
	}
	sel, ok := s.SelectedField()
	if !ok || sel.ID != f.ID {
		t.Fatalf("new field should be selected")
	}
}

func TestCreateRejectsUnknownKind(t *testing.T) {
	s := New("doc-1")
	if _, err := s.Create(1, geometry.Pt{}, domain.InputType("BOGUS")); err == nil {
		t.Fatalf("expected error for unknown input type")
	}
}

func TestUniqueIDsAndSlugs(t *testing.T) {
	s := New("doc-1")
	ids := map[string]bool{}
	slugs := map[string]bool{}
	for i := 0; i < 20; i++ {
		f, err := s.Create(1, geometry.Pt{}, domain.InputText)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if ids[f.ID] {
			t.Fatalf("duplicate id %s", f.ID)
		}
		if slugs[f.Slug] {
			t.Fatalf("duplicate slug %s", f.Slug)
		}
		ids[f.ID] = true
		slugs[f.Slug] = true
	}
}

func TestUpdateClampsGeometry(t *testing.T) {
	s := New("doc-1")
	f, _ := s.Create(1, geometry.Pt{X: 10, Y: 10}, domain.InputText)

	neg := -50.0
	tiny := 0.0001
	s.Update(f.ID, Patch{XCoord: &neg, YCoord: &neg, Width: &tiny, Height: &tiny})

	got := s.Fields()[0]
	if got.XCoord != 0 || got.YCoord != 0 {
		t.Fatalf("coordinates not clamped: %+v", got)
	}
	if got.Width < 1 || got.Height < 1 {
		t.Fatalf("dimensions not floored: %+v", got)
	}
}

func TestUpdateMissingIDIsNoOp(t *testing.T) {
	s := New("doc-1")
	s.Create(1, geometry.Pt{}, domain.InputText)
	before := s.Fields()[0]
	x := 42.0
	s.Update("no-such-id", Patch{XCoord: &x})
	after := s.Fields()[0]
	if before.XCoord != after.XCoord || before.UpdatedAt != after.UpdatedAt {
		t.Fatalf("no-op update changed state")
	}
}

func TestUpdateFontSizeFloor(t *testing.T) {
	s := New("doc-1")
	f, _ := s.Create(1, geometry.Pt{}, domain.InputText)
	s.Update(f.ID, Patch{Text: &domain.TextStyle{FontFamily: "Helvetica", FontSize: 0.5}})
	got := s.Fields()[0]
	if got.Text.FontSize < domain.MinFontSize {
		t.Fatalf("font size below floor: %v", got.Text.FontSize)
	}
}

func TestDeleteClearsSelection(t *testing.T) {
	s := New("doc-1")
	f, _ := s.Create(1, geometry.Pt{}, domain.InputText)
	s.Delete(f.ID)
	if s.Len() != 0 {
		t.Fatalf("field not deleted")
	}
	if _, ok := s.SelectedField(); ok {
		t.Fatalf("selection should be cleared")
	}
	s.Delete(f.ID) // deleting again is a no-op
}

func TestDuplicateOffsetsAndRenames(t *testing.T) {
	s := New("doc-1")
	f, _ := s.Create(1, geometry.Pt{X: 30, Y: 40}, domain.InputCheckbox)
	c, ok := s.Duplicate(f.ID)
	if !ok {
		t.Fatalf("duplicate failed")
	}
	if c.ID == f.ID || c.Slug == f.Slug {
		t.Fatalf("duplicate must get fresh identity: %+v", c)
	}
	if c.XCoord <= f.XCoord || c.YCoord <= f.YCoord {
		t.Fatalf("duplicate not offset: %+v", c)
	}
	if c.Border == nil || !c.Border.Enabled {
		t.Fatalf("style not cloned: %+v", c)
	}
	// style is a deep copy, not shared
	s.Update(c.ID, Patch{Border: &domain.BorderStyle{Enabled: false}})
	orig := s.FieldsForPage(1)[0]
	if !orig.Border.Enabled {
		t.Fatalf("duplicate shares style with source")
	}
}

func TestFieldsForPageAndCounts(t *testing.T) {
	s := New("doc-1")
	s.Create(1, geometry.Pt{}, domain.InputText)
	s.Create(2, geometry.Pt{}, domain.InputText)
	s.Create(2, geometry.Pt{}, domain.InputCheckbox)

	if n := len(s.FieldsForPage(2)); n != 2 {
		t.Fatalf("expected 2 fields on page 2, got %d", n)
	}
	counts := s.CountsByPage()
	if counts[1] != 1 || counts[2] != 2 {
		t.Fatalf("counts: %v", counts)
	}
}

func TestReorderPagesKeepsFieldPageNumbers(t *testing.T) {
	s := New("doc-1")
	s.Create(1, geometry.Pt{}, domain.InputText)
	s.Create(2, geometry.Pt{}, domain.InputText)
	s.ReorderPages([]int{2, 1})
	order := s.PageOrder()
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("display order: %v", order)
	}
	for _, f := range s.Fields() {
		if f.PageNumber != 1 && f.PageNumber != 2 {
			t.Fatalf("native page number changed: %+v", f)
		}
	}
}

func TestOnChangeFiresPerMutation(t *testing.T) {
	s := New("doc-1")
	var calls int
	var last []domain.Field
	s.SetOnChange(func(fields []domain.Field) {
		calls++
		last = fields
	})
	f, _ := s.Create(1, geometry.Pt{}, domain.InputText)
	x := 7.0
	s.Update(f.ID, Patch{XCoord: &x})
	s.Delete(f.ID)
	if calls != 3 {
		t.Fatalf("expected 3 notifications, got %d", calls)
	}
	if len(last) != 0 {
		t.Fatalf("last notification should carry the empty collection")
	}
}

func TestImportReplacesWithoutNotify(t *testing.T) {
	s := New("doc-1")
	var calls int
	s.SetOnChange(func([]domain.Field) { calls++ })
	s.Import([]domain.Field{{ID: "a", DocumentID: "doc-1", Slug: "a", InputType: domain.InputText, PageNumber: 1, Width: 10, Height: 10}})
	if calls != 0 {
		t.Fatalf("import must not notify, got %d calls", calls)
	}
	if s.Len() != 1 {
		t.Fatalf("import did not replace collection")
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Text Field 1":    "text-field-1",
		"  Hello  World ": "hello-world",
		"Ünicode!! Label": "nicode-label",
		"":                "field",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
