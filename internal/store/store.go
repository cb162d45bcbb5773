/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package store holds the authoritative in-memory field collection for one
// open document. The collection is keyed by id and iterated in insertion
// order (z-ordering fallback only). All mutation goes through this API;
// the synchronization engine observes changes via the OnChange callback and
// only writes back through Import during reconciliation.
//
// Mutation APIs never fail for user-driven edits: invalid geometry is
// clamped, unknown ids are silent no-ops.
package store

import (
	"crypto/rand"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"formpress/internal/domain"
	"formpress/internal/geometry"

	"github.com/oklog/ulid/v2"
)

// duplicateOffset is the slight document-space shift applied to a duplicate
// so it does not sit exactly on its source.
const duplicateOffset = 10.0

// Store is the field collection for one document. Safe for concurrent use;
// mutations are applied in call order.
type Store struct {
	mu         sync.Mutex
	documentID string
	fields     []domain.Field
	selectedID string
	pageOrder  []int // user-visible display order, empty means native order
	entropy    *ulid.MonotonicEntropy
	now        func() time.Time
	onChange   func([]domain.Field)
}

// New creates an empty store for the given document.
func New(documentID string) *Store {
	return &Store{
		documentID: documentID,
		entropy:    ulid.Monotonic(rand.Reader, 0),
		now:        time.Now,
	}
}

// DocumentID returns the owning document id.
func (s *Store) DocumentID() string { return s.documentID }

// SetOnChange registers the observer invoked with a deep copy of the
// collection after every effective mutation. Import does not notify: the
// synchronization engine is the importer and already knows.
func (s *Store) SetOnChange(fn func([]domain.Field)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// SetClock overrides the time source, for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Create places a new field of the given kind at a document-space point,
// assigns identity and a unique slug from an auto-numbered label, applies
// kind defaults, and selects it. pageNumber clamps to >= 1.
func (s *Store) Create(pageNumber int, at geometry.Pt, kind domain.InputType) (domain.Field, error) {
	if !domain.ValidInputType(kind) {
		return domain.Field{}, fmt.Errorf("unknown input type %q", kind)
	}
	if pageNumber < 1 {
		pageNumber = 1
	}
	s.mu.Lock()
	text, border, icon, w, h := domain.DefaultStyle(kind)
	label := s.nextLabelLocked(kind)
	now := s.now().UTC()
	f := domain.Field{
		ID:         s.newIDLocked(),
		DocumentID: s.documentID,
		Slug:       s.uniqueSlugLocked(label, ""),
		Label:      label,
		InputType:  kind,
		PageNumber: pageNumber,
		XCoord:     geometry.Round(math.Max(0, at.X)),
		YCoord:     geometry.Round(math.Max(0, at.Y)),
		Width:      w,
		Height:     h,
		Text:       text,
		Border:     border,
		Icon:       icon,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if kind == domain.InputImage {
		f.Fit = domain.FitContain
	}
	s.fields = append(s.fields, f)
	s.selectedID = f.ID
	out := f.Clone()
	s.notifyLocked()
	return out, nil
}

// Patch is a partial geometry/style update. Nil members are left untouched.
type Patch struct {
	PageNumber *int
	XCoord     *float64
	YCoord     *float64
	Width      *float64
	Height     *float64
	Label      *string
	Text       *domain.TextStyle
	Border     *domain.BorderStyle
	Icon       *domain.IconStyle
	Fit        *domain.ImageFit
}

// Update merges a patch into the field with the given id. A missing id is a
// silent no-op (programming-error guard, not a user-facing failure).
// Geometry is clamped to the store invariants, never rejected.
func (s *Store) Update(id string, p Patch) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	f := &s.fields[i]
	if p.PageNumber != nil && *p.PageNumber >= 1 {
		f.PageNumber = *p.PageNumber
	}
	if p.XCoord != nil {
		f.XCoord = geometry.Round(math.Max(0, *p.XCoord))
	}
	if p.YCoord != nil {
		f.YCoord = geometry.Round(math.Max(0, *p.YCoord))
	}
	if p.Width != nil {
		f.Width = geometry.Round(math.Max(1, *p.Width))
	}
	if p.Height != nil {
		f.Height = geometry.Round(math.Max(1, *p.Height))
	}
	if p.Label != nil && strings.TrimSpace(*p.Label) != "" {
		f.Label = strings.TrimSpace(*p.Label)
		f.Slug = s.uniqueSlugLocked(f.Label, f.ID)
	}
	if p.Text != nil {
		t := *p.Text
		if f.InputType.TextLike() && t.FontSize > 0 && t.FontSize < domain.MinFontSize {
			t.FontSize = domain.MinFontSize
		}
		f.Text = &t
	}
	if p.Border != nil {
		b := *p.Border
		f.Border = &b
	}
	if p.Icon != nil {
		ic := *p.Icon
		f.Icon = &ic
	}
	if p.Fit != nil {
		f.Fit = *p.Fit
	}
	f.UpdatedAt = s.now().UTC()
	s.notifyLocked()
}

// Delete removes the field and clears selection if it was selected.
// Missing ids are silent no-ops.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.fields = append(s.fields[:i], s.fields[i+1:]...)
	if s.selectedID == id {
		s.selectedID = ""
	}
	s.notifyLocked()
}

// Duplicate clones a field's geometry and style under a new identity and a
// new unique slug, offset slightly, and selects the clone.
func (s *Store) Duplicate(id string) (domain.Field, bool) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.Field{}, false
	}
	c := s.fields[i].Clone()
	c.ID = s.newIDLocked()
	c.Slug = s.uniqueSlugLocked(c.Label, c.ID)
	c.XCoord = geometry.Round(c.XCoord + duplicateOffset)
	c.YCoord = geometry.Round(c.YCoord + duplicateOffset)
	now := s.now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.fields = append(s.fields, c)
	s.selectedID = c.ID
	out := c.Clone()
	s.notifyLocked()
	return out, true
}

// ReorderPages records a user-visible page display order. Fields keep their
// native pageNumber; only the display sequence changes.
func (s *Store) ReorderPages(order []int) {
	s.mu.Lock()
	s.pageOrder = append([]int(nil), order...)
	s.notifyLocked()
}

// PageOrder returns the recorded display order, or nil for native order.
func (s *Store) PageOrder() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.pageOrder...)
}

// Select marks the field as selected; an unknown id clears the selection.
func (s *Store) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(id) < 0 {
		s.selectedID = ""
		return
	}
	s.selectedID = id
}

// SelectedField returns the currently selected field, if any.
func (s *Store) SelectedField() (domain.Field, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(s.selectedID)
	if i < 0 {
		return domain.Field{}, false
	}
	return s.fields[i].Clone(), true
}

// Fields returns a deep copy of the collection in insertion order.
func (s *Store) Fields() []domain.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneFields(s.fields)
}

// Len returns the number of fields.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fields)
}

// FieldsForPage returns the fields placed on a page, in insertion order.
// Derived lazily on read, not maintained incrementally.
func (s *Store) FieldsForPage(pageNumber int) []domain.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Field
	for _, f := range s.fields {
		if f.PageNumber == pageNumber {
			out = append(out, f.Clone())
		}
	}
	return out
}

// CountsByPage returns the number of fields per page.
func (s *Store) CountsByPage() map[int]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]int)
	for _, f := range s.fields {
		out[f.PageNumber]++
	}
	return out
}

// Import replaces the whole collection with a reconciled one. Used only by
// the synchronization engine; never merges partially and does not notify.
func (s *Store) Import(fields []domain.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields = domain.CloneFields(fields)
	s.selectedID = ""
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.fields {
		if s.fields[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) newIDLocked() string {
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

// notifyLocked snapshots the collection, releases the lock, and invokes the
// observer. Callers must hold the lock and must return right after.
func (s *Store) notifyLocked() {
	fn := s.onChange
	var snap []domain.Field
	if fn != nil {
		snap = domain.CloneFields(s.fields)
	}
	s.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// nextLabelLocked produces an auto-numbered default label such as
// "Text Field 3", unique among current labels.
func (s *Store) nextLabelLocked(kind domain.InputType) string {
	base := labelBase(kind)
	n := 1
	for _, f := range s.fields {
		if f.InputType == kind {
			n++
		}
	}
	for {
		label := fmt.Sprintf("%s %d", base, n)
		if !s.labelExistsLocked(label) {
			return label
		}
		n++
	}
}

func (s *Store) labelExistsLocked(label string) bool {
	for _, f := range s.fields {
		if f.Label == label {
			return true
		}
	}
	return false
}

func labelBase(kind domain.InputType) string {
	switch kind {
	case domain.InputEmail:
		return "Email Field"
	case domain.InputNumber:
		return "Number Field"
	case domain.InputDate:
		return "Date Field"
	case domain.InputCheckbox:
		return "Checkbox"
	case domain.InputRadio:
		return "Radio Button"
	case domain.InputIcon:
		return "Icon"
	case domain.InputSignature:
		return "Signature"
	case domain.InputImage:
		return "Image"
	case domain.InputFillable:
		return "Fillable Field"
	default:
		return "Text Field"
	}
}

// Slugify lowercases a label and collapses runs of non-alphanumerics into
// single hyphens.
func Slugify(label string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(label) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		out = "field"
	}
	return out
}

// uniqueSlugLocked derives a slug from label, suffixing -2, -3, ... until it
// collides with no other field (selfID excluded).
func (s *Store) uniqueSlugLocked(label, selfID string) string {
	base := Slugify(label)
	slug := base
	for n := 2; ; n++ {
		taken := false
		for _, f := range s.fields {
			if f.ID != selfID && f.Slug == slug {
				taken = true
				break
			}
		}
		if !taken {
			return slug
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}
