/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package domain defines the core data model for FormPress: fields placed on
// document pages, their styles, and the shapes persisted by the local and
// remote durability channels. Geometry is stored in document space, the
// scale-independent unit system the output generator consumes.
package domain

import "time"

// InputType is the kind of a field, fixed at creation. Changing the kind of
// an existing field requires delete and recreate.
type InputType string

const (
	InputText      InputType = "TEXT"
	InputEmail     InputType = "EMAIL"
	InputNumber    InputType = "NUMBER"
	InputDate      InputType = "DATE"
	InputCheckbox  InputType = "CHECKBOX"
	InputRadio     InputType = "RADIO"
	InputIcon      InputType = "ICON"
	InputSignature InputType = "SIGNATURE"
	InputImage     InputType = "IMAGE"
	InputFillable  InputType = "FILLABLE"
)

// ValidInputType reports whether t is one of the closed set of field kinds.
func ValidInputType(t InputType) bool {
	switch t {
	case InputText, InputEmail, InputNumber, InputDate, InputCheckbox,
		InputRadio, InputIcon, InputSignature, InputImage, InputFillable:
		return true
	}
	return false
}

// TextLike reports whether the kind renders user text and therefore carries
// font styling and the minimum-font-size invariant.
func (t InputType) TextLike() bool {
	switch t {
	case InputText, InputEmail, InputNumber, InputDate, InputFillable:
		return true
	}
	return false
}

// MinFontSize is the lower bound for fontSize on text-like fields. Edits and
// automatic suggestions never push a font below this without explicit intent.
const MinFontSize = 6.0

// TextStyle holds typography settings for text-like kinds.
type TextStyle struct {
	FontFamily string  `json:"fontFamily,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	FontWeight string  `json:"fontWeight,omitempty"` // normal | bold
	FontStyle  string  `json:"fontStyle,omitempty"`  // normal | italic
	Alignment  string  `json:"alignment,omitempty"`  // left | center | right
	Color      string  `json:"color,omitempty"`      // #rrggbb
}

// BorderStyle holds the optional box border of a field.
type BorderStyle struct {
	Enabled bool    `json:"enabled,omitempty"`
	Width   float64 `json:"width,omitempty"`
	Style   string  `json:"style,omitempty"` // solid | dashed | dotted
	Color   string  `json:"color,omitempty"`
	Radius  float64 `json:"radius,omitempty"`
}

// IconStyle holds styling for ICON fields.
type IconStyle struct {
	Variant string `json:"variant,omitempty"`
	Color   string `json:"color,omitempty"`
}

// ImageFit controls how IMAGE field content maps into the field box.
type ImageFit string

const (
	FitContain ImageFit = "contain"
	FitCover   ImageFit = "cover"
	FitStretch ImageFit = "stretch"
)

// Field is one placed, editable element on a document page.
// XCoord/YCoord are the top-left corner in document space, Width/Height the
// box size in the same units. Width and height stay strictly positive and
// coordinates non-negative after every transform; overflow past the page
// bounds is permitted and left to the caller.
type Field struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	Slug       string    `json:"slug"`
	Label      string    `json:"label"`
	InputType  InputType `json:"inputType"`

	PageNumber int     `json:"pageNumber"` // 1-based
	XCoord     float64 `json:"xCoord"`
	YCoord     float64 `json:"yCoord"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`

	Text   *TextStyle   `json:"text,omitempty"`
	Border *BorderStyle `json:"border,omitempty"`
	Icon   *IconStyle   `json:"icon,omitempty"`
	Fit    ImageFit     `json:"fit,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the field.
func (f Field) Clone() Field {
	c := f
	if f.Text != nil {
		t := *f.Text
		c.Text = &t
	}
	if f.Border != nil {
		b := *f.Border
		c.Border = &b
	}
	if f.Icon != nil {
		i := *f.Icon
		c.Icon = &i
	}
	return c
}

// CloneFields deep-copies a collection.
func CloneFields(fields []Field) []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = f.Clone()
	}
	return out
}

// DefaultStyle returns the kind-specific default style and geometry size for
// a freshly placed field.
func DefaultStyle(t InputType) (text *TextStyle, border *BorderStyle, icon *IconStyle, w, h float64) {
	switch t {
	case InputCheckbox, InputRadio:
		return nil, &BorderStyle{Enabled: true, Width: 1, Style: "solid", Color: "#000000"}, nil, 16, 16
	case InputIcon:
		return nil, nil, &IconStyle{Variant: "check", Color: "#000000"}, 24, 24
	case InputSignature:
		return nil, &BorderStyle{Enabled: true, Width: 1, Style: "dashed", Color: "#888888"}, nil, 180, 50
	case InputImage:
		return nil, &BorderStyle{Enabled: true, Width: 1, Style: "dashed", Color: "#888888"}, nil, 120, 80
	default: // text-like
		return &TextStyle{FontFamily: "Helvetica", FontSize: 11, FontWeight: "normal", FontStyle: "normal", Alignment: "left", Color: "#000000"},
			nil, nil, 150, 20
	}
}

// LocalSnapshot is the per-document shape written to the local durable store
// on every observed change. It is the crash-recovery line of defense.
type LocalSnapshot struct {
	DocumentID string    `json:"documentId"`
	Fields     []Field   `json:"fields"`
	Timestamp  time.Time `json:"timestamp"`
}

// PendingSync records a remote write obligation that survives process
// restarts. It is only cleared once the remote store has accepted the payload.
type PendingSync struct {
	DocumentID string    `json:"documentId"`
	Fields     []Field   `json:"fields"`
	Timestamp  time.Time `json:"timestamp"`
	RetryCount int       `json:"retryCount"`
}

// DocumentInfo describes an ingested source document.
type DocumentInfo struct {
	ID            string `json:"id"`
	FileName      string `json:"fileName"`
	PageCount     int    `json:"pageCount"`
	FileSize      int64  `json:"fileSize"`
	RetrievalPath string `json:"retrievalPath"`
}

// PageDimensions is a page's native size in document-space units.
type PageDimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}
