/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textfit answers whether a value fits a field box at a given font
// size. Measurement goes through a Provider so a deterministic bitmap face
// serves tests while real faces can be plugged in later.
package textfit

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"formpress/internal/domain"
	"formpress/internal/geometry"
)

// Metrics provides font metrics in the measured face's pixel units.
type Metrics struct {
	Ascent, Descent, LineGap float64
	// NominalSize is the size the face renders at; advances scale linearly
	// from it to the requested font size.
	NominalSize float64
}

// Provider maps a requested size to a concrete font.Face plus metrics.
type Provider interface {
	Resolve(sizePt float64) (font.Face, Metrics)
}

// BasicProvider uses x/image/basicfont Face7x13 for deterministic
// measurement. The face is fixed-size; advances are scaled to the requested
// size from its 13px nominal height.
type BasicProvider struct{}

func (BasicProvider) Resolve(sizePt float64) (font.Face, Metrics) {
	f := basicfont.Face7x13
	m := f.Metrics()
	return f, Metrics{
		Ascent:      float64(m.Ascent.Round()),
		Descent:     float64(m.Descent.Round()),
		LineGap:     float64(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
		NominalSize: 13,
	}
}

const padding = 2.0 // inset on each side of the field box

// ValueFits reports whether value fits inside a width x height box rendered
// at fontSize. Newlines split the value into lines; there is no word wrap,
// matching single-line form fields with explicit breaks.
func ValueFits(p Provider, value string, width, height, fontSize float64) bool {
	if value == "" {
		return true
	}
	if p == nil {
		p = BasicProvider{}
	}
	face, met := p.Resolve(fontSize)
	scale := fontSize / met.NominalSize
	drawer := &font.Drawer{Face: face}

	innerW := width - 2*padding
	innerH := height - 2*padding
	lines := strings.Split(value, "\n")
	lineH := (met.Ascent + met.Descent) * scale
	if float64(len(lines))*lineH > innerH {
		return false
	}
	for _, line := range lines {
		w := float64(drawer.MeasureString(line)>>6) * scale
		if w > innerW {
			return false
		}
	}
	return true
}

// MaxFittingFontSize returns the largest size at which value fits the box,
// starting from the geometry suggestion and stepping down to the minimum.
// When nothing fits even at the minimum, the minimum is returned; the caller
// decides whether to truncate or overflow.
func MaxFittingFontSize(p Provider, value string, width, height float64) float64 {
	size := geometry.SuggestFontSize(width, height)
	for size > domain.MinFontSize {
		if ValueFits(p, value, width, height, size) {
			return size
		}
		size -= 0.5
	}
	return domain.MinFontSize
}

// FieldValueFits is the field-level convenience: non-text kinds always fit.
func FieldValueFits(p Provider, f domain.Field, value string) bool {
	if !f.InputType.TextLike() {
		return true
	}
	size := domain.MinFontSize
	if f.Text != nil && f.Text.FontSize > size {
		size = f.Text.FontSize
	} else if f.Text == nil || f.Text.FontSize == 0 {
		size = geometry.SuggestFontSize(f.Width, f.Height)
	}
	return ValueFits(p, value, f.Width, f.Height, size)
}
