/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geometry implements the coordinate transform engine: pure,
// deterministic mappings between document space (the scale-independent unit
// system fields are stored in) and view space (on-screen pixels at a zoom
// scale). Every operation applies one canonical rounding step so that
// repeated transforms across render frames do not accumulate float drift.
//
// Malformed numeric input (negative scale, NaN, Inf) is never an error here;
// it is normalized to the nearest valid value.
package geometry

import "math"

// Pt is a 2D point. Units depend on context: document space or view pixels.
type Pt struct{ X, Y float64 }

// Size is a width/height pair.
type Size struct{ W, H float64 }

// Rect is an axis-aligned rectangle defined by its top-left corner and size.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) Min() Pt { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt { return Pt{r.X + r.W, r.Y + r.H} }

func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// precision is the canonical rounding granularity: one part in 10^6.
const precision = 1e6

// minScale is the smallest accepted zoom factor; smaller or invalid scales
// clamp to it.
const minScale = 0.01

// minDimension is the floor for field width/height in document units.
const minDimension = 1.0

// Round applies the canonical fixed-precision rounding used at every
// transform boundary (nearest 1/10^6 unit). All call sites share this one
// function so the round-trip invariant holds uniformly.
func Round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*precision) / precision
}

// ClampScale normalizes a zoom factor to a usable positive value.
func ClampScale(s float64) float64 {
	if math.IsNaN(s) || math.IsInf(s, 0) || s < minScale {
		return minScale
	}
	return s
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ToView maps a document-space point to view pixels at the given scale.
func ToView(p Pt, scale float64) Pt {
	s := ClampScale(scale)
	return Pt{X: Round(sanitize(p.X) * s), Y: Round(sanitize(p.Y) * s)}
}

// ToDocument maps a view-space point back to document space. It is the
// inverse of ToView within the canonical rounding tolerance.
func ToDocument(p Pt, scale float64) Pt {
	s := ClampScale(scale)
	return Pt{X: Round(sanitize(p.X) / s), Y: Round(sanitize(p.Y) / s)}
}

// ToViewRect maps a document-space rectangle to view pixels.
func ToViewRect(r Rect, scale float64) Rect {
	s := ClampScale(scale)
	return Rect{
		X: Round(sanitize(r.X) * s),
		Y: Round(sanitize(r.Y) * s),
		W: Round(sanitize(r.W) * s),
		H: Round(sanitize(r.H) * s),
	}
}

// ApplyDragDelta moves a document-space rectangle by a pointer delta given in
// view pixels. Coordinates clamp at the document origin; no upper bound is
// enforced (overflow past the page is a caller concern). No grid snapping
// happens here: snapping is a separate opt-in step so the final drop lands
// exactly where released.
func ApplyDragDelta(r Rect, deltaView Pt, scale float64) Rect {
	d := ToDocument(deltaView, scale)
	out := r
	out.X = Round(math.Max(0, sanitize(r.X)+d.X))
	out.Y = Round(math.Max(0, sanitize(r.Y)+d.Y))
	return out
}

// SnapToGrid snaps a document-space point to the nearest multiple of grid.
// Opt-in; callers skip it when the product rule is "exact position where
// released".
func SnapToGrid(p Pt, grid float64) Pt {
	if grid <= 0 || math.IsNaN(grid) || math.IsInf(grid, 0) {
		return Pt{X: Round(sanitize(p.X)), Y: Round(sanitize(p.Y))}
	}
	return Pt{
		X: Round(math.Round(sanitize(p.X)/grid) * grid),
		Y: Round(math.Round(sanitize(p.Y)/grid) * grid),
	}
}
