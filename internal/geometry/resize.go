/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import "math"

// Corner identifies the resize handle being dragged.
type Corner int

const (
	CornerNW Corner = iota
	CornerNE
	CornerSW
	CornerSE
)

func (c Corner) String() string {
	switch c {
	case CornerNW:
		return "NW"
	case CornerNE:
		return "NE"
	case CornerSW:
		return "SW"
	case CornerSE:
		return "SE"
	}
	return "?"
}

// ApplyResize resizes a document-space rectangle from one corner by a pointer
// delta given in view pixels. The opposite edge stays fixed: SE changes only
// width/height; NE and NW move the top edge, NW and SW move the left edge.
// Width and height floor at 1 document unit, coordinates clamp at 0.
func ApplyResize(r Rect, corner Corner, deltaView Pt, scale float64) Rect {
	d := ToDocument(deltaView, scale)
	out := r
	out.X = sanitize(r.X)
	out.Y = sanitize(r.Y)
	out.W = math.Max(minDimension, sanitize(r.W))
	out.H = math.Max(minDimension, sanitize(r.H))

	// Horizontal axis: east corners grow with +dx, west corners shrink and
	// shift x so the right edge keeps its absolute position.
	switch corner {
	case CornerNE, CornerSE:
		out.W = math.Max(minDimension, out.W+d.X)
	case CornerNW, CornerSW:
		newW := math.Max(minDimension, out.W-d.X)
		out.X = out.X + (out.W - newW)
		out.W = newW
	}

	// Vertical axis: south corners grow with +dy, north corners shrink and
	// shift y so the bottom edge keeps its absolute position.
	switch corner {
	case CornerSW, CornerSE:
		out.H = math.Max(minDimension, out.H+d.Y)
	case CornerNW, CornerNE:
		newH := math.Max(minDimension, out.H-d.Y)
		out.Y = out.Y + (out.H - newH)
		out.H = newH
	}

	out.X = Round(math.Max(0, out.X))
	out.Y = Round(math.Max(0, out.Y))
	out.W = Round(out.W)
	out.H = Round(out.H)
	return out
}

// Font suggestion bands. The suggested size is a piecewise-linear, continuous
// function of the post-resize minimum box dimension so text stays legible in
// tiny boxes without ballooning in large ones.
const (
	minSuggestedFont = 6.0
	maxSuggestedFont = 36.0
	bandSmallUpper   = 12.0 // very small boxes
	bandTransUpper   = 30.0 // transition band
)

// SuggestFontSize recomputes a font size from a field box after a resize.
// Applied automatically for text-like fields unless the caller opts out.
func SuggestFontSize(w, h float64) float64 {
	d := math.Min(sanitize(w), sanitize(h))
	if d < minDimension {
		d = minDimension
	}
	var size float64
	switch {
	case d <= bandSmallUpper:
		size = 0.55 * d
	case d <= bandTransUpper:
		size = 0.55*bandSmallUpper + 0.35*(d-bandSmallUpper)
	default:
		size = 0.43 * d
	}
	if size < minSuggestedFont {
		size = minSuggestedFont
	}
	if size > maxSuggestedFont {
		size = maxSuggestedFont
	}
	return Round(size)
}
