/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import "math"

// DefaultGuideThreshold is the view-space distance (pixels) within which an
// alignment line of a sibling field counts as a match. Typical UI values are
// 6-8 pixels.
const DefaultGuideThreshold = 6.0

// Guide is one advisory alignment line in view space. Guides are for
// rendering feedback only; they never move the field (snapping is the
// caller's explicit, separate step).
type Guide struct {
	Position float64 // view-space x (vertical guide) or y (horizontal guide)
	Kind     string  // "edge" or "center"
}

// Guides groups the matching alignment lines per axis.
type Guides struct {
	X []Guide // vertical lines: left edge, right edge, horizontal center
	Y []Guide // horizontal lines: top edge, bottom edge, vertical center
}

// AlignmentGuides compares a moving document-space rectangle against its
// sibling fields on the same page and returns the alignment lines whose
// view-space distance to the corresponding feature of the moving rect is
// within thresholdPx. Pass thresholdPx <= 0 for the default.
func AlignmentGuides(moving Rect, siblings []Rect, scale float64, thresholdPx float64) Guides {
	if thresholdPx <= 0 || math.IsNaN(thresholdPx) {
		thresholdPx = DefaultGuideThreshold
	}
	s := ClampScale(scale)

	mL, mR, mCX := moving.X, moving.X+moving.W, moving.X+moving.W/2
	mT, mB, mCY := moving.Y, moving.Y+moving.H, moving.Y+moving.H/2

	var out Guides
	seenX := map[float64]bool{}
	seenY := map[float64]bool{}

	addX := func(mv, sib float64, kind string) {
		if math.Abs(mv-sib)*s > thresholdPx {
			return
		}
		pos := Round(sib * s)
		if seenX[pos] {
			return
		}
		seenX[pos] = true
		out.X = append(out.X, Guide{Position: pos, Kind: kind})
	}
	addY := func(mv, sib float64, kind string) {
		if math.Abs(mv-sib)*s > thresholdPx {
			return
		}
		pos := Round(sib * s)
		if seenY[pos] {
			return
		}
		seenY[pos] = true
		out.Y = append(out.Y, Guide{Position: pos, Kind: kind})
	}

	for _, sib := range siblings {
		sL, sR, sCX := sib.X, sib.X+sib.W, sib.X+sib.W/2
		sT, sB, sCY := sib.Y, sib.Y+sib.H, sib.Y+sib.H/2

		addX(mL, sL, "edge")
		addX(mR, sR, "edge")
		addX(mCX, sCX, "center")

		addY(mT, sT, "edge")
		addY(mB, sB, "edge")
		addY(mCY, sCY, "center")
	}
	return out
}
