/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import (
	"math"
	"testing"
)

func TestApplyResizeSEKeepsOrigin(t *testing.T) {
	r := R(10, 20, 100, 50)
	out := ApplyResize(r, CornerSE, Pt{X: 30, Y: 10}, 1)
	if out.X != 10 || out.Y != 20 {
		t.Fatalf("SE resize must not move origin: %+v", out)
	}
	if out.W != 130 || out.H != 60 {
		t.Fatalf("expected 130x60, got %vx%v", out.W, out.H)
	}
}

func TestApplyResizeOppositeEdgeFixed(t *testing.T) {
	r := R(40, 60, 100, 50)
	cases := []struct {
		corner Corner
		delta  Pt
	}{
		{CornerNW, Pt{X: 10, Y: 10}},
		{CornerNE, Pt{X: -10, Y: 15}},
		{CornerSW, Pt{X: 12, Y: -8}},
		{CornerSE, Pt{X: -15, Y: -5}},
	}
	for _, c := range cases {
		out := ApplyResize(r, c.corner, c.delta, 1)
		switch c.corner {
		case CornerNW:
			if out.X+out.W != r.X+r.W || out.Y+out.H != r.Y+r.H {
				t.Fatalf("%v: bottom-right edge moved: %+v", c.corner, out)
			}
		case CornerNE:
			if out.X != r.X || out.Y+out.H != r.Y+r.H {
				t.Fatalf("%v: bottom-left edge moved: %+v", c.corner, out)
			}
		case CornerSW:
			if out.X+out.W != r.X+r.W || out.Y != r.Y {
				t.Fatalf("%v: top-right edge moved: %+v", c.corner, out)
			}
		case CornerSE:
			if out.X != r.X || out.Y != r.Y {
				t.Fatalf("%v: top-left edge moved: %+v", c.corner, out)
			}
		}
	}
}

func TestApplyResizeScalesDelta(t *testing.T) {
	// 20 view pixels at scale 2 is 10 document units
	out := ApplyResize(R(0, 0, 50, 50), CornerSE, Pt{X: 20, Y: 20}, 2)
	if out.W != 60 || out.H != 60 {
		t.Fatalf("expected 60x60, got %vx%v", out.W, out.H)
	}
}

func TestApplyResizeFloorsDimensions(t *testing.T) {
	for _, corner := range []Corner{CornerNW, CornerNE, CornerSW, CornerSE} {
		out := ApplyResize(R(50, 50, 10, 10), corner, Pt{X: 1000, Y: 1000}, 1)
		if out.W < 1 || out.H < 1 {
			t.Fatalf("%v: dimension below floor: %+v", corner, out)
		}
		out = ApplyResize(R(50, 50, 10, 10), corner, Pt{X: -1000, Y: -1000}, 1)
		if out.W < 1 || out.H < 1 {
			t.Fatalf("%v: dimension below floor after shrink: %+v", corner, out)
		}
		if out.X < 0 || out.Y < 0 {
			t.Fatalf("%v: negative coordinates after resize: %+v", corner, out)
		}
	}
}

func TestSuggestFontSizeBands(t *testing.T) {
	// very small boxes hit the lower bound
	if got := SuggestFontSize(4, 4); got != minSuggestedFont {
		t.Fatalf("tiny box expected %v, got %v", minSuggestedFont, got)
	}
	// huge boxes are capped
	if got := SuggestFontSize(500, 500); got != maxSuggestedFont {
		t.Fatalf("huge box expected cap %v, got %v", maxSuggestedFont, got)
	}
	// monotonic non-decreasing across the bands
	prev := 0.0
	for d := 1.0; d <= 120; d++ {
		got := SuggestFontSize(d, d)
		if got < prev {
			t.Fatalf("suggestion not monotonic at d=%v: %v < %v", d, got, prev)
		}
		prev = got
	}
	// continuous at the band boundaries
	for _, edge := range []float64{bandSmallUpper, bandTransUpper} {
		lo := SuggestFontSize(edge-0.001, edge-0.001)
		hi := SuggestFontSize(edge+0.001, edge+0.001)
		if math.Abs(hi-lo) > 0.01 {
			t.Fatalf("discontinuity at d=%v: %v vs %v", edge, lo, hi)
		}
	}
	// driven by the smaller dimension
	if SuggestFontSize(300, 18) != SuggestFontSize(18, 18) {
		t.Fatalf("suggestion should follow min(w,h)")
	}
}
