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

func approxEq(a, b, relTol float64) bool {
	diff := math.Abs(a - b)
	mag := math.Max(math.Abs(a), math.Abs(b))
	if mag < 1 {
		mag = 1
	}
	return diff <= relTol*mag
}

func TestRoundTrip(t *testing.T) {
	points := []Pt{
		{0, 0},
		{100, 200},
		{0.333333, 0.666667},
		{1234.5678, 9876.5432},
		{7, 0.000003},
	}
	scales := []float64{0.25, 0.5, 1, 1.5, 2, 3.7}
	for _, p := range points {
		for _, s := range scales {
			got := ToDocument(ToView(p, s), s)
			if !approxEq(got.X, p.X, 1e-6) || !approxEq(got.Y, p.Y, 1e-6) {
				t.Fatalf("round trip p=%v s=%v got %v", p, s, got)
			}
		}
	}
}

func TestRoundIsStableUnderRepetition(t *testing.T) {
	p := Pt{X: 123.456789, Y: 0.1}
	v := p
	for i := 0; i < 500; i++ {
		v = ToDocument(ToView(v, 1.5), 1.5)
	}
	if !approxEq(v.X, p.X, 1e-6) || !approxEq(v.Y, p.Y, 1e-6) {
		t.Fatalf("drift after repeated transforms: %v vs %v", v, p)
	}
}

func TestMalformedInputsNormalize(t *testing.T) {
	// negative and non-finite scale clamp; non-finite coordinates zero out
	if got := ToView(Pt{10, 10}, -5); got.X < 0 || got.Y < 0 {
		t.Fatalf("negative scale produced negative view point: %v", got)
	}
	got := ToView(Pt{math.NaN(), math.Inf(1)}, 1)
	if got.X != 0 || got.Y != 0 {
		t.Fatalf("expected NaN/Inf coordinates to normalize to 0, got %v", got)
	}
	if s := ClampScale(math.NaN()); s <= 0 {
		t.Fatalf("ClampScale(NaN) = %v", s)
	}
}

func TestApplyDragDeltaClampsAtOrigin(t *testing.T) {
	r := R(5, 5, 50, 20)
	out := ApplyDragDelta(r, Pt{X: -100, Y: -100}, 1)
	if out.X != 0 || out.Y != 0 {
		t.Fatalf("expected clamp to origin, got %+v", out)
	}
	if out.W != r.W || out.H != r.H {
		t.Fatalf("drag must not change size: %+v", out)
	}
}

func TestApplyDragDeltaScalesDelta(t *testing.T) {
	// 10 view pixels at scale 2 is 5 document units
	out := ApplyDragDelta(R(100, 200, 150, 20), Pt{X: 10, Y: 10}, 2)
	if out.X != 105 || out.Y != 205 {
		t.Fatalf("expected (105, 205), got (%v, %v)", out.X, out.Y)
	}
}

// Scenario from the editing flow: place, zoom, drag.
func TestPlaceZoomDragScenario(t *testing.T) {
	doc := R(100, 200, 150, 20)

	v1 := ToViewRect(doc, 1.0)
	if v1.X != 100 || v1.Y != 200 {
		t.Fatalf("scale 1.0 view position: %+v", v1)
	}

	v2 := ToViewRect(doc, 2.0)
	if v2.X != 200 || v2.Y != 400 {
		t.Fatalf("scale 2.0 view position: %+v", v2)
	}
	// zoom alone never touches document-space geometry
	if doc.X != 100 || doc.Y != 200 {
		t.Fatalf("document geometry changed by zoom: %+v", doc)
	}

	doc = ApplyDragDelta(doc, Pt{X: 10, Y: 10}, 2.0)
	if doc.X != 105 || doc.Y != 205 {
		t.Fatalf("after drag expected (105, 205), got (%v, %v)", doc.X, doc.Y)
	}
}

func TestSnapToGrid(t *testing.T) {
	got := SnapToGrid(Pt{X: 13, Y: 27}, 10)
	if got.X != 10 || got.Y != 30 {
		t.Fatalf("expected (10, 30), got %v", got)
	}
	// zero/invalid grid means no snapping
	got = SnapToGrid(Pt{X: 13.5, Y: 27.25}, 0)
	if got.X != 13.5 || got.Y != 27.25 {
		t.Fatalf("expected unchanged point, got %v", got)
	}
}
