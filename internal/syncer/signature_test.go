/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package syncer

import (
	"testing"

	"formpress/internal/domain"
)

func sigField(id string, x float64) domain.Field {
	return domain.Field{
		ID: id, DocumentID: "doc-1", Slug: "f-" + id, Label: "F " + id,
		InputType: domain.InputText, PageNumber: 1,
		XCoord: x, YCoord: 10, Width: 100, Height: 20,
	}
}

func TestSignatureOrderIndependent(t *testing.T) {
	a := []domain.Field{sigField("a", 1), sigField("b", 2)}
	b := []domain.Field{sigField("b", 2), sigField("a", 1)}
	if Signature(a) != Signature(b) {
		t.Fatalf("signature should not depend on collection order")
	}
}

func TestSignatureDetectsGeometryChange(t *testing.T) {
	a := []domain.Field{sigField("a", 1)}
	b := []domain.Field{sigField("a", 1.5)}
	if Signature(a) == Signature(b) {
		t.Fatalf("geometry change not detected")
	}
}

func TestSignatureIgnoresSubCentUnitNoise(t *testing.T) {
	a := []domain.Field{sigField("a", 10.0)}
	b := []domain.Field{sigField("a", 10.001)}
	if Signature(a) != Signature(b) {
		t.Fatalf("signature should round geometry to 2 decimal places")
	}
}

func TestSignatureDetectsLabelAndCountChange(t *testing.T) {
	a := []domain.Field{sigField("a", 1)}
	renamed := []domain.Field{sigField("a", 1)}
	renamed[0].Label = "Renamed"
	if Signature(a) == Signature(renamed) {
		t.Fatalf("label change not detected")
	}
	if Signature(a) == Signature(nil) {
		t.Fatalf("count change not detected")
	}
}
