/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package syncer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"

	"formpress/internal/domain"
)

// Signature digests the salient parts of a field collection into an
// order-independent hash: fields sorted by id, geometry rounded to two
// decimal places, plus identity, kind, label, and page. Two collections with
// the same signature are "no real change" for the sync pipeline, which
// filters out redundant writes from no-op re-renders and sub-precision
// geometry noise.
func Signature(fields []domain.Field) string {
	entries := make([]string, len(fields))
	for i, f := range fields {
		entries[i] = fmt.Sprintf("%s|%s|%s|%s|%d|%s|%s|%s|%s",
			f.ID, f.Slug, f.Label, f.InputType, f.PageNumber,
			round2(f.XCoord), round2(f.YCoord), round2(f.Width), round2(f.Height))
	}
	sort.Strings(entries) // id prefix makes this order-independent
	sum := sha256.Sum256([]byte(strings.Join(entries, "\n")))
	return hex.EncodeToString(sum[:])
}

func round2(v float64) string {
	return fmt.Sprintf("%.2f", math.Round(v*100)/100)
}
