/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package output renders a document's field layout into deliverable
// artifacts: a filled multi-page PDF and per-page PNG previews. Geometry
// comes straight from document space, so the artifact matches the stored
// coordinates one to one in points.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"formpress/internal/domain"
	"formpress/internal/geometry"
)

// Layout is the complete input to the output generator: native page geometry
// plus the field collection placed over it.
type Layout struct {
	Pages  []domain.PageDimensions
	Fields []domain.Field
}

// FillOptions controls PDF output behavior. Units are points (pt).
// Vector text uses built-in Helvetica for portability; font embedding can be
// added later with TTFs.
type FillOptions struct {
	// DrawBoxes renders each field's border box in addition to its value.
	DrawBoxes bool
	// Values maps field slug to the value rendered into the field.
	Values map[string]string
	// Pages restricts output to the given 1-based page numbers; empty means
	// all pages.
	Pages []int
}

// WriteFilledPDF writes a multi-page PDF with field values placed at their
// stored coordinates.
func WriteFilledPDF(layout Layout, outPath string, opt FillOptions) error {
	if len(layout.Pages) == 0 {
		return fmt.Errorf("document has no pages")
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: layout.Pages[0].Width, Ht: layout.Pages[0].Height},
		OrientationStr: "",
	})
	pdf.SetTitle("FormPress output", false)
	pdf.SetAuthor("FormPress", false)
	pdf.SetFont("Helvetica", "", 12)

	byPage := fieldsByPage(layout.Fields)
	for _, pageNumber := range pageNumbers(len(layout.Pages), opt.Pages) {
		dim := layout.Pages[pageNumber-1]
		pdf.AddPageFormat("", gofpdf.SizeType{Wd: dim.Width, Ht: dim.Height})
		for _, f := range byPage[pageNumber] {
			drawField(pdf, f, opt)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func drawField(pdf *gofpdf.Fpdf, f domain.Field, opt FillOptions) {
	if opt.DrawBoxes || borderEnabled(f) {
		r, g, b := borderColor(f)
		pdf.SetDrawColor(r, g, b)
		pdf.SetLineWidth(borderWidth(f))
		pdf.Rect(f.XCoord, f.YCoord, f.Width, f.Height, "D")
	}

	value := opt.Values[f.Slug]
	switch {
	case f.InputType.TextLike():
		if value == "" {
			return
		}
		size := fontSize(f)
		pdf.SetFont("Helvetica", fontStyleStr(f), size)
		if f.Text != nil && f.Text.Color != "" {
			r, g, b := parseHexColor(f.Text.Color)
			pdf.SetTextColor(r, g, b)
		} else {
			pdf.SetTextColor(0, 0, 0)
		}
		// Baseline sits a bit above the box bottom; keeps descenders inside.
		baseline := f.YCoord + (f.Height+size*0.7)/2
		x := f.XCoord + 2
		if f.Text != nil {
			switch f.Text.Alignment {
			case "center":
				x = f.XCoord + (f.Width-pdf.GetStringWidth(value))/2
			case "right":
				x = f.XCoord + f.Width - pdf.GetStringWidth(value) - 2
			}
		}
		pdf.Text(x, baseline, value)
	case f.InputType == domain.InputCheckbox, f.InputType == domain.InputRadio:
		if !truthy(value) {
			return
		}
		// Cross mark inside the box.
		pdf.SetDrawColor(0, 0, 0)
		pdf.SetLineWidth(1)
		inset := 2.0
		pdf.Line(f.XCoord+inset, f.YCoord+inset, f.XCoord+f.Width-inset, f.YCoord+f.Height-inset)
		pdf.Line(f.XCoord+inset, f.YCoord+f.Height-inset, f.XCoord+f.Width-inset, f.YCoord+inset)
	case f.InputType == domain.InputImage, f.InputType == domain.InputSignature:
		if value == "" {
			return
		}
		// Value is a path to an image file placed into the field box.
		pdf.ImageOptions(value, f.XCoord, f.YCoord, f.Width, f.Height, false,
			gofpdf.ImageOptions{ReadDpi: true}, 0, "")
	}
}

func fontSize(f domain.Field) float64 {
	if f.Text != nil && f.Text.FontSize >= domain.MinFontSize {
		return f.Text.FontSize
	}
	return geometry.SuggestFontSize(f.Width, f.Height)
}

func fontStyleStr(f domain.Field) string {
	if f.Text == nil {
		return ""
	}
	var s string
	if f.Text.FontWeight == "bold" {
		s += "B"
	}
	if f.Text.FontStyle == "italic" {
		s += "I"
	}
	return s
}

func borderEnabled(f domain.Field) bool {
	return f.Border != nil && f.Border.Enabled
}

func borderWidth(f domain.Field) float64 {
	if f.Border != nil && f.Border.Width > 0 {
		return f.Border.Width
	}
	return 0.5
}

func borderColor(f domain.Field) (int, int, int) {
	if f.Border != nil && f.Border.Color != "" {
		return parseHexColor(f.Border.Color)
	}
	return 0, 0, 0
}

// parseHexColor reads #rrggbb; anything unreadable falls back to black.
func parseHexColor(s string) (int, int, int) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0, 0, 0
	}
	var r, g, b int
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return 0, 0, 0
	}
	return r, g, b
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes", "x", "checked":
		return true
	}
	return false
}

func fieldsByPage(fields []domain.Field) map[int][]domain.Field {
	byPage := make(map[int][]domain.Field)
	for _, f := range fields {
		byPage[f.PageNumber] = append(byPage[f.PageNumber], f)
	}
	for _, list := range byPage {
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}
	return byPage
}

func pageNumbers(total int, specific []int) []int {
	if len(specific) == 0 {
		out := make([]int, total)
		for i := range out {
			out[i] = i + 1
		}
		return out
	}
	out := make([]int, 0, len(specific))
	for _, p := range specific {
		if p >= 1 && p <= total {
			out = append(out, p)
		}
	}
	return out
}
