/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package output

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
)

// PreviewOptions controls PNG page previews.
type PreviewOptions struct {
	// DPI sets output pixel density; 1pt = 1/72". Defaults to 144.
	DPI int
	// Pages restricts output to the given 1-based page numbers; empty means
	// all pages.
	Pages []int
}

// WritePagePreviews renders one PNG per page showing the field boxes over a
// white page. Files are named page-<n>.png under outDir.
func WritePagePreviews(layout Layout, outDir string, opt PreviewOptions) error {
	if len(layout.Pages) == 0 {
		return fmt.Errorf("document has no pages")
	}
	dpi := opt.DPI
	if dpi <= 0 {
		dpi = 144
	}
	scale := float64(dpi) / 72.0

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}

	byPage := fieldsByPage(layout.Fields)
	boxColor := color.RGBA{R: 30, G: 90, B: 200, A: 255}
	fillColor := color.RGBA{R: 226, G: 236, B: 252, A: 255}

	for _, pageNumber := range pageNumbers(len(layout.Pages), opt.Pages) {
		dim := layout.Pages[pageNumber-1]
		pixW := int(math.Round(dim.Width * scale))
		pixH := int(math.Round(dim.Height * scale))
		img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
		draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

		for _, f := range byPage[pageNumber] {
			x0 := int(math.Round(f.XCoord * scale))
			y0 := int(math.Round(f.YCoord * scale))
			x1 := int(math.Round((f.XCoord + f.Width) * scale))
			y1 := int(math.Round((f.YCoord + f.Height) * scale))
			x1 = clampPix(x1, pixW-1)
			y1 = clampPix(y1, pixH-1)
			x0 = clampPix(x0, pixW-1)
			y0 = clampPix(y0, pixH-1)
			fillRect(img, x0, y0, x1, y1, fillColor)
			strokeRect(img, x0, y0, x1, y1, boxColor)
		}

		name := filepath.Join(outDir, fmt.Sprintf("page-%d.png", pageNumber))
		f, err := os.Create(name)
		if err != nil {
			return fmt.Errorf("create png: %w", err)
		}
		if err := png.Encode(f, img); err != nil {
			_ = f.Close()
			return fmt.Errorf("encode png: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close png: %w", err)
		}
	}
	return nil
}

func clampPix(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}
