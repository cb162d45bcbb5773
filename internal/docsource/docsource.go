/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package docsource reads the underlying PDF a field layout is placed over.
// It supplies what the rest of the system needs from the document itself:
// page count and native page dimensions in document-space units. Rendering
// stays out of scope here; geometry transforms consume the dimensions.
package docsource

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"formpress/internal/domain"
)

// Document is an opened source document. It is read-only and cheap to keep
// around for the lifetime of an editing session.
type Document struct {
	info domain.DocumentInfo
	dims []domain.PageDimensions
}

// Open reads a PDF from disk and resolves its page geometry.
func Open(documentID, path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat document: %w", err)
	}
	doc, err := Read(documentID, f)
	if err != nil {
		return nil, err
	}
	doc.info.FileName = filepath.Base(path)
	doc.info.FileSize = st.Size()
	doc.info.RetrievalPath = path
	return doc, nil
}

// Read parses a PDF from a seekable reader and resolves its page geometry.
func Read(documentID string, r io.ReadSeeker) (*Document, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(r, conf)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("resolve page count: %w", err)
	}

	pageDims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("resolve page dimensions: %w", err)
	}
	dims := make([]domain.PageDimensions, len(pageDims))
	for i, d := range pageDims {
		dims[i] = domain.PageDimensions{Width: d.Width, Height: d.Height}
	}

	return &Document{
		info: domain.DocumentInfo{ID: documentID, PageCount: ctx.PageCount},
		dims: dims,
	}, nil
}

// Info returns document metadata.
func (d *Document) Info() domain.DocumentInfo { return d.info }

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return d.info.PageCount }

// PageDimensions returns the native size of a 1-based page. Out-of-range
// pages are an error rather than a zero size, so callers cannot silently
// divide by zero in a coordinate transform.
func (d *Document) PageDimensions(pageNumber int) (domain.PageDimensions, error) {
	if pageNumber < 1 || pageNumber > len(d.dims) {
		return domain.PageDimensions{}, fmt.Errorf("page %d out of range (document has %d pages)", pageNumber, len(d.dims))
	}
	return d.dims[pageNumber-1], nil
}

// AllPageDimensions returns the native sizes of every page in order.
func (d *Document) AllPageDimensions() []domain.PageDimensions {
	out := make([]domain.PageDimensions, len(d.dims))
	copy(out, d.dims)
	return out
}
