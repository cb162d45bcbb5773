/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"formpress/internal/domain"
)

// FieldQuery filters a document's fields server-side. Text matches label and
// slug via the search vector; the rest are plain column filters.
type FieldQuery struct {
	Text      string
	InputType domain.InputType
	PageFrom  int
	PageTo    int
	Limit     int
	Offset    int
}

// SearchFields executes a search over the Postgres fields table using
// tsvector plus filters and returns matching fields in page order.
func SearchFields(ctx context.Context, db *sql.DB, documentID string, q FieldQuery) ([]domain.Field, error) {
	var (
		args []any
		b    strings.Builder
	)
	useFTS := strings.TrimSpace(q.Text) != ""
	if useFTS {
		b.WriteString("SELECT f.payload FROM fields f WHERE f.document_id = $1 AND f.search_vector @@ plainto_tsquery('simple', $2) ")
		args = append(args, documentID, q.Text)
	} else {
		b.WriteString("SELECT f.payload FROM fields f WHERE f.document_id = $1 ")
		args = append(args, documentID)
	}

	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.InputType != "" {
		b.WriteString(" AND f.input_type = " + place(string(q.InputType)) + " ")
	}
	if q.PageFrom > 0 && q.PageTo > 0 && q.PageTo >= q.PageFrom {
		b.WriteString(" AND f.page_number BETWEEN " + place(q.PageFrom) + " AND " + place(q.PageTo) + " ")
	} else if q.PageFrom > 0 {
		b.WriteString(" AND f.page_number >= " + place(q.PageFrom) + " ")
	} else if q.PageTo > 0 {
		b.WriteString(" AND f.page_number <= " + place(q.PageTo) + " ")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	b.WriteString(" ORDER BY f.page_number, f.id ")
	b.WriteString(" LIMIT " + place(limit) + " OFFSET " + place(offset))

	rows, err := db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search fields query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Field
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var f domain.Field
		if err := json.Unmarshal(payload, &f); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
