/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"formpress/internal/domain"
)

// Client talks to the field store API. It satisfies syncer.RemoteStore, so a
// sync engine can use it as its remote durability channel directly.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// ClientOptions tune transport behavior.
type ClientOptions struct {
	Timeout     time.Duration
	TLSInsecure bool
}

// NewClient creates a new backend client. baseURL may include a trailing
// slash; it will be normalized.
func NewClient(baseURL, token string, opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	hc := &http.Client{Timeout: opts.Timeout}
	if opts.TLSInsecure {
		hc.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  hc,
	}
}

// doJSON performs one request with an optional JSON body and decodes the
// JSON response into dest (when dest is non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apiError{Status: resp.StatusCode, Method: method, Path: u.Path}
	}
	if dest == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(dest)
}

// apiError is a non-2xx server response.
type apiError struct {
	Status int
	Method string
	Path   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server %s %s: status %d", e.Method, e.Path, e.Status)
}

// Document is a minimal projection for listing.
type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	FieldCount int       `json:"fieldCount"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Version    int64     `json:"version"`
}

// ListDocuments returns documents known to the server.
func (c *Client) ListDocuments(ctx context.Context) ([]Document, error) {
	var list []Document
	if err := c.doJSON(ctx, http.MethodGet, "/api/documents", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// LoadFields fetches the full field collection for a document. A document the
// server has never seen yields an empty collection, not an error.
func (c *Client) LoadFields(ctx context.Context, documentID string) ([]domain.Field, error) {
	var fields []domain.Field
	path := "/api/documents/" + url.PathEscape(documentID) + "/fields"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// SaveFields replaces the document's field collection on the server. The
// operation is idempotent: the payload is the complete desired state.
func (c *Client) SaveFields(ctx context.Context, documentID string, fields []domain.Field) error {
	if fields == nil {
		fields = []domain.Field{}
	}
	path := "/api/documents/" + url.PathEscape(documentID) + "/fields"
	return c.doJSON(ctx, http.MethodPut, path, fields, nil)
}

// CopyFields asks the server to copy another document's fields into
// documentID, returning the copied collection. Used to seed a new document
// from a template.
func (c *Client) CopyFields(ctx context.Context, documentID, sourceDocumentID string) ([]domain.Field, error) {
	var fields []domain.Field
	path := "/api/documents/" + url.PathEscape(documentID) + "/fields/copy"
	body := map[string]string{"sourceDocumentId": sourceDocumentID}
	if err := c.doJSON(ctx, http.MethodPost, path, body, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// SearchFields runs a server-side search over a document's fields.
func (c *Client) SearchFields(ctx context.Context, documentID string, q FieldQuery) ([]domain.Field, error) {
	v := url.Values{}
	if q.Text != "" {
		v.Set("q", q.Text)
	}
	if q.InputType != "" {
		v.Set("type", string(q.InputType))
	}
	if q.PageFrom > 0 {
		v.Set("page_from", fmt.Sprint(q.PageFrom))
	}
	if q.PageTo > 0 {
		v.Set("page_to", fmt.Sprint(q.PageTo))
	}
	if q.Limit > 0 {
		v.Set("limit", fmt.Sprint(q.Limit))
	}
	path := "/api/documents/" + url.PathEscape(documentID) + "/fields/search"
	if enc := v.Encode(); enc != "" {
		path += "?" + enc
	}
	var fields []domain.Field
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// ImportResult describes a document the ingestion service knows about.
type ImportResult struct {
	ID            string `json:"id"`
	FileName      string `json:"fileName"`
	PageCount     int    `json:"pageCount"`
	FileSize      int64  `json:"fileSize"`
	RetrievalPath string `json:"retrievalPath"`
}

// ImportFromURL asks the ingestion service to fetch and register a source
// document. The returned id is the handle all field operations use.
func (c *Client) ImportFromURL(ctx context.Context, sourceURL, name string) (ImportResult, error) {
	body := map[string]string{"url": sourceURL}
	if name != "" {
		body["name"] = name
	}
	var res ImportResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/documents/import", body, &res); err != nil {
		return ImportResult{}, err
	}
	return res, nil
}

// FindExisting looks up a previously imported source URL so the same document
// is not ingested twice. Returns nil when the server has no match.
func (c *Client) FindExisting(ctx context.Context, sourceURL string) (*ImportResult, error) {
	path := "/api/documents/lookup?url=" + url.QueryEscape(sourceURL)
	var res ImportResult
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &res); err != nil {
		var ae *apiError
		if errors.As(err, &ae) && ae.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &res, nil
}

// Fill asks the output service to produce a filled artifact from the current
// field collection, user-entered values, and optional one-off geometry
// overrides that do not touch the persisted collection. Returns the artifact's
// retrieval path.
func (c *Client) Fill(ctx context.Context, documentID string, values map[string]string, overrides []domain.Field) (string, error) {
	body := map[string]any{"values": values}
	if len(overrides) > 0 {
		body["geometryOverrides"] = overrides
	}
	var resp struct {
		RetrievalPath string `json:"retrievalPath"`
	}
	path := "/api/documents/" + url.PathEscape(documentID) + "/fill"
	if err := c.doJSON(ctx, http.MethodPost, path, body, &resp); err != nil {
		return "", err
	}
	return resp.RetrievalPath, nil
}

// FetchToken obtains a bearer token from the server and stores it on the
// client for subsequent calls.
func (c *Client) FetchToken(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	body := map[string]any{"subject": subject, "ttl_seconds": int64(ttl / time.Second)}
	var resp struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expires_at"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/token", body, &resp); err != nil {
		return "", err
	}
	c.Token = resp.Token
	return resp.Token, nil
}
