/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"formpress/internal/backend"
	"formpress/internal/backup"
	"formpress/internal/config"
	"formpress/internal/crash"
	"formpress/internal/docsource"
	"formpress/internal/domain"
	"formpress/internal/geometry"
	applog "formpress/internal/log"
	"formpress/internal/output"
	"formpress/internal/session"
	"formpress/internal/version"
)

func usage() {
	fmt.Println("FormPress — field layout engine")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  formpress version|-v|--version                Show version")
	fmt.Println("  formpress import <url> [name]                  Register a source document with the backend")
	fmt.Println("  formpress fields <doc-id>                      Reconcile and list the document's fields")
	fmt.Println("  formpress add <doc-id> <page> <x> <y> <kind>   Add a field and sync")
	fmt.Println("  formpress sync <doc-id>                        Flush pending changes to the remote store")
	fmt.Println("  formpress fill <doc-id> <pdf> <out> [k=v ...]  Write a filled PDF artifact")
	fmt.Println("  formpress preview <doc-id> <pdf> <out-dir>     Write PNG page previews")
}

func main() {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	guard := &crash.Guard{}
	defer func() { crash.Recover(guard) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		os.Exit(2)
	}

	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("FormPress — field layout engine")
		fmt.Println(version.String())
		return
	case "import":
		requireArgs(args, 3, "import requires <url>")
		name := ""
		if len(args) > 3 {
			name = args[3]
		}
		c := openClient(l)
		ctx := context.Background()
		if existing, err := c.FindExisting(ctx, args[2]); err == nil && existing != nil {
			fmt.Printf("Already imported as %s (%d pages)\n", existing.ID, existing.PageCount)
			return
		}
		res, err := c.ImportFromURL(ctx, args[2], name)
		if err != nil {
			fail(l, "import failed", err)
		}
		fmt.Printf("Imported %s as %s (%d pages, %d bytes)\n", res.FileName, res.ID, res.PageCount, res.FileSize)
		return
	case "fields":
		requireArgs(args, 3, "fields requires <doc-id>")
		s := openSession(l, guard, args[2])
		defer s.Close(context.Background())
		for _, f := range s.Store().Fields() {
			fmt.Printf("%-28s %-10s page %d  (%.1f, %.1f) %gx%g  %q\n",
				f.ID, f.InputType, f.PageNumber, f.XCoord, f.YCoord, f.Width, f.Height, f.Label)
		}
		fmt.Printf("%d fields\n", s.Store().Len())
		return
	case "add":
		requireArgs(args, 7, "add requires <doc-id> <page> <x> <y> <kind>")
		page := parseInt(args[3], "page")
		x := parseFloat(args[4], "x")
		y := parseFloat(args[5], "y")
		kind := domain.InputType(strings.ToUpper(args[6]))
		s := openSession(l, guard, args[2])
		defer s.Close(context.Background())
		f, err := s.Store().Create(page, geometry.Pt{X: x, Y: y}, kind)
		if err != nil {
			fail(l, "add failed", err)
		}
		if err := s.ForceSave(context.Background()); err != nil {
			fail(l, "sync failed", err)
		}
		fmt.Printf("Added %s %q on page %d\n", f.InputType, f.Label, f.PageNumber)
		return
	case "sync":
		requireArgs(args, 3, "sync requires <doc-id>")
		s := openSession(l, guard, args[2])
		defer s.Close(context.Background())
		if err := s.ForceSave(context.Background()); err != nil {
			fail(l, "sync failed", err)
		}
		fmt.Println("Synced.")
		return
	case "fill":
		requireArgs(args, 5, "fill requires <doc-id> <pdf> <out>")
		s := openSession(l, guard, args[2])
		defer s.Close(context.Background())
		doc, err := docsource.Open(args[2], args[3])
		if err != nil {
			fail(l, "open document failed", err)
		}
		values := map[string]string{}
		for _, kv := range args[5:] {
			if k, v, ok := strings.Cut(kv, "="); ok {
				values[k] = v
			}
		}
		layout := output.Layout{Pages: doc.AllPageDimensions(), Fields: s.Store().Fields()}
		if err := output.WriteFilledPDF(layout, args[4], output.FillOptions{Values: values}); err != nil {
			fail(l, "fill failed", err)
		}
		fmt.Println("Wrote", args[4])
		return
	case "preview":
		requireArgs(args, 5, "preview requires <doc-id> <pdf> <out-dir>")
		s := openSession(l, guard, args[2])
		defer s.Close(context.Background())
		doc, err := docsource.Open(args[2], args[3])
		if err != nil {
			fail(l, "open document failed", err)
		}
		layout := output.Layout{Pages: doc.AllPageDimensions(), Fields: s.Store().Fields()}
		if err := output.WritePagePreviews(layout, args[4], output.PreviewOptions{}); err != nil {
			fail(l, "preview failed", err)
		}
		fmt.Println("Wrote previews to", args[4])
		return
	default:
		usage()
		os.Exit(2)
	}
}

func openClient(l *slog.Logger) *backend.Client {
	cfg, token, err := config.Load()
	if err != nil {
		fail(l, "load config failed", err)
	}
	return backend.NewClient(cfg.Backend.BaseURL, token, backend.ClientOptions{
		Timeout:     cfg.Backend.EffectiveTimeout(),
		TLSInsecure: cfg.Backend.TLSInsecure,
	})
}

// openSession wires config, local snapshot store, and backend client into a
// live session for one document.
func openSession(l *slog.Logger, guard *crash.Guard, documentID string) *session.Session {
	cfg, _, err := config.Load()
	if err != nil {
		fail(l, "load config failed", err)
	}
	path, err := backup.DefaultPath()
	if err != nil {
		fail(l, "resolve backup path failed", err)
	}
	local, err := backup.Open(path)
	if err != nil {
		fail(l, "open backup store failed", err)
	}
	remote := openClient(l)
	s, err := session.Open(context.Background(), documentID, local, remote, cfg.Sync.SyncerConfig())
	if err != nil {
		fail(l, "open session failed", err)
	}
	guard.DocumentID = documentID
	guard.Local = local
	guard.Fields = s.Store().Fields
	return s
}

func requireArgs(args []string, n int, msg string) {
	if len(args) < n {
		fmt.Println(msg)
		usage()
		os.Exit(2)
	}
}

func parseInt(s, name string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		fmt.Printf("invalid %s: %q\n", name, s)
		os.Exit(2)
	}
	return v
}

func parseFloat(s, name string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		fmt.Printf("invalid %s: %q\n", name, s)
		os.Exit(2)
	}
	return v
}

func fail(l *slog.Logger, msg string, err error) {
	l.Error(msg, slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}
