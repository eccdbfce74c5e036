// Copyright 2024 Smithy Language Server Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/spf13/afero"

	"github.com/smithy-lang/smithy-language-server/internal/lsp/project"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/server/dispatcher"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/uri"
)

const (
	mainURI  = lsp.DocumentURI("file:///ws/model/main.smithy")
	mainText = "namespace com.foo\nstructure A { b: B }\nstructure B {}\n"
)

func testServer(t *testing.T, files map[string]string) *Server {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		if err := afero.WriteFile(fs, path, []byte(content), os.ModePerm); err != nil {
			t.Fatal(err)
		}
	}

	loader := project.NewLoader(project.WithFS(fs))
	manager := project.NewManager(loader, logging.NewNopLogger(),
		project.WithDebounce(5*time.Millisecond))
	if err := manager.AddRoot(context.Background(), "/ws"); err != nil {
		t.Fatal(err)
	}

	s, err := New(WithFS(fs), WithManager(manager))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestHoverAfterOpen(t *testing.T) {
	s := testServer(t, map[string]string{
		"/ws/smithy-build.json": `{"version": "1.0", "sources": ["model"]}`,
		"/ws/model/main.smithy": mainText,
	})

	s.DidOpen(context.Background(), &lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: mainURI, Text: mainText, Version: 1},
	})

	h, err := s.Hover(context.Background(), &lsp.TextDocumentPositionParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: mainURI},
		Position:     lsp.Position{Line: 1, Character: 10},
	})
	if err != nil {
		t.Fatalf("Hover(...): unexpected error %v", err)
	}
	if h == nil || !strings.Contains(h.Contents[0].Value, "structure A") {
		t.Fatalf("Hover(...): want structure A rendering, got %+v", h)
	}
}

// A hover cancelled while awaiting the debounced rebuild reports the
// cancellation; a later hover reflects the changed text.
func TestHoverCancellation(t *testing.T) {
	s := testServer(t, map[string]string{
		"/ws/smithy-build.json": `{"version": "1.0", "sources": ["model"]}`,
		"/ws/model/main.smithy": mainText,
	})

	s.DidOpen(context.Background(), &lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: mainURI, Text: mainText, Version: 1},
	})
	s.DidChange(context.Background(), &lsp.DidChangeTextDocumentParams{
		TextDocument: lsp.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: lsp.TextDocumentIdentifier{URI: mainURI},
			Version:                2,
		},
		ContentChanges: []lsp.TextDocumentContentChangeEvent{
			{Text: "namespace com.foo\nstructure A { b: B, c: C }\nstructure B {}\nstructure C {}\n"},
		},
	})

	id := jsonrpc2.ID{Num: 7}
	rctx := s.BeginRequest(context.Background(), id)
	s.Cancel(id)
	_, err := s.Hover(rctx, &lsp.TextDocumentPositionParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: mainURI},
		Position:     lsp.Position{Line: 1, Character: 10},
	})
	if err == nil {
		t.Fatal("Hover(...): want error after cancellation")
	}
	s.EndRequest(id)

	h, err := s.Hover(context.Background(), &lsp.TextDocumentPositionParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: mainURI},
		Position:     lsp.Position{Line: 1, Character: 10},
	})
	if err != nil {
		t.Fatalf("Hover(...): unexpected error %v", err)
	}
	if h == nil || !strings.Contains(h.Contents[0].Value, "c: C") {
		t.Fatalf("Hover(...): want rendering of the changed text, got %+v", h)
	}
}

func TestUnknownURIReturnsEmpty(t *testing.T) {
	s := testServer(t, map[string]string{
		"/ws/smithy-build.json": `{"version": "1.0", "sources": ["model"]}`,
		"/ws/model/main.smithy": mainText,
	})

	locs, err := s.Definition(context.Background(), &lsp.TextDocumentPositionParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: "file:///nowhere/x.smithy"},
		Position:     lsp.Position{},
	})
	if err != nil {
		t.Fatalf("Definition(...): unexpected error %v", err)
	}
	if len(locs) != 0 {
		t.Errorf("Definition(...): want empty result for unknown uri, got %+v", locs)
	}
}

// Jar navigation: definition into a dependency jar yields a smithyjar URI,
// and smithy/jarFile returns the entry text.
func TestJarNavigation(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("META-INF/smithy/bar.smithy")
	if err != nil {
		t.Fatal(err)
	}
	jarModel := "$version: \"2.0\"\nnamespace com.bar\nstructure HasMyBool { b: Boolean }\n"
	if _, err := f.Write([]byte(jarModel)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/ws/.smithy-project.json": `{"sources": ["model"], "dependencies": [{"name": "bar", "path": "/deps/bar.jar"}]}`,
		"/ws/model/main.smithy":    "$version: \"2.0\"\nnamespace com.foo\nuse com.bar#HasMyBool\nstructure A { h: HasMyBool }\n",
	}
	for path, content := range files {
		if err := afero.WriteFile(fs, path, []byte(content), os.ModePerm); err != nil {
			t.Fatal(err)
		}
	}
	if err := afero.WriteFile(fs, "/deps/bar.jar", buf.Bytes(), os.ModePerm); err != nil {
		t.Fatal(err)
	}

	loader := project.NewLoader(project.WithFS(fs))
	manager := project.NewManager(loader, logging.NewNopLogger(),
		project.WithDebounce(5*time.Millisecond))
	if err := manager.AddRoot(context.Background(), "/ws"); err != nil {
		t.Fatal(err)
	}
	s, err := New(WithFS(fs), WithManager(manager))
	if err != nil {
		t.Fatal(err)
	}

	// `h: HasMyBool` on line 3 of main.smithy.
	locs, err := s.Definition(context.Background(), &lsp.TextDocumentPositionParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: uri.ToURI("/ws/model/main.smithy")},
		Position:     lsp.Position{Line: 3, Character: 18},
	})
	if err != nil {
		t.Fatalf("Definition(...): unexpected error %v", err)
	}
	if len(locs) != 1 {
		t.Fatalf("Definition(...): want 1 location, got %d", len(locs))
	}
	if !uri.IsSmithyJar(locs[0].URI) {
		t.Fatalf("Definition(...): want a smithyjar URI, got %s", locs[0].URI)
	}

	res, err := s.JarFile(context.Background(), &dispatcher.JarFileParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: locs[0].URI},
	})
	if err != nil {
		t.Fatalf("JarFile(...): unexpected error %v", err)
	}
	if res.Text != jarModel {
		t.Errorf("JarFile(...): want the entry text back, got %q", res.Text)
	}
}

func TestShutdownExit(t *testing.T) {
	s := testServer(t, map[string]string{
		"/ws/smithy-build.json": `{"version": "1.0", "sources": ["model"]}`,
		"/ws/model/main.smithy": mainText,
	})

	var code = -1
	s.exit = func(c int) { code = c }

	s.Exit(context.Background())
	if code != 1 {
		t.Errorf("Exit(...): want code 1 without shutdown, got %d", code)
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown(...): unexpected error %v", err)
	}
	s.Exit(context.Background())
	if code != 0 {
		t.Errorf("Exit(...): want code 0 after shutdown, got %d", code)
	}
}
