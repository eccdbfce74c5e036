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

package feature

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sourcegraph/go-lsp"
	"github.com/spf13/afero"

	"github.com/smithy-lang/smithy-language-server/internal/lsp/project"
)

func snapFor(t *testing.T, files map[string]string) *project.Snapshot {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		if err := afero.WriteFile(fs, path, []byte(content), os.ModePerm); err != nil {
			t.Fatal(err)
		}
	}
	p, err := project.NewLoader(project.WithFS(fs)).Load(context.Background(), "/ws")
	if err != nil {
		t.Fatalf("Load(...): unexpected error %v", err)
	}
	return p.Snapshot()
}

func cursorAt(t *testing.T, snap *project.Snapshot, u lsp.DocumentURI, pos lsp.Position) *Cursor {
	t.Helper()
	c, err := Resolve(snap, u, pos)
	if err != nil {
		t.Fatalf("Resolve(...): unexpected error %v", err)
	}
	return c
}

// Definition in same file: cursor on the B in `b: B` lands on structure B's
// declaration spanning the whole statement.
func TestDefinitionSameFile(t *testing.T) {
	u := lsp.DocumentURI("file:///ws/main.smithy")
	snap := snapFor(t, map[string]string{
		"/ws/main.smithy": "namespace com.foo\nstructure A { b: B }\nstructure B {}",
	})

	locs := Definition(cursorAt(t, snap, u, lsp.Position{Line: 1, Character: 17}))
	want := []lsp.Location{{
		URI: u,
		Range: lsp.Range{
			Start: lsp.Position{Line: 2, Character: 0},
			End:   lsp.Position{Line: 2, Character: 14},
		},
	}}
	if diff := cmp.Diff(want, locs); diff != "" {
		t.Errorf("Definition(...): -want, +got:\n%s", diff)
	}
}

func TestDefinitionOnDeclaration(t *testing.T) {
	u := lsp.DocumentURI("file:///ws/main.smithy")
	snap := snapFor(t, map[string]string{
		"/ws/main.smithy": "namespace com.foo\nstructure A { b: B }\nstructure B {}",
	})

	// Cursor on the declared name itself resolves to its own declaration.
	locs := Definition(cursorAt(t, snap, u, lsp.Position{Line: 2, Character: 10}))
	if len(locs) != 1 {
		t.Fatalf("Definition(...): want 1 location, got %d", len(locs))
	}
	if locs[0].Range.Start.Line != 2 {
		t.Errorf("Definition(...): want line 2, got %d", locs[0].Range.Start.Line)
	}
}

func TestReferences(t *testing.T) {
	u := lsp.DocumentURI("file:///ws/main.smithy")
	snap := snapFor(t, map[string]string{
		"/ws/main.smithy": "namespace com.foo\nstructure A { b: B, c: B }\nstructure B {}",
	})

	refs := References(cursorAt(t, snap, u, lsp.Position{Line: 1, Character: 17}), false)
	if len(refs) != 2 {
		t.Fatalf("References(...): want 2, got %d", len(refs))
	}
	withDecl := References(cursorAt(t, snap, u, lsp.Position{Line: 1, Character: 17}), true)
	if len(withDecl) != 3 {
		t.Fatalf("References(..., includeDecl): want 3, got %d", len(withDecl))
	}
}

func TestHover(t *testing.T) {
	u := lsp.DocumentURI("file:///ws/main.smithy")
	snap := snapFor(t, map[string]string{
		"/ws/main.smithy": "$version: \"2.0\"\nnamespace com.foo\n@tags([\"x\"])\nstructure A { b: String }\n",
	})

	h := Hover(cursorAt(t, snap, u, lsp.Position{Line: 3, Character: 10}))
	if h == nil {
		t.Fatal("Hover(...): want content")
	}
	text := h.Contents[0].Value
	for _, want := range []string{"namespace com.foo", "@tags", "structure A", "b: String"} {
		if !strings.Contains(text, want) {
			t.Errorf("Hover(...): rendering should contain %q, got:\n%s", want, text)
		}
	}

	// Hovering the namespace keyword yields nothing.
	if h := Hover(cursorAt(t, snap, u, lsp.Position{Line: 1, Character: 0})); h != nil {
		t.Errorf("Hover(...): want nil on non-shape position, got %+v", h)
	}
}

func TestCompletion(t *testing.T) {
	u := lsp.DocumentURI("file:///ws/main.smithy")
	src := "$version: \"2.0\"\nnamespace com.foo\nstructure A { b: Str }\nstructure Strange {}\n"
	snap := snapFor(t, map[string]string{"/ws/main.smithy": src})

	// After `b: Str` the candidates include both the prelude String and the
	// local Strange.
	list := Completion(cursorAt(t, snap, u, lsp.Position{Line: 2, Character: 20}))
	labels := map[string]bool{}
	for _, item := range list.Items {
		labels[item.Label] = true
	}
	if !labels["String"] || !labels["Strange"] {
		t.Errorf("Completion(...): want String and Strange candidates, got %v", labels)
	}

	// At top level the candidates are keywords.
	list = Completion(cursorAt(t, snap, u, lsp.Position{Line: 4, Character: 0}))
	found := false
	for _, item := range list.Items {
		if item.Label == "structure" && item.Kind == lsp.CIKKeyword {
			found = true
		}
	}
	if !found {
		t.Errorf("Completion(...): want keyword candidates at top level")
	}
}

func TestCompletionTraits(t *testing.T) {
	u := lsp.DocumentURI("file:///ws/main.smithy")
	src := "$version: \"2.0\"\nnamespace com.foo\n@req\nstructure A {}\n"
	snap := snapFor(t, map[string]string{"/ws/main.smithy": src})

	list := Completion(cursorAt(t, snap, u, lsp.Position{Line: 2, Character: 4}))
	found := false
	for _, item := range list.Items {
		if item.Label == "required" {
			found = true
		}
	}
	if !found {
		t.Error("Completion(...): want required trait after @req")
	}
}

// Document symbols list the operation and its synthesized inline shapes.
func TestDocumentSymbols(t *testing.T) {
	u := lsp.DocumentURI("file:///ws/main.smithy")
	snap := snapFor(t, map[string]string{
		"/ws/main.smithy": "$version: \"2.0\"\nnamespace com.foo\noperation Op {\n  input := { foo: String }\n  output := { bar: String }\n}\n",
	})

	syms := DocumentSymbols(snap, u)
	names := make([]string, 0, len(syms))
	for _, s := range syms {
		names = append(names, s.Name)
	}
	want := []string{"Op", "OpInput", "OpOutput"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("DocumentSymbols(...): -want, +got:\n%s", diff)
	}
}

func TestWorkspaceSymbols(t *testing.T) {
	snap := snapFor(t, map[string]string{
		"/ws/a.smithy": "namespace com.foo\nstructure Apple {}\n",
		"/ws/b.smithy": "namespace com.foo\nstructure Banana {}\n",
	})

	all := WorkspaceSymbols(snap, "")
	if len(all) != 2 {
		t.Fatalf("WorkspaceSymbols(\"\"): want 2, got %d", len(all))
	}
	got := WorkspaceSymbols(snap, "ban")
	if len(got) != 1 || got[0].Name != "Banana" {
		t.Errorf("WorkspaceSymbols(\"ban\"): want Banana, got %+v", got)
	}
}

func TestDiagnostics(t *testing.T) {
	u := lsp.DocumentURI("file:///ws/main.smithy")
	snap := snapFor(t, map[string]string{
		"/ws/main.smithy": "namespace com.foo\n???\nstructure A { b: Missing }\n",
	})

	diags := Diagnostics(snap, u)
	var codes []string
	var msgs []string
	for _, d := range diags {
		codes = append(codes, d.Code)
		msgs = append(msgs, d.Message)
	}
	if len(diags) < 2 {
		t.Fatalf("Diagnostics(...): want parse and model diagnostics, got %v", msgs)
	}
	foundParse, foundModel := false, false
	for i := range diags {
		if codes[i] == "UnexpectedToken" {
			foundParse = true
		}
		if strings.Contains(msgs[i], "unknown shape") {
			foundModel = true
		}
	}
	if !foundParse || !foundModel {
		t.Errorf("Diagnostics(...): want both kinds, got codes %v msgs %v", codes, msgs)
	}
	for _, d := range diags {
		if d.Source != ServerName {
			t.Errorf("Diagnostics(...): want source %s, got %s", ServerName, d.Source)
		}
	}
}

func TestCodeActions(t *testing.T) {
	u := lsp.DocumentURI("file:///ws/main.smithy")
	snap := snapFor(t, map[string]string{
		"/ws/main.smithy": "namespace com.foo\nstructure A {}\n",
	})

	actions := CodeActions(snap, u)
	if len(actions) != 1 || actions[0].Command != CommandUpdateIDL2 {
		t.Fatalf("CodeActions(...): want the IDL 2 update, got %+v", actions)
	}

	edits, ok := UpdateIDL2Edit(snap, u)
	if !ok || len(edits) != 1 {
		t.Fatalf("UpdateIDL2Edit(...): want one edit, got %+v", edits)
	}
	if !strings.Contains(edits[0].NewText, `$version: "2.0"`) {
		t.Errorf("UpdateIDL2Edit(...): want a $version insertion, got %q", edits[0].NewText)
	}

	// A v2 file offers no update action.
	v2snap := snapFor(t, map[string]string{
		"/ws/main.smithy": "$version: \"2.0\"\nnamespace com.foo\nstructure A {}\n",
	})
	if actions := CodeActions(v2snap, u); len(actions) != 0 {
		t.Errorf("CodeActions(...): want none on v2, got %+v", actions)
	}
}

func TestRunSelector(t *testing.T) {
	snap := snapFor(t, map[string]string{
		"/ws/main.smithy": "$version: \"2.0\"\nnamespace com.foo\n" +
			"service Svc { version: \"1\" }\n" +
			"@error(\"client\")\nstructure Bad {}\n" +
			"structure Good {}\n",
	})

	ids := func(ms []SelectorMatch) []string {
		out := make([]string, 0, len(ms))
		for _, m := range ms {
			out = append(out, m.ID)
		}
		return out
	}

	all := RunSelector(snap, "*")
	if len(all) != 3 {
		t.Fatalf("RunSelector(*): want 3 shapes, got %v", ids(all))
	}
	if got := ids(RunSelector(snap, "service")); !cmp.Equal([]string{"com.foo#Svc"}, got) {
		t.Errorf("RunSelector(service): got %v", got)
	}
	if got := ids(RunSelector(snap, "structure [trait|error]")); !cmp.Equal([]string{"com.foo#Bad"}, got) {
		t.Errorf("RunSelector(structure [trait|error]): got %v", got)
	}
}

func TestFormat(t *testing.T) {
	u := lsp.DocumentURI("file:///ws/main.smithy")
	snap := snapFor(t, map[string]string{
		"/ws/main.smithy": "namespace com.foo\nstructure A {}",
	})

	edits, err := Format(context.Background(), snap, u, NewlineFormatter{})
	if err != nil {
		t.Fatalf("Format(...): unexpected error %v", err)
	}
	if len(edits) != 1 || !strings.HasSuffix(edits[0].NewText, "\n") {
		t.Fatalf("Format(...): want a trailing newline edit, got %+v", edits)
	}

	// Files with parse errors are left alone.
	bad := snapFor(t, map[string]string{
		"/ws/main.smithy": "???",
	})
	edits, err = Format(context.Background(), bad, u, NewlineFormatter{})
	if err != nil || edits != nil {
		t.Errorf("Format(...): want no edits on parse errors, got %+v, %v", edits, err)
	}
}
