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

package model

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sourcegraph/go-lsp"

	"github.com/smithy-lang/smithy-language-server/internal/lsp/smithy"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/syntax"
)

func assemble(t *testing.T, files map[lsp.DocumentURI]string) *Model {
	t.Helper()
	sources := make([]Source, 0, len(files))
	for u, text := range files {
		sources = append(sources, Source{URI: u, File: syntax.Parse(text).File})
	}
	m, err := NewAssembler().Assemble(context.Background(), sources)
	if err != nil {
		t.Fatalf("Assemble(...): unexpected error %v", err)
	}
	return m
}

func id(s string) smithy.ShapeID {
	return smithy.ParseShapeID(s)
}

func eventMessages(m *Model) []string {
	out := make([]string, 0, len(m.Events()))
	for _, e := range m.Events() {
		out = append(out, e.Message)
	}
	return out
}

func TestAssembleBasic(t *testing.T) {
	m := assemble(t, map[lsp.DocumentURI]string{
		"file:///a.smithy": "namespace com.foo\nstructure A { b: B, s: String }\nstructure B {}\n",
	})

	if m.Len() != 2 {
		t.Fatalf("Assemble(...): want 2 shapes, got %d", m.Len())
	}
	a, ok := m.Shape(id("com.foo#A"))
	if !ok {
		t.Fatal("Assemble(...): missing com.foo#A")
	}
	if a.Kind != KindStructure {
		t.Errorf("Assemble(...): want structure, got %s", a.Kind)
	}
	b, ok := a.Member("b")
	if !ok {
		t.Fatal("Assemble(...): A should have member b")
	}
	if diff := cmp.Diff(id("com.foo#B"), b.Target); diff != "" {
		t.Errorf("Assemble(...): -want target, +got:\n%s", diff)
	}
	s, _ := a.Member("s")
	if diff := cmp.Diff(id("smithy.api#String"), s.Target); diff != "" {
		t.Errorf("Assemble(...): -want target, +got:\n%s", diff)
	}
	if len(eventMessages(m)) != 0 {
		t.Errorf("Assemble(...): want no events, got %v", eventMessages(m))
	}
}

// Apply statements may precede the shapes they decorate, in the same file or
// another; no unknown shape event results.
func TestAssembleApplyBeforeDeclaration(t *testing.T) {
	m := assemble(t, map[lsp.DocumentURI]string{
		"file:///a.smithy": "$version: \"2.0\"\nnamespace com.foo\napply MyOpInput @tags([\"foo\"])\nstructure MyOpInput { @required body: String }\n",
	})

	shape, ok := m.Shape(id("com.foo#MyOpInput"))
	if !ok {
		t.Fatal("Assemble(...): missing com.foo#MyOpInput")
	}
	if !shape.HasTrait(id("smithy.api#tags")) {
		t.Error("Assemble(...): apply should attach @tags to the shape")
	}
	for _, msg := range eventMessages(m) {
		if strings.Contains(msg, "unknown shape") {
			t.Errorf("Assemble(...): unexpected unknown shape event %q", msg)
		}
	}
}

// Inline input/output bodies synthesize structures named after the
// operation, and the operation's members target them.
func TestAssembleInlineIO(t *testing.T) {
	m := assemble(t, map[lsp.DocumentURI]string{
		"file:///op.smithy": "$version: \"2.0\"\nnamespace com.foo\noperation Op {\n  input := { foo: String }\n  output := { bar: String }\n}\n",
	})

	op, ok := m.Shape(id("com.foo#Op"))
	if !ok {
		t.Fatal("Assemble(...): missing com.foo#Op")
	}
	in, ok := op.Member("input")
	if !ok {
		t.Fatal("Assemble(...): Op should have an input member")
	}
	if diff := cmp.Diff(id("com.foo#OpInput"), in.Target); diff != "" {
		t.Errorf("Assemble(...): -want input target, +got:\n%s", diff)
	}

	synth, ok := m.Shape(id("com.foo#OpInput"))
	if !ok {
		t.Fatal("Assemble(...): missing synthesized com.foo#OpInput")
	}
	if !synth.Synthesized {
		t.Error("Assemble(...): OpInput should be marked synthesized")
	}
	if !synth.HasTrait(id("smithy.api#input")) {
		t.Error("Assemble(...): OpInput should carry @input")
	}
	if _, ok := synth.Member("foo"); !ok {
		t.Error("Assemble(...): OpInput should have member foo")
	}
	out, _ := m.Shape(id("com.foo#OpOutput"))
	if out == nil || !out.HasTrait(id("smithy.api#output")) {
		t.Error("Assemble(...): OpOutput should exist and carry @output")
	}
}

func TestAssembleEvents(t *testing.T) {
	cases := map[string]struct {
		reason string
		files  map[lsp.DocumentURI]string
		want   string
	}{
		"UnknownMemberTarget": {
			reason: "Member targets that resolve nowhere produce unknown shape events.",
			files: map[lsp.DocumentURI]string{
				"file:///a.smithy": "namespace com.foo\nstructure A { b: Missing }\n",
			},
			want: "unknown shape: com.foo#Missing",
		},
		"UnknownApplyTarget": {
			reason: "Apply against an undeclared shape produces an unknown shape event.",
			files: map[lsp.DocumentURI]string{
				"file:///a.smithy": "namespace com.foo\napply Ghost @required\n",
			},
			want: "unknown shape: com.foo#Ghost",
		},
		"DuplicateShape": {
			reason: "Two declarations of the same id conflict.",
			files: map[lsp.DocumentURI]string{
				"file:///a.smithy": "namespace com.foo\nstructure A {}\nstructure A {}\n",
			},
			want: "conflicting shape definition",
		},
		"UnknownMixin": {
			reason: "Mixing in an undeclared shape produces an unknown shape event.",
			files: map[lsp.DocumentURI]string{
				"file:///a.smithy": "$version: \"2.0\"\nnamespace com.foo\nstructure A with [Ghost] {}\n",
			},
			want: "unknown shape: com.foo#Ghost",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			m := assemble(t, tc.files)
			for _, msg := range eventMessages(m) {
				if strings.Contains(msg, tc.want) {
					return
				}
			}
			t.Errorf("\n%s\nAssemble(...): want event containing %q, got %v", tc.reason, tc.want, eventMessages(m))
		})
	}
}

func TestAssembleMixinFlattening(t *testing.T) {
	m := assemble(t, map[lsp.DocumentURI]string{
		"file:///a.smithy": "$version: \"2.0\"\nnamespace com.foo\n" +
			"@mixin\nstructure Base { x: String }\n" +
			"@mixin\nstructure Mid with [Base] { y: String }\n" +
			"structure Leaf with [Mid] { z: String }\n",
	})

	leaf, ok := m.Shape(id("com.foo#Leaf"))
	if !ok {
		t.Fatal("Assemble(...): missing com.foo#Leaf")
	}
	for _, name := range []string{"x", "y", "z"} {
		if _, ok := leaf.Member(name); !ok {
			t.Errorf("Assemble(...): Leaf should have flattened member %q", name)
		}
	}
	x, _ := leaf.Member("x")
	if diff := cmp.Diff(id("com.foo#Mid"), x.Mixin); diff != "" {
		t.Errorf("Assemble(...): -want mixin provenance, +got:\n%s", diff)
	}
}

func TestAssembleMixinCycle(t *testing.T) {
	// A mixin cycle must terminate and still produce both shapes.
	m := assemble(t, map[lsp.DocumentURI]string{
		"file:///a.smithy": "$version: \"2.0\"\nnamespace com.foo\n" +
			"structure A with [B] { a: String }\n" +
			"structure B with [A] { b: String }\n",
	})
	if m.Len() != 2 {
		t.Fatalf("Assemble(...): want 2 shapes, got %d", m.Len())
	}
}

func TestAssembleCrossFile(t *testing.T) {
	m := assemble(t, map[lsp.DocumentURI]string{
		"file:///svc.smithy": "$version: \"2.0\"\nnamespace com.foo\nservice Svc { version: \"1\", operations: [Op] }\n",
		"file:///op.smithy":  "$version: \"2.0\"\nnamespace com.foo\noperation Op { input: In }\nstructure In {}\n",
	})

	svc, ok := m.Shape(id("com.foo#Svc"))
	if !ok {
		t.Fatal("Assemble(...): missing com.foo#Svc")
	}
	found := false
	for _, member := range svc.Members {
		if member.Target == id("com.foo#Op") {
			found = true
		}
	}
	if !found {
		t.Error("Assemble(...): Svc should bind operation com.foo#Op")
	}
	if msgs := eventMessages(m); len(msgs) != 0 {
		t.Errorf("Assemble(...): want no events, got %v", msgs)
	}
}
