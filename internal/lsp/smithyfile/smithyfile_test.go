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

package smithyfile

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/smithy-lang/smithy-language-server/internal/lsp/smithy"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/syntax"
)

func build(src string) *SmithyFile {
	return Build("file:///test.smithy", syntax.Parse(src).File)
}

func refStrings(f *SmithyFile) []string {
	out := make([]string, 0, len(f.References))
	for _, r := range f.References {
		out = append(out, r.ID.String()+" ("+r.Role.String()+")")
	}
	return out
}

func TestBuildIndex(t *testing.T) {
	cases := map[string]struct {
		reason    string
		src       string
		namespace string
		imports   []string
		decls     []string
		refs      []string
	}{
		"MemberTargets": {
			reason:    "Member targets resolve locally, then against the prelude.",
			src:       "namespace com.foo\nstructure A { b: B, s: String }\nstructure B {}\n",
			namespace: "com.foo",
			imports:   []string{},
			decls:     []string{"com.foo#A", "com.foo#A$b", "com.foo#A$s", "com.foo#B"},
			refs: []string{
				"com.foo#B (member target)",
				"smithy.api#String (member target)",
			},
		},
		"UseResolvesImports": {
			reason:    "An imported name wins over the prelude.",
			src:       "namespace com.foo\nuse com.bar#String\nstructure A { s: String }\n",
			namespace: "com.foo",
			imports:   []string{"com.bar#String"},
			decls:     []string{"com.foo#A", "com.foo#A$s"},
			refs: []string{
				"com.bar#String (use)",
				"com.bar#String (member target)",
			},
		},
		"TraitsAndApply": {
			reason:    "Trait names and apply targets are indexed with their roles.",
			src:       "$version: \"2.0\"\nnamespace com.foo\napply MyOpInput @tags([\"foo\"])\nstructure MyOpInput { @required body: String }\n",
			namespace: "com.foo",
			imports:   []string{},
			decls:     []string{"com.foo#MyOpInput", "com.foo#MyOpInput$body"},
			refs: []string{
				"com.foo#MyOpInput (apply target)",
				"smithy.api#tags (trait)",
				"smithy.api#required (trait)",
				"smithy.api#String (member target)",
			},
		},
		"ServiceBindings": {
			reason:    "Service operation and error lists index as bindings.",
			src:       "$version: \"2.0\"\nnamespace com.foo\nservice Svc {\n  version: \"1\"\n  operations: [Op]\n  errors: [Oops]\n}\noperation Op {}\nstructure Oops {}\n",
			namespace: "com.foo",
			imports:   []string{},
			decls:     []string{"com.foo#Svc", "com.foo#Op", "com.foo#Oops"},
			refs: []string{
				"com.foo#Op (service binding)",
				"com.foo#Oops (service binding)",
			},
		},
		"ResourceBindings": {
			reason:    "Resource identifiers and lifecycle operations carry distinct roles.",
			src:       "$version: \"2.0\"\nnamespace com.foo\nresource R {\n  identifiers: { id: RId }\n  create: CreateR\n}\nstring RId\noperation CreateR {}\n",
			namespace: "com.foo",
			imports:   []string{},
			decls:     []string{"com.foo#R", "com.foo#RId", "com.foo#CreateR"},
			refs: []string{
				"com.foo#RId (resource identifier)",
				"com.foo#CreateR (operation binding)",
			},
		},
		"Mixins": {
			reason:    "Mixin lists index with the mixin role.",
			src:       "$version: \"2.0\"\nnamespace com.foo\nstructure Mixed with [Base] {}\n@mixin\nstructure Base { x: String }\n",
			namespace: "com.foo",
			imports:   []string{},
			decls:     []string{"com.foo#Mixed", "com.foo#Base", "com.foo#Base$x"},
			refs: []string{
				"com.foo#Base (mixin)",
				"smithy.api#mixin (trait)",
				"smithy.api#String (member target)",
			},
		},
		"InlineSynthesized": {
			reason:    "Inline input/output bodies declare synthesized structures.",
			src:       "$version: \"2.0\"\nnamespace com.foo\noperation Op {\n  input := { foo: String }\n  output := { bar: String }\n}\n",
			namespace: "com.foo",
			imports:   []string{},
			decls: []string{
				"com.foo#Op",
				"com.foo#OpInput", "com.foo#OpInput$foo",
				"com.foo#OpOutput", "com.foo#OpOutput$bar",
			},
			refs: []string{
				"smithy.api#String (member target)",
				"smithy.api#String (member target)",
			},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := build(tc.src)
			if f.Namespace != tc.namespace {
				t.Errorf("\n%s\nBuild(...): want namespace %q, got %q", tc.reason, tc.namespace, f.Namespace)
			}

			imports := make([]string, 0, len(f.Imports))
			for _, im := range f.Imports {
				imports = append(imports, im.ID.String())
			}
			if diff := cmp.Diff(tc.imports, imports); diff != "" {
				t.Errorf("\n%s\nBuild(...): -want imports, +got:\n%s", tc.reason, diff)
			}

			decls := make([]string, 0, len(f.Declarations))
			for _, d := range f.Declarations {
				decls = append(decls, d.ID.String())
			}
			if diff := cmp.Diff(tc.decls, decls); diff != "" {
				t.Errorf("\n%s\nBuild(...): -want declarations, +got:\n%s", tc.reason, diff)
			}

			if diff := cmp.Diff(tc.refs, refStrings(f)); diff != "" {
				t.Errorf("\n%s\nBuild(...): -want references, +got:\n%s", tc.reason, diff)
			}
		})
	}
}

func TestReferenceAt(t *testing.T) {
	src := "namespace com.foo\nstructure A { b: B }\nstructure B {}\n"
	f := build(src)

	offset := strings.Index(src, "b: B") + 3
	ref, ok := f.ReferenceAt(offset)
	if !ok {
		t.Fatalf("ReferenceAt(%d): no reference found", offset)
	}
	want := smithy.ShapeID{Namespace: "com.foo", Name: "B"}
	if diff := cmp.Diff(want, ref.ID); diff != "" {
		t.Errorf("ReferenceAt(%d): -want, +got:\n%s", offset, diff)
	}

	if _, ok := f.ReferenceAt(0); ok {
		t.Error("ReferenceAt(0): the namespace keyword is not a reference")
	}
}

func TestDeclarationAt(t *testing.T) {
	src := "namespace com.foo\nstructure A { b: B }\nstructure B {}\n"
	f := build(src)

	offset := strings.LastIndex(src, "B")
	decl, ok := f.DeclarationAt(offset)
	if !ok {
		t.Fatalf("DeclarationAt(%d): no declaration found", offset)
	}
	want := smithy.ShapeID{Namespace: "com.foo", Name: "B"}
	if diff := cmp.Diff(want, decl.ID); diff != "" {
		t.Errorf("DeclarationAt(%d): -want, +got:\n%s", offset, diff)
	}
}

func TestReferencesSortedAndDisjoint(t *testing.T) {
	src := "$version: \"2.0\"\nnamespace com.foo\n" +
		"use com.ext#Widget\n" +
		"@tags([\"x\"])\nstructure A with [M] { b: B, w: Widget }\n" +
		"structure B {}\n@mixin\nstructure M {}\n"
	f := build(src)
	if len(f.References) == 0 {
		t.Fatal("Build(...): expected references")
	}
	for i := 1; i < len(f.References); i++ {
		prev, cur := f.References[i-1], f.References[i]
		if cur.Range.Start < prev.Range.End {
			t.Errorf("Build(...): reference %d overlaps previous: %+v then %+v", i, prev.Range, cur.Range)
		}
	}
}
