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

// Package smithyfile derives the per-file semantic index from a parse tree:
// the namespace, imports, shape declarations and every shape-id reference
// with its byte range and role. The reference list is the primary index
// behind "what shape does the cursor point at".
package smithyfile

import (
	"sort"

	"github.com/sourcegraph/go-lsp"

	"github.com/smithy-lang/smithy-language-server/internal/lsp/smithy"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/syntax"
)

// Role classifies where a shape-id reference occurs.
type Role int

// Reference roles.
const (
	RoleUse Role = iota
	RoleMemberTarget
	RoleTrait
	RoleApplyTarget
	RoleMixin
	RoleResourceIdentifier
	RoleResourceProperty
	RoleServiceBinding
	RoleOperationBinding
	RoleNodeValue
)

func (r Role) String() string {
	switch r {
	case RoleUse:
		return "use"
	case RoleMemberTarget:
		return "member target"
	case RoleTrait:
		return "trait"
	case RoleApplyTarget:
		return "apply target"
	case RoleMixin:
		return "mixin"
	case RoleResourceIdentifier:
		return "resource identifier"
	case RoleResourceProperty:
		return "resource property"
	case RoleServiceBinding:
		return "service binding"
	case RoleOperationBinding:
		return "operation binding"
	case RoleNodeValue:
		return "node value"
	}
	return "unknown"
}

// A Reference is one occurrence of a shape id in the file.
type Reference struct {
	Range syntax.Range
	ID    smithy.ShapeID
	Role  Role
}

// A Declaration is a shape (or member) declared in the file.
type Declaration struct {
	ID        smithy.ShapeID
	Kind      string
	Range     syntax.Range
	NameRange syntax.Range
	// Synthesized marks shapes the IDL creates implicitly, such as the
	// structures behind `input :=`.
	Synthesized bool
}

// An Import is one use statement.
type Import struct {
	ID    smithy.ShapeID
	Range syntax.Range
}

// A SmithyFile is the semantic index of a single file.
type SmithyFile struct {
	URI            lsp.DocumentURI
	Namespace      string
	NamespaceRange syntax.Range
	IDLVersion     string
	Imports        []Import
	Declarations   []Declaration
	// References is sorted by range start; ranges do not overlap.
	References []Reference
}

// Build walks a parse tree into a SmithyFile.
func Build(uri lsp.DocumentURI, file *syntax.File) *SmithyFile {
	if file == nil {
		return &SmithyFile{URI: uri, IDLVersion: syntax.VersionOne}
	}
	f := &SmithyFile{URI: uri, IDLVersion: file.Version}

	for _, st := range file.Statements {
		if ns, ok := st.(*syntax.NamespaceStatement); ok {
			f.Namespace = ns.Name.Value
			f.NamespaceRange = ns.Name.Range
			break
		}
	}

	scope := smithy.NewScope(f.Namespace)
	for _, st := range file.Statements {
		switch s := st.(type) {
		case *syntax.UseStatement:
			if s.Target.Value != "" {
				scope.AddImport(smithy.ParseShapeID(s.Target.Value))
			}
		case *syntax.ShapeStatement:
			if s.Name.Value != "" {
				scope.AddLocal(s.Name.Value)
			}
		}
	}

	b := &builder{file: f, scope: scope}
	for _, st := range file.Statements {
		b.statement(st)
	}

	sort.SliceStable(f.References, func(i, j int) bool {
		return f.References[i].Range.Start < f.References[j].Range.Start
	})
	return f
}

type builder struct {
	file  *SmithyFile
	scope *smithy.Scope
}

func (b *builder) ref(id syntax.Ident, role Role) {
	if id.Value == "" {
		return
	}
	b.file.References = append(b.file.References, Reference{
		Range: id.Range,
		ID:    b.scope.Resolve(id.Value),
		Role:  role,
	})
}

func (b *builder) statement(st syntax.Statement) {
	switch s := st.(type) {
	case *syntax.UseStatement:
		if s.Target.Value == "" {
			return
		}
		id := smithy.ParseShapeID(s.Target.Value)
		b.file.Imports = append(b.file.Imports, Import{ID: id, Range: s.Target.Range})
		b.ref(s.Target, RoleUse)
	case *syntax.ApplyStatement:
		b.ref(s.Target, RoleApplyTarget)
		for _, t := range s.Traits {
			b.trait(t)
		}
	case *syntax.ShapeStatement:
		b.shape(s)
	}
}

func (b *builder) shape(s *syntax.ShapeStatement) { // nolint:gocyclo
	for _, t := range s.Traits {
		b.trait(t)
	}
	if s.Name.Value == "" {
		return
	}

	owner := smithy.ShapeID{Namespace: b.file.Namespace, Name: s.Name.Value}
	b.file.Declarations = append(b.file.Declarations, Declaration{
		ID:        owner,
		Kind:      s.Kind,
		Range:     s.Range,
		NameRange: s.Name.Range,
	})

	if s.ForResource != nil {
		b.ref(*s.ForResource, RoleResourceIdentifier)
	}
	for _, m := range s.Mixins {
		b.ref(m, RoleMixin)
	}
	for _, m := range s.Members {
		b.member(owner, s.Kind, m)
	}
}

func (b *builder) member(owner smithy.ShapeID, kind string, m *syntax.Member) { // nolint:gocyclo
	for _, t := range m.Traits {
		b.trait(t)
	}
	if m.Name.Value == "" {
		return
	}

	switch kind {
	case "service":
		b.serviceBinding(m)
		return
	case "resource":
		b.resourceBinding(m)
		return
	case "operation":
		if m.Inline != nil {
			b.inline(owner, m)
			return
		}
		if m.Target != nil {
			b.ref(*m.Target, RoleOperationBinding)
		}
		if m.Value != nil {
			b.valueRefs(m.Value, RoleOperationBinding)
		}
		return
	}

	b.file.Declarations = append(b.file.Declarations, Declaration{
		ID:        owner.WithMember(m.Name.Value),
		Kind:      "member",
		Range:     m.Range,
		NameRange: m.Name.Range,
	})
	if m.Target != nil {
		b.ref(*m.Target, RoleMemberTarget)
	}
	if m.Inline != nil {
		b.inline(owner, m)
	}
}

// inline records the synthesized structure behind a `:=` member. The
// structure's name derives from the operation name plus the capitalized
// member name, matching what the model assembler synthesizes.
func (b *builder) inline(owner smithy.ShapeID, m *syntax.Member) {
	name := owner.Name + capitalize(m.Name.Value)
	id := smithy.ShapeID{Namespace: b.file.Namespace, Name: name}
	b.scope.AddLocal(name)
	b.file.Declarations = append(b.file.Declarations, Declaration{
		ID:          id,
		Kind:        "structure",
		Range:       m.Inline.Range,
		NameRange:   m.Name.Range,
		Synthesized: true,
	})
	for _, t := range m.Inline.Traits {
		b.trait(t)
	}
	for _, mx := range m.Inline.Mixins {
		b.ref(mx, RoleMixin)
	}
	for _, im := range m.Inline.Members {
		b.member(id, "structure", im)
	}
}

func (b *builder) serviceBinding(m *syntax.Member) {
	switch m.Name.Value {
	case "operations", "resources", "errors":
		if m.Target != nil {
			b.ref(*m.Target, RoleServiceBinding)
		}
		b.valueRefs(m.Value, RoleServiceBinding)
	default:
		b.valueRefs(m.Value, RoleNodeValue)
	}
}

func (b *builder) resourceBinding(m *syntax.Member) { // nolint:gocyclo
	switch m.Name.Value {
	case "identifiers":
		b.objectEntryRefs(m.Value, RoleResourceIdentifier)
	case "properties":
		b.objectEntryRefs(m.Value, RoleResourceProperty)
	case "create", "put", "read", "update", "delete", "list",
		"operations", "collectionOperations", "resources":
		if m.Target != nil {
			b.ref(*m.Target, RoleOperationBinding)
		}
		b.valueRefs(m.Value, RoleOperationBinding)
	default:
		b.valueRefs(m.Value, RoleNodeValue)
	}
}

func (b *builder) objectEntryRefs(v syntax.Value, role Role) {
	obj, ok := v.(*syntax.ObjectValue)
	if !ok {
		return
	}
	for _, e := range obj.Entries {
		if rv, ok := e.Value.(*syntax.RefValue); ok {
			b.ref(rv.ID, role)
		}
	}
}

// valueRefs collects bare shape-id references from a node value, recursing
// through arrays and objects. String values are skipped: without the trait's
// own definition we cannot know they are shape-id-valued.
func (b *builder) valueRefs(v syntax.Value, role Role) {
	switch val := v.(type) {
	case *syntax.RefValue:
		b.ref(val.ID, role)
	case *syntax.ArrayValue:
		for _, e := range val.Elems {
			b.valueRefs(e, role)
		}
	case *syntax.ObjectValue:
		for _, e := range val.Entries {
			b.valueRefs(e.Value, role)
		}
	}
}

func (b *builder) trait(t *syntax.Trait) {
	b.ref(t.Name, RoleTrait)
	if t.Args != nil {
		b.valueRefs(t.Args, RoleNodeValue)
	}
}

// ReferenceAt returns the reference covering the byte offset, if any.
// References are sorted and non-overlapping, so a binary search suffices.
func (f *SmithyFile) ReferenceAt(offset int) (Reference, bool) {
	i := sort.Search(len(f.References), func(i int) bool {
		return f.References[i].Range.End > offset
	})
	if i < len(f.References) && f.References[i].Range.Contains(offset) {
		return f.References[i], true
	}
	return Reference{}, false
}

// DeclarationAt returns the declaration whose name covers the byte offset.
func (f *SmithyFile) DeclarationAt(offset int) (Declaration, bool) {
	for _, d := range f.Declarations {
		if d.NameRange.Contains(offset) {
			return d, true
		}
	}
	return Declaration{}, false
}

// Declaration returns the declaration of the given id, if the file holds it.
func (f *SmithyFile) Declaration(id smithy.ShapeID) (Declaration, bool) {
	for _, d := range f.Declarations {
		if d.ID == id {
			return d, true
		}
	}
	return Declaration{}, false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
