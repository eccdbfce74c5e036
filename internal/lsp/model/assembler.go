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
	"fmt"

	"github.com/sourcegraph/go-lsp"

	"github.com/smithy-lang/smithy-language-server/internal/lsp/smithy"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/syntax"
)

// A Source is one file's contribution to an assembly: its URI and parse
// tree. Contents are keyed by URI so that unsaved editor state participates.
type Source struct {
	URI  lsp.DocumentURI
	File *syntax.File
}

// An Assembler merges parsed files into a validated Model. It is re-run over
// the full set of files on every rebuild; implementations must not retain
// state between runs.
type Assembler interface {
	Assemble(ctx context.Context, sources []Source) (*Model, error)
}

// NewAssembler returns the default assembler.
func NewAssembler() Assembler {
	return &assembler{}
}

type assembler struct{}

// Assemble implements Assembler. Assembly never fails on model problems;
// those become events. The only error is context cancellation.
func (a *assembler) Assemble(ctx context.Context, sources []Source) (*Model, error) { // nolint:gocyclo
	m := &Model{shapes: make(map[smithy.ShapeID]*Shape)}
	r := &run{model: m}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.collect(src)
	}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.applyAll(src)
	}
	r.flattenMixins()
	r.checkTargets()
	return m, nil
}

type run struct {
	model *Model
	// applies are deferred so that apply statements may precede the shapes
	// they decorate, in the same file or another.
	applies []pendingApply
}

type pendingApply struct {
	target smithy.ShapeID
	trait  AppliedTrait
}

func (r *run) event(sev EventSeverity, id smithy.ShapeID, loc Location, format string, args ...interface{}) {
	r.model.events = append(r.model.events, Event{
		Severity: sev,
		ID:       id,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	})
}

// collect registers every shape declared in one file.
func (r *run) collect(src Source) {
	if src.File == nil {
		return
	}
	scope := fileScope(src.File)
	for _, st := range src.File.Statements {
		decl, ok := st.(*syntax.ShapeStatement)
		if !ok || decl.Name.Value == "" {
			continue
		}
		r.addShape(src.URI, scope, decl)
	}
}

// fileScope builds the resolution scope for one file: namespace, imports and
// locally declared names, including names synthesized by inline bodies.
func fileScope(f *syntax.File) *smithy.Scope {
	ns := ""
	for _, st := range f.Statements {
		if n, ok := st.(*syntax.NamespaceStatement); ok {
			ns = n.Name.Value
			break
		}
	}
	scope := smithy.NewScope(ns)
	for _, st := range f.Statements {
		switch s := st.(type) {
		case *syntax.UseStatement:
			if s.Target.Value != "" {
				scope.AddImport(smithy.ParseShapeID(s.Target.Value))
			}
		case *syntax.ShapeStatement:
			if s.Name.Value == "" {
				continue
			}
			scope.AddLocal(s.Name.Value)
			for _, m := range s.Members {
				if m.Inline != nil && m.Name.Value != "" {
					scope.AddLocal(s.Name.Value + capitalize(m.Name.Value))
				}
			}
		}
	}
	return scope
}

func (r *run) addShape(uri lsp.DocumentURI, scope *smithy.Scope, decl *syntax.ShapeStatement) {
	id := smithy.ShapeID{Namespace: scope.Namespace, Name: decl.Name.Value}
	if prev, ok := r.model.shapes[id]; ok {
		r.event(SeverityError, id, Location{URI: uri, Range: decl.Name.Range},
			"conflicting shape definition for %s, also defined at %s", id, prev.Location.URI)
		return
	}

	shape := &Shape{
		ID:       id,
		Kind:     KindFromKeyword(decl.Kind),
		Location: Location{URI: uri, Range: decl.Range},
	}
	if shape.Kind == KindSimple {
		shape.Simple = decl.Kind
	}
	for _, t := range decl.Traits {
		shape.Traits = append(shape.Traits, AppliedTrait{
			ID:       scope.Resolve(t.Name.Value),
			Location: Location{URI: uri, Range: t.Range},
		})
	}
	for _, mx := range decl.Mixins {
		shape.Mixins = append(shape.Mixins, scope.Resolve(mx.Value))
	}
	r.model.shapes[id] = shape

	for _, m := range decl.Members {
		r.addMember(uri, scope, shape, decl.Kind, m)
	}
}

func (r *run) addMember(uri lsp.DocumentURI, scope *smithy.Scope, shape *Shape, kind string, m *syntax.Member) { // nolint:gocyclo
	if m.Name.Value == "" {
		return
	}
	member := Member{
		Name:     m.Name.Value,
		Location: Location{URI: uri, Range: m.Range},
	}

	switch {
	case m.Inline != nil:
		// Synthesize the structure behind `:=` and target the member at it.
		synth := r.synthesizeInline(uri, scope, shape.ID, m)
		member.Target = synth
	case m.Target != nil:
		member.Target = scope.Resolve(m.Target.Value)
	case m.Value != nil && (kind == "service" || kind == "resource"):
		// Service and resource list bindings become one member per
		// referenced shape so that binding targets participate in
		// resolution checks like member targets do.
		for _, ref := range valueShapeRefs(m.Value) {
			shape.Members = append(shape.Members, Member{
				Name:     m.Name.Value,
				Target:   scope.Resolve(ref.ID.Value),
				Location: Location{URI: uri, Range: ref.Range},
			})
		}
		return
	}

	shape.Members = append(shape.Members, member)
}

func (r *run) synthesizeInline(uri lsp.DocumentURI, scope *smithy.Scope, owner smithy.ShapeID, m *syntax.Member) smithy.ShapeID {
	id := smithy.ShapeID{Namespace: scope.Namespace, Name: owner.Name + capitalize(m.Name.Value)}
	if _, ok := r.model.shapes[id]; ok {
		r.event(SeverityError, id, Location{URI: uri, Range: m.Inline.Range},
			"conflicting shape definition for synthesized %s", id)
		return id
	}
	synth := &Shape{
		ID:          id,
		Kind:        KindStructure,
		Synthesized: true,
		Location:    Location{URI: uri, Range: m.Inline.Range},
	}
	// The synthesized structure carries the matching @input/@output trait.
	switch m.Name.Value {
	case "input":
		synth.Traits = append(synth.Traits, AppliedTrait{
			ID:       smithy.ShapeID{Namespace: smithy.PreludeNamespace, Name: "input"},
			Location: Location{URI: uri, Range: m.Inline.Range},
		})
	case "output":
		synth.Traits = append(synth.Traits, AppliedTrait{
			ID:       smithy.ShapeID{Namespace: smithy.PreludeNamespace, Name: "output"},
			Location: Location{URI: uri, Range: m.Inline.Range},
		})
	}
	for _, t := range m.Inline.Traits {
		synth.Traits = append(synth.Traits, AppliedTrait{
			ID:       scope.Resolve(t.Name.Value),
			Location: Location{URI: uri, Range: t.Range},
		})
	}
	for _, mx := range m.Inline.Mixins {
		synth.Mixins = append(synth.Mixins, scope.Resolve(mx.Value))
	}
	r.model.shapes[id] = synth
	for _, im := range m.Inline.Members {
		r.addMember(uri, scope, synth, "structure", im)
	}
	return id
}

// applyAll processes the file's apply statements once every shape is known.
func (r *run) applyAll(src Source) {
	if src.File == nil {
		return
	}
	scope := fileScope(src.File)
	for _, st := range src.File.Statements {
		ap, ok := st.(*syntax.ApplyStatement)
		if !ok || ap.Target.Value == "" {
			continue
		}
		target := scope.Resolve(ap.Target.Value)
		shape, ok := r.model.shapes[target.Root()]
		if !ok {
			r.event(SeverityError, target, Location{URI: src.URI, Range: ap.Target.Range},
				"unknown shape: %s", target)
			continue
		}
		for _, t := range ap.Traits {
			shape.Traits = append(shape.Traits, AppliedTrait{
				ID:       scope.Resolve(t.Name.Value),
				Location: Location{URI: src.URI, Range: t.Range},
			})
		}
	}
}

// flattenMixins copies mixin members into mixing shapes, transitively, with
// a visit guard against cycles.
func (r *run) flattenMixins() {
	done := map[smithy.ShapeID]bool{}
	var flatten func(s *Shape, seen map[smithy.ShapeID]bool)
	flatten = func(s *Shape, seen map[smithy.ShapeID]bool) {
		if done[s.ID] || seen[s.ID] {
			return
		}
		seen[s.ID] = true
		for _, mid := range s.Mixins {
			mixin, ok := r.model.shapes[mid]
			if !ok {
				r.event(SeverityError, mid, s.Location, "unknown shape: %s", mid)
				continue
			}
			flatten(mixin, seen)
			for _, mm := range mixin.Members {
				if _, exists := s.Member(mm.Name); exists {
					continue
				}
				mm.Mixin = mixin.ID
				s.Members = append(s.Members, mm)
			}
		}
		done[s.ID] = true
	}
	for _, s := range r.model.shapes {
		flatten(s, map[smithy.ShapeID]bool{})
	}
}

// checkTargets verifies that every member target resolves to a known shape
// or the prelude.
func (r *run) checkTargets() {
	for _, s := range r.model.shapes {
		for _, m := range s.Members {
			t := m.Target
			if t.Name == "" || t.Namespace == smithy.PreludeNamespace {
				continue
			}
			if _, ok := r.model.shapes[t.Root()]; !ok {
				r.event(SeverityError, t, m.Location, "unknown shape: %s", t)
			}
		}
	}
}

// valueShapeRefs collects bare shape references from a binding value,
// recursing through arrays and object entries.
func valueShapeRefs(v syntax.Value) []*syntax.RefValue {
	var out []*syntax.RefValue
	switch val := v.(type) {
	case *syntax.RefValue:
		out = append(out, val)
	case *syntax.ArrayValue:
		for _, e := range val.Elems {
			out = append(out, valueShapeRefs(e)...)
		}
	case *syntax.ObjectValue:
		for _, e := range val.Entries {
			out = append(out, valueShapeRefs(e.Value)...)
		}
	}
	return out
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
