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

// Package model holds the assembled semantic view of a project: every shape
// from every source file and dependency jar, with traits applied and
// validation events collected. The model is immutable once assembled;
// readers share it freely.
package model

import (
	"sort"

	"github.com/sourcegraph/go-lsp"

	"github.com/smithy-lang/smithy-language-server/internal/lsp/smithy"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/syntax"
)

// ShapeKind is the tagged variant of shape kinds. Simple types share
// KindSimple and carry their keyword in Shape.Simple.
type ShapeKind int

// Shape kinds.
const (
	KindSimple ShapeKind = iota
	KindList
	KindMap
	KindStructure
	KindUnion
	KindEnum
	KindIntEnum
	KindService
	KindOperation
	KindResource
)

func (k ShapeKind) String() string {
	switch k {
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindStructure:
		return "structure"
	case KindUnion:
		return "union"
	case KindEnum:
		return "enum"
	case KindIntEnum:
		return "intEnum"
	case KindService:
		return "service"
	case KindOperation:
		return "operation"
	case KindResource:
		return "resource"
	}
	return "simple"
}

// KindFromKeyword maps an IDL shape keyword to its variant.
func KindFromKeyword(kw string) ShapeKind {
	switch kw {
	case "list", "set":
		return KindList
	case "map":
		return KindMap
	case "structure":
		return KindStructure
	case "union":
		return KindUnion
	case "enum":
		return KindEnum
	case "intEnum":
		return KindIntEnum
	case "service":
		return KindService
	case "operation":
		return KindOperation
	case "resource":
		return KindResource
	}
	return KindSimple
}

// A Location names a byte range in a file, which may live inside a jar.
type Location struct {
	URI   lsp.DocumentURI
	Range syntax.Range
}

// A Member is one member of an aggregate shape. Target is the zero ShapeID
// for members declared without a target, such as enum values. Service and
// resource bindings become one member per referenced shape; value-only
// bindings such as a service's version produce no member.
type Member struct {
	Name     string
	Target   smithy.ShapeID
	Location Location
	// Mixin is the id of the mixin the member was flattened in from, zero
	// for directly declared members.
	Mixin smithy.ShapeID
}

// An AppliedTrait is one trait application on a shape, from its declaration
// or from an apply statement anywhere in the project.
type AppliedTrait struct {
	ID       smithy.ShapeID
	Location Location
}

// A Shape is one assembled shape.
type Shape struct {
	ID     smithy.ShapeID
	Kind   ShapeKind
	Simple string
	// Synthesized marks shapes the assembler created for inline operation
	// input/output bodies.
	Synthesized bool
	Members     []Member
	Traits      []AppliedTrait
	Mixins      []smithy.ShapeID
	Location    Location
}

// Member returns the named member, if present.
func (s *Shape) Member(name string) (Member, bool) {
	for _, m := range s.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// HasTrait reports whether a trait with the given id is applied.
func (s *Shape) HasTrait(id smithy.ShapeID) bool {
	for _, t := range s.Traits {
		if t.ID == id {
			return true
		}
	}
	return false
}

// EventSeverity grades validation events.
type EventSeverity int

// Event severities.
const (
	SeverityError EventSeverity = iota
	SeverityWarning
	SeverityNote
)

// An Event is one validation finding from assembly.
type Event struct {
	Severity EventSeverity
	// ID names the shape the event is about, possibly undeclared.
	ID       smithy.ShapeID
	Message  string
	Location Location
}

// A Model is the immutable result of one assembly run.
type Model struct {
	shapes map[smithy.ShapeID]*Shape
	events []Event
}

// Shape looks up a shape by id. Member ids resolve to their containing
// shape.
func (m *Model) Shape(id smithy.ShapeID) (*Shape, bool) {
	s, ok := m.shapes[id.Root()]
	return s, ok
}

// Shapes returns all shapes sorted by id.
func (m *Model) Shapes() []*Shape {
	out := make([]*Shape, 0, len(m.shapes))
	for _, s := range m.shapes {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// Len returns the number of shapes.
func (m *Model) Len() int {
	return len(m.shapes)
}

// Events returns every validation event from the assembly.
func (m *Model) Events() []Event {
	return m.events
}

// EventsFor returns the events located in the given file.
func (m *Model) EventsFor(uri lsp.DocumentURI) []Event {
	var out []Event
	for _, e := range m.events {
		if e.Location.URI == uri {
			out = append(out, e)
		}
	}
	return out
}
