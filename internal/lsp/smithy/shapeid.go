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

// Package smithy holds the value types shared by the syntactic and semantic
// layers: shape ids and the prelude name tables.
package smithy

import "strings"

// A ShapeID identifies a shape or shape member: `namespace#name` or
// `namespace#name$member`. The zero value is invalid.
type ShapeID struct {
	Namespace string
	Name      string
	Member    string
}

// ParseShapeID splits a raw shape id into its parts. Relative ids produce an
// empty namespace; callers resolve them against a Scope.
func ParseShapeID(raw string) ShapeID {
	var id ShapeID
	rest := raw
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		id.Namespace = rest[:i]
		rest = rest[i+1:]
	}
	if i := strings.IndexByte(rest, '$'); i >= 0 {
		id.Member = rest[i+1:]
		rest = rest[:i]
	}
	id.Name = rest
	return id
}

// IsAbsolute reports whether the id carries a namespace.
func (id ShapeID) IsAbsolute() bool { return id.Namespace != "" }

// IsMember reports whether the id addresses a member.
func (id ShapeID) IsMember() bool { return id.Member != "" }

// Root drops the member part, leaving the containing shape's id.
func (id ShapeID) Root() ShapeID {
	id.Member = ""
	return id
}

// WithMember returns the id of the named member of this shape.
func (id ShapeID) WithMember(member string) ShapeID {
	id.Member = member
	return id
}

// String renders the canonical form.
func (id ShapeID) String() string {
	var b strings.Builder
	if id.Namespace != "" {
		b.WriteString(id.Namespace)
		b.WriteByte('#')
	}
	b.WriteString(id.Name)
	if id.Member != "" {
		b.WriteByte('$')
		b.WriteString(id.Member)
	}
	return b.String()
}

// A Scope resolves relative shape names the way the IDL does: explicit use
// statements win, then shapes declared in the same namespace, then the
// prelude. Unresolvable names default into the scope's namespace so that
// forward references within a project still produce a usable id.
type Scope struct {
	Namespace string
	imports   map[string]ShapeID
	locals    map[string]bool
}

// NewScope creates a Scope for one file.
func NewScope(namespace string) *Scope {
	return &Scope{
		Namespace: namespace,
		imports:   make(map[string]ShapeID),
		locals:    make(map[string]bool),
	}
}

// AddImport registers a use statement's target.
func (s *Scope) AddImport(id ShapeID) {
	s.imports[id.Name] = id
}

// AddLocal registers a shape declared in the file's namespace.
func (s *Scope) AddLocal(name string) {
	s.locals[name] = true
}

// Resolve turns a raw reference into an absolute shape id.
func (s *Scope) Resolve(raw string) ShapeID {
	id := ParseShapeID(raw)
	if id.IsAbsolute() {
		return id
	}
	if imp, ok := s.imports[id.Name]; ok {
		return ShapeID{Namespace: imp.Namespace, Name: imp.Name, Member: id.Member}
	}
	if s.locals[id.Name] {
		id.Namespace = s.Namespace
		return id
	}
	if IsPreludeShape(id.Name) {
		id.Namespace = PreludeNamespace
		return id
	}
	id.Namespace = s.Namespace
	return id
}
