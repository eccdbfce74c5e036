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

package syntax

// A Range is a half-open byte span [Start, End) over the source.
type Range struct {
	Start int
	End   int
}

// Contains reports whether the byte offset falls within the range.
func (r Range) Contains(offset int) bool {
	return offset >= r.Start && offset < r.End
}

// Empty reports whether the range covers no bytes.
func (r Range) Empty() bool {
	return r.End <= r.Start
}

// A Node is any element of the parse tree carrying a byte range.
type Node interface {
	Span() Range
}

// An Ident is an identifier or shape-id occurrence. Value holds the raw text,
// which for shape references may be a full absolute or relative shape id
// (for example "com.foo#Bar$baz" or "Bar").
type Ident struct {
	Range Range
	Value string
}

// Span implements Node.
func (i Ident) Span() Range { return i.Range }

// File is the root of a parse. Statements preserve source order.
// Version records the IDL dialect selected by the $version control statement,
// "1" when absent.
type File struct {
	Range      Range
	Statements []Statement
	Version    string
}

// Span implements Node.
func (f *File) Span() Range { return f.Range }

// A Statement is a top-level element of a Smithy file.
type Statement interface {
	Node
	stmt()
}

// ControlStatement is a `$key: value` statement from the control section.
type ControlStatement struct {
	Range Range
	Key   Ident
	Value Value
}

// MetadataStatement is `metadata key = node`.
type MetadataStatement struct {
	Range Range
	Key   Ident
	Value Value
}

// NamespaceStatement is `namespace com.example`.
type NamespaceStatement struct {
	Range Range
	Name  Ident
}

// UseStatement is `use com.example#Shape`.
type UseStatement struct {
	Range  Range
	Target Ident
}

// ShapeStatement declares a shape of any kind. Members is used by aggregate
// and service-family shapes; service and resource bindings (version,
// operations, identifiers, ...) are parsed as members whose value carries the
// binding node.
type ShapeStatement struct {
	Range       Range
	Traits      []*Trait
	Kind        string
	KindRange   Range
	Name        Ident
	ForResource *Ident
	Mixins      []Ident
	Members     []*Member
}

// ApplyStatement is `apply Target @trait` or `apply Target { @a @b }`.
type ApplyStatement struct {
	Range  Range
	Target Ident
	Traits []*Trait
}

// ErrorStatement covers source the parser could not interpret. The parser
// records one per recovery so that sibling ranges stay disjoint.
type ErrorStatement struct {
	Range Range
}

// Span implements Node.
func (s *ControlStatement) Span() Range { return s.Range }

// Span implements Node.
func (s *MetadataStatement) Span() Range { return s.Range }

// Span implements Node.
func (s *NamespaceStatement) Span() Range { return s.Range }

// Span implements Node.
func (s *UseStatement) Span() Range { return s.Range }

// Span implements Node.
func (s *ShapeStatement) Span() Range { return s.Range }

// Span implements Node.
func (s *ApplyStatement) Span() Range { return s.Range }

// Span implements Node.
func (s *ErrorStatement) Span() Range { return s.Range }

func (*ControlStatement) stmt()   {}
func (*MetadataStatement) stmt()  {}
func (*NamespaceStatement) stmt() {}
func (*UseStatement) stmt()       {}
func (*ShapeStatement) stmt()     {}
func (*ApplyStatement) stmt()     {}
func (*ErrorStatement) stmt()     {}

// A Member is one entry of a shape body: traits, a name, then at most one of
// a `: target`, an `= default` value following a target, or a `:= { ... }`
// inline shape. Elided members (`$name`) reference a mixin or resource member
// by name only.
type Member struct {
	Range  Range
	Traits []*Trait
	Name   Ident
	Elided bool
	Target *Ident
	Value  Value
	Inline *InlineShape
}

// Span implements Node.
func (m *Member) Span() Range { return m.Range }

// An InlineShape is the anonymous structure introduced by `:=`.
type InlineShape struct {
	Range       Range
	Traits      []*Trait
	ForResource *Ident
	Mixins      []Ident
	Members     []*Member
}

// Span implements Node.
func (s *InlineShape) Span() Range { return s.Range }

// A Trait is a single `@name` or `@name(args)` application.
type Trait struct {
	Range Range
	Name  Ident
	Args  Value
}

// Span implements Node.
func (t *Trait) Span() Range { return t.Range }

// A Value is a node value: object, array, string, number, keyword or shape
// reference.
type Value interface {
	Node
	value()
}

// ObjectValue is `{ key: value, ... }`.
type ObjectValue struct {
	Range   Range
	Entries []*ObjectEntry
}

// ObjectEntry is one `key: value` pair of an object value.
type ObjectEntry struct {
	Range Range
	Key   Ident
	Value Value
}

// ArrayValue is `[ value, ... ]`.
type ArrayValue struct {
	Range Range
	Elems []Value
}

// StringValue is a quoted string or text block. Value holds the unquoted
// text.
type StringValue struct {
	Range Range
	Value string
}

// NumberValue is a numeric literal. Raw preserves the source spelling.
type NumberValue struct {
	Range Range
	Raw   string
}

// KeywordValue is true, false or null.
type KeywordValue struct {
	Range Range
	Value string
}

// RefValue is a bare identifier or shape id appearing in value position, such
// as trait arguments that name shapes.
type RefValue struct {
	Range Range
	ID    Ident
}

// Span implements Node.
func (v *ObjectValue) Span() Range { return v.Range }

// Span implements Node.
func (v *ObjectEntry) Span() Range { return v.Range }

// Span implements Node.
func (v *ArrayValue) Span() Range { return v.Range }

// Span implements Node.
func (v *StringValue) Span() Range { return v.Range }

// Span implements Node.
func (v *NumberValue) Span() Range { return v.Range }

// Span implements Node.
func (v *KeywordValue) Span() Range { return v.Range }

// Span implements Node.
func (v *RefValue) Span() Range { return v.Range }

func (*ObjectValue) value()  {}
func (*ArrayValue) value()   {}
func (*StringValue) value()  {}
func (*NumberValue) value()  {}
func (*KeywordValue) value() {}
func (*RefValue) value()     {}

// A ParseError is a non-fatal problem recorded during lexing or parsing.
// Parsing is total; errors never abort it.
type ParseError struct {
	Code    string
	Message string
	Range   Range
}

// Error codes reported by the lexer and parser.
const (
	CodeUnexpectedToken    = "UnexpectedToken"
	CodeExpectedIdent      = "ExpectedIdent"
	CodeExpectedShapeID    = "ExpectedShapeId"
	CodeUnterminatedString = "UnterminatedString"
	CodeInvalidEscape      = "InvalidEscape"
	CodeMixinsNotAllowed   = "MixinsNotAllowed"
	CodeInlineIoNotAllowed = "InlineIoNotAllowed"
	CodeDuplicateMember    = "DuplicateMember"
)

// StatementAt returns the statement covering the given byte offset, nil when
// the offset falls between statements.
func (f *File) StatementAt(offset int) Statement {
	for _, s := range f.Statements {
		if s.Span().Contains(offset) {
			return s
		}
	}
	return nil
}
