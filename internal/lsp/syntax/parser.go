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

import (
	"fmt"
	"strings"
)

const (
	// VersionOne is the dialect selected when no $version control statement
	// is present.
	VersionOne = "1"
	// VersionTwo is the dialect selected by `$version: "2.0"`.
	VersionTwo = "2"
)

var shapeKinds = map[string]bool{
	"blob": true, "boolean": true, "string": true, "byte": true,
	"short": true, "integer": true, "long": true, "float": true,
	"double": true, "bigInteger": true, "bigDecimal": true,
	"timestamp": true, "document": true,
	"list": true, "set": true, "map": true,
	"structure": true, "union": true,
	"service": true, "operation": true, "resource": true,
	"enum": true, "intEnum": true,
}

var v2OnlyKinds = map[string]bool{"enum": true, "intEnum": true}

// A Result is the outcome of parsing one file. Parsing is a total function:
// every input produces a tree, a full token stream and zero or more errors.
type Result struct {
	File   *File
	Tokens []Token
	Errors []ParseError
}

// Parse lexes and parses src into a resilient statement forest.
func Parse(src string) *Result {
	tokens, errs := Lex(src)
	p := &parser{
		src:       src,
		toks:      tokens,
		errs:      errs,
		lineStart: make([]bool, len(tokens)),
	}

	// Mark tokens that are the first significant token on their line; these
	// are the anchors panic-mode recovery resynchronizes on.
	first := true
	for i, t := range tokens {
		switch t.Kind {
		case TokenNewline:
			first = true
		case TokenWhitespace:
		default:
			p.lineStart[i] = first
			first = false
		}
	}

	f := p.parseFile()
	return &Result{File: f, Tokens: tokens, Errors: p.errs}
}

type parser struct {
	src       string
	toks      []Token
	pos       int
	errs      []ParseError
	lineStart []bool
	version   string
}

func (p *parser) errorf(r Range, code, format string, args ...interface{}) {
	p.errs = append(p.errs, ParseError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Range:   r,
	})
}

// skipTrivia advances past whitespace, newlines and comments. Doc comments
// are consumed too; they bind to the following declaration by position.
func (p *parser) skipTrivia() {
	for p.pos < len(p.toks) {
		k := p.toks[p.pos].Kind
		if k != TokenWhitespace && k != TokenNewline && k != TokenComment && k != TokenDocComment {
			return
		}
		p.pos++
	}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.toks)
}

func (p *parser) cur() Token {
	if p.eof() {
		end := len(p.src)
		return Token{Kind: TokenError, Start: end, End: end}
	}
	return p.toks[p.pos]
}

func (p *parser) text(t Token) string {
	return t.Text(p.src)
}

// atPunct reports whether the current token is the given punctuation byte.
func (p *parser) atPunct(b byte) bool {
	t := p.cur()
	return t.Kind == TokenPunct && t.End-t.Start == 1 && p.src[t.Start] == b
}

func (p *parser) atKeyword(kw string) bool {
	t := p.cur()
	return t.Kind == TokenIdent && p.text(t) == kw
}

func (p *parser) advance() Token {
	t := p.cur()
	if !p.eof() {
		p.pos++
	}
	return t
}

func (p *parser) parseFile() *File {
	f := &File{Range: Range{Start: 0, End: len(p.src)}, Version: VersionOne}

	for {
		p.skipTrivia()
		if p.eof() {
			break
		}
		f.Statements = append(f.Statements, p.parseStatement())
	}
	f.Version = p.versionOrDefault()
	return f
}

func (p *parser) versionOrDefault() string {
	if p.version == "" {
		return VersionOne
	}
	return p.version
}

func (p *parser) v2() bool {
	return p.version == VersionTwo
}

func (p *parser) parseStatement() Statement { // nolint:gocyclo
	t := p.cur()
	switch {
	case t.Kind == TokenControl:
		return p.parseControl()
	case p.atKeyword("metadata"):
		return p.parseMetadata()
	case p.atKeyword("namespace"):
		return p.parseNamespace()
	case p.atKeyword("use"):
		return p.parseUse()
	case p.atKeyword("apply"):
		return p.parseApply()
	case p.atPunct('@') || (t.Kind == TokenIdent && shapeKinds[p.text(t)]):
		return p.parseShape()
	default:
		p.errorf(t.Span(), CodeUnexpectedToken, "unexpected %s %q", t.Kind, p.text(t))
		return p.recoverStatement(t.Start)
	}
}

// recoverStatement performs panic-mode recovery: it skips tokens until the
// next plausible statement start at the beginning of a line, and records an
// ErrorStatement covering everything skipped.
func (p *parser) recoverStatement(start int) *ErrorStatement {
	first := p.advance()
	end := first.End
	for !p.eof() {
		t := p.cur()
		if t.IsTrivia() || t.Kind == TokenDocComment {
			p.pos++
			continue
		}
		if p.lineStart[p.pos] && p.isStatementStart(t) {
			break
		}
		end = t.End
		p.pos++
	}
	if end < start {
		end = start
	}
	return &ErrorStatement{Range: Range{Start: start, End: end}}
}

func (p *parser) isStatementStart(t Token) bool {
	switch t.Kind {
	case TokenControl:
		return true
	case TokenPunct:
		return t.End-t.Start == 1 && p.src[t.Start] == '@'
	case TokenIdent:
		txt := p.text(t)
		return txt == "metadata" || txt == "namespace" || txt == "use" ||
			txt == "apply" || shapeKinds[txt]
	}
	return false
}

func (p *parser) parseControl() Statement {
	key := p.advance()
	keyIdent := Ident{Range: key.Span(), Value: strings.TrimPrefix(p.text(key), "$")}
	st := &ControlStatement{Range: key.Span(), Key: keyIdent}

	p.skipSpaces()
	if !p.atPunct(':') {
		p.errorf(p.cur().Span(), CodeUnexpectedToken, "expected ':' after control key")
		return st
	}
	p.advance()
	p.skipSpaces()
	if p.eof() || p.cur().Kind == TokenNewline {
		// A control key without a value is a common live-editing state; do
		// not let value parsing swallow the next line.
		p.errorf(p.cur().Span(), CodeUnexpectedToken, "expected value after control key")
		return st
	}
	st.Value = p.parseValue()
	if st.Value != nil {
		st.Range.End = st.Value.Span().End
	}

	if keyIdent.Value == "version" {
		if sv, ok := st.Value.(*StringValue); ok {
			if strings.HasPrefix(sv.Value, "2") {
				p.version = VersionTwo
			} else {
				p.version = VersionOne
			}
		}
	}
	return st
}

// skipSpaces advances past whitespace and comments but stops at newlines,
// which terminate most single-line statements.
func (p *parser) skipSpaces() {
	for p.pos < len(p.toks) {
		k := p.toks[p.pos].Kind
		if k != TokenWhitespace && k != TokenComment {
			return
		}
		p.pos++
	}
}

func (p *parser) parseMetadata() Statement {
	kw := p.advance()
	st := &MetadataStatement{Range: kw.Span()}

	p.skipSpaces()
	t := p.cur()
	if t.Kind == TokenIdent {
		st.Key = Ident{Range: t.Span(), Value: p.text(t)}
		p.advance()
	} else if t.Kind == TokenString {
		st.Key = Ident{Range: t.Span(), Value: unquote(p.text(t))}
		p.advance()
	} else {
		p.errorf(t.Span(), CodeExpectedIdent, "expected metadata key")
		return st
	}
	st.Range.End = st.Key.Range.End

	p.skipSpaces()
	if !p.atPunct('=') {
		p.errorf(p.cur().Span(), CodeUnexpectedToken, "expected '=' after metadata key")
		return st
	}
	p.advance()
	p.skipSpaces()
	st.Value = p.parseValue()
	if st.Value != nil {
		st.Range.End = st.Value.Span().End
	}
	return st
}

func (p *parser) parseNamespace() Statement {
	kw := p.advance()
	st := &NamespaceStatement{Range: kw.Span()}

	p.skipSpaces()
	name, ok := p.parseShapeID()
	if !ok {
		p.errorf(p.cur().Span(), CodeExpectedIdent, "expected namespace name")
		return st
	}
	st.Name = name
	st.Range.End = name.Range.End
	return st
}

func (p *parser) parseUse() Statement {
	kw := p.advance()
	st := &UseStatement{Range: kw.Span()}

	p.skipSpaces()
	target, ok := p.parseShapeID()
	if !ok {
		p.errorf(p.cur().Span(), CodeExpectedShapeID, "expected absolute shape id after 'use'")
		return st
	}
	if !strings.Contains(target.Value, "#") {
		p.errorf(target.Range, CodeExpectedShapeID, "use statement requires an absolute shape id")
	}
	st.Target = target
	st.Range.End = target.Range.End
	return st
}

func (p *parser) parseApply() Statement {
	kw := p.advance()
	st := &ApplyStatement{Range: kw.Span()}

	p.skipSpaces()
	target, ok := p.parseShapeID()
	if !ok {
		p.errorf(p.cur().Span(), CodeExpectedShapeID, "expected shape id after 'apply'")
		return st
	}
	st.Target = target
	st.Range.End = target.Range.End

	// The trait or block must sit on the apply's own line; crossing the
	// newline would steal the next statement's leading traits.
	p.skipSpaces()
	if p.atPunct('{') {
		p.advance()
		for {
			p.skipTrivia()
			if p.eof() || p.atPunct('}') {
				break
			}
			if !p.atPunct('@') {
				t := p.cur()
				p.errorf(t.Span(), CodeUnexpectedToken, "expected trait in apply block")
				p.advance()
				continue
			}
			if tr := p.parseTrait(); tr != nil {
				st.Traits = append(st.Traits, tr)
			}
		}
		if p.atPunct('}') {
			end := p.advance()
			st.Range.End = end.End
		}
		return st
	}

	if p.atPunct('@') {
		if tr := p.parseTrait(); tr != nil {
			st.Traits = append(st.Traits, tr)
			st.Range.End = tr.Range.End
		}
		return st
	}

	p.errorf(p.cur().Span(), CodeUnexpectedToken, "expected trait after apply target")
	return st
}

// parseTraits consumes zero or more leading trait applications, skipping
// trivia between them.
func (p *parser) parseTraits() []*Trait {
	var traits []*Trait
	for {
		p.skipTrivia()
		if !p.atPunct('@') {
			return traits
		}
		tr := p.parseTrait()
		if tr == nil {
			return traits
		}
		traits = append(traits, tr)
	}
}

func (p *parser) parseTrait() *Trait {
	at := p.advance() // '@'
	name, ok := p.parseShapeID()
	if !ok {
		p.errorf(at.Span(), CodeExpectedShapeID, "expected trait name after '@'")
		return &Trait{Range: at.Span(), Name: Ident{Range: at.Span()}}
	}
	tr := &Trait{Range: Range{Start: at.Start, End: name.Range.End}, Name: name}

	// Argument list must be adjacent to the trait name.
	if p.atPunct('(') && p.cur().Start == name.Range.End {
		p.advance()
		tr.Args = p.parseTraitArgs()
		p.skipTrivia()
		if p.atPunct(')') {
			end := p.advance()
			tr.Range.End = end.End
		} else {
			p.errorf(p.cur().Span(), CodeUnexpectedToken, "expected ')' to close trait arguments")
			if tr.Args != nil {
				tr.Range.End = tr.Args.Span().End
			}
		}
	}
	return tr
}

// parseTraitArgs parses either a single node value or a brace-less sequence
// of `key: value` pairs.
func (p *parser) parseTraitArgs() Value {
	p.skipTrivia()
	if p.atPunct(')') {
		return nil
	}

	t := p.cur()
	if t.Kind == TokenIdent && p.followedByColon() {
		obj := &ObjectValue{Range: t.Span()}
		for {
			p.skipTrivia()
			if p.eof() || p.atPunct(')') {
				break
			}
			key := p.cur()
			if key.Kind != TokenIdent && key.Kind != TokenString {
				p.errorf(key.Span(), CodeExpectedIdent, "expected trait argument name")
				p.advance()
				continue
			}
			p.advance()
			entry := &ObjectEntry{Range: key.Span(), Key: Ident{Range: key.Span(), Value: p.text(key)}}
			p.skipTrivia()
			if p.atPunct(':') {
				p.advance()
				p.skipTrivia()
				entry.Value = p.parseValue()
				if entry.Value != nil {
					entry.Range.End = entry.Value.Span().End
				}
			}
			obj.Entries = append(obj.Entries, entry)
			obj.Range.End = entry.Range.End
			p.skipTrivia()
			if p.atPunct(',') {
				p.advance()
			}
		}
		return obj
	}
	return p.parseValue()
}

// followedByColon reports whether the token after the current one (ignoring
// spaces) is a ':' that is not part of ':='.
func (p *parser) followedByColon() bool {
	i := p.pos + 1
	for i < len(p.toks) && p.toks[i].Kind == TokenWhitespace {
		i++
	}
	if i >= len(p.toks) {
		return false
	}
	t := p.toks[i]
	if t.Kind != TokenPunct || p.src[t.Start] != ':' {
		return false
	}
	if i+1 < len(p.toks) {
		n := p.toks[i+1]
		if n.Kind == TokenPunct && n.Start == t.End && p.src[n.Start] == '=' {
			return false
		}
	}
	return true
}

func (p *parser) parseShape() Statement { // nolint:gocyclo
	start := p.cur().Start
	traits := p.parseTraits()
	if len(traits) > 0 {
		start = traits[0].Range.Start
	}

	p.skipTrivia()
	kindTok := p.cur()
	if kindTok.Kind != TokenIdent || !shapeKinds[p.text(kindTok)] {
		p.errorf(kindTok.Span(), CodeUnexpectedToken, "expected shape kind")
		es := p.recoverStatement(start)
		return es
	}
	kind := p.text(kindTok)
	p.advance()

	if v2OnlyKinds[kind] && !p.v2() {
		p.errorf(kindTok.Span(), CodeUnexpectedToken, "%s shapes require IDL version 2", kind)
	}

	st := &ShapeStatement{
		Range:     Range{Start: start, End: kindTok.End},
		Traits:    traits,
		Kind:      kind,
		KindRange: kindTok.Span(),
	}

	p.skipSpaces()
	nameTok := p.cur()
	if nameTok.Kind != TokenIdent {
		p.errorf(nameTok.Span(), CodeExpectedIdent, "expected shape name")
		return st
	}
	st.Name = Ident{Range: nameTok.Span(), Value: p.text(nameTok)}
	st.Range.End = nameTok.End
	p.advance()

	p.skipSpaces()
	if p.atKeyword("for") {
		forTok := p.advance()
		p.skipSpaces()
		res, ok := p.parseShapeID()
		if !ok {
			p.errorf(forTok.Span(), CodeExpectedShapeID, "expected resource shape id after 'for'")
		} else {
			st.ForResource = &res
			st.Range.End = res.Range.End
		}
		p.skipSpaces()
	}

	if p.atKeyword("with") {
		withTok := p.cur()
		if !p.v2() {
			p.errorf(withTok.Span(), CodeMixinsNotAllowed, "mixins require IDL version 2")
		}
		p.advance()
		st.Mixins = p.parseMixinList()
		if n := len(st.Mixins); n > 0 {
			st.Range.End = st.Mixins[n-1].Range.End
		}
		p.skipTrivia()
	} else {
		p.skipSpaces()
	}

	if p.atPunct('{') {
		open := p.advance()
		st.Range.End = open.End
		members, end := p.parseShapeBody()
		st.Members = members
		st.Range.End = end
	}
	return st
}

func (p *parser) parseMixinList() []Ident {
	var mixins []Ident
	p.skipSpaces()
	if !p.atPunct('[') {
		p.errorf(p.cur().Span(), CodeUnexpectedToken, "expected '[' after 'with'")
		return mixins
	}
	p.advance()
	for {
		p.skipTrivia()
		if p.eof() || p.atPunct(']') {
			break
		}
		if p.atPunct(',') {
			p.advance()
			continue
		}
		id, ok := p.parseShapeID()
		if !ok {
			p.errorf(p.cur().Span(), CodeExpectedShapeID, "expected shape id in mixin list")
			p.advance()
			continue
		}
		mixins = append(mixins, id)
	}
	if p.atPunct(']') {
		p.advance()
	}
	return mixins
}

// parseShapeBody parses members until the closing brace and returns them with
// the byte offset just past the brace.
func (p *parser) parseShapeBody() ([]*Member, int) {
	var members []*Member
	seen := map[string]bool{}
	end := p.cur().Start
	for {
		p.skipTrivia()
		if p.eof() {
			return members, end
		}
		if p.atPunct('}') {
			t := p.advance()
			return members, t.End
		}
		if p.atPunct(',') {
			p.advance()
			continue
		}
		m := p.parseMember()
		if m == nil {
			// Trait-only or malformed entries may leave the closing brace as
			// the current token; it still terminates the body.
			if p.atPunct('}') {
				t := p.advance()
				return members, t.End
			}
			t := p.advance()
			end = t.End
			continue
		}
		if m.Name.Value != "" {
			if seen[m.Name.Value] {
				p.errorf(m.Name.Range, CodeDuplicateMember, "duplicate member %q", m.Name.Value)
			}
			seen[m.Name.Value] = true
		}
		members = append(members, m)
		end = m.Range.End
	}
}

func (p *parser) parseMember() *Member { // nolint:gocyclo
	start := p.cur().Start
	traits := p.parseTraits()
	p.skipTrivia()

	t := p.cur()
	m := &Member{Range: Range{Start: start, End: t.End}, Traits: traits}
	if len(traits) > 0 {
		m.Range.Start = traits[0].Range.Start
	} else {
		m.Range.Start = t.Start
	}

	switch {
	case t.Kind == TokenControl:
		// Elided member referencing a mixin or resource member: `$name`.
		if !p.v2() {
			p.errorf(t.Span(), CodeUnexpectedToken, "elided members require IDL version 2")
		}
		m.Name = Ident{Range: t.Span(), Value: strings.TrimPrefix(p.text(t), "$")}
		m.Elided = true
		m.Range.End = t.End
		p.advance()
		return m
	case t.Kind == TokenIdent || t.Kind == TokenString:
		name := p.text(t)
		if t.Kind == TokenString {
			name = unquote(name)
		}
		m.Name = Ident{Range: t.Span(), Value: name}
		m.Range.End = t.End
		p.advance()
	default:
		p.errorf(t.Span(), CodeExpectedIdent, "expected member name")
		return nil
	}

	p.skipSpaces()
	if p.atPunct(':') {
		colon := p.advance()
		// ':=' introduces an inline shape.
		if p.atPunct('=') && p.cur().Start == colon.End {
			eq := p.advance()
			if !p.v2() {
				p.errorf(Range{Start: colon.Start, End: eq.End}, CodeInlineIoNotAllowed,
					"inline input/output requires IDL version 2")
			}
			m.Inline = p.parseInlineShape()
			if m.Inline != nil {
				m.Range.End = m.Inline.Range.End
			}
			return m
		}

		p.skipSpaces()
		vt := p.cur()
		if vt.Kind == TokenIdent {
			id, ok := p.parseShapeID()
			if ok {
				m.Target = &id
				m.Range.End = id.Range.End
			}
		} else {
			v := p.parseValue()
			if v != nil {
				m.Value = v
				m.Range.End = v.Span().End
			} else {
				p.errorf(vt.Span(), CodeExpectedShapeID, "expected member target")
			}
		}
	}

	p.skipSpaces()
	if p.atPunct('=') {
		p.advance()
		p.skipSpaces()
		v := p.parseValue()
		if v != nil {
			m.Value = v
			m.Range.End = v.Span().End
		}
	}
	return m
}

func (p *parser) parseInlineShape() *InlineShape {
	p.skipTrivia()
	start := p.cur().Start
	is := &InlineShape{Range: Range{Start: start, End: start}}

	is.Traits = p.parseTraits()
	p.skipTrivia()
	if len(is.Traits) > 0 {
		is.Range.Start = is.Traits[0].Range.Start
	}

	if p.atKeyword("for") {
		p.advance()
		p.skipSpaces()
		if res, ok := p.parseShapeID(); ok {
			is.ForResource = &res
		}
		p.skipTrivia()
	}
	if p.atKeyword("with") {
		p.advance()
		is.Mixins = p.parseMixinList()
		p.skipTrivia()
	}

	if !p.atPunct('{') {
		p.errorf(p.cur().Span(), CodeUnexpectedToken, "expected '{' after ':='")
		return is
	}
	open := p.advance()
	if is.Range.Start == start {
		is.Range.Start = open.Start
	}
	members, end := p.parseShapeBody()
	is.Members = members
	is.Range.End = end
	return is
}

// parseShapeID parses an identifier, dotted namespace, absolute shape id or
// member reference. Component tokens must be adjacent (no trivia between
// them); the returned Ident spans the whole sequence.
func (p *parser) parseShapeID() (Ident, bool) { // nolint:gocyclo
	t := p.cur()
	if t.Kind != TokenIdent {
		return Ident{}, false
	}
	start := t.Start
	end := t.End
	p.advance()

	// dotted namespace segments and the '#' separator
	for {
		if p.atPunct('.') && p.cur().Start == end {
			dot := p.cur()
			if p.pos+1 < len(p.toks) {
				n := p.toks[p.pos+1]
				if n.Kind == TokenIdent && n.Start == dot.End {
					p.advance()
					p.advance()
					end = n.End
					continue
				}
			}
		}
		break
	}
	if p.atPunct('#') && p.cur().Start == end {
		hash := p.cur()
		if p.pos+1 < len(p.toks) {
			n := p.toks[p.pos+1]
			if n.Kind == TokenIdent && n.Start == hash.End {
				p.advance()
				p.advance()
				end = n.End
			}
		}
	}
	// member part lexes as a control token: `Shape$member`
	if t := p.cur(); t.Kind == TokenControl && t.Start == end {
		p.advance()
		end = t.End
	}

	return Ident{Range: Range{Start: start, End: end}, Value: p.src[start:end]}, true
}

func (p *parser) parseValue() Value { // nolint:gocyclo
	p.skipTrivia()
	t := p.cur()
	switch {
	case t.Kind == TokenString:
		p.advance()
		return &StringValue{Range: t.Span(), Value: unquote(p.text(t))}
	case t.Kind == TokenNumber:
		p.advance()
		return &NumberValue{Range: t.Span(), Raw: p.text(t)}
	case t.Kind == TokenIdent:
		txt := p.text(t)
		if txt == "true" || txt == "false" || txt == "null" {
			p.advance()
			return &KeywordValue{Range: t.Span(), Value: txt}
		}
		id, _ := p.parseShapeID()
		return &RefValue{Range: id.Range, ID: id}
	case p.atPunct('{'):
		return p.parseObjectValue()
	case p.atPunct('['):
		return p.parseArrayValue()
	}
	return nil
}

func (p *parser) parseObjectValue() Value {
	open := p.advance()
	obj := &ObjectValue{Range: open.Span()}
	for {
		p.skipTrivia()
		if p.eof() {
			return obj
		}
		if p.atPunct('}') {
			t := p.advance()
			obj.Range.End = t.End
			return obj
		}
		if p.atPunct(',') {
			p.advance()
			continue
		}
		key := p.cur()
		if key.Kind != TokenIdent && key.Kind != TokenString {
			p.errorf(key.Span(), CodeExpectedIdent, "expected object key")
			p.advance()
			continue
		}
		p.advance()
		name := p.text(key)
		if key.Kind == TokenString {
			name = unquote(name)
		}
		entry := &ObjectEntry{Range: key.Span(), Key: Ident{Range: key.Span(), Value: name}}
		p.skipTrivia()
		if p.atPunct(':') {
			p.advance()
			p.skipTrivia()
			entry.Value = p.parseValue()
			if entry.Value != nil {
				entry.Range.End = entry.Value.Span().End
			}
		} else {
			p.errorf(p.cur().Span(), CodeUnexpectedToken, "expected ':' after object key")
		}
		obj.Entries = append(obj.Entries, entry)
		obj.Range.End = entry.Range.End
	}
}

func (p *parser) parseArrayValue() Value {
	open := p.advance()
	arr := &ArrayValue{Range: open.Span()}
	for {
		p.skipTrivia()
		if p.eof() {
			return arr
		}
		if p.atPunct(']') {
			t := p.advance()
			arr.Range.End = t.End
			return arr
		}
		if p.atPunct(',') {
			p.advance()
			continue
		}
		v := p.parseValue()
		if v == nil {
			t := p.advance()
			p.errorf(t.Span(), CodeUnexpectedToken, "unexpected %s in array", t.Kind)
			continue
		}
		arr.Elems = append(arr.Elems, v)
		arr.Range.End = v.Span().End
	}
}

// unquote strips the surrounding quotes from a string token and resolves the
// simple escape sequences. Text blocks lose their delimiters and leading
// newline.
func unquote(s string) string { // nolint:gocyclo
	if strings.HasPrefix(s, `"""`) {
		s = strings.TrimPrefix(s, `"""`)
		s = strings.TrimSuffix(s, `"""`)
		return strings.TrimPrefix(s, "\n")
	}
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '"', '\\', '/':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
