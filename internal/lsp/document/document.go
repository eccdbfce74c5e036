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

// Package document models editor text buffers as immutable snapshots with a
// line index. Offsets are byte offsets into UTF-8 text; positions are LSP
// (line, UTF-16 column) pairs, converted at this boundary only.
package document

import (
	"bytes"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/sourcegraph/go-lsp"
)

const errInvalidPosition = "invalid position"

// ErrInvalidPosition is returned for positions with negative components.
// Out-of-range positions clamp instead of failing.
var ErrInvalidPosition = errors.New(errInvalidPosition)

// A Document is an immutable snapshot of one text document. Applying edits
// produces a new Document; existing readers keep operating on theirs.
type Document struct {
	uri     lsp.DocumentURI
	version int
	text    string
	// lines[i] is the byte offset of the first byte of line i.
	lines []int
}

// New creates a Document snapshot from full text.
func New(uri lsp.DocumentURI, text string, version int) *Document {
	return &Document{
		uri:     uri,
		version: version,
		text:    text,
		lines:   lineStarts(text),
	}
}

func lineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// URI returns the document's URI.
func (d *Document) URI() lsp.DocumentURI { return d.uri }

// Version returns the editor-supplied version of this snapshot.
func (d *Document) Version() int { return d.version }

// Text returns the full text of this snapshot.
func (d *Document) Text() string { return d.text }

// LineCount returns the number of lines, at least one.
func (d *Document) LineCount() int { return len(d.lines) }

// Line returns the text of line i without its trailing newline. Out-of-range
// lines are empty.
func (d *Document) Line(i int) string {
	if i < 0 || i >= len(d.lines) {
		return ""
	}
	start := d.lines[i]
	end := len(d.text)
	if i+1 < len(d.lines) {
		end = d.lines[i+1]
	}
	return trimEOL(d.text[start:end])
}

func trimEOL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// lineSpan returns the byte span [start, end) of line i including its
// newline.
func (d *Document) lineSpan(i int) (int, int) {
	start := d.lines[i]
	end := len(d.text)
	if i+1 < len(d.lines) {
		end = d.lines[i+1]
	}
	return start, end
}

// lineFor returns the index of the line containing the byte offset.
func (d *Document) lineFor(offset int) int {
	lo, hi := 0, len(d.lines)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if d.lines[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// PositionOf converts a byte offset to an LSP position. Offsets beyond the
// text clamp to end of file.
func (d *Document) PositionOf(offset int) lsp.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.text) {
		offset = len(d.text)
	}
	line := d.lineFor(offset)
	start, _ := d.lineSpan(line)
	return lsp.Position{Line: line, Character: utf16Len(d.text[start:offset])}
}

// OffsetOf converts an LSP position to a byte offset. Positions past the end
// of a line or the file clamp; negative components fail with
// ErrInvalidPosition.
func (d *Document) OffsetOf(pos lsp.Position) (int, error) {
	if pos.Line < 0 || pos.Character < 0 {
		return 0, ErrInvalidPosition
	}
	if pos.Line >= len(d.lines) {
		return len(d.text), nil
	}
	// Walk the full line span so that every byte offset, end-of-line bytes
	// included, is reachable from the position PositionOf reports for it.
	start, end := d.lineSpan(pos.Line)
	rest := d.text[start:end]
	col := pos.Character
	off := start
	for col > 0 && len(rest) > 0 {
		r, size := utf8.DecodeRuneInString(rest)
		col -= len(utf16.Encode([]rune{r}))
		off += size
		rest = rest[size:]
	}
	return off, nil
}

// RangeOfSpan converts a byte span to an LSP range.
func (d *Document) RangeOfSpan(start, end int) lsp.Range {
	return lsp.Range{Start: d.PositionOf(start), End: d.PositionOf(end)}
}

// ApplyEdits applies LSP content changes in order and returns the resulting
// snapshot stamped with newVersion. Each change's range is resolved against
// the buffer produced by the preceding changes; a change without a range
// replaces the whole document.
func (d *Document) ApplyEdits(changes []lsp.TextDocumentContentChangeEvent, newVersion int) (*Document, error) {
	next := d
	for _, c := range changes {
		if c.Range == nil {
			next = New(d.uri, c.Text, newVersion)
			continue
		}
		start, err := next.OffsetOf(c.Range.Start)
		if err != nil {
			return nil, err
		}
		end, err := next.OffsetOf(c.Range.End)
		if err != nil {
			return nil, err
		}
		if end < start {
			start, end = end, start
		}

		var buf bytes.Buffer
		buf.Grow(len(next.text) - (end - start) + len(c.Text))
		buf.WriteString(next.text[:start])
		buf.WriteString(c.Text)
		buf.WriteString(next.text[end:])
		next = New(d.uri, buf.String(), newVersion)
	}
	if next == d {
		next = New(d.uri, d.text, newVersion)
	}
	return next, nil
}

func utf16Len(s string) int {
	n := 0
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		n += len(utf16.Encode([]rune{r}))
		s = s[size:]
	}
	return n
}
