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

// Package feature implements the editor features as stateless translators
// from a project snapshot and a cursor to LSP responses. Handlers never
// mutate project state and never synchronize; the snapshot is immutable.
package feature

import (
	"github.com/sourcegraph/go-lsp"

	"github.com/smithy-lang/smithy-language-server/internal/lsp/model"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/project"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/smithyfile"
)

// ServerName is the diagnostic source reported to editors.
const ServerName = "smithy-lsp"

// A Cursor is a resolved position in a document: the byte offset plus
// whatever the per-file index knows about it.
type Cursor struct {
	Snap   *project.Snapshot
	URI    lsp.DocumentURI
	Offset int
	// Ref is the shape reference under the cursor, if any.
	Ref *smithyfile.Reference
	// Decl is the declaration whose name is under the cursor, if any.
	Decl *smithyfile.Declaration
}

// Resolve locates a position within the snapshot. Unknown URIs resolve to a
// nil cursor; callers translate that to an empty response, matching editor
// expectations.
func Resolve(snap *project.Snapshot, u lsp.DocumentURI, pos lsp.Position) (*Cursor, error) {
	doc, ok := snap.Document(u)
	if !ok {
		return nil, nil
	}
	offset, err := doc.OffsetOf(pos)
	if err != nil {
		return nil, err
	}
	c := &Cursor{Snap: snap, URI: u, Offset: offset}
	sf, ok := snap.SmithyFiles[u]
	if !ok {
		return c, nil
	}
	if ref, ok := sf.ReferenceAt(offset); ok {
		c.Ref = &ref
	} else if decl, ok := sf.DeclarationAt(offset); ok {
		c.Decl = &decl
	}
	return c, nil
}

// location converts a model location to an LSP location using the target
// file's document for position math.
func location(snap *project.Snapshot, loc model.Location) lsp.Location {
	out := lsp.Location{URI: loc.URI}
	if doc, ok := snap.Document(loc.URI); ok {
		out.Range = doc.RangeOfSpan(loc.Range.Start, loc.Range.End)
	}
	return out
}
