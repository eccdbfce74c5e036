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

package feature

import (
	"github.com/sourcegraph/go-lsp"

	"github.com/smithy-lang/smithy-language-server/internal/lsp/smithy"
)

// Definition resolves the shape id under the cursor to its declaration.
// Shapes declared in dependency jars come back with smithyjar URIs.
func Definition(c *Cursor) []lsp.Location {
	if c == nil {
		return nil
	}
	var id smithy.ShapeID
	switch {
	case c.Ref != nil:
		id = c.Ref.ID
	case c.Decl != nil:
		id = c.Decl.ID
	default:
		return nil
	}
	loc, ok := c.Snap.DeclarationLocation(id)
	if !ok {
		return nil
	}
	return []lsp.Location{location(c.Snap, loc)}
}

// References returns every occurrence of the shape id under the cursor,
// optionally including its declaration.
func References(c *Cursor, includeDecl bool) []lsp.Location {
	if c == nil {
		return nil
	}
	var id smithy.ShapeID
	switch {
	case c.Ref != nil:
		id = c.Ref.ID
	case c.Decl != nil:
		id = c.Decl.ID
	default:
		return nil
	}

	var out []lsp.Location
	for _, loc := range c.Snap.References[id] {
		out = append(out, location(c.Snap, loc))
	}
	if includeDecl {
		if loc, ok := c.Snap.DeclarationLocation(id); ok {
			out = append(out, location(c.Snap, loc))
		}
	}
	return out
}
