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
	"strings"

	"github.com/sourcegraph/go-lsp"

	"github.com/smithy-lang/smithy-language-server/internal/lsp/model"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/smithy"
)

// Hover renders the normalized definition of the shape under the cursor as
// a Smithy code block.
func Hover(c *Cursor) *lsp.Hover {
	if c == nil {
		return nil
	}
	var id smithy.ShapeID
	var span *lsp.Range
	switch {
	case c.Ref != nil:
		id = c.Ref.ID
		if doc, ok := c.Snap.Document(c.URI); ok {
			r := doc.RangeOfSpan(c.Ref.Range.Start, c.Ref.Range.End)
			span = &r
		}
	case c.Decl != nil:
		id = c.Decl.ID
	default:
		return nil
	}

	shape, ok := c.Snap.Model.Shape(id)
	if !ok {
		return nil
	}
	return &lsp.Hover{
		Contents: []lsp.MarkedString{{Language: "smithy", Value: renderShape(shape)}},
		Range:    span,
	}
}

// renderShape reconstructs a declaration-like view of an assembled shape:
// namespace, applied traits, kind, members with targets.
func renderShape(s *model.Shape) string {
	var b strings.Builder
	b.WriteString("namespace ")
	b.WriteString(s.ID.Namespace)
	b.WriteString("\n\n")

	for _, t := range s.Traits {
		b.WriteString("@")
		b.WriteString(traitName(t.ID))
		b.WriteString("\n")
	}

	kind := s.Kind.String()
	if s.Kind == model.KindSimple {
		kind = s.Simple
	}
	b.WriteString(kind)
	b.WriteString(" ")
	b.WriteString(s.ID.Name)

	if len(s.Members) == 0 {
		return b.String()
	}
	b.WriteString(" {\n")
	for _, m := range s.Members {
		b.WriteString("    ")
		b.WriteString(m.Name)
		if m.Target.Name != "" {
			b.WriteString(": ")
			b.WriteString(memberTarget(s.ID, m.Target))
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

// traitName shortens prelude trait ids to their bare names the way source
// files write them.
func traitName(id smithy.ShapeID) string {
	if id.Namespace == smithy.PreludeNamespace {
		return id.Name
	}
	return id.String()
}

// memberTarget renders a member target relative to the owning namespace.
func memberTarget(owner, target smithy.ShapeID) string {
	if target.Namespace == owner.Namespace || target.Namespace == smithy.PreludeNamespace {
		return target.Name
	}
	return target.String()
}
