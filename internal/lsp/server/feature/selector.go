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
	"github.com/smithy-lang/smithy-language-server/internal/lsp/project"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/smithy"
)

// A SelectorMatch is one shape matched by a selector run, with its location
// when the shape has one in the project.
type SelectorMatch struct {
	ID       string        `json:"id"`
	Location *lsp.Location `json:"location,omitempty"`
}

// RunSelector evaluates a selector expression against the assembled model
// and returns the matching shape ids with locations. The supported grammar
// is the subset editors send for shape listings: `*`, shape kind names, and
// `[trait|name]` filters, whitespace separated and intersected.
func RunSelector(snap *project.Snapshot, expression string) []SelectorMatch {
	preds := parseSelector(expression)

	var out []SelectorMatch
	for _, s := range snap.Model.Shapes() {
		match := true
		for _, pred := range preds {
			if !pred(s) {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		m := SelectorMatch{ID: s.ID.String()}
		if loc, ok := snap.DeclarationLocation(s.ID); ok {
			l := location(snap, loc)
			m.Location = &l
		}
		out = append(out, m)
	}
	return out
}

type selectorPred func(*model.Shape) bool

func parseSelector(expression string) []selectorPred {
	var preds []selectorPred
	for _, tok := range strings.Fields(expression) {
		switch {
		case tok == "*":
			preds = append(preds, func(*model.Shape) bool { return true })
		case strings.HasPrefix(tok, "[trait|") && strings.HasSuffix(tok, "]"):
			name := strings.TrimSuffix(strings.TrimPrefix(tok, "[trait|"), "]")
			id := smithy.ParseShapeID(name)
			if !id.IsAbsolute() {
				id.Namespace = smithy.PreludeNamespace
			}
			preds = append(preds, func(s *model.Shape) bool { return s.HasTrait(id) })
		default:
			kind := tok
			preds = append(preds, func(s *model.Shape) bool {
				if s.Kind == model.KindSimple {
					return s.Simple == kind || kind == "simpleType"
				}
				return s.Kind.String() == kind
			})
		}
	}
	return preds
}
