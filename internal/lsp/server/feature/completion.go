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
	"sort"
	"strings"

	"github.com/sourcegraph/go-lsp"

	"github.com/smithy-lang/smithy-language-server/internal/lsp/model"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/smithy"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/smithyfile"
)

// TriggerCharacters are the completion trigger characters advertised at
// initialize.
var TriggerCharacters = []string{"@", "$", ".", "#"}

// completionContext describes what kind of token is valid at the cursor.
type completionContext int

const (
	ctxTopLevel completionContext = iota
	ctxTrait
	ctxTarget
)

var topLevelKeywords = []string{
	"namespace", "use", "metadata", "apply",
	"structure", "union", "list", "map", "set",
	"service", "operation", "resource",
	"enum", "intEnum",
	"string", "integer", "boolean", "blob", "byte", "short", "long",
	"float", "double", "bigInteger", "bigDecimal", "timestamp", "document",
}

// Completion proposes candidates for the cursor position: trait names after
// '@', shape targets after ':' or inside bindings, top-level keywords
// elsewhere.
func Completion(c *Cursor) lsp.CompletionList {
	list := lsp.CompletionList{IsIncomplete: false, Items: []lsp.CompletionItem{}}
	if c == nil {
		return list
	}

	prefix, context := completionSite(c)
	switch context {
	case ctxTrait:
		list.Items = traitCandidates(c, prefix)
	case ctxTarget:
		list.Items = shapeCandidates(c, prefix)
	default:
		list.Items = keywordCandidates(prefix)
	}
	sort.Slice(list.Items, func(i, j int) bool {
		return list.Items[i].Label < list.Items[j].Label
	})
	return list
}

// completionSite derives the identifier prefix being typed and the syntactic
// context: first from the per-file reference index, then from the tightest
// statement in the parse tree.
func completionSite(c *Cursor) (string, completionContext) { // nolint:gocyclo
	doc, ok := c.Snap.Document(c.URI)
	if !ok {
		return "", ctxTopLevel
	}
	text := doc.Text()

	// Walk back over the identifier being typed.
	start := c.Offset
	if start > len(text) {
		start = len(text)
	}
	for start > 0 {
		b := text[start-1]
		if b == '_' || b == '.' || b == '#' ||
			(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') {
			start--
			continue
		}
		break
	}
	prefix := text[start:c.Offset]

	if start > 0 && text[start-1] == '@' {
		return prefix, ctxTrait
	}
	if c.Ref != nil {
		if c.Ref.Role == smithyfile.RoleTrait {
			return prefix, ctxTrait
		}
		return prefix, ctxTarget
	}

	// Scan back for the nearest significant byte to catch `member: <cursor>`.
	i := start - 1
	for i >= 0 && (text[i] == ' ' || text[i] == '\t') {
		i--
	}
	if i >= 0 && (text[i] == ':' || text[i] == '[' || text[i] == ',') {
		return prefix, ctxTarget
	}
	return prefix, ctxTopLevel
}

func traitCandidates(c *Cursor, prefix string) []lsp.CompletionItem {
	var items []lsp.CompletionItem
	for _, name := range smithy.PreludeTraitNames() {
		if item, ok := candidate(name, prefix, lsp.CIKInterface, smithy.PreludeNamespace); ok {
			items = append(items, item)
		}
	}
	for _, s := range c.Snap.Model.Shapes() {
		if !s.HasTrait(smithy.ShapeID{Namespace: smithy.PreludeNamespace, Name: "trait"}) {
			continue
		}
		if item, ok := candidate(s.ID.Name, prefix, lsp.CIKInterface, s.ID.Namespace); ok {
			items = append(items, item)
		}
	}
	return items
}

func shapeCandidates(c *Cursor, prefix string) []lsp.CompletionItem {
	var items []lsp.CompletionItem
	for _, name := range smithy.PreludeShapeNames() {
		if item, ok := candidate(name, prefix, lsp.CIKClass, smithy.PreludeNamespace); ok {
			items = append(items, item)
		}
	}
	for _, s := range c.Snap.Model.Shapes() {
		if s.Synthesized {
			continue
		}
		if item, ok := candidate(s.ID.Name, prefix, completionKind(s.Kind), s.ID.Namespace); ok {
			items = append(items, item)
		}
	}
	return items
}

func keywordCandidates(prefix string) []lsp.CompletionItem {
	var items []lsp.CompletionItem
	for _, kw := range topLevelKeywords {
		if item, ok := candidate(kw, prefix, lsp.CIKKeyword, ""); ok {
			items = append(items, item)
		}
	}
	return items
}

func candidate(label, prefix string, kind lsp.CompletionItemKind, detail string) (lsp.CompletionItem, bool) {
	if prefix != "" && !strings.HasPrefix(strings.ToLower(label), strings.ToLower(prefix)) {
		return lsp.CompletionItem{}, false
	}
	return lsp.CompletionItem{
		Label:      label,
		Kind:       kind,
		Detail:     detail,
		InsertText: label,
	}, true
}

func completionKind(k model.ShapeKind) lsp.CompletionItemKind {
	switch k {
	case model.KindService, model.KindResource:
		return lsp.CIKModule
	case model.KindOperation:
		return lsp.CIKFunction
	case model.KindStructure, model.KindUnion:
		return lsp.CIKClass
	case model.KindEnum, model.KindIntEnum:
		return lsp.CIKEnum
	default:
		return lsp.CIKClass
	}
}
