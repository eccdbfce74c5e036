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
)

// DocumentSymbols lists the shapes declared in one file, synthesized inline
// input/output structures included.
func DocumentSymbols(snap *project.Snapshot, u lsp.DocumentURI) []lsp.SymbolInformation {
	sf, ok := snap.SmithyFiles[u]
	if !ok {
		return nil
	}
	doc, ok := snap.Document(u)
	if !ok {
		return nil
	}

	var out []lsp.SymbolInformation
	for _, d := range sf.Declarations {
		if d.Kind == "member" {
			continue
		}
		out = append(out, lsp.SymbolInformation{
			Name:          d.ID.Name,
			Kind:          symbolKind(d.Kind),
			ContainerName: d.ID.Namespace,
			Location: lsp.Location{
				URI:   u,
				Range: doc.RangeOfSpan(d.Range.Start, d.Range.End),
			},
		})
	}
	return out
}

// WorkspaceSymbols matches declarations across every file in the snapshot
// against a case-insensitive substring query.
func WorkspaceSymbols(snap *project.Snapshot, query string) []lsp.SymbolInformation {
	q := strings.ToLower(query)
	var out []lsp.SymbolInformation
	for u, sf := range snap.SmithyFiles {
		doc, ok := snap.Document(u)
		if !ok {
			continue
		}
		for _, d := range sf.Declarations {
			if d.Kind == "member" || d.Synthesized {
				continue
			}
			if q != "" && !strings.Contains(strings.ToLower(d.ID.String()), q) {
				continue
			}
			out = append(out, lsp.SymbolInformation{
				Name:          d.ID.Name,
				Kind:          symbolKind(d.Kind),
				ContainerName: d.ID.Namespace,
				Location: lsp.Location{
					URI:   u,
					Range: doc.RangeOfSpan(d.Range.Start, d.Range.End),
				},
			})
		}
	}
	return out
}

func symbolKind(kind string) lsp.SymbolKind {
	switch model.KindFromKeyword(kind) {
	case model.KindService, model.KindResource:
		return lsp.SKModule
	case model.KindOperation:
		return lsp.SKMethod
	case model.KindStructure, model.KindUnion:
		return lsp.SKClass
	case model.KindEnum, model.KindIntEnum:
		return lsp.SKEnum
	case model.KindList, model.KindMap:
		return lsp.SKArray
	default:
		return lsp.SKVariable
	}
}
