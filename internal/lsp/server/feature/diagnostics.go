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

	"github.com/smithy-lang/smithy-language-server/internal/lsp/model"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/project"
)

// Diagnostics merges a file's parse errors with the validation events from
// the last assembly. Workspace-level issues attach to the config file URI
// and are reported by WorkspaceDiagnostics instead.
func Diagnostics(snap *project.Snapshot, u lsp.DocumentURI) []lsp.Diagnostic {
	diags := []lsp.Diagnostic{}
	doc, ok := snap.Document(u)
	if !ok {
		return diags
	}

	if parsed, ok := snap.Parses[u]; ok {
		for _, pe := range parsed.Result.Errors {
			diags = append(diags, lsp.Diagnostic{
				Range:    doc.RangeOfSpan(pe.Range.Start, pe.Range.End),
				Severity: lsp.Error,
				Code:     pe.Code,
				Source:   ServerName,
				Message:  pe.Message,
			})
		}
	}

	for _, ev := range snap.Model.EventsFor(u) {
		diags = append(diags, lsp.Diagnostic{
			Range:    doc.RangeOfSpan(ev.Location.Range.Start, ev.Location.Range.End),
			Severity: eventSeverity(ev.Severity),
			Source:   ServerName,
			Message:  ev.Message,
		})
	}
	return diags
}

// WorkspaceDiagnostics converts project-level issues (config parse errors,
// unresolved dependencies) to diagnostics grouped by config file URI.
func WorkspaceDiagnostics(snap *project.Snapshot) map[lsp.DocumentURI][]lsp.Diagnostic {
	out := make(map[lsp.DocumentURI][]lsp.Diagnostic)
	for _, issue := range snap.Issues {
		out[issue.URI] = append(out[issue.URI], lsp.Diagnostic{
			Severity: lsp.Error,
			Source:   ServerName,
			Message:  issue.Message,
		})
	}
	return out
}

func eventSeverity(s model.EventSeverity) lsp.DiagnosticSeverity {
	switch s {
	case model.SeverityWarning:
		return lsp.Warning
	case model.SeverityNote:
		return lsp.Information
	default:
		return lsp.Error
	}
}
