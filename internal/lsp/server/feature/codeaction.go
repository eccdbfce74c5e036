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

	"github.com/smithy-lang/smithy-language-server/internal/lsp/project"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/syntax"
)

// Commands the server executes via workspace/applyEdit.
const (
	CommandUpdateIDL2 = "smithy.updateIdlVersion"
)

// CodeActions proposes fixes for a file: updating to IDL 2 when the file is
// on the v1 dialect, keyed off the file's IDL version: no $version statement,
// or one whose value does not start with "2".
func CodeActions(snap *project.Snapshot, u lsp.DocumentURI) []lsp.Command {
	sf, ok := snap.SmithyFiles[u]
	if !ok {
		return nil
	}
	var out []lsp.Command
	if sf.IDLVersion == syntax.VersionOne {
		out = append(out, lsp.Command{
			Title:     "Update to Smithy IDL 2.0",
			Command:   CommandUpdateIDL2,
			Arguments: []interface{}{string(u)},
		})
	}
	return out
}

// UpdateIDL2Edit builds the workspace edit behind CommandUpdateIDL2: insert
// or rewrite the $version control statement.
func UpdateIDL2Edit(snap *project.Snapshot, u lsp.DocumentURI) ([]lsp.TextEdit, bool) {
	doc, ok := snap.Document(u)
	if !ok {
		return nil, false
	}
	parsed, ok := snap.Parses[u]
	if !ok {
		return nil, false
	}

	for _, st := range parsed.Result.File.Statements {
		cs, ok := st.(*syntax.ControlStatement)
		if !ok || cs.Key.Value != "version" {
			continue
		}
		return []lsp.TextEdit{{
			Range:   doc.RangeOfSpan(cs.Range.Start, cs.Range.End),
			NewText: `$version: "2.0"`,
		}}, true
	}

	text := `$version: "2.0"` + "\n"
	if !strings.HasPrefix(doc.Text(), "\n") && doc.Text() != "" {
		text += "\n"
	}
	return []lsp.TextEdit{{
		Range:   doc.RangeOfSpan(0, 0),
		NewText: text,
	}}, true
}
