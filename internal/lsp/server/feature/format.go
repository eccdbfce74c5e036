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
	"context"
	"strings"

	"github.com/sourcegraph/go-lsp"

	"github.com/smithy-lang/smithy-language-server/internal/lsp/project"
)

// A Formatter rewrites a syntactically-valid file into its canonical form.
// The real formatter is an external collaborator; implementations only see
// text.
type Formatter interface {
	Format(ctx context.Context, text string) (string, error)
}

// NewlineFormatter is the default Formatter: it only guarantees the file
// ends with exactly one newline.
type NewlineFormatter struct{}

// Format implements Formatter.
func (NewlineFormatter) Format(_ context.Context, text string) (string, error) {
	return strings.TrimRight(text, "\n") + "\n", nil
}

// Format runs the formatter over a document and returns a whole-document
// edit when the text changed. Files with parse errors are left alone; the
// formatter contract requires valid input.
func Format(ctx context.Context, snap *project.Snapshot, u lsp.DocumentURI, f Formatter) ([]lsp.TextEdit, error) {
	doc, ok := snap.Document(u)
	if !ok {
		return nil, nil
	}
	if parsed, ok := snap.Parses[u]; ok && len(parsed.Result.Errors) > 0 {
		return nil, nil
	}

	formatted, err := f.Format(ctx, doc.Text())
	if err != nil {
		return nil, err
	}
	if formatted == doc.Text() {
		return nil, nil
	}
	return []lsp.TextEdit{{
		Range:   doc.RangeOfSpan(0, len(doc.Text())),
		NewText: formatted,
	}}, nil
}
