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

package maven

import (
	"context"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/smithy-lang/smithy-language-server/internal/lsp/build"
)

const awsTraits = "software.amazon.smithy:smithy-aws-traits:1.50.0"

func cacheWith(t *testing.T, jars ...string) *Local {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, j := range jars {
		if err := afero.WriteFile(fs, j, []byte("PK"), os.ModePerm); err != nil {
			t.Fatal(err)
		}
	}
	l, err := NewLocal(WithFS(fs), WithRoot("/repo"))
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestArtifactPath(t *testing.T) {
	cases := map[string]struct {
		reason     string
		coordinate string
		want       string
		wantErr    bool
	}{
		"Standard": {
			reason:     "group:artifact:version maps to the repository layout.",
			coordinate: awsTraits,
			want:       "software/amazon/smithy/smithy-aws-traits/1.50.0/smithy-aws-traits-1.50.0.jar",
		},
		"ShortGroup": {
			reason:     "Single-segment groups map without nesting.",
			coordinate: "acme:lib:2.0",
			want:       "acme/lib/2.0/lib-2.0.jar",
		},
		"MissingVersion": {
			reason:     "Two-part coordinates are invalid.",
			coordinate: "acme:lib",
			wantErr:    true,
		},
		"Empty": {
			reason:     "Empty coordinates are invalid.",
			coordinate: "",
			wantErr:    true,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := artifactPath(tc.coordinate)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("\n%s\nartifactPath(%q): want error, got %q", tc.reason, tc.coordinate, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("\n%s\nartifactPath(%q): unexpected error %v", tc.reason, tc.coordinate, err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("\n%s\nartifactPath(%q): -want, +got:\n%s", tc.reason, tc.coordinate, diff)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	cached := "/repo/software/amazon/smithy/smithy-aws-traits/1.50.0/smithy-aws-traits-1.50.0.jar"

	t.Run("AllCached", func(t *testing.T) {
		r := NewResolver(cacheWith(t, cached))
		jars, err := r.Resolve(context.Background(), build.MavenConfig{
			Dependencies: []string{awsTraits},
		})
		if err != nil {
			t.Fatalf("Resolve(...): unexpected error %v", err)
		}
		if diff := cmp.Diff([]string{cached}, jars); diff != "" {
			t.Errorf("Resolve(...): -want, +got:\n%s", diff)
		}
	})

	t.Run("PartiallyCached", func(t *testing.T) {
		r := NewResolver(cacheWith(t, cached))
		jars, err := r.Resolve(context.Background(), build.MavenConfig{
			Dependencies: []string{awsTraits, "acme:missing:1.0"},
		})
		var re *ResolutionError
		if !errors.As(err, &re) {
			t.Fatalf("Resolve(...): want *ResolutionError, got %v", err)
		}
		if diff := cmp.Diff([]string{"acme:missing:1.0"}, re.Missing); diff != "" {
			t.Errorf("Resolve(...): -want missing, +got:\n%s", diff)
		}
		// Resolved jars still come back so a partial project loads.
		if diff := cmp.Diff([]string{cached}, jars); diff != "" {
			t.Errorf("Resolve(...): -want jars, +got:\n%s", diff)
		}
	})
}
