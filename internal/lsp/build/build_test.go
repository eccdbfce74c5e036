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

package build

import (
	"os"
	"testing"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

func fsWith(files map[string]string) afero.Fs {
	fs := afero.NewMemMapFs()
	for path, content := range files {
		_ = afero.WriteFile(fs, path, []byte(content), os.ModePerm)
	}
	return fs
}

func TestLoad(t *testing.T) {
	cases := map[string]struct {
		reason string
		fs     afero.Fs
		want   *Config
		err    error
	}{
		"NoConfig": {
			reason: "Neither file present is an empty build signalled by ErrConfigNotFound.",
			fs:     afero.NewMemMapFs(),
			want:   &Config{Root: "/ws"},
			err:    ErrConfigNotFound,
		},
		"SmithyBuildOnly": {
			reason: "smithy-build.json supplies sources, imports and maven config.",
			fs: fsWith(map[string]string{
				"/ws/smithy-build.json": `{
					"version": "1.0",
					"sources": ["model"],
					"imports": ["extra"],
					"maven": {
						"dependencies": ["software.amazon.smithy:smithy-aws-traits:1.50.0"],
						"repositories": [{"url": "https://repo.maven.apache.org/maven2"}]
					}
				}`,
			}),
			want: &Config{
				Root:    "/ws",
				Sources: []string{"model"},
				Imports: []string{"extra"},
				Maven: MavenConfig{
					Dependencies: []string{"software.amazon.smithy:smithy-aws-traits:1.50.0"},
					Repositories: []Repository{{URL: "https://repo.maven.apache.org/maven2"}},
				},
				Found: []string{SmithyBuildFile},
			},
		},
		"ProjectFileMerges": {
			reason: ".smithy-project.json adds local jar dependencies and more sources.",
			fs: fsWith(map[string]string{
				"/ws/smithy-build.json":    `{"version": "1.0", "sources": ["model"]}`,
				"/ws/.smithy-project.json": `{"sources": ["extra-model"], "dependencies": [{"name": "lib", "path": "libs/lib.jar"}], "outputDirectory": "out"}`,
			}),
			want: &Config{
				Root:         "/ws",
				Sources:      []string{"model", "extra-model"},
				OutputDir:    "out",
				Dependencies: []LocalDependency{{Name: "lib", Path: "libs/lib.jar"}},
				Found:        []string{SmithyBuildFile, SmithyProjectFile},
			},
		},
		"DefaultSources": {
			reason: "A config without sources falls back to the project root.",
			fs: fsWith(map[string]string{
				"/ws/smithy-build.json": `{"version": "1.0"}`,
			}),
			want: &Config{
				Root:    "/ws",
				Sources: []string{"."},
				Found:   []string{SmithyBuildFile},
			},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := Load(tc.fs, "/ws")
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("\n%s\nLoad(...): want error %v, got %v", tc.reason, tc.err, err)
				}
			} else if err != nil {
				t.Fatalf("\n%s\nLoad(...): unexpected error %v", tc.reason, err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("\n%s\nLoad(...): -want, +got:\n%s", tc.reason, diff)
			}
		})
	}
}

func TestLoadParseError(t *testing.T) {
	fs := fsWith(map[string]string{
		"/ws/smithy-build.json": `{not json`,
	})
	_, err := Load(fs, "/ws")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Load(...): want *ParseError, got %v", err)
	}
	if pe.Path != "/ws/smithy-build.json" {
		t.Errorf("Load(...): want path /ws/smithy-build.json, got %s", pe.Path)
	}
}

func TestIsConfigFile(t *testing.T) {
	cases := map[string]bool{
		"/ws/smithy-build.json":        true,
		"/ws/sub/.smithy-project.json": true,
		"/ws/model/main.smithy":        false,
	}
	for path, want := range cases {
		if got := IsConfigFile(path); got != want {
			t.Errorf("IsConfigFile(%q): want %t, got %t", path, want, got)
		}
	}
}
