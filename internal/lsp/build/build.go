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

// Package build reads the optional project configuration files,
// smithy-build.json and .smithy-project.json, and merges them into a single
// BuildConfig.
package build

import (
	"encoding/json"
	"path/filepath"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/spf13/afero"
)

// Config file names looked up in the project root.
const (
	SmithyBuildFile   = "smithy-build.json"
	SmithyProjectFile = ".smithy-project.json"
)

const (
	errNotFound     = "no build config found"
	errParseFmt     = "failed to parse %s"
	errReadFmt      = "failed to read %s"
)

// ErrConfigNotFound indicates neither config file exists; callers treat it as
// an empty build.
var ErrConfigNotFound = errors.New(errNotFound)

// A ParseError is a malformed config file, surfaced to the editor as a
// workspace diagnostic attached to the file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return errors.Wrapf(e.Err, errParseFmt, e.Path).Error()
}

// smithyBuild is the subset of the Smithy-defined smithy-build.json schema
// the server consumes. Projections are preserved only as raw messages;
// plugin settings are not read.
type smithyBuild struct {
	Version     string                     `json:"version"`
	Sources     []string                   `json:"sources"`
	Imports     []string                   `json:"imports"`
	OutputDir   string                     `json:"outputDirectory"`
	Projections map[string]json.RawMessage `json:"projections"`
	Maven       *MavenConfig               `json:"maven"`
}

// smithyProject is the LSP-specific .smithy-project.json schema.
type smithyProject struct {
	Sources      []string          `json:"sources"`
	Imports      []string          `json:"imports"`
	OutputDir    string            `json:"outputDirectory"`
	Dependencies []LocalDependency `json:"dependencies"`
}

// MavenConfig lists Maven coordinates and the repositories to resolve them
// against.
type MavenConfig struct {
	Dependencies []string     `json:"dependencies"`
	Repositories []Repository `json:"repositories"`
}

// Repository is one Maven repository.
type Repository struct {
	URL string `json:"url"`
}

// LocalDependency is a pre-resolved jar on disk.
type LocalDependency struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// A Config is the merged build configuration of one project root.
type Config struct {
	Root      string
	Sources   []string
	Imports   []string
	OutputDir string
	Maven     MavenConfig
	// Dependencies are local jars from .smithy-project.json.
	Dependencies []LocalDependency
	// Found reports which config files were present.
	Found []string
}

// Load reads and merges the config files under root. When neither file
// exists it returns an empty Config and ErrConfigNotFound; the project is
// still usable. A malformed file fails with a *ParseError naming it.
func Load(fs afero.Fs, root string) (*Config, error) {
	cfg := &Config{Root: root}

	sb, found, err := readSmithyBuild(fs, root)
	if err != nil {
		return nil, err
	}
	if found {
		cfg.Found = append(cfg.Found, SmithyBuildFile)
		cfg.Sources = append(cfg.Sources, sb.Sources...)
		cfg.Imports = append(cfg.Imports, sb.Imports...)
		cfg.OutputDir = sb.OutputDir
		if sb.Maven != nil {
			cfg.Maven = *sb.Maven
		}
	}

	sp, found, err := readSmithyProject(fs, root)
	if err != nil {
		return nil, err
	}
	if found {
		cfg.Found = append(cfg.Found, SmithyProjectFile)
		cfg.Sources = append(cfg.Sources, sp.Sources...)
		cfg.Imports = append(cfg.Imports, sp.Imports...)
		cfg.Dependencies = append(cfg.Dependencies, sp.Dependencies...)
		if sp.OutputDir != "" {
			cfg.OutputDir = sp.OutputDir
		}
	}

	if len(cfg.Found) == 0 {
		return cfg, ErrConfigNotFound
	}
	if len(cfg.Sources) == 0 {
		// Without explicit sources the project root is the source root.
		cfg.Sources = []string{"."}
	}
	return cfg, nil
}

func readSmithyBuild(fs afero.Fs, root string) (*smithyBuild, bool, error) {
	path := filepath.Join(root, SmithyBuildFile)
	exists, err := afero.Exists(fs, path)
	if err != nil || !exists {
		return nil, false, err
	}
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, false, errors.Wrapf(err, errReadFmt, path)
	}
	var sb smithyBuild
	if err := json.Unmarshal(b, &sb); err != nil {
		return nil, false, &ParseError{Path: path, Err: err}
	}
	return &sb, true, nil
}

func readSmithyProject(fs afero.Fs, root string) (*smithyProject, bool, error) {
	path := filepath.Join(root, SmithyProjectFile)
	exists, err := afero.Exists(fs, path)
	if err != nil || !exists {
		return nil, false, err
	}
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, false, errors.Wrapf(err, errReadFmt, path)
	}
	var sp smithyProject
	if err := json.Unmarshal(b, &sp); err != nil {
		return nil, false, &ParseError{Path: path, Err: err}
	}
	return &sp, true, nil
}

// IsConfigFile reports whether the path names one of the config files this
// package reads.
func IsConfigFile(path string) bool {
	base := filepath.Base(path)
	return base == SmithyBuildFile || base == SmithyProjectFile
}
