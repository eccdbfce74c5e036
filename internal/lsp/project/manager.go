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

package project

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar"
	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/sourcegraph/go-lsp"

	"github.com/smithy-lang/smithy-language-server/internal/lsp/uri"
)

// Watched-file patterns the manager routes on.
const (
	SourcePattern = "**/*.smithy"
	configPattern = "**/{smithy-build.json,.smithy-project.json}"
	jarPattern    = "**/*.jar"
)

// A Manager owns every project of the workspace: the Normal projects loaded
// from workspace roots and a Detached project per orphan file. It maps each
// document URI to exactly one owning project.
type Manager struct {
	mu     sync.RWMutex
	log    logging.Logger
	loader *Loader

	projects map[string]*Project          // Normal, keyed by root
	detached map[lsp.DocumentURI]*Project // one file each
	opts     []Option
}

// NewManager creates a Manager around a Loader. The given project options
// apply to every project it creates.
func NewManager(loader *Loader, log logging.Logger, opts ...Option) *Manager {
	return &Manager{
		log:      log,
		loader:   loader,
		projects: make(map[string]*Project),
		detached: make(map[lsp.DocumentURI]*Project),
		opts:     opts,
	}
}

// AddRoot loads a Normal project for a workspace root.
func (m *Manager) AddRoot(ctx context.Context, root string) error {
	p, err := m.loader.Load(ctx, root, m.opts...)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.projects[root] = p
	m.mu.Unlock()
	return nil
}

// RemoveRoot unloads the project for a workspace root.
func (m *Manager) RemoveRoot(root string) {
	m.mu.Lock()
	delete(m.projects, root)
	m.mu.Unlock()
}

// Projects returns every Normal project.
func (m *Manager) Projects() []*Project {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, p)
	}
	return out
}

// Project resolves the owning project for a URI: the Normal project whose
// sources or root contain it, otherwise its Detached project.
func (m *Manager) Project(u lsp.DocumentURI) (*Project, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookup(u)
}

func (m *Manager) lookup(u lsp.DocumentURI) (*Project, bool) {
	for _, p := range m.projects {
		if p.Owns(u) {
			return p, true
		}
	}
	if path, err := uri.ToPath(u); err == nil {
		for _, p := range m.projects {
			if underRoot(p.Root(), path) {
				return p, true
			}
		}
	}
	p, ok := m.detached[u]
	return p, ok
}

// Open routes a didOpen: the owning Normal project absorbs the document, or
// a Detached project is created for the orphan file.
func (m *Manager) Open(ctx context.Context, u lsp.DocumentURI, text string, version int) (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.lookup(u); ok {
		p.Open(u, text, version)
		return p, nil
	}
	p, err := m.loader.LoadDetached(ctx, u, text, version, m.opts...)
	if err != nil {
		return nil, err
	}
	m.detached[u] = p
	return p, nil
}

// Close routes a didClose. A Detached project dies with its only file.
func (m *Manager) Close(u lsp.DocumentURI) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.detached[u]; ok {
		p.Close(u)
		delete(m.detached, u)
		return
	}
	if p, ok := m.lookup(u); ok {
		p.Close(u)
	}
}

// Watched dispatches global watched-file events. Config and jar changes mark
// the matching projects for full reload; source file events update source
// sets. Events under shared paths reach every matching project.
func (m *Manager) Watched(events []lsp.FileEvent) {
	m.mu.RLock()
	projects := make([]*Project, 0, len(m.projects))
	for _, p := range m.projects {
		projects = append(projects, p)
	}
	m.mu.RUnlock()

	for _, p := range projects {
		var routed []lsp.FileEvent
		reload := false
		for _, ev := range events {
			path, err := uri.ToPath(ev.URI)
			if err != nil {
				continue
			}
			if !underRoot(p.Root(), path) && !p.dependsOn(path) {
				continue
			}
			switch {
			case matchPattern(configPattern, path), matchPattern(jarPattern, path):
				reload = true
			case matchPattern(SourcePattern, path):
				routed = append(routed, ev)
			}
		}
		if reload {
			p.MarkReload()
			continue
		}
		if len(routed) > 0 {
			p.Watched(routed)
		}
	}
}

// dependsOn reports whether the path is one of the project's dependency
// jars, which may live outside the root (the Maven cache).
func (p *Project) dependsOn(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, j := range p.jars {
		if j == path {
			return true
		}
	}
	return false
}

func matchPattern(pattern, path string) bool {
	ok, err := doublestar.Match(pattern, filepath.ToSlash(path))
	return err == nil && ok
}

func underRoot(root, path string) bool {
	if root == "" {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}
