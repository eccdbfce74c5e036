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
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/sourcegraph/go-lsp"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/smithy-lang/smithy-language-server/internal/lsp/build"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/build/maven"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/document"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/jar"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/model"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/syntax"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/uri"
)

const smithyExt = ".smithy"

// A Loader discovers a project's sources and dependencies and produces a
// fully-populated Project. Parse errors never fail a load; the model may
// lack shapes, but every syntactic index exists.
type Loader struct {
	fs        afero.Fs
	log       logging.Logger
	assembler model.Assembler
	resolver  maven.Resolver
}

// NewLoader creates a Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		fs:        afero.NewOsFs(),
		log:       logging.NewNopLogger(),
		assembler: model.NewAssembler(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// LoaderOption modifies a Loader.
type LoaderOption func(*Loader)

// WithFS overrides the loader's filesystem.
func WithFS(fs afero.Fs) LoaderOption {
	return func(l *Loader) {
		l.fs = fs
	}
}

// WithLoaderLogger sets the loader's logger.
func WithLoaderLogger(log logging.Logger) LoaderOption {
	return func(l *Loader) {
		l.log = log
	}
}

// WithAssembler overrides the model assembler.
func WithAssembler(a model.Assembler) LoaderOption {
	return func(l *Loader) {
		l.assembler = a
	}
}

// WithResolver sets the Maven resolver used for dependency jars. Without one
// Maven dependencies are skipped with an issue.
func WithResolver(r maven.Resolver) LoaderOption {
	return func(l *Loader) {
		l.resolver = r
	}
}

// Load constructs a Normal project rooted at root.
func (l *Loader) Load(ctx context.Context, root string, opts ...Option) (*Project, error) {
	p := l.newProject(Normal, root, opts...)
	if err := l.populate(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadDetached constructs a single-file project for an orphan URI.
func (l *Loader) LoadDetached(ctx context.Context, u lsp.DocumentURI, text string, version int, opts ...Option) (*Project, error) {
	root := ""
	if path, err := uri.ToPath(u); err == nil {
		root = filepath.Dir(path)
	}
	p := l.newProject(Detached, root, opts...)
	p.cfg = &build.Config{Root: root}
	p.sources[u] = true
	p.docs[u] = document.New(u, text, version)
	p.open[u] = true
	return p, p.Rebuild(ctx)
}

func (l *Loader) newProject(kind Kind, root string, opts ...Option) *Project {
	p := &Project{
		fs:        l.fs,
		log:       l.log,
		kind:      kind,
		root:      root,
		assembler: l.assembler,
		docs:      make(map[lsp.DocumentURI]*document.Document),
		open:      make(map[lsp.DocumentURI]bool),
		sources:   make(map[lsp.DocumentURI]bool),
		parses:    make(map[lsp.DocumentURI]*Parse),
		buildCh:   make(chan struct{}),
		debounceD: DefaultDebounce,
	}
	for _, o := range opts {
		o(p)
	}
	p.reload = l.reload
	return p
}

// populate runs the full load pipeline: config, source enumeration, jar
// resolution, parse, assembly.
func (l *Loader) populate(ctx context.Context, p *Project) error {
	var issues []Issue

	cfg, err := build.Load(l.fs, p.root)
	switch {
	case err == nil:
	case errors.Is(err, build.ErrConfigNotFound):
		// An absent config is an empty build, not a failure.
	default:
		// A malformed config surfaces as a workspace diagnostic on the
		// config file; the project stays usable as an empty build.
		issues = append(issues, Issue{URI: configURI(err, p.root), Message: err.Error()})
		cfg = &build.Config{Root: p.root, Sources: []string{"."}}
	}

	sources, err := l.enumerateSources(cfg, p.root)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.cfg = cfg
	for _, u := range sources {
		p.sources[u] = true
	}
	if p.kind == Normal && len(p.sources) == 0 && len(cfg.Found) == 0 {
		p.kind = Empty
	}
	p.mu.Unlock()

	jars, jarIssues := l.resolveJars(ctx, cfg, p.root)
	p.mu.Lock()
	p.jars = jars
	p.mu.Unlock()
	issues = append(issues, jarIssues...)

	// Dependency jars contribute read-only sources addressed by smithyjar
	// URIs.
	for _, jarPath := range jars {
		entries, err := jar.Entries(l.fs, jarPath)
		if err != nil {
			issues = append(issues, Issue{URI: uri.ToURI(jarPath), Message: err.Error()})
			continue
		}
		for _, entry := range entries {
			p.mu.Lock()
			p.sources[uri.SmithyJar(jarPath, entry)] = true
			p.mu.Unlock()
		}
	}
	p.mu.Lock()
	p.issues = issues
	p.mu.Unlock()

	l.parseAll(ctx, p)
	return p.Rebuild(ctx)
}

// parseAll warms the parse cache concurrently. Rebuild reuses whatever
// finished; failures degrade to lazy parsing.
func (l *Loader) parseAll(ctx context.Context, p *Project) {
	p.mu.Lock()
	uris := make([]lsp.DocumentURI, 0, len(p.sources))
	for u := range p.sources {
		uris = append(uris, u)
	}
	p.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, u := range uris {
		u := u
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			text, err := l.readSource(u)
			if err != nil {
				l.log.Debug("failed to read source", "uri", string(u), "error", err)
				return nil // nolint:nilerr
			}
			doc := document.New(u, text, 0)
			parsed := &Parse{URI: u, Version: 0, Result: syntax.Parse(text)}
			p.mu.Lock()
			if !p.open[u] {
				p.docs[u] = doc
				p.parses[u] = parsed
			}
			p.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}

func (l *Loader) readSource(u lsp.DocumentURI) (string, error) {
	if uri.IsSmithyJar(u) {
		jarPath, entry, err := uri.ParseSmithyJar(u)
		if err != nil {
			return "", err
		}
		b, err := jar.Read(l.fs, jarPath, entry)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	path, err := uri.ToPath(u)
	if err != nil {
		return "", err
	}
	b, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// enumerateSources finds every .smithy file under the configured source
// roots and import directories.
func (l *Loader) enumerateSources(cfg *build.Config, root string) ([]lsp.DocumentURI, error) {
	var out []lsp.DocumentURI
	seen := map[string]bool{}

	roots := append([]string{}, cfg.Sources...)
	roots = append(roots, cfg.Imports...)
	if len(roots) == 0 {
		roots = []string{"."}
	}

	for _, r := range roots {
		path := r
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, r)
		}
		info, err := l.fs.Stat(path)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			if strings.HasSuffix(path, smithyExt) && !seen[path] {
				seen[path] = true
				out = append(out, uri.ToURI(path))
			}
			continue
		}
		err = afero.Walk(l.fs, path, func(p string, fi fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.IsDir() || !strings.HasSuffix(p, smithyExt) || seen[p] {
				return nil
			}
			seen[p] = true
			out = append(out, uri.ToURI(p))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// resolveJars collects dependency jars: Maven coordinates through the
// resolver plus local jars from .smithy-project.json.
func (l *Loader) resolveJars(ctx context.Context, cfg *build.Config, root string) ([]string, []Issue) {
	var jars []string
	var issues []Issue

	if len(cfg.Maven.Dependencies) > 0 {
		if l.resolver == nil {
			issues = append(issues, Issue{
				URI:     uri.ToURI(filepath.Join(root, build.SmithyBuildFile)),
				Message: "maven dependencies configured but no resolver available",
			})
		} else {
			resolved, err := l.resolver.Resolve(ctx, cfg.Maven)
			if err != nil {
				issues = append(issues, Issue{
					URI:     uri.ToURI(filepath.Join(root, build.SmithyBuildFile)),
					Message: err.Error(),
				})
			}
			jars = append(jars, resolved...)
		}
	}

	for _, d := range cfg.Dependencies {
		path := d.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		exists, err := afero.Exists(l.fs, path)
		if err != nil || !exists {
			issues = append(issues, Issue{
				URI:     uri.ToURI(filepath.Join(root, build.SmithyProjectFile)),
				Message: "dependency jar not found: " + d.Path,
			})
			continue
		}
		jars = append(jars, path)
	}
	return jars, issues
}

// reload reconstructs a project in place after a config change, preserving
// open documents by URI.
func (l *Loader) reload(ctx context.Context, p *Project) error {
	p.mu.Lock()
	openDocs := make(map[lsp.DocumentURI]*document.Document)
	for u := range p.open {
		if d, ok := p.docs[u]; ok {
			openDocs[u] = d
		}
	}
	p.docs = make(map[lsp.DocumentURI]*document.Document)
	p.parses = make(map[lsp.DocumentURI]*Parse)
	p.sources = make(map[lsp.DocumentURI]bool)
	p.jars = nil
	p.issues = nil
	for u, d := range openDocs {
		p.docs[u] = d
	}
	p.mu.Unlock()

	return l.populate(ctx, p)
}

func configURI(err error, root string) lsp.DocumentURI {
	var pe *build.ParseError
	if errors.As(err, &pe) {
		return uri.ToURI(pe.Path)
	}
	return uri.ToURI(filepath.Join(root, build.SmithyBuildFile))
}
