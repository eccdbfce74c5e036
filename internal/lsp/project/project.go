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

// Package project maintains the always-current semantic view of a Smithy
// project: its documents, parses, per-file indices and assembled model. A
// Project is the authoritative mutable state; feature handlers only ever see
// immutable Snapshots.
package project

import (
	"context"
	"sync"
	"time"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/sourcegraph/go-lsp"
	"github.com/spf13/afero"

	"github.com/smithy-lang/smithy-language-server/internal/lsp/build"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/document"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/jar"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/model"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/smithy"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/smithyfile"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/syntax"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/uri"
)

// DefaultDebounce is the idle window that coalesces bursts of edits into one
// rebuild.
const DefaultDebounce = 250 * time.Millisecond

const (
	errUnknownURI = "no document for uri"
	errReadSource = "failed to read source file"
)

// Kind classifies a project.
type Kind int

// Project kinds.
const (
	// Normal projects come from a workspace root with (or without) build
	// config.
	Normal Kind = iota
	// Detached projects hold a single open file that belongs to no Normal
	// project.
	Detached
	// Empty projects have no sources yet.
	Empty
)

// A Parse binds a document version to its token stream and syntax tree.
type Parse struct {
	URI     lsp.DocumentURI
	Version int
	Result  *syntax.Result
}

// An Issue is a project-level problem (config parse failure, unresolved
// dependencies) surfaced as a workspace diagnostic on the config file.
type Issue struct {
	URI     lsp.DocumentURI
	Message string
}

// A Snapshot is a read-only, mutually consistent view of a project. Feature
// handlers operate on Snapshots without further synchronization.
type Snapshot struct {
	Kind        Kind
	Root        string
	Config      *build.Config
	Documents   map[lsp.DocumentURI]*document.Document
	Parses      map[lsp.DocumentURI]*Parse
	SmithyFiles map[lsp.DocumentURI]*smithyfile.SmithyFile
	Model       *model.Model
	// References merges every SmithyFile's reference list, keyed by shape id.
	References map[smithy.ShapeID][]model.Location
	Jars       []string
	Issues     []Issue
	Generation int64
}

// Document returns the snapshot's document for the URI.
func (s *Snapshot) Document(u lsp.DocumentURI) (*document.Document, bool) {
	d, ok := s.Documents[u]
	return d, ok
}

// DeclarationLocation finds where a shape id is declared, searching every
// file in the snapshot, dependency jars included.
func (s *Snapshot) DeclarationLocation(id smithy.ShapeID) (model.Location, bool) {
	for u, sf := range s.SmithyFiles {
		if d, ok := sf.Declaration(id); ok {
			return model.Location{URI: u, Range: d.Range}, true
		}
	}
	// Member ids fall back to their containing shape.
	if id.IsMember() {
		return s.DeclarationLocation(id.Root())
	}
	return model.Location{}, false
}

// A Project is the engine's authoritative state for one root. All mutation
// funnels through it; a single rebuilder goroutine is the only writer of the
// derived state.
type Project struct {
	mu  sync.Mutex
	fs  afero.Fs
	log logging.Logger

	kind      Kind
	root      string
	cfg       *build.Config
	assembler model.Assembler

	docs    map[lsp.DocumentURI]*document.Document
	open    map[lsp.DocumentURI]bool
	sources map[lsp.DocumentURI]bool
	parses  map[lsp.DocumentURI]*Parse
	jars    []string
	issues  []Issue

	snapshot *Snapshot

	// editSeq counts mutations; builtSeq is the editSeq covered by the last
	// completed rebuild. Requests that need semantics await builtSeq.
	editSeq  int64
	builtSeq int64
	buildCh  chan struct{}

	generation   int64
	reloadNeeded bool

	debounce  *time.Timer
	debounceD time.Duration
	onRebuild func(*Snapshot)
	reload    func(ctx context.Context, p *Project) error
}

// Option modifies a Project.
type Option func(*Project)

// WithLogger sets the project's logger.
func WithLogger(l logging.Logger) Option {
	return func(p *Project) {
		p.log = l
	}
}

// WithDebounce overrides the rebuild debounce window.
func WithDebounce(d time.Duration) Option {
	return func(p *Project) {
		p.debounceD = d
	}
}

// WithOnRebuild registers a callback invoked with each new snapshot at the
// end of Rebuild, on the goroutine running the rebuild (the debounce timer's
// for scheduled rebuilds). The server uses it to push diagnostics.
func WithOnRebuild(fn func(*Snapshot)) Option {
	return func(p *Project) {
		p.onRebuild = fn
	}
}

// Kind returns the project kind.
func (p *Project) Kind() Kind {
	return p.kind
}

// Root returns the project root path.
func (p *Project) Root() string {
	return p.root
}

// Owns reports whether the URI belongs to this project's source set or open
// documents.
func (p *Project) Owns(u lsp.DocumentURI) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sources[u] || p.open[u]
}

// Open ensures a Document exists for the URI with the given editor state,
// overwriting any snapshot synthesized from disk, and schedules a rebuild.
func (p *Project) Open(u lsp.DocumentURI, text string, version int) {
	p.mu.Lock()
	p.docs[u] = document.New(u, text, version)
	p.open[u] = true
	if p.kind == Detached {
		p.sources[u] = true
	}
	p.editSeq++
	p.mu.Unlock()
	p.scheduleRebuild()
}

// Change applies edits to the URI's document and invalidates its parse.
// Edits for unknown URIs are not applied and return an error, which the
// server logs; text sync must never fail the transport.
func (p *Project) Change(u lsp.DocumentURI, changes []lsp.TextDocumentContentChangeEvent, version int) error {
	p.mu.Lock()
	doc, ok := p.docs[u]
	if !ok {
		p.mu.Unlock()
		return errors.New(errUnknownURI)
	}
	next, err := doc.ApplyEdits(changes, version)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.docs[u] = next
	delete(p.parses, u)
	p.editSeq++
	p.mu.Unlock()
	p.scheduleRebuild()
	return nil
}

// Close handles didClose: project sources revert to disk contents on the
// next rebuild; other documents are dropped entirely.
func (p *Project) Close(u lsp.DocumentURI) {
	p.mu.Lock()
	delete(p.open, u)
	// Dropping the document either removes the file from the project
	// entirely (non-sources) or makes the next rebuild
	// re-read it from disk, so unsaved edits stop shadowing the file.
	delete(p.docs, u)
	delete(p.parses, u)
	p.editSeq++
	p.mu.Unlock()
	p.scheduleRebuild()
}

// Save is a no-op on in-memory state but still triggers a rebuild, matching
// clients that only validate on save.
func (p *Project) Save(u lsp.DocumentURI) {
	p.mu.Lock()
	p.editSeq++
	p.mu.Unlock()
	p.scheduleRebuild()
}

// Watched applies file events: source create/delete updates the source set;
// config or jar changes mark the project for a full reload.
func (p *Project) Watched(events []lsp.FileEvent) {
	p.mu.Lock()
	for _, ev := range events {
		path, err := uri.ToPath(ev.URI)
		if err != nil {
			continue
		}
		if build.IsConfigFile(path) {
			p.reloadNeeded = true
			continue
		}
		switch ev.Type {
		case int(lsp.Created):
			p.sources[ev.URI] = true
		case int(lsp.Deleted):
			delete(p.sources, ev.URI)
			if !p.open[ev.URI] {
				delete(p.docs, ev.URI)
				delete(p.parses, ev.URI)
			}
		}
	}
	p.editSeq++
	p.mu.Unlock()
	p.scheduleRebuild()
}

// MarkReload flags the project for reconstruction on the next rebuild.
func (p *Project) MarkReload() {
	p.mu.Lock()
	p.reloadNeeded = true
	p.editSeq++
	p.mu.Unlock()
	p.scheduleRebuild()
}

// EditSeq returns the current mutation counter. A request observing an edit
// awaits a build covering this value.
func (p *Project) EditSeq() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.editSeq
}

// Snapshot returns the current read-only view.
func (p *Project) Snapshot() *Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot
}

// Document returns the current document for the URI, which may be newer
// than the one in the latest snapshot.
func (p *Project) Document(u lsp.DocumentURI) (*document.Document, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.docs[u]
	return d, ok
}

// Parse returns an up-to-date parse of the URI, computing it on demand. The
// parse cache is keyed by document version.
func (p *Project) Parse(u lsp.DocumentURI) (*Parse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.parseLocked(u)
}

func (p *Project) parseLocked(u lsp.DocumentURI) (*Parse, error) {
	doc, ok := p.docs[u]
	if !ok {
		text, err := p.readSource(u)
		if err != nil {
			return nil, err
		}
		doc = document.New(u, text, 0)
		p.docs[u] = doc
	}
	if cached, ok := p.parses[u]; ok && cached.Version == doc.Version() {
		return cached, nil
	}
	parsed := &Parse{URI: u, Version: doc.Version(), Result: syntax.Parse(doc.Text())}
	p.parses[u] = parsed
	return parsed, nil
}

// readSource reads a source file from disk or from inside a dependency jar.
func (p *Project) readSource(u lsp.DocumentURI) (string, error) {
	if uri.IsSmithyJar(u) {
		jarPath, entry, err := uri.ParseSmithyJar(u)
		if err != nil {
			return "", err
		}
		b, err := readJarEntry(p.fs, jarPath, entry)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	path, err := uri.ToPath(u)
	if err != nil {
		return "", err
	}
	b, err := afero.ReadFile(p.fs, path)
	if err != nil {
		return "", errors.Wrap(err, errReadSource)
	}
	return string(b), nil
}

// AwaitBuilt blocks until a rebuild covering editSeq >= seq has completed,
// or the context is cancelled.
func (p *Project) AwaitBuilt(ctx context.Context, seq int64) error {
	for {
		// Cancelled requests stay cancelled even when the build already
		// caught up; handlers check before doing further work.
		if err := ctx.Err(); err != nil {
			return err
		}
		p.mu.Lock()
		if p.builtSeq >= seq {
			p.mu.Unlock()
			return nil
		}
		ch := p.buildCh
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// scheduleRebuild (re)arms the debounce timer. Bursts of edits collapse into
// a single rebuild that runs after the idle window.
func (p *Project) scheduleRebuild() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceD, func() {
		if err := p.Rebuild(context.Background()); err != nil {
			p.log.Debug("rebuild failed", "error", err)
		}
	})
}

// Rebuild re-derives every index from current state: re-parse dirty
// documents, re-run the assembler over the union of source contents, rebuild
// SmithyFiles for changed parses only, then atomically install the new
// snapshot. It is safe to call concurrently; calls serialize on the project
// lock for state capture and install.
func (p *Project) Rebuild(ctx context.Context) error { // nolint:gocyclo
	p.mu.Lock()
	if p.reloadNeeded && p.reload != nil {
		p.reloadNeeded = false
		fn := p.reload
		p.mu.Unlock()
		return fn(ctx, p)
	}
	target := p.editSeq
	prev := p.snapshot

	// Parse every source and open document at its current version.
	uris := make([]lsp.DocumentURI, 0, len(p.sources)+len(p.docs))
	seen := make(map[lsp.DocumentURI]bool, len(p.sources)+len(p.docs))
	for u := range p.sources {
		uris = append(uris, u)
		seen[u] = true
	}
	for u := range p.docs {
		if !seen[u] {
			uris = append(uris, u)
		}
	}

	parses := make(map[lsp.DocumentURI]*Parse, len(uris))
	for _, u := range uris {
		parsed, err := p.parseLocked(u)
		if err != nil {
			p.log.Debug("skipping unreadable source", "uri", string(u), "error", err)
			continue
		}
		parses[u] = parsed
	}

	docs := make(map[lsp.DocumentURI]*document.Document, len(p.docs))
	for u, d := range p.docs {
		docs[u] = d
	}
	cfg := p.cfg
	jars := p.jars
	issues := p.issues
	kind := p.kind
	root := p.root
	assembler := p.assembler
	p.mu.Unlock()

	// Assemble outside the lock; parses and documents are immutable.
	sources := make([]model.Source, 0, len(parses))
	for u, parsed := range parses {
		sources = append(sources, model.Source{URI: u, File: parsed.Result.File})
	}
	assembled, err := assembler.Assemble(ctx, sources)
	if err != nil {
		return err
	}

	// Reuse SmithyFiles whose parse is unchanged.
	smithyFiles := make(map[lsp.DocumentURI]*smithyfile.SmithyFile, len(parses))
	for u, parsed := range parses {
		if prev != nil {
			if old, ok := prev.Parses[u]; ok && old == parsed {
				smithyFiles[u] = prev.SmithyFiles[u]
				continue
			}
		}
		smithyFiles[u] = smithyfile.Build(u, parsed.Result.File)
	}

	refs := make(map[smithy.ShapeID][]model.Location)
	for u, sf := range smithyFiles {
		for _, r := range sf.References {
			refs[r.ID] = append(refs[r.ID], model.Location{URI: u, Range: r.Range})
		}
	}

	p.mu.Lock()
	p.generation++
	snap := &Snapshot{
		Kind:        kind,
		Root:        root,
		Config:      cfg,
		Documents:   docs,
		Parses:      parses,
		SmithyFiles: smithyFiles,
		Model:       assembled,
		References:  refs,
		Jars:        jars,
		Issues:      issues,
		Generation:  p.generation,
	}
	p.snapshot = snap
	if target > p.builtSeq {
		p.builtSeq = target
	}
	close(p.buildCh)
	p.buildCh = make(chan struct{})
	cb := p.onRebuild
	p.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
	return nil
}

func readJarEntry(fs afero.Fs, jarPath, entry string) ([]byte, error) {
	return jar.Read(fs, jarPath, entry)
}
