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

// Package server services incoming LSP requests over a project engine.
package server

import (
	"context"
	"os"
	"sync"

	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/spf13/afero"

	"github.com/smithy-lang/smithy-language-server/internal/lsp/build/maven"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/document"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/jar"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/project"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/server/dispatcher"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/server/feature"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/smithyfile"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/uri"
)

const (
	errLoadWorkspace      = "failed to load workspace root"
	errPublishDiagnostics = "failed to publish diagnostics"
	errRegisterWatchers   = "failed to register workspace watchers"
	errShowMessage        = "failed to show message"
)

// Server services incoming LSP requests.
type Server struct {
	conn *jsonrpc2.Conn

	fs        afero.Fs
	log       logging.Logger
	manager   *project.Manager
	formatter feature.Formatter

	mu       sync.Mutex
	open     map[lsp.DocumentURI]bool
	cancels  map[jsonrpc2.ID]context.CancelFunc
	shutdown bool
	exit     func(code int)
}

// New returns a new Server.
func New(opts ...Option) (*Server, error) {
	s := &Server{
		fs:        afero.NewOsFs(),
		log:       logging.NewNopLogger(),
		formatter: feature.NewlineFormatter{},
		open:      make(map[lsp.DocumentURI]bool),
		cancels:   make(map[jsonrpc2.ID]context.CancelFunc),
		exit:      os.Exit,
	}
	for _, o := range opts {
		o(s)
	}

	if s.manager == nil {
		cache, err := maven.NewLocal()
		var resolver maven.Resolver
		if err == nil {
			resolver = maven.NewResolver(cache)
		}
		loader := project.NewLoader(
			project.WithFS(s.fs),
			project.WithLoaderLogger(s.log),
			project.WithResolver(resolver),
		)
		s.manager = project.NewManager(loader, s.log,
			project.WithLogger(s.log),
			project.WithOnRebuild(s.publishSnapshot),
		)
		if resolver != nil {
			s.watchJarCache(resolver)
		}
	}
	return s, nil
}

// Option provides a way to override default behavior of the Server.
type Option func(*Server)

// WithLogger overrides the default logging.Logger for the Server with the
// supplied logging.Logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithFS overrides the server's filesystem.
func WithFS(fs afero.Fs) Option {
	return func(s *Server) {
		s.fs = fs
	}
}

// WithManager overrides the project manager, primarily for tests.
func WithManager(m *project.Manager) Option {
	return func(s *Server) {
		s.manager = m
	}
}

// WithFormatter overrides the external formatter.
func WithFormatter(f feature.Formatter) Option {
	return func(s *Server) {
		s.formatter = f
	}
}

// WithExit overrides process termination on the exit notification.
func WithExit(fn func(code int)) Option {
	return func(s *Server) {
		s.exit = fn
	}
}

// Manager exposes the project manager, primarily for tests.
func (s *Server) Manager() *project.Manager {
	return s.manager
}

// Initialize handles calls to Initialize.
func (s *Server) Initialize(ctx context.Context, conn *jsonrpc2.Conn, id jsonrpc2.ID, params *lsp.InitializeParams) {
	s.conn = conn

	root := rootPath(params)
	if root != "" {
		if err := s.manager.AddRoot(ctx, root); err != nil {
			s.log.Info(errLoadWorkspace, "root", root, "error", err)
			s.showMessage(ctx, lsp.MTError, "Failed to load Smithy project: "+err.Error())
		}
	}

	kind := lsp.TDSKIncremental
	reply := &lsp.InitializeResult{
		Capabilities: lsp.ServerCapabilities{
			TextDocumentSync: &lsp.TextDocumentSyncOptionsOrKind{
				Kind: &kind,
			},
			CompletionProvider: &lsp.CompletionOptions{
				TriggerCharacters: feature.TriggerCharacters,
			},
			HoverProvider:              true,
			DefinitionProvider:         true,
			ReferencesProvider:         true,
			DocumentSymbolProvider:     true,
			WorkspaceSymbolProvider:    true,
			DocumentFormattingProvider: true,
			CodeActionProvider:         true,
			ExecuteCommandProvider: &lsp.ExecuteCommandOptions{
				Commands: []string{feature.CommandUpdateIDL2},
			},
		},
	}
	if err := s.conn.Reply(ctx, id, reply); err != nil {
		// If we fail to initialize the workspace we won't receive future
		// messages so we panic and try again on restart.
		panic(err)
	}

	s.registerWatchFilesCapability(context.Background()) //nolint:contextcheck
	s.publishWorkspaceIssues(context.Background())       //nolint:contextcheck
}

// Shutdown marks the server as shutting down; exit terminates.
func (s *Server) Shutdown(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true
	return nil
}

// Exit handles the exit notification.
func (s *Server) Exit(_ context.Context) {
	s.mu.Lock()
	clean := s.shutdown
	s.mu.Unlock()
	if clean {
		s.exit(0)
		return
	}
	s.exit(1)
}

// DidOpen handles calls to DidOpen.
func (s *Server) DidOpen(ctx context.Context, params *lsp.DidOpenTextDocumentParams) {
	u := params.TextDocument.URI
	s.mu.Lock()
	s.open[u] = true
	s.mu.Unlock()

	if _, err := s.manager.Open(ctx, u, params.TextDocument.Text, params.TextDocument.Version); err != nil {
		s.log.Debug("failed to open document", "uri", string(u), "error", err)
	}
}

// DidChange handles calls to DidChange.
func (s *Server) DidChange(_ context.Context, params *lsp.DidChangeTextDocumentParams) {
	u := params.TextDocument.URI
	p, ok := s.manager.Project(u)
	if !ok {
		s.log.Debug("change for unknown uri", "uri", string(u))
		return
	}
	if err := p.Change(u, params.ContentChanges, params.TextDocument.Version); err != nil {
		s.log.Debug("failed to apply changes", "uri", string(u), "error", err)
	}
}

// DidClose handles calls to DidClose.
func (s *Server) DidClose(_ context.Context, params *lsp.DidCloseTextDocumentParams) {
	u := params.TextDocument.URI
	s.mu.Lock()
	delete(s.open, u)
	s.mu.Unlock()
	s.manager.Close(u)
}

// DidSave handles calls to DidSave.
func (s *Server) DidSave(_ context.Context, params *lsp.DidSaveTextDocumentParams) {
	if p, ok := s.manager.Project(params.TextDocument.URI); ok {
		p.Save(params.TextDocument.URI)
	}
}

// DidChangeWatchedFiles handles calls to DidChangeWatchedFiles.
func (s *Server) DidChangeWatchedFiles(_ context.Context, params *lsp.DidChangeWatchedFilesParams) {
	s.manager.Watched(params.Changes)
}

// DidChangeWorkspaceFolders loads and unloads projects as workspace roots
// come and go.
func (s *Server) DidChangeWorkspaceFolders(ctx context.Context, params *dispatcher.DidChangeWorkspaceFoldersParams) {
	for _, f := range params.Event.Removed {
		if path, err := uri.ToPath(f.URI); err == nil {
			s.manager.RemoveRoot(path)
		}
	}
	for _, f := range params.Event.Added {
		path, err := uri.ToPath(f.URI)
		if err != nil {
			continue
		}
		if err := s.manager.AddRoot(ctx, path); err != nil {
			s.log.Info(errLoadWorkspace, "root", path, "error", err)
		}
	}
}

// semantics resolves the project for a URI and waits until its model covers
// the edits observed so far. Requests against unknown URIs return a nil
// snapshot; handlers translate that to empty results.
func (s *Server) semantics(ctx context.Context, u lsp.DocumentURI) (*project.Snapshot, error) {
	p, ok := s.manager.Project(u)
	if !ok {
		return nil, nil
	}
	if err := p.AwaitBuilt(ctx, p.EditSeq()); err != nil {
		return nil, err
	}
	return p.Snapshot(), nil
}

// syntactic resolves the project snapshot for purely syntactic features,
// requiring only an up-to-date parse of the target document.
func (s *Server) syntactic(u lsp.DocumentURI) (*project.Snapshot, *project.Parse, error) {
	p, ok := s.manager.Project(u)
	if !ok {
		return nil, nil, nil
	}
	parsed, err := p.Parse(u)
	if err != nil {
		return nil, nil, err
	}
	snap := p.Snapshot()
	if snap == nil {
		return nil, nil, nil
	}
	// Graft the fresh parse over the snapshot if the debounced rebuild has
	// not caught up yet. The current document rides along so position math
	// agrees with the tree.
	if prev, ok := snap.Parses[u]; !ok || prev != parsed {
		doc, _ := p.Document(u)
		snap = shallowWithParse(snap, u, doc, parsed)
	}
	return snap, parsed, nil
}

// shallowWithParse overlays one up-to-date document, its parse and its
// freshly-built SmithyFile on a snapshot without waiting for a rebuild.
func shallowWithParse(snap *project.Snapshot, u lsp.DocumentURI, doc *document.Document, parsed *project.Parse) *project.Snapshot {
	next := *snap
	next.Parses = make(map[lsp.DocumentURI]*project.Parse, len(snap.Parses)+1)
	for k, v := range snap.Parses {
		next.Parses[k] = v
	}
	next.Parses[u] = parsed

	next.SmithyFiles = make(map[lsp.DocumentURI]*smithyfile.SmithyFile, len(snap.SmithyFiles)+1)
	for k, v := range snap.SmithyFiles {
		next.SmithyFiles[k] = v
	}
	next.SmithyFiles[u] = smithyfile.Build(u, parsed.Result.File)

	if doc != nil {
		next.Documents = make(map[lsp.DocumentURI]*document.Document, len(snap.Documents)+1)
		for k, v := range snap.Documents {
			next.Documents[k] = v
		}
		next.Documents[u] = doc
	}
	return &next
}

// Hover handles calls to Hover.
func (s *Server) Hover(ctx context.Context, params *lsp.TextDocumentPositionParams) (*lsp.Hover, error) {
	snap, err := s.semantics(ctx, params.TextDocument.URI)
	if snap == nil || err != nil {
		return nil, err
	}
	c, err := feature.Resolve(snap, params.TextDocument.URI, params.Position)
	if err != nil {
		return nil, err
	}
	return feature.Hover(c), nil
}

// Definition handles calls to Definition.
func (s *Server) Definition(ctx context.Context, params *lsp.TextDocumentPositionParams) ([]lsp.Location, error) {
	snap, err := s.semantics(ctx, params.TextDocument.URI)
	if snap == nil || err != nil {
		return []lsp.Location{}, err
	}
	c, err := feature.Resolve(snap, params.TextDocument.URI, params.Position)
	if err != nil {
		return []lsp.Location{}, err
	}
	return locationsOrEmpty(feature.Definition(c)), nil
}

// References handles calls to References.
func (s *Server) References(ctx context.Context, params *lsp.ReferenceParams) ([]lsp.Location, error) {
	snap, err := s.semantics(ctx, params.TextDocument.URI)
	if snap == nil || err != nil {
		return []lsp.Location{}, err
	}
	c, err := feature.Resolve(snap, params.TextDocument.URI, params.Position)
	if err != nil {
		return []lsp.Location{}, err
	}
	return locationsOrEmpty(feature.References(c, params.Context.IncludeDeclaration)), nil
}

// Completion handles calls to Completion.
func (s *Server) Completion(ctx context.Context, params *lsp.CompletionParams) (lsp.CompletionList, error) {
	snap, err := s.semantics(ctx, params.TextDocument.URI)
	if snap == nil || err != nil {
		return lsp.CompletionList{Items: []lsp.CompletionItem{}}, err
	}
	c, err := feature.Resolve(snap, params.TextDocument.URI, params.Position)
	if err != nil {
		return lsp.CompletionList{Items: []lsp.CompletionItem{}}, err
	}
	return feature.Completion(c), nil
}

// DocumentSymbol handles calls to DocumentSymbol. It is syntactic: only the
// target file's parse must be current.
func (s *Server) DocumentSymbol(_ context.Context, params *lsp.DocumentSymbolParams) ([]lsp.SymbolInformation, error) {
	snap, _, err := s.syntactic(params.TextDocument.URI)
	if snap == nil || err != nil {
		return []lsp.SymbolInformation{}, err
	}
	return symbolsOrEmpty(feature.DocumentSymbols(snap, params.TextDocument.URI)), nil
}

// WorkspaceSymbol handles calls to WorkspaceSymbol across every project.
func (s *Server) WorkspaceSymbol(ctx context.Context, params *lsp.WorkspaceSymbolParams) ([]lsp.SymbolInformation, error) {
	out := []lsp.SymbolInformation{}
	for _, p := range s.manager.Projects() {
		if err := p.AwaitBuilt(ctx, p.EditSeq()); err != nil {
			return out, err
		}
		snap := p.Snapshot()
		if snap == nil {
			continue
		}
		out = append(out, feature.WorkspaceSymbols(snap, params.Query)...)
	}
	return out, nil
}

// Formatting handles calls to Formatting.
func (s *Server) Formatting(ctx context.Context, params *lsp.DocumentFormattingParams) ([]lsp.TextEdit, error) {
	snap, _, err := s.syntactic(params.TextDocument.URI)
	if snap == nil || err != nil {
		return []lsp.TextEdit{}, err
	}
	edits, err := feature.Format(ctx, snap, params.TextDocument.URI, s.formatter)
	if err != nil {
		return []lsp.TextEdit{}, err
	}
	if edits == nil {
		edits = []lsp.TextEdit{}
	}
	return edits, nil
}

// CodeAction handles calls to CodeAction.
func (s *Server) CodeAction(ctx context.Context, params *lsp.CodeActionParams) ([]lsp.Command, error) {
	snap, err := s.semantics(ctx, params.TextDocument.URI)
	if snap == nil || err != nil {
		return []lsp.Command{}, err
	}
	actions := feature.CodeActions(snap, params.TextDocument.URI)
	if actions == nil {
		actions = []lsp.Command{}
	}
	return actions, nil
}

// ExecuteCommand applies the workspace edits behind the code action
// commands.
func (s *Server) ExecuteCommand(ctx context.Context, params *lsp.ExecuteCommandParams) (interface{}, error) {
	if params.Command != feature.CommandUpdateIDL2 || len(params.Arguments) == 0 {
		return nil, nil
	}
	raw, ok := params.Arguments[0].(string)
	if !ok {
		return nil, nil
	}
	u := lsp.DocumentURI(raw)

	snap, err := s.semantics(ctx, u)
	if snap == nil || err != nil {
		return nil, err
	}
	edits, ok := feature.UpdateIDL2Edit(snap, u)
	if !ok {
		return nil, nil
	}
	s.applyEdit(ctx, u, edits)
	return nil, nil
}

// JarFile returns the contents of a smithyjar document.
func (s *Server) JarFile(_ context.Context, params *dispatcher.JarFileParams) (*dispatcher.JarFileResult, error) {
	jarPath, entry, err := uri.ParseSmithyJar(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	b, err := jar.Read(s.fs, jarPath, entry)
	if err != nil {
		return nil, err
	}
	return &dispatcher.JarFileResult{Text: string(b)}, nil
}

// Selector evaluates a selector expression over every project's model and
// concatenates the matches.
func (s *Server) Selector(ctx context.Context, params *dispatcher.SelectorParams) (interface{}, error) {
	matches := []feature.SelectorMatch{}
	for _, p := range s.manager.Projects() {
		if err := p.AwaitBuilt(ctx, p.EditSeq()); err != nil {
			return matches, err
		}
		snap := p.Snapshot()
		if snap == nil {
			continue
		}
		matches = append(matches, feature.RunSelector(snap, params.Expression)...)
	}
	return matches, nil
}

// BeginRequest registers a cancellable context for an in-flight request.
func (s *Server) BeginRequest(ctx context.Context, id jsonrpc2.ID) context.Context {
	rctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancels[id] = cancel
	s.mu.Unlock()
	return rctx
}

// EndRequest drops a request's cancel registration.
func (s *Server) EndRequest(id jsonrpc2.ID) {
	s.mu.Lock()
	cancel, ok := s.cancels[id]
	delete(s.cancels, id)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// Cancel handles $/cancelRequest.
func (s *Server) Cancel(id jsonrpc2.ID) {
	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// publishSnapshot pushes diagnostics for every open document after a
// rebuild.
func (s *Server) publishSnapshot(snap *project.Snapshot) {
	if s.conn == nil {
		return
	}
	ctx := context.Background()

	s.mu.Lock()
	open := make([]lsp.DocumentURI, 0, len(s.open))
	for u := range s.open {
		open = append(open, u)
	}
	s.mu.Unlock()

	for _, u := range open {
		if _, ok := snap.Documents[u]; !ok {
			continue
		}
		s.publishDiagnostics(ctx, &lsp.PublishDiagnosticsParams{
			URI:         u,
			Diagnostics: feature.Diagnostics(snap, u),
		})
	}
	for u, diags := range feature.WorkspaceDiagnostics(snap) {
		s.publishDiagnostics(ctx, &lsp.PublishDiagnosticsParams{URI: u, Diagnostics: diags})
	}
}

func (s *Server) publishWorkspaceIssues(ctx context.Context) {
	for _, p := range s.manager.Projects() {
		snap := p.Snapshot()
		if snap == nil {
			continue
		}
		for u, diags := range feature.WorkspaceDiagnostics(snap) {
			s.publishDiagnostics(ctx, &lsp.PublishDiagnosticsParams{URI: u, Diagnostics: diags})
		}
	}
}

func (s *Server) publishDiagnostics(ctx context.Context, params *lsp.PublishDiagnosticsParams) {
	if err := s.conn.Notify(ctx, "textDocument/publishDiagnostics", params); err != nil {
		s.log.Debug(errPublishDiagnostics, "error", err)
	}
}

func (s *Server) showMessage(ctx context.Context, t lsp.MessageType, msg string) {
	if s.conn == nil {
		return
	}
	if err := s.conn.Notify(ctx, "window/showMessage", &lsp.ShowMessageParams{
		Type:    t,
		Message: msg,
	}); err != nil {
		s.log.Debug(errShowMessage, "error", err)
	}
}

// applyWorkspaceEditParams mirrors workspace/applyEdit, which the go-lsp
// types predate.
type applyWorkspaceEditParams struct {
	Edit lsp.WorkspaceEdit `json:"edit"`
}

func (s *Server) applyEdit(ctx context.Context, u lsp.DocumentURI, edits []lsp.TextEdit) {
	if s.conn == nil {
		return
	}
	params := applyWorkspaceEditParams{
		Edit: lsp.WorkspaceEdit{
			Changes: map[string][]lsp.TextEdit{string(u): edits},
		},
	}
	if err := s.conn.Call(ctx, "workspace/applyEdit", &params, nil); err != nil {
		s.log.Debug("failed to apply workspace edit", "error", err)
	}
}

// registerWatchFilesCapability asks the client to watch the files that feed
// project state: sources, configs and dependency jars.
func (s *Server) registerWatchFilesCapability(ctx context.Context) {
	go func() {
		params := registrationParams{
			Registrations: []registration{{
				ID:     "workspace/didChangeWatchedFiles-1",
				Method: "workspace/didChangeWatchedFiles",
				RegisterOptions: watchRegistrationOptions{
					Watchers: []fileSystemWatcher{
						{GlobPattern: "**/*.smithy"},
						{GlobPattern: "**/smithy-build.json"},
						{GlobPattern: "**/.smithy-project.json"},
						{GlobPattern: "**/*.jar"},
					},
				},
			}},
		}
		if err := s.conn.Call(ctx, "client/registerCapability", &params, nil); err != nil {
			s.log.Debug(errRegisterWatchers, "error", err)
		}
	}()
}

// watchJarCache reloads projects when the dependency cache changes on disk,
// so jar updates surface without editor interaction.
func (s *Server) watchJarCache(r maven.Resolver) {
	watch := r.Watch()
	go func() {
		for range watch {
			s.log.Debug("change seen at jar cache, reloading projects")
			for _, p := range s.manager.Projects() {
				p.MarkReload()
			}
		}
	}()
}

func rootPath(params *lsp.InitializeParams) string {
	if params.RootURI != "" {
		if path, err := uri.ToPath(params.RootURI); err == nil {
			return path
		}
	}
	return params.RootPath
}

func locationsOrEmpty(locs []lsp.Location) []lsp.Location {
	if locs == nil {
		return []lsp.Location{}
	}
	return locs
}

func symbolsOrEmpty(syms []lsp.SymbolInformation) []lsp.SymbolInformation {
	if syms == nil {
		return []lsp.SymbolInformation{}
	}
	return syms
}

// registration types for client/registerCapability, which the go-lsp types
// predate.
type registrationParams struct {
	Registrations []registration `json:"registrations"`
}

type registration struct {
	ID              string      `json:"id"`
	Method          string      `json:"method"`
	RegisterOptions interface{} `json:"registerOptions,omitempty"`
}

type watchRegistrationOptions struct {
	Watchers []fileSystemWatcher `json:"watchers"`
}

type fileSystemWatcher struct {
	GlobPattern string `json:"globPattern"`
	Kind        int    `json:"kind,omitempty"`
}
