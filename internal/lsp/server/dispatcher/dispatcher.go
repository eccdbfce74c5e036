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

// Package dispatcher routes JSON-RPC requests to the server. Text-sync
// notifications run inline so their per-URI ordering is the transport's
// arrival order; feature requests run in their own goroutines and reply
// through the connection when done.
package dispatcher

import (
	"context"
	"encoding/json"

	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
)

// CodeRequestCancelled is the LSP error code for cancelled requests.
const CodeRequestCancelled = -32800

const (
	errParseParams = "failed to parse request parameters"
	errReply       = "failed to reply"
)

// JarFileParams is the smithy/jarFile extension request: return the contents
// of a file inside a dependency jar.
type JarFileParams struct {
	TextDocument lsp.TextDocumentIdentifier `json:"textDocument"`
}

// JarFileResult carries a jar entry's text.
type JarFileResult struct {
	Text string `json:"text"`
}

// SelectorParams is the smithy/selectorCommand extension request.
type SelectorParams struct {
	Expression string `json:"expression"`
}

// WorkspaceFolder mirrors the LSP workspace folder structure, which the
// go-lsp types predate.
type WorkspaceFolder struct {
	URI  lsp.DocumentURI `json:"uri"`
	Name string          `json:"name"`
}

// DidChangeWorkspaceFoldersParams mirrors the LSP notification of the same
// name.
type DidChangeWorkspaceFoldersParams struct {
	Event struct {
		Added   []WorkspaceFolder `json:"added"`
		Removed []WorkspaceFolder `json:"removed"`
	} `json:"event"`
}

type cancelParams struct {
	ID jsonrpc2.ID `json:"id"`
}

// Server defines the set of LSP methods we currently support.
type Server interface {
	Initialize(ctx context.Context, conn *jsonrpc2.Conn, id jsonrpc2.ID, params *lsp.InitializeParams)
	Shutdown(ctx context.Context) error
	Exit(ctx context.Context)

	DidOpen(ctx context.Context, params *lsp.DidOpenTextDocumentParams)
	DidChange(ctx context.Context, params *lsp.DidChangeTextDocumentParams)
	DidClose(ctx context.Context, params *lsp.DidCloseTextDocumentParams)
	DidSave(ctx context.Context, params *lsp.DidSaveTextDocumentParams)
	DidChangeWatchedFiles(ctx context.Context, params *lsp.DidChangeWatchedFilesParams)
	DidChangeWorkspaceFolders(ctx context.Context, params *DidChangeWorkspaceFoldersParams)

	Hover(ctx context.Context, params *lsp.TextDocumentPositionParams) (*lsp.Hover, error)
	Definition(ctx context.Context, params *lsp.TextDocumentPositionParams) ([]lsp.Location, error)
	References(ctx context.Context, params *lsp.ReferenceParams) ([]lsp.Location, error)
	Completion(ctx context.Context, params *lsp.CompletionParams) (lsp.CompletionList, error)
	DocumentSymbol(ctx context.Context, params *lsp.DocumentSymbolParams) ([]lsp.SymbolInformation, error)
	WorkspaceSymbol(ctx context.Context, params *lsp.WorkspaceSymbolParams) ([]lsp.SymbolInformation, error)
	Formatting(ctx context.Context, params *lsp.DocumentFormattingParams) ([]lsp.TextEdit, error)
	CodeAction(ctx context.Context, params *lsp.CodeActionParams) ([]lsp.Command, error)
	ExecuteCommand(ctx context.Context, params *lsp.ExecuteCommandParams) (interface{}, error)
	JarFile(ctx context.Context, params *JarFileParams) (*JarFileResult, error)
	Selector(ctx context.Context, params *SelectorParams) (interface{}, error)

	// BeginRequest and EndRequest bracket cancellable requests; Cancel
	// handles $/cancelRequest.
	BeginRequest(ctx context.Context, id jsonrpc2.ID) context.Context
	EndRequest(id jsonrpc2.ID)
	Cancel(id jsonrpc2.ID)
}

// Dispatcher is responsible for routing JSON-RPC request events to the
// appropriate place.
type Dispatcher struct {
	log logging.Logger
}

// New returns a new Dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		log: logging.NewNopLogger(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Option provides a way to override default behavior of the Dispatcher.
type Option func(*Dispatcher)

// WithLogger overrides the default logging.Logger for the Dispatcher with
// the supplied logging.Logger.
func WithLogger(l logging.Logger) Option {
	return func(d *Dispatcher) {
		d.log = l
	}
}

func (d *Dispatcher) params(r *jsonrpc2.Request, v interface{}) bool {
	if r.Params == nil {
		d.log.Debug(errParseParams, "method", r.Method)
		return false
	}
	if err := json.Unmarshal(*r.Params, v); err != nil {
		d.log.Debug(errParseParams, "method", r.Method, "error", err)
		return false
	}
	return true
}

// Dispatch dispatches the given JSON-RPC request to the appropriate server
// function.
func (d *Dispatcher) Dispatch(ctx context.Context, server Server, conn *jsonrpc2.Conn, r *jsonrpc2.Request) { // nolint:gocyclo
	switch r.Method {
	case "initialize":
		var params lsp.InitializeParams
		if r.Params != nil {
			if err := json.Unmarshal(*r.Params, &params); err != nil {
				// If we can't understand the initialization parameters panic
				// because future operations will not work.
				panic(err)
			}
		}
		server.Initialize(ctx, conn, r.ID, &params)
	case "initialized":
		// No response needed when the client reports initialized.
	case "shutdown":
		err := server.Shutdown(ctx)
		d.reply(ctx, conn, r.ID, nil, err)
	case "exit":
		server.Exit(ctx)
	case "$/cancelRequest":
		var params cancelParams
		if d.params(r, &params) {
			server.Cancel(params.ID)
		}

	case "textDocument/didOpen":
		var params lsp.DidOpenTextDocumentParams
		if d.params(r, &params) {
			server.DidOpen(ctx, &params)
		}
	case "textDocument/didChange":
		var params lsp.DidChangeTextDocumentParams
		if d.params(r, &params) {
			server.DidChange(ctx, &params)
		}
	case "textDocument/didClose":
		var params lsp.DidCloseTextDocumentParams
		if d.params(r, &params) {
			server.DidClose(ctx, &params)
		}
	case "textDocument/didSave":
		var params lsp.DidSaveTextDocumentParams
		if d.params(r, &params) {
			server.DidSave(ctx, &params)
		}
	case "workspace/didChangeWatchedFiles":
		var params lsp.DidChangeWatchedFilesParams
		if d.params(r, &params) {
			server.DidChangeWatchedFiles(ctx, &params)
		}
	case "workspace/didChangeWorkspaceFolders":
		var params DidChangeWorkspaceFoldersParams
		if d.params(r, &params) {
			server.DidChangeWorkspaceFolders(ctx, &params)
		}

	case "textDocument/hover":
		var params lsp.TextDocumentPositionParams
		if d.params(r, &params) {
			d.async(ctx, server, conn, r, func(ctx context.Context) (interface{}, error) {
				return server.Hover(ctx, &params)
			})
		}
	case "textDocument/definition":
		var params lsp.TextDocumentPositionParams
		if d.params(r, &params) {
			d.async(ctx, server, conn, r, func(ctx context.Context) (interface{}, error) {
				return server.Definition(ctx, &params)
			})
		}
	case "textDocument/references":
		var params lsp.ReferenceParams
		if d.params(r, &params) {
			d.async(ctx, server, conn, r, func(ctx context.Context) (interface{}, error) {
				return server.References(ctx, &params)
			})
		}
	case "textDocument/completion":
		var params lsp.CompletionParams
		if d.params(r, &params) {
			d.async(ctx, server, conn, r, func(ctx context.Context) (interface{}, error) {
				return server.Completion(ctx, &params)
			})
		}
	case "textDocument/documentSymbol":
		var params lsp.DocumentSymbolParams
		if d.params(r, &params) {
			d.async(ctx, server, conn, r, func(ctx context.Context) (interface{}, error) {
				return server.DocumentSymbol(ctx, &params)
			})
		}
	case "workspace/symbol":
		var params lsp.WorkspaceSymbolParams
		if d.params(r, &params) {
			d.async(ctx, server, conn, r, func(ctx context.Context) (interface{}, error) {
				return server.WorkspaceSymbol(ctx, &params)
			})
		}
	case "textDocument/formatting":
		var params lsp.DocumentFormattingParams
		if d.params(r, &params) {
			d.async(ctx, server, conn, r, func(ctx context.Context) (interface{}, error) {
				return server.Formatting(ctx, &params)
			})
		}
	case "textDocument/codeAction":
		var params lsp.CodeActionParams
		if d.params(r, &params) {
			d.async(ctx, server, conn, r, func(ctx context.Context) (interface{}, error) {
				return server.CodeAction(ctx, &params)
			})
		}
	case "workspace/executeCommand":
		var params lsp.ExecuteCommandParams
		if d.params(r, &params) {
			d.async(ctx, server, conn, r, func(ctx context.Context) (interface{}, error) {
				return server.ExecuteCommand(ctx, &params)
			})
		}
	case "smithy/jarFile":
		var params JarFileParams
		if d.params(r, &params) {
			d.async(ctx, server, conn, r, func(ctx context.Context) (interface{}, error) {
				return server.JarFile(ctx, &params)
			})
		}
	case "smithy/selectorCommand":
		var params SelectorParams
		if d.params(r, &params) {
			d.async(ctx, server, conn, r, func(ctx context.Context) (interface{}, error) {
				return server.Selector(ctx, &params)
			})
		}
	}
}

// async runs a request handler in its own goroutine with a cancellable
// context and replies when it finishes. Cancelled requests reply with the
// RequestCancelled code.
func (d *Dispatcher) async(ctx context.Context, server Server, conn *jsonrpc2.Conn, r *jsonrpc2.Request, fn func(context.Context) (interface{}, error)) {
	rctx := server.BeginRequest(ctx, r.ID)
	go func() {
		defer server.EndRequest(r.ID)
		result, err := fn(rctx)
		if rctx.Err() != nil {
			d.replyCancelled(ctx, conn, r.ID)
			return
		}
		d.reply(ctx, conn, r.ID, result, err)
	}()
}

func (d *Dispatcher) reply(ctx context.Context, conn *jsonrpc2.Conn, id jsonrpc2.ID, result interface{}, err error) {
	if err != nil {
		if cerr := conn.ReplyWithError(ctx, id, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeInternalError,
			Message: err.Error(),
		}); cerr != nil {
			d.log.Debug(errReply, "error", cerr)
		}
		return
	}
	if err := conn.Reply(ctx, id, result); err != nil {
		d.log.Debug(errReply, "error", err)
	}
}

func (d *Dispatcher) replyCancelled(ctx context.Context, conn *jsonrpc2.Conn, id jsonrpc2.ID) {
	if err := conn.ReplyWithError(ctx, id, &jsonrpc2.Error{
		Code:    CodeRequestCancelled,
		Message: "request cancelled",
	}); err != nil {
		d.log.Debug(errReply, "error", err)
	}
}
