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

package server

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/websocket"
	"github.com/sourcegraph/jsonrpc2"
	wsjsonrpc2 "github.com/sourcegraph/jsonrpc2/websocket"
)

// StdRWC is a readwritecloser on stdio, which can be used as a JSON-RPC
// transport.
type StdRWC struct{}

// Read reads from stdin.
func (StdRWC) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

// Write writes to stdout.
func (StdRWC) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

// Close first closes stdin, then, if successful, closes stdout.
func (StdRWC) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}

// ServeStdio runs the LSP connection over stdin/stdout until the client
// disconnects.
func ServeStdio(ctx context.Context, h jsonrpc2.Handler) error {
	conn := jsonrpc2.NewConn(
		ctx,
		jsonrpc2.NewBufferedStream(StdRWC{}, jsonrpc2.VSCodeObjectCodec{}),
		h,
	)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-conn.DisconnectNotify():
		return nil
	}
}

// ServeWebSocket listens on localhost at the given port and serves one LSP
// connection per websocket session on the root path.
func ServeWebSocket(ctx context.Context, h jsonrpc2.Handler, port int) error {
	upgrader := websocket.Upgrader{
		// Editors connect from arbitrary local origins.
		CheckOrigin: func(*http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := jsonrpc2.NewConn(ctx, wsjsonrpc2.NewObjectStream(ws), h)
		<-conn.DisconnectNotify()
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("localhost:%d", port),
		Handler: mux,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	return srv.ListenAndServe()
}
