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

// The smithy-language-server command speaks the Language Server Protocol
// over stdio, or over a websocket when a port is given.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"

	"github.com/smithy-lang/smithy-language-server/internal/lsp/server"
	"github.com/smithy-lang/smithy-language-server/internal/lsp/server/handler"
	"github.com/smithy-lang/smithy-language-server/internal/version"
)

const (
	logEnvVar   = "SMITHY_LSP_LOG"
	logFileName = ".smithy-lsp.log"

	errInvalidPort = "Invalid port number."
	errUnexpected  = "Unexpected CLI argument: "
)

type cli struct {
	PortNumber int  `short:"p" name:"port-number" default:"0" help:"Serve over a websocket on the given port; 0 selects stdio."`
	Port       *int `arg:"" optional:"" name:"port" help:"Port number (same as --port-number)."`
	Version    bool `short:"v" name:"version" help:"Print version and exit."`
}

func main() {
	var c cli
	parser, err := kong.New(&c,
		kong.Name("smithy-language-server"),
		kong.Description("Language server for the Smithy IDL."),
		kong.UsageOnError(),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if _, err := parser.Parse(os.Args[1:]); err != nil {
		arg := offendingArg(os.Args[1:])
		if strings.HasPrefix(arg, "-") {
			fmt.Fprintln(os.Stderr, errUnexpected+arg)
		} else {
			// The only positional is the port, so a value kong rejects is a
			// malformed port.
			fmt.Fprintln(os.Stderr, errInvalidPort)
		}
		os.Exit(1)
	}
	if c.Version {
		fmt.Println(version.GetVersion())
		return
	}

	port := c.PortNumber
	if c.Port != nil {
		port = *c.Port
	}
	if port < 0 || port > 65535 {
		fmt.Fprintln(os.Stderr, errInvalidPort)
		os.Exit(1)
	}

	log, flush, err := buildLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer flush()

	srv, err := server.New(server.WithLogger(log))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	h, err := handler.New(handler.WithLogger(log), handler.WithServer(srv))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()
	if port == 0 {
		log.Debug("listening on stdio")
		err = server.ServeStdio(ctx, h)
	} else {
		log.Debug("listening on websocket", "port", port)
		err = server.ServeWebSocket(ctx, h, port)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildLogger writes structured logs to stderr or, when SMITHY_LSP_LOG=true,
// at debug level to .smithy-lsp.log in the process's working directory; the
// file is not placed relative to the workspace root. Stdout stays reserved
// for the protocol.
func buildLogger() (logging.Logger, func(), error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if os.Getenv(logEnvVar) == "true" {
		cfg.OutputPaths = []string{logFileName}
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	z, err := cfg.Build()
	if err != nil {
		return nil, nil, err
	}
	return logging.NewLogrLogger(zapr.NewLogger(z)), func() { _ = z.Sync() }, nil
}

// offendingArg surfaces the first flag-like argument for the unexpected
// argument message.
func offendingArg(args []string) string {
	known := map[string]bool{
		"-p": true, "--port-number": true,
		"-v": true, "--version": true,
		"-h": true, "--help": true,
	}
	for _, a := range args {
		if strings.HasPrefix(a, "-") && !known[strings.SplitN(a, "=", 2)[0]] {
			return a
		}
	}
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
