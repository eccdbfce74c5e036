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

// Package uri converts between LSP document URIs and filesystem paths, and
// implements the smithyjar scheme for files inside dependency jars.
//
// Clients disagree on whether file URIs arrive as `file:///p` or `file:/p`;
// both are accepted on input and ToURI always emits the `file://` form, so
// ToURI(ToPath(u)) is the identity on normalized URIs. Tested against the
// forms VS Code and Neovim emit.
package uri

import (
	"net/url"
	"strings"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/sourcegraph/go-lsp"
)

const (
	// SmithyJarScheme prefixes URIs of files inside dependency jars.
	SmithyJarScheme = "smithyjar:"

	fileScheme     = "file://"
	fileSchemeBare = "file:"
	jarScheme      = "jar:file:"
	entrySep       = "!/"

	errNotFileFmt      = "uri %q does not use the file scheme"
	errNotSmithyJarFmt = "uri %q does not use the smithyjar scheme"
	errDecodeFmt       = "failed to decode uri %q"
)

// ToPath converts a file URI to a filesystem path.
func ToPath(uri lsp.DocumentURI) (string, error) {
	s := string(uri)
	switch {
	case strings.HasPrefix(s, fileScheme):
		s = strings.TrimPrefix(s, fileScheme)
	case strings.HasPrefix(s, fileSchemeBare):
		s = strings.TrimPrefix(s, fileSchemeBare)
	default:
		return "", errors.Errorf(errNotFileFmt, s)
	}
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return "", errors.Wrapf(err, errDecodeFmt, uri)
	}
	return decoded, nil
}

// ToURI converts a filesystem path to a file URI.
func ToURI(path string) lsp.DocumentURI {
	return lsp.DocumentURI(fileScheme + escapePath(path))
}

// IsFile reports whether the URI uses the file scheme, in either form.
func IsFile(uri lsp.DocumentURI) bool {
	return strings.HasPrefix(string(uri), fileSchemeBare)
}

// IsSmithyJar reports whether the URI addresses a file inside a jar.
func IsSmithyJar(uri lsp.DocumentURI) bool {
	return strings.HasPrefix(string(uri), SmithyJarScheme)
}

// SmithyJar builds a smithyjar URI for an entry of a jar on disk. The jar
// path is kept decoded; ToJarURL re-encodes it for the jar:file: form.
func SmithyJar(jarPath, entry string) lsp.DocumentURI {
	return lsp.DocumentURI(SmithyJarScheme + jarPath + entrySep + entry)
}

// ParseSmithyJar splits a smithyjar URI into the jar path and entry name.
func ParseSmithyJar(uri lsp.DocumentURI) (jarPath, entry string, err error) {
	s := string(uri)
	if !strings.HasPrefix(s, SmithyJarScheme) {
		return "", "", errors.Errorf(errNotSmithyJarFmt, s)
	}
	s = strings.TrimPrefix(s, SmithyJarScheme)
	i := strings.Index(s, entrySep)
	if i < 0 {
		return "", "", errors.Errorf(errDecodeFmt, uri)
	}
	return s[:i], s[i+len(entrySep):], nil
}

// ToJarURL converts a smithyjar URI to the jar:file: URL the JVM tooling
// uses: smithyjar:<decoded-jar-path>!/<entry> <-> jar:file:<encoded>!/<entry>.
func ToJarURL(uri lsp.DocumentURI) (string, error) {
	jarPath, entry, err := ParseSmithyJar(uri)
	if err != nil {
		return "", err
	}
	return jarScheme + escapePath(jarPath) + entrySep + entry, nil
}

// FromJarURL converts a jar:file: URL to a smithyjar URI.
func FromJarURL(raw string) (lsp.DocumentURI, error) {
	if !strings.HasPrefix(raw, jarScheme) {
		return "", errors.Errorf(errDecodeFmt, raw)
	}
	rest := strings.TrimPrefix(raw, jarScheme)
	i := strings.Index(rest, entrySep)
	if i < 0 {
		return "", errors.Errorf(errDecodeFmt, raw)
	}
	jarPath, err := url.PathUnescape(rest[:i])
	if err != nil {
		return "", errors.Wrapf(err, errDecodeFmt, raw)
	}
	return SmithyJar(jarPath, rest[i+len(entrySep):]), nil
}

// escapePath percent-encodes a path segment-wise, preserving separators.
func escapePath(path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
