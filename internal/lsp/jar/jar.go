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

// Package jar provides read-only access to Smithy model files inside
// dependency jars. Jars are plain zip archives.
package jar

import (
	"archive/zip"
	"io"
	"strings"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/spf13/afero"
)

const (
	smithyExt = ".smithy"

	errOpenFmt     = "failed to open jar %s"
	errEntryFmt    = "no entry %s in jar %s"
	errReadFmt     = "failed to read %s from jar %s"
)

// Entries lists the .smithy model files in a jar, in archive order. Smithy
// publishes models under META-INF/smithy in convention, but any .smithy
// entry is included.
func Entries(fs afero.Fs, jarPath string) ([]string, error) {
	r, closer, err := open(fs, jarPath)
	if err != nil {
		return nil, err
	}
	defer closer() // nolint:errcheck

	var entries []string
	for _, f := range r.File {
		if strings.HasSuffix(f.Name, smithyExt) {
			entries = append(entries, f.Name)
		}
	}
	return entries, nil
}

// Read returns the contents of one entry.
func Read(fs afero.Fs, jarPath, entry string) ([]byte, error) {
	r, closer, err := open(fs, jarPath)
	if err != nil {
		return nil, err
	}
	defer closer() // nolint:errcheck

	for _, f := range r.File {
		if f.Name != entry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(err, errReadFmt, entry, jarPath)
		}
		defer rc.Close() // nolint:errcheck
		b, err := io.ReadAll(rc)
		if err != nil {
			return nil, errors.Wrapf(err, errReadFmt, entry, jarPath)
		}
		return b, nil
	}
	return nil, errors.Errorf(errEntryFmt, entry, jarPath)
}

func open(fs afero.Fs, jarPath string) (*zip.Reader, func() error, error) {
	f, err := fs.Open(jarPath)
	if err != nil {
		return nil, nil, errors.Wrapf(err, errOpenFmt, jarPath)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, errors.Wrapf(err, errOpenFmt, jarPath)
	}
	r, err := zip.NewReader(f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, nil, errors.Wrapf(err, errOpenFmt, jarPath)
	}
	return r, f.Close, nil
}
