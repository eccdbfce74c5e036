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

// Package maven resolves Maven coordinates to dependency jars on disk. The
// server treats resolution as a pure function from configuration to a set of
// local jar paths; this package's cache is the default implementation,
// backed by the standard local repository layout.
package maven

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const (
	defaultRepoDir = ".m2/repository"

	errInvalidCoordinateFmt = "invalid maven coordinate %q"
	errHomeDir              = "failed to determine home directory"
)

// HomeDirFn indicates the location of a user's home directory.
type HomeDirFn func() (string, error)

// An Event signals a change to the cached artifact set.
type Event struct {
	Path string
}

// Local is a filesystem-backed artifact cache laid out like the standard
// Maven local repository.
type Local struct {
	fs   afero.Fs
	home HomeDirFn
	mu   sync.RWMutex
	path string
	root string

	watchOnce sync.Once
	events    chan Event
}

// NewLocal creates a cache rooted in the user's local Maven repository.
func NewLocal(opts ...Option) (*Local, error) {
	l := &Local{
		fs:     afero.NewOsFs(),
		home:   os.UserHomeDir,
		path:   defaultRepoDir,
		events: make(chan Event),
	}

	for _, o := range opts {
		o(l)
	}

	if l.root == "" {
		home, err := l.home()
		if err != nil {
			return nil, errors.Wrap(err, errHomeDir)
		}
		root, err := filepath.Abs(filepath.Join(home, l.path))
		if err != nil {
			return nil, err
		}
		l.root = root
	}
	return l, nil
}

// Option represents an option that can be applied to Local.
type Option func(*Local)

// WithFS defines the filesystem that is configured for Local.
func WithFS(fs afero.Fs) Option {
	return func(l *Local) {
		l.fs = fs
	}
}

// WithRoot overrides the repository root with an absolute path.
func WithRoot(root string) Option {
	return func(l *Local) {
		l.root = root
	}
}

// WithHomeDirFn overrides how the home directory is located.
func WithHomeDirFn(fn HomeDirFn) Option {
	return func(l *Local) {
		l.home = fn
	}
}

// Root returns the repository root.
func (l *Local) Root() string {
	return l.root
}

// Get returns the on-disk jar path for a coordinate if the artifact is
// cached. os.ErrNotExist is returned for unknown artifacts.
func (l *Local) Get(coordinate string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rel, err := artifactPath(coordinate)
	if err != nil {
		return "", err
	}
	path := filepath.Join(l.root, rel)
	exists, err := afero.Exists(l.fs, path)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", os.ErrNotExist
	}
	return path, nil
}

// Watch emits an event whenever an entry directly inside the repository
// root changes on disk; the watch is not recursive, so changes to artifacts
// in nested directories are not reported. The watcher is started on first
// use and lives for the process.
func (l *Local) Watch() <-chan Event {
	l.watchOnce.Do(func() {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return
		}
		if err := w.Add(l.root); err != nil {
			_ = w.Close()
			return
		}
		go func() {
			for {
				select {
				case ev, ok := <-w.Events:
					if !ok {
						return
					}
					if strings.HasSuffix(ev.Name, ".jar") {
						l.events <- Event{Path: ev.Name}
					}
				case _, ok := <-w.Errors:
					if !ok {
						return
					}
				}
			}
		}()
	})
	return l.events
}

// artifactPath maps "group:artifact:version" to the repository-relative jar
// path, e.g. software/amazon/smithy/smithy-aws-traits/1.50.0/
// smithy-aws-traits-1.50.0.jar.
func artifactPath(coordinate string) (string, error) {
	parts := strings.Split(coordinate, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", errors.Errorf(errInvalidCoordinateFmt, coordinate)
	}
	group, artifact, version := parts[0], parts[1], parts[2]
	return filepath.Join(
		filepath.Join(strings.Split(group, ".")...),
		artifact,
		version,
		artifact+"-"+version+".jar",
	), nil
}
