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

package maven

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/smithy-lang/smithy-language-server/internal/lsp/build"
)

const errUnresolvedFmt = "failed to resolve maven dependencies: %s"

// A ResolutionError reports coordinates that could not be resolved to local
// jars. The project remains usable without them.
type ResolutionError struct {
	Missing []string
}

func (e *ResolutionError) Error() string {
	return errors.Errorf(errUnresolvedFmt, strings.Join(e.Missing, ", ")).Error()
}

// A Resolver produces local jar paths for Maven coordinates. Fetching from
// remote repositories is outside this server; a Resolver only consults what
// is already on disk.
type Resolver interface {
	Resolve(ctx context.Context, cfg build.MavenConfig) ([]string, error)
	Watch() <-chan Event
}

// CacheResolver resolves coordinates against a Local cache.
type CacheResolver struct {
	cache *Local
}

// NewResolver returns a Resolver over the given cache.
func NewResolver(cache *Local) *CacheResolver {
	return &CacheResolver{cache: cache}
}

// Resolve maps every coordinate to a cached jar path. Missing artifacts are
// collected into a *ResolutionError; jars that did resolve are still
// returned so that a partially-cached project loads.
func (r *CacheResolver) Resolve(ctx context.Context, cfg build.MavenConfig) ([]string, error) {
	var jars []string
	var missing []string
	for _, coord := range cfg.Dependencies {
		if err := ctx.Err(); err != nil {
			return jars, err
		}
		path, err := r.cache.Get(coord)
		if err != nil {
			if os.IsNotExist(err) {
				missing = append(missing, coord)
				continue
			}
			return jars, err
		}
		jars = append(jars, path)
	}
	if len(missing) > 0 {
		return jars, &ResolutionError{Missing: missing}
	}
	return jars, nil
}

// Watch exposes the underlying cache's change events.
func (r *CacheResolver) Watch() <-chan Event {
	return r.cache.Watch()
}
