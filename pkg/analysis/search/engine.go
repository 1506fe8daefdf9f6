// Package search answers name queries over the shared code index.
//
// Engines are cheap. The project registry mints a new one per request, and
// every engine it mints reads the registry's single index.
package search

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"mercator-hq/meridian/pkg/analysis/index"
	"mercator-hq/meridian/pkg/workspace"
)

// Factory creates an engine bound to idx.
type Factory func(idx *index.Index) *Engine

// DefaultLimit caps results when Options.Limit is zero.
const DefaultLimit = 100

// Mode selects how a pattern is matched. ModeAuto picks glob matching when
// the pattern contains a glob metacharacter and substring matching otherwise.
type Mode string

const (
	ModeAuto     Mode = ""
	ModeExact    Mode = "exact"
	ModePrefix   Mode = "prefix"
	ModeContains Mode = "contains"
	ModeGlob     Mode = "glob"
)

// Options control one search.
type Options struct {
	Mode Mode

	// Kind restricts results to one element kind.
	Kind index.ElementKind

	// Limit caps the number of results. 0 means DefaultLimit and a
	// negative value means no limit.
	Limit int
}

// Engine runs queries against one index. It is safe for concurrent use.
type Engine struct {
	id      string
	index   *index.Index
	queries atomic.Int64
}

// New returns an engine bound to idx. It satisfies Factory.
func New(idx *index.Index) *Engine {
	return &Engine{
		id:    uuid.New().String(),
		index: idx,
	}
}

// ID identifies the engine instance.
func (e *Engine) ID() string { return e.id }

// Index returns the index the engine reads.
func (e *Engine) Index() *index.Index { return e.index }

// Queries returns the number of queries this engine has run.
func (e *Engine) Queries() int64 { return e.queries.Load() }

// FindByName returns elements whose name matches pattern, ordered by name
// then path.
func (e *Engine) FindByName(ctx context.Context, pattern string, opts Options) ([]index.Element, error) {
	return e.find(ctx, pattern, "", opts)
}

// FindInProject is FindByName restricted to one project.
func (e *Engine) FindInProject(ctx context.Context, project workspace.Resource, pattern string, opts Options) ([]index.Element, error) {
	return e.find(ctx, pattern, project.Path, opts)
}

func (e *Engine) find(ctx context.Context, pattern, project string, opts Options) ([]index.Element, error) {
	e.queries.Add(1)

	mode, err := resolveMode(opts.Mode, pattern)
	if err != nil {
		return nil, err
	}

	limit := opts.Limit
	switch {
	case limit == 0:
		limit = DefaultLimit
	case limit < 0:
		limit = 0
	}

	return e.index.Find(ctx, index.Query{
		Name:    pattern,
		Mode:    mode,
		Project: project,
		Kind:    opts.Kind,
		Limit:   limit,
	})
}

func resolveMode(mode Mode, pattern string) (index.MatchMode, error) {
	if mode == ModeAuto {
		if strings.ContainsAny(pattern, "*?[") {
			return index.MatchGlob, nil
		}
		return index.MatchContains, nil
	}
	return index.ParseMatchMode(string(mode))
}
