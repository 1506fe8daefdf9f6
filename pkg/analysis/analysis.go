// Package analysis defines the analysis-level handles shared by the code
// index, the search engine and the project registry.
package analysis

import (
	"context"
	"path/filepath"

	"mercator-hq/meridian/pkg/workspace"
)

// Source is an analysis-level handle for a source file.
type Source struct {
	Path string
}

// NewSource returns the source for path, made absolute and cleaned so it
// compares against workspace resources.
func NewSource(path string) Source {
	if abs, err := filepath.Abs(path); err == nil {
		return Source{Path: abs}
	}
	return Source{Path: filepath.Clean(path)}
}

// String returns the source path.
func (s Source) String() string {
	return s.Path
}

// Project is the analysis state of one workspace project resource.
type Project interface {
	// Resource returns the workspace resource the project was created for.
	Resource() workspace.Resource

	// ResourceFor returns the workspace resource representing src, or
	// false if src does not belong to this project.
	ResourceFor(src Source) (workspace.Resource, bool)

	// Index contributes the project's elements to the shared index and
	// returns how many were added.
	Index(ctx context.Context) (int, error)
}
