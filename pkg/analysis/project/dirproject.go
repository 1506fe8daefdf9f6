package project

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"mercator-hq/meridian/pkg/analysis"
	"mercator-hq/meridian/pkg/analysis/index"
	"mercator-hq/meridian/pkg/workspace"
)

// Options control which files a DirProject indexes.
type Options struct {
	// IgnoreDirs are directory names skipped while walking.
	IgnoreDirs []string

	// Extensions restricts indexing to these file extensions. Empty means
	// every regular file.
	Extensions []string

	// IncludeHidden indexes files and directories starting with ".".
	IncludeHidden bool
}

// DirProject is a project backed by a directory tree.
type DirProject struct {
	resource   workspace.Resource
	index      *index.Index
	ignore     map[string]struct{}
	extensions map[string]struct{}
	hidden     bool
}

// NewDirProject creates the project for resource. idx is shared and not
// owned by the project.
func NewDirProject(resource workspace.Resource, idx *index.Index, opts Options) *DirProject {
	p := &DirProject{
		resource:   resource,
		index:      idx,
		ignore:     make(map[string]struct{}, len(opts.IgnoreDirs)),
		extensions: make(map[string]struct{}, len(opts.Extensions)),
		hidden:     opts.IncludeHidden,
	}
	for _, d := range opts.IgnoreDirs {
		p.ignore[d] = struct{}{}
	}
	for _, ext := range opts.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		p.extensions[strings.ToLower(ext)] = struct{}{}
	}
	return p
}

// Resource returns the project resource.
func (p *DirProject) Resource() workspace.Resource {
	return p.resource
}

// ResourceFor maps a source inside the project directory to its file
// resource. The project directory itself maps to the project resource.
func (p *DirProject) ResourceFor(src analysis.Source) (workspace.Resource, bool) {
	if !p.resource.Contains(src.Path) {
		return workspace.Resource{}, false
	}
	if filepath.Clean(src.Path) == p.resource.Path {
		return p.resource, true
	}
	return workspace.FileResource(src.Path), true
}

// Index walks the project directory and replaces the project's elements in
// the shared index.
func (p *DirProject) Index(ctx context.Context) (int, error) {
	var elements []index.Element

	err := filepath.WalkDir(p.resource.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == p.resource.Path {
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if p.skipDir(name) {
				return filepath.SkipDir
			}
			elements = append(elements, index.Element{
				Name: name, Kind: index.KindDirectory, Project: p.resource.Path, Path: path,
			})
			return nil
		}

		if !d.Type().IsRegular() || !p.indexFile(name) {
			return nil
		}
		elements = append(elements, index.Element{
			Name: name, Kind: index.KindFile, Project: p.resource.Path, Path: path,
		})
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk project %q: %w", p.resource.Path, err)
	}

	if err := p.index.Replace(ctx, p.resource.Path, elements); err != nil {
		return 0, err
	}
	return len(elements), nil
}

func (p *DirProject) skipDir(name string) bool {
	if !p.hidden && strings.HasPrefix(name, ".") {
		return true
	}
	_, ignored := p.ignore[name]
	return ignored
}

func (p *DirProject) indexFile(name string) bool {
	if !p.hidden && strings.HasPrefix(name, ".") {
		return false
	}
	if len(p.extensions) == 0 {
		return true
	}
	_, ok := p.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}
