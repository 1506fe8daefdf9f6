package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mercator-hq/meridian/pkg/config"
)

// Root enumerates the project resources of a workspace. Implementations
// return resources in a stable order and equal resources for the same
// projects across calls.
type Root interface {
	Resources(ctx context.Context) ([]Resource, error)
}

// DirRootOptions controls which child directories of a DirRoot are projects.
type DirRootOptions struct {
	// IncludeHidden includes directories whose names start with ".".
	IncludeHidden bool

	// Ignore lists directory names that are never projects.
	Ignore []string
}

// DirRoot treats every child directory of a filesystem path as a project.
// Projects are returned sorted by name.
type DirRoot struct {
	path    string
	options DirRootOptions
	ignore  map[string]struct{}
}

// NewDirRoot creates a root over the child directories of path.
func NewDirRoot(path string, options DirRootOptions) *DirRoot {
	ignore := make(map[string]struct{}, len(options.Ignore))
	for _, name := range options.Ignore {
		ignore[name] = struct{}{}
	}
	return &DirRoot{
		path:    normalize(path),
		options: options,
		ignore:  ignore,
	}
}

// Path returns the absolute root directory.
func (d *DirRoot) Path() string {
	return d.path
}

// Resources lists the project directories currently under the root.
func (d *DirRoot) Resources(ctx context.Context) ([]Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace root %q: %w", d.path, err)
	}

	// entries are sorted by filename
	resources := make([]Resource, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || !d.isProject(entry.Name()) {
			continue
		}
		resources = append(resources, Resource{
			Kind: KindProject,
			Path: filepath.Join(d.path, entry.Name()),
		})
	}
	return resources, nil
}

func (d *DirRoot) isProject(name string) bool {
	if !d.options.IncludeHidden && strings.HasPrefix(name, ".") {
		return false
	}
	_, ignored := d.ignore[name]
	return !ignored
}

// StaticRoot is a fixed, ordered list of project resources.
type StaticRoot []Resource

// NewStaticRoot creates a root over the given project directories, in order.
// Duplicate directories are listed once.
func NewStaticRoot(dirs ...string) StaticRoot {
	seen := make(map[Resource]struct{}, len(dirs))
	root := make(StaticRoot, 0, len(dirs))
	for _, dir := range dirs {
		r := ProjectResource(dir)
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		root = append(root, r)
	}
	return root
}

// Resources returns a copy of the list.
func (s StaticRoot) Resources(ctx context.Context) ([]Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]Resource(nil), s...), nil
}

// FromConfig builds the root described by cfg. An explicit project list
// takes precedence over scanning Root.
func FromConfig(cfg *config.WorkspaceConfig) Root {
	if len(cfg.Projects) > 0 {
		return NewStaticRoot(cfg.Projects...)
	}
	return NewDirRoot(cfg.Root, DirRootOptions{
		IncludeHidden: cfg.IncludeHidden,
		Ignore:        cfg.IgnoreDirs,
	})
}
