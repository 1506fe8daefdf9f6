package workspace

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind distinguishes project resources from file resources.
type Kind int

const (
	// KindProject is a directory that forms one analysis project.
	KindProject Kind = iota

	// KindFile is a single file inside a project.
	KindFile
)

// String returns "project" or "file".
func (k Kind) String() string {
	switch k {
	case KindProject:
		return "project"
	case KindFile:
		return "file"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Resource identifies a workspace entity. It is comparable; equality is
// identity.
type Resource struct {
	Kind Kind
	Path string
}

// ProjectResource returns the project resource for dir. The path is made
// absolute when possible and cleaned, so different spellings of the same
// directory yield equal resources.
func ProjectResource(dir string) Resource {
	return Resource{Kind: KindProject, Path: normalize(dir)}
}

// FileResource returns the file resource for path.
func FileResource(path string) Resource {
	return Resource{Kind: KindFile, Path: normalize(path)}
}

func normalize(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Name returns the last element of the resource path.
func (r Resource) Name() string {
	return filepath.Base(r.Path)
}

// IsZero reports whether r is the zero Resource.
func (r Resource) IsZero() bool {
	return r == Resource{}
}

// Contains reports whether path lies inside r. A resource contains itself.
func (r Resource) Contains(path string) bool {
	if r.IsZero() {
		return false
	}
	path = normalize(path)
	if path == r.Path {
		return true
	}
	rel, err := filepath.Rel(r.Path, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// String returns "kind:path".
func (r Resource) String() string {
	return r.Kind.String() + ":" + r.Path
}
