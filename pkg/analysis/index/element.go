package index

import (
	"fmt"
	"path"
	"strings"
)

// ElementKind classifies an indexed element.
type ElementKind string

const (
	KindFile      ElementKind = "file"
	KindDirectory ElementKind = "directory"
)

// Element is one indexed entity.
type Element struct {
	// Name is the match key, the base name of Path.
	Name string `json:"name"`

	Kind ElementKind `json:"kind"`

	// Project is the path of the project that contributed the element.
	Project string `json:"project"`

	// Path is the absolute path of the element.
	Path string `json:"path"`
}

// MatchMode selects how Query.Name is compared against element names.
type MatchMode int

const (
	MatchExact MatchMode = iota
	MatchPrefix
	MatchContains

	// MatchGlob uses shell patterns: *, ? and [...] classes.
	MatchGlob
)

var matchModeNames = map[MatchMode]string{
	MatchExact:    "exact",
	MatchPrefix:   "prefix",
	MatchContains: "contains",
	MatchGlob:     "glob",
}

func (m MatchMode) String() string {
	if s, ok := matchModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("match(%d)", int(m))
}

// ParseMatchMode parses "exact", "prefix", "contains" or "glob".
func ParseMatchMode(s string) (MatchMode, error) {
	for mode, name := range matchModeNames {
		if strings.EqualFold(s, name) {
			return mode, nil
		}
	}
	return MatchExact, fmt.Errorf("unknown match mode: %q", s)
}

// Query selects elements from a store. Zero fields do not filter.
type Query struct {
	Name    string
	Mode    MatchMode
	Project string
	Kind    ElementKind

	// Limit caps the number of results; 0 means no limit.
	Limit int
}

// Match reports whether e satisfies q. Stores that cannot push a query down
// to their backend filter with it.
func (q Query) Match(e Element) bool {
	if q.Project != "" && e.Project != q.Project {
		return false
	}
	if q.Kind != "" && e.Kind != q.Kind {
		return false
	}
	if q.Name == "" {
		return true
	}

	switch q.Mode {
	case MatchPrefix:
		return strings.HasPrefix(e.Name, q.Name)
	case MatchContains:
		return strings.Contains(e.Name, q.Name)
	case MatchGlob:
		ok, err := path.Match(q.Name, e.Name)
		return err == nil && ok
	default:
		return e.Name == q.Name
	}
}

// Validate checks the query for errors a store would otherwise report late.
func (q Query) Validate() error {
	if q.Limit < 0 {
		return fmt.Errorf("limit cannot be negative: %d", q.Limit)
	}
	if q.Mode == MatchGlob {
		if _, err := path.Match(q.Name, ""); err != nil {
			return fmt.Errorf("invalid glob %q: %w", q.Name, err)
		}
	}
	if _, ok := matchModeNames[q.Mode]; !ok {
		return fmt.Errorf("unknown match mode: %d", int(q.Mode))
	}
	return nil
}
