package index

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps elements in memory, grouped by project.
type MemoryStore struct {
	mu        sync.RWMutex
	byProject map[string][]Element
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byProject: make(map[string][]Element)}
}

// Replace sets the elements of project. The slice is copied.
func (m *MemoryStore) Replace(ctx context.Context, project string, elements []Element) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored := make([]Element, len(elements))
	for i, e := range elements {
		e.Project = project
		stored[i] = e
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(stored) == 0 {
		delete(m.byProject, project)
		return nil
	}
	m.byProject[project] = stored
	return nil
}

// DeleteProject removes every element of project.
func (m *MemoryStore) DeleteProject(ctx context.Context, project string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byProject, project)
	return nil
}

// Find scans every element.
func (m *MemoryStore) Find(ctx context.Context, q Query) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	var out []Element
	if q.Project != "" {
		out = filter(m.byProject[q.Project], q, out)
	} else {
		for _, elements := range m.byProject {
			out = filter(elements, q, out)
		}
	}
	m.mu.RUnlock()

	sortElements(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func filter(elements []Element, q Query, out []Element) []Element {
	for _, e := range elements {
		if q.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of elements.
func (m *MemoryStore) Count(ctx context.Context, project string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if project != "" {
		return len(m.byProject[project]), nil
	}
	n := 0
	for _, elements := range m.byProject {
		n += len(elements)
	}
	return n, nil
}

// Projects returns the indexed project paths.
func (m *MemoryStore) Projects(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	projects := make([]string, 0, len(m.byProject))
	for p := range m.byProject {
		projects = append(projects, p)
	}
	m.mu.RUnlock()

	sort.Strings(projects)
	return projects, nil
}

// Close releases the stored elements.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.byProject = make(map[string][]Element)
	m.mu.Unlock()
	return nil
}

func sortElements(elements []Element) {
	sort.Slice(elements, func(i, j int) bool {
		if elements[i].Name != elements[j].Name {
			return elements[i].Name < elements[j].Name
		}
		return elements[i].Path < elements[j].Path
	})
}
