package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Index is the shared code index. It wraps a Store and rejects use after
// Close.
type Index struct {
	store  Store
	logger *slog.Logger

	// mu is held for reading by every operation and for writing by Close
	mu     sync.RWMutex
	closed bool
}

// New creates an index over store. A nil store means NewMemoryStore.
func New(store Store) *Index {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Index{
		store:  store,
		logger: slog.Default().With("component", "index"),
	}
}

// Replace sets the elements contributed by project.
func (ix *Index) Replace(ctx context.Context, project string, elements []Element) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return ErrIndexClosed
	}

	if err := ix.store.Replace(ctx, project, elements); err != nil {
		return fmt.Errorf("failed to index project %q: %w", project, err)
	}
	ix.logger.Debug("project indexed", "project", project, "elements", len(elements))
	return nil
}

// RemoveProject drops every element contributed by project.
func (ix *Index) RemoveProject(ctx context.Context, project string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return ErrIndexClosed
	}

	if err := ix.store.DeleteProject(ctx, project); err != nil {
		return fmt.Errorf("failed to remove project %q: %w", project, err)
	}
	return nil
}

// Find returns the elements matching q.
func (ix *Index) Find(ctx context.Context, q Query) ([]Element, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return nil, ErrIndexClosed
	}
	return ix.store.Find(ctx, q)
}

// Len returns the total number of elements.
func (ix *Index) Len(ctx context.Context) (int, error) {
	return ix.Count(ctx, "")
}

// Count returns the number of elements of project, or of all projects when
// project is empty.
func (ix *Index) Count(ctx context.Context, project string) (int, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return 0, ErrIndexClosed
	}
	return ix.store.Count(ctx, project)
}

// Projects returns the paths of indexed projects.
func (ix *Index) Projects(ctx context.Context) ([]string, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return nil, ErrIndexClosed
	}
	return ix.store.Projects(ctx)
}

// Close closes the underlying store. Later calls return nil.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return nil
	}
	ix.closed = true
	return ix.store.Close()
}
