package index

import (
	"context"
	"errors"
)

// ErrIndexClosed is returned by every Index operation after Close.
var ErrIndexClosed = errors.New("index closed")

// Store persists index elements. Implementations must be safe for
// concurrent use.
type Store interface {
	// Replace sets the elements of project, discarding any previous ones.
	Replace(ctx context.Context, project string, elements []Element) error

	// DeleteProject removes every element of project.
	DeleteProject(ctx context.Context, project string) error

	// Find returns the elements matching q, ordered by name then path.
	Find(ctx context.Context, q Query) ([]Element, error)

	// Count returns the number of elements, optionally for one project.
	Count(ctx context.Context, project string) (int, error)

	// Projects returns the paths of projects that have elements, sorted.
	Projects(ctx context.Context) ([]string, error)

	Close() error
}
