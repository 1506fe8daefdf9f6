// Package project implements the project registry: a lazily populated cache
// mapping workspace resources to analysis projects, the owner of the shared
// code index, and the source of search engines over it.
//
// # Identity
//
// Registry.Project returns the same Project for equal resources, and
// constructs exactly one Project per resource even under concurrent callers:
// the lookup and the construction happen under one registry-scoped mutex.
//
// # Ownership
//
// The registry creates its index at construction and closes it in Close.
// Projects and search engines hold the index without owning it.
//
// # Eviction
//
// Cached projects live as long as the registry unless the resource is
// removed. Remove evicts one project explicitly; Watch evicts projects whose
// directories disappear and pre-creates projects for new ones.
//
// # Instrumentation
//
// Project creation and ResourceFor each flush one instrumentation record
// ("Registry.project.create", "Registry.resourceFor"). Paths are recorded as
// data, counts and durations as metrics, and the version-control head of a
// new project is collected as deferred data. Creation records are flushed in
// the background; Close waits for them.
package project
