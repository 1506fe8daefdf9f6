package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"mercator-hq/meridian/pkg/analysis"
	"mercator-hq/meridian/pkg/analysis/index"
	"mercator-hq/meridian/pkg/analysis/search"
	"mercator-hq/meridian/pkg/instrumentation"
	"mercator-hq/meridian/pkg/workspace"
)

// Instrumentation operation names.
const (
	OpProjectCreate = "Registry.project.create"
	OpResourceFor   = "Registry.resourceFor"
	OpIndexAll      = "Registry.indexAll"
)

// Lookup results reported to the Observer.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupError = "error"
)

// ProjectFactory constructs the project for resource. idx is the registry's
// index; the project must not close it.
type ProjectFactory func(resource workspace.Resource, idx *index.Index) analysis.Project

// Observer receives registry events, typically to export them as metrics.
type Observer interface {
	ProjectCacheHit()
	ProjectCreated(cached int)
	ProjectEvicted(cached int)
	SearchEngineCreated()
	ResourceLookup(result string, duration time.Duration)
}

// IndexObserver is implemented by observers that also track indexing.
type IndexObserver interface {
	ProjectIndexed(elements int, duration time.Duration, err error)
	IndexSize(elements int)
}

type nopObserver struct{}

func (nopObserver) ProjectCacheHit()                     {}
func (nopObserver) ProjectCreated(int)                   {}
func (nopObserver) ProjectEvicted(int)                   {}
func (nopObserver) SearchEngineCreated()                 {}
func (nopObserver) ResourceLookup(string, time.Duration) {}

// Config configures a Registry. Zero fields take defaults.
type Config struct {
	// Store backs the registry's index. Default: index.NewMemoryStore().
	// The registry takes ownership and closes it with the index.
	Store index.Store

	// Projects configures the default DirProject factory.
	Projects Options

	// NewProject overrides the project factory.
	NewProject ProjectFactory

	// NewSearchEngine overrides the search engine factory.
	// Default: search.New
	NewSearchEngine search.Factory

	// Instrumentation receives registry records. Default: a disabled
	// instrumentation. The registry does not close it.
	Instrumentation *instrumentation.Instrumentation

	Observer Observer

	// IndexWorkers bounds concurrent project indexing in IndexAll.
	// Default: 4
	IndexWorkers int
}

// Registry maps workspace resources to analysis projects.
type Registry struct {
	root       workspace.Root
	index      *index.Index
	newProject ProjectFactory
	newEngine  search.Factory
	inst       *instrumentation.Instrumentation
	observer   Observer
	workers    int
	logger     *slog.Logger

	// mu guards projects and indexing; lookup and construction happen
	// under it
	mu       sync.Mutex
	projects map[workspace.Resource]analysis.Project

	// indexing serializes index writes of one resource with its eviction
	indexing map[workspace.Resource]*sync.Mutex

	// flushes tracks create records flushed off the caller's goroutine
	flushes sync.WaitGroup

	closeOnce sync.Once
}

// NewRegistry creates a registry over root. The index is created here and
// lives until Close.
func NewRegistry(root workspace.Root, cfg *Config) *Registry {
	if cfg == nil {
		cfg = &Config{}
	}

	r := &Registry{
		root:       root,
		index:      index.New(cfg.Store),
		newProject: cfg.NewProject,
		newEngine:  cfg.NewSearchEngine,
		inst:       cfg.Instrumentation,
		observer:   cfg.Observer,
		workers:    cfg.IndexWorkers,
		logger:     slog.Default().With("component", "registry"),
		projects:   make(map[workspace.Resource]analysis.Project),
		indexing:   make(map[workspace.Resource]*sync.Mutex),
	}

	if r.newProject == nil {
		opts := cfg.Projects
		r.newProject = func(res workspace.Resource, idx *index.Index) analysis.Project {
			return NewDirProject(res, idx, opts)
		}
	}
	if r.newEngine == nil {
		r.newEngine = search.New
	}
	if r.inst == nil {
		r.inst = instrumentation.Nop()
	}
	if r.observer == nil {
		r.observer = nopObserver{}
	}
	if r.workers <= 0 {
		r.workers = 4
	}

	return r
}

// Root returns the workspace root the registry enumerates.
func (r *Registry) Root() workspace.Root {
	return r.root
}

// Project returns the cached project for res, constructing and caching it
// on first use. It never returns nil. The creation record is flushed in the
// background so its deferred entries never delay the caller.
func (r *Registry) Project(res workspace.Resource) analysis.Project {
	r.mu.Lock()
	if p, ok := r.projects[res]; ok {
		r.mu.Unlock()
		r.observer.ProjectCacheHit()
		return p
	}

	start := time.Now()
	p := r.newProject(res, r.index)
	r.projects[res] = p
	cached := len(r.projects)
	r.mu.Unlock()

	r.observer.ProjectCreated(cached)
	r.logger.Debug("project created", "project", res.Path, "cached", cached)

	b := r.inst.Builder(OpProjectCreate)
	b.DataString("resource", res.Path).
		MetricString("kind", res.Kind.String()).
		MetricInt("cached_projects", int64(cached)).
		MetricDuration("create", time.Since(start)).
		DataFunc("vcs_head", headOf(res.Path))
	r.flushAsync(b)

	return p
}

// flushAsync flushes b on its own goroutine. Close waits for it.
func (r *Registry) flushAsync(b *instrumentation.Builder) {
	r.flushes.Add(1)
	go func() {
		defer r.flushes.Done()
		_ = b.Flush()
	}()
}

// indexLock returns the lock serializing index writes for res.
func (r *Registry) indexLock(res workspace.Resource) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.indexing[res]
	if !ok {
		l = &sync.Mutex{}
		r.indexing[res] = l
	}
	return l
}

// cached reports whether p is the project cached for its resource.
func (r *Registry) cached(p analysis.Project) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.projects[p.Resource()]
	return ok && cur == p
}

func headOf(path string) instrumentation.DeferredValue {
	return func(ctx context.Context) (instrumentation.Value, error) {
		head, err := workspace.Head(path)
		if errors.Is(err, workspace.ErrNoRepository) {
			return instrumentation.Unavailable("no repository"), nil
		}
		if err != nil {
			return instrumentation.Value{}, err
		}
		return instrumentation.String(head.String()), nil
	}
}

// AllProjects returns the project of every resource the root currently
// enumerates, in the root's order, creating uncached projects.
func (r *Registry) AllProjects(ctx context.Context) ([]analysis.Project, error) {
	resources, err := r.root.Resources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate workspace: %w", err)
	}

	projects := make([]analysis.Project, len(resources))
	for i, res := range resources {
		projects[i] = r.Project(res)
	}
	return projects, nil
}

// Index returns the registry's index. It is the same instance on every call.
func (r *Registry) Index() *index.Index {
	return r.index
}

// NewSearchEngine returns a new search engine bound to Index.
func (r *Registry) NewSearchEngine() *search.Engine {
	r.observer.SearchEngineCreated()
	return r.newEngine(r.index)
}

// ResourceFor returns the resource representing src according to the first
// project, in enumeration order, that recognizes it. A source no project
// recognizes yields false and a nil error.
//
// The scan is linear in the number of projects.
func (r *Registry) ResourceFor(ctx context.Context, src analysis.Source) (workspace.Resource, bool, error) {
	start := time.Now()
	b := r.inst.Builder(OpResourceFor)
	b.DataString("source", src.Path)

	res, found, scanned, projects, err := r.resourceFor(ctx, src)

	result := LookupMiss
	switch {
	case err != nil:
		result = LookupError
	case found:
		result = LookupHit
		b.DataString("resource", res.Path)
	}
	b.MetricInt("projects", int64(projects)).
		MetricInt("scanned", int64(scanned)).
		MetricString("result", result).
		MetricDuration("lookup", time.Since(start))
	_ = b.Flush()

	r.observer.ResourceLookup(result, time.Since(start))

	if err != nil {
		return workspace.Resource{}, false, err
	}
	return res, found, nil
}

func (r *Registry) resourceFor(ctx context.Context, src analysis.Source) (res workspace.Resource, found bool, scanned, total int, err error) {
	projects, err := r.AllProjects(ctx)
	if err != nil {
		return workspace.Resource{}, false, 0, 0, err
	}
	for i, p := range projects {
		if res, ok := p.ResourceFor(src); ok {
			return res, true, i + 1, len(projects), nil
		}
	}
	return workspace.Resource{}, false, len(projects), len(projects), nil
}

// Remove evicts the project cached for res and drops its elements from the
// index. It reports whether a project was cached. Indexing of res already
// in flight finishes before the elements are dropped.
func (r *Registry) Remove(ctx context.Context, res workspace.Resource) bool {
	r.mu.Lock()
	_, ok := r.projects[res]
	delete(r.projects, res)
	cached := len(r.projects)
	r.mu.Unlock()

	if !ok {
		return false
	}

	r.observer.ProjectEvicted(cached)

	l := r.indexLock(res)
	l.Lock()
	err := r.index.RemoveProject(ctx, res.Path)
	l.Unlock()
	if err != nil {
		r.logger.Warn("failed to remove project from index", "project", res.Path, "error", err)
	}
	r.logger.Info("project evicted", "project", res.Path, "cached", cached)
	return true
}

// Len returns the number of cached projects.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.projects)
}

// IndexAll indexes every project of the workspace, up to IndexWorkers at a
// time. It returns the total number of indexed elements and the first error.
func (r *Registry) IndexAll(ctx context.Context) (int, error) {
	start := time.Now()
	projects, err := r.AllProjects(ctx)
	if err != nil {
		return 0, err
	}

	var (
		g      errgroup.Group
		total  atomic.Int64
		failed atomic.Int64
		ctxErr error
	)
	g.SetLimit(r.workers)

	for _, p := range projects {
		if ctxErr = ctx.Err(); ctxErr != nil {
			break
		}
		g.Go(func() error {
			n, err := r.IndexProject(ctx, p)
			total.Add(int64(n))
			if err != nil {
				failed.Add(1)
			}
			return err
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctxErr
	}

	if obs, ok := r.observer.(IndexObserver); ok {
		if n, err := r.index.Len(ctx); err == nil {
			obs.IndexSize(n)
		}
	}

	b := r.inst.Builder(OpIndexAll)
	b.MetricInt("projects", int64(len(projects))).
		MetricInt("elements", total.Load()).
		MetricInt("failed", failed.Load()).
		MetricDuration("duration", time.Since(start))
	_ = b.Flush()

	r.logger.Info("workspace indexed",
		"projects", len(projects),
		"elements", total.Load(),
		"failed", failed.Load(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return int(total.Load()), err
}

// IndexProject indexes one project and reports it to the observer. A
// project that is no longer cached is skipped, so an evicted project never
// writes its elements back.
func (r *Registry) IndexProject(ctx context.Context, p analysis.Project) (int, error) {
	l := r.indexLock(p.Resource())
	l.Lock()
	defer l.Unlock()

	if !r.cached(p) {
		r.logger.Debug("skipping evicted project", "project", p.Resource().Path)
		return 0, nil
	}

	start := time.Now()
	n, err := p.Index(ctx)
	if obs, ok := r.observer.(IndexObserver); ok {
		obs.ProjectIndexed(n, time.Since(start), err)
	}
	if err != nil {
		r.logger.Warn("project indexing failed", "project", p.Resource().Path, "error", err)
	}
	return n, err
}

// Watch applies workspace changes until ctx is cancelled or the watcher
// stops. Removed projects are evicted; added projects are created and
// indexed.
func (r *Registry) Watch(ctx context.Context, w *workspace.Watcher) error {
	return w.Watch(ctx, func(changes []workspace.Change) {
		r.Apply(ctx, changes)
	})
}

// Apply applies one batch of workspace changes.
func (r *Registry) Apply(ctx context.Context, changes []workspace.Change) {
	for _, c := range changes {
		switch c.Kind {
		case workspace.Removed:
			r.Remove(ctx, c.Resource)
		case workspace.Added:
			r.IndexProject(ctx, r.Project(c.Resource))
		}
	}

	if obs, ok := r.observer.(IndexObserver); ok {
		if n, err := r.index.Len(ctx); err == nil {
			obs.IndexSize(n)
		}
	}
}

// Close waits for pending creation records and closes the index. The
// registry must not be used afterwards.
func (r *Registry) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.flushes.Wait()
		err = r.index.Close()
	})
	return err
}
