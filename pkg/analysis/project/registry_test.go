package project

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/meridian/pkg/analysis"
	"mercator-hq/meridian/pkg/analysis/index"
	"mercator-hq/meridian/pkg/analysis/search"
	"mercator-hq/meridian/pkg/instrumentation"
	"mercator-hq/meridian/pkg/workspace"
)

// fakeProject recognizes a fixed set of source paths.
type fakeProject struct {
	res   workspace.Resource
	knows map[string]workspace.Resource
}

func (p *fakeProject) Resource() workspace.Resource { return p.res }

func (p *fakeProject) ResourceFor(src analysis.Source) (workspace.Resource, bool) {
	r, ok := p.knows[src.Path]
	return r, ok
}

func (p *fakeProject) Index(context.Context) (int, error) { return 0, nil }

// countingFactory counts constructions per resource.
type countingFactory struct {
	mu    sync.Mutex
	calls map[workspace.Resource]int
	knows map[workspace.Resource]map[string]workspace.Resource
}

func newCountingFactory() *countingFactory {
	return &countingFactory{
		calls: make(map[workspace.Resource]int),
		knows: make(map[workspace.Resource]map[string]workspace.Resource),
	}
}

func (f *countingFactory) create(res workspace.Resource, _ *index.Index) analysis.Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[res]++
	return &fakeProject{res: res, knows: f.knows[res]}
}

func (f *countingFactory) count(res workspace.Resource) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[res]
}

type rootFunc func(ctx context.Context) ([]workspace.Resource, error)

func (f rootFunc) Resources(ctx context.Context) ([]workspace.Resource, error) { return f(ctx) }

// countingObserver records registry events.
type countingObserver struct {
	hits, created, evicted, engines atomic.Int64
	lookups                         sync.Map
	indexed                         atomic.Int64
	size                            atomic.Int64
}

func (o *countingObserver) ProjectCacheHit()     { o.hits.Add(1) }
func (o *countingObserver) ProjectCreated(int)   { o.created.Add(1) }
func (o *countingObserver) ProjectEvicted(int)   { o.evicted.Add(1) }
func (o *countingObserver) SearchEngineCreated() { o.engines.Add(1) }
func (o *countingObserver) ResourceLookup(result string, _ time.Duration) {
	v, _ := o.lookups.LoadOrStore(result, new(atomic.Int64))
	v.(*atomic.Int64).Add(1)
}
func (o *countingObserver) ProjectIndexed(n int, _ time.Duration, _ error) { o.indexed.Add(1) }
func (o *countingObserver) IndexSize(n int)                                { o.size.Store(int64(n)) }

func (o *countingObserver) lookupCount(result string) int64 {
	v, ok := o.lookups.Load(result)
	if !ok {
		return 0
	}
	return v.(*atomic.Int64).Load()
}

type captureLogger struct {
	mu      sync.Mutex
	records []*instrumentation.Record
}

func (c *captureLogger) Log(r *instrumentation.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, r)
}

func (c *captureLogger) byOperation(op string) []*instrumentation.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*instrumentation.Record
	for _, r := range c.records {
		if r.Operation == op {
			out = append(out, r)
		}
	}
	return out
}

var (
	resA = workspace.ProjectResource("/ws/a")
	resB = workspace.ProjectResource("/ws/b")
	resC = workspace.ProjectResource("/ws/c")
)

func newTestRegistry(t *testing.T, root workspace.Root, f *countingFactory, obs Observer) *Registry {
	t.Helper()
	r := NewRegistry(root, &Config{NewProject: f.create, Observer: obs})
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRegistry_ProjectIdentity(t *testing.T) {
	f := newCountingFactory()
	r := newTestRegistry(t, workspace.StaticRoot{resA}, f, nil)

	first := r.Project(resA)
	if first == nil {
		t.Fatal("Project() returned nil")
	}
	if again := r.Project(workspace.ProjectResource("/ws/x/../a")); again != first {
		t.Error("Project() returned a different instance for the same resource")
	}
	if other := r.Project(resB); other == first {
		t.Error("Project() returned the same instance for different resources")
	}
	if f.count(resA) != 1 {
		t.Errorf("constructions for a = %d, want 1", f.count(resA))
	}
}

func TestRegistry_ProjectConcurrent(t *testing.T) {
	f := newCountingFactory()
	r := newTestRegistry(t, workspace.StaticRoot{}, f, nil)

	const goroutines = 64
	results := make([]analysis.Project, goroutines)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			res := resA
			if i%2 == 1 {
				res = resB
			}
			results[i] = r.Project(res)
		}(i)
	}
	close(start)
	wg.Wait()

	for i, p := range results {
		want := results[i%2]
		if p != want {
			t.Fatalf("goroutine %d got a different instance", i)
		}
	}
	if f.count(resA) != 1 || f.count(resB) != 1 {
		t.Errorf("constructions = a:%d b:%d, want 1 each", f.count(resA), f.count(resB))
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestRegistry_AllProjects(t *testing.T) {
	f := newCountingFactory()
	obs := &countingObserver{}
	r := newTestRegistry(t, workspace.StaticRoot{resC, resA, resB}, f, obs)

	cached := r.Project(resA)

	got, err := r.AllProjects(context.Background())
	if err != nil {
		t.Fatalf("AllProjects() error = %v", err)
	}

	want := []workspace.Resource{resC, resA, resB}
	if len(got) != len(want) {
		t.Fatalf("AllProjects() returned %d projects, want %d", len(got), len(want))
	}
	for i, p := range got {
		if p.Resource() != want[i] {
			t.Errorf("AllProjects()[%d] = %v, want %v", i, p.Resource(), want[i])
		}
	}
	if got[1] != cached {
		t.Error("AllProjects() must reuse cached projects")
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
	if obs.created.Load() != 3 || obs.hits.Load() != 1 {
		t.Errorf("observer created=%d hits=%d, want 3 and 1", obs.created.Load(), obs.hits.Load())
	}
}

func TestRegistry_AllProjectsError(t *testing.T) {
	boom := errors.New("boom")
	r := newTestRegistry(t, rootFunc(func(context.Context) ([]workspace.Resource, error) {
		return nil, boom
	}), newCountingFactory(), nil)

	if _, err := r.AllProjects(context.Background()); !errors.Is(err, boom) {
		t.Errorf("AllProjects() error = %v, want boom", err)
	}
}

func TestRegistry_IndexAndSearchEngines(t *testing.T) {
	obs := &countingObserver{}
	r := newTestRegistry(t, workspace.StaticRoot{}, newCountingFactory(), obs)

	ix := r.Index()
	if ix == nil || r.Index() != ix {
		t.Fatal("Index() must return the same instance on every call")
	}

	e1, e2 := r.NewSearchEngine(), r.NewSearchEngine()
	if e1 == e2 {
		t.Error("NewSearchEngine() must return a fresh engine per call")
	}
	if e1.Index() != ix || e2.Index() != ix {
		t.Error("search engines must be bound to the registry index")
	}
	if obs.engines.Load() != 2 {
		t.Errorf("engines observed = %d, want 2", obs.engines.Load())
	}
}

func TestRegistry_ResourceFor(t *testing.T) {
	f := newCountingFactory()
	fromA := workspace.FileResource("/ws/a/shared.go")
	fromB := workspace.FileResource("/ws/b/shared.go")
	onlyB := workspace.FileResource("/ws/b/only.go")
	f.knows[resA] = map[string]workspace.Resource{"/src/shared.go": fromA}
	f.knows[resB] = map[string]workspace.Resource{"/src/shared.go": fromB, "/src/only.go": onlyB}

	obs := &countingObserver{}
	r := newTestRegistry(t, workspace.StaticRoot{resA, resB, resC}, f, obs)
	ctx := context.Background()

	tests := []struct {
		name   string
		source string
		want   workspace.Resource
		wantOK bool
	}{
		{"first match wins", "/src/shared.go", fromA, true},
		{"later project", "/src/only.go", onlyB, true},
		{"no match", "/src/unknown.go", workspace.Resource{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := r.ResourceFor(ctx, analysis.Source{Path: tt.source})
			if err != nil {
				t.Fatalf("ResourceFor() error = %v", err)
			}
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ResourceFor() = %v, %v, want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}

	if obs.lookupCount(LookupHit) != 2 || obs.lookupCount(LookupMiss) != 1 {
		t.Errorf("lookups hit=%d miss=%d, want 2 and 1", obs.lookupCount(LookupHit), obs.lookupCount(LookupMiss))
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3 after ResourceFor", r.Len())
	}
}

func TestRegistry_ResourceForError(t *testing.T) {
	obs := &countingObserver{}
	r := newTestRegistry(t, rootFunc(func(context.Context) ([]workspace.Resource, error) {
		return nil, errors.New("unreadable")
	}), newCountingFactory(), obs)

	_, ok, err := r.ResourceFor(context.Background(), analysis.Source{Path: "/x"})
	if err == nil || ok {
		t.Errorf("ResourceFor() = %v, %v, want error", ok, err)
	}
	if obs.lookupCount(LookupError) != 1 {
		t.Errorf("error lookups = %d, want 1", obs.lookupCount(LookupError))
	}
}

func TestRegistry_Instrumentation(t *testing.T) {
	logger := &captureLogger{}
	inst := instrumentation.New(logger, &instrumentation.Config{
		Enabled:      true,
		Workers:      2,
		FlushTimeout: 5 * time.Second,
	})
	defer inst.Close()

	f := newCountingFactory()
	f.knows[resA] = map[string]workspace.Resource{"/src/x.go": workspace.FileResource("/ws/a/x.go")}
	r := NewRegistry(workspace.StaticRoot{resA}, &Config{NewProject: f.create, Instrumentation: inst})
	defer r.Close()

	r.Project(resA)
	r.Project(resA)
	if _, _, err := r.ResourceFor(context.Background(), analysis.Source{Path: "/src/x.go"}); err != nil {
		t.Fatal(err)
	}
	// Creation records are flushed in the background; Close waits for them.
	r.Close()

	creates := logger.byOperation(OpProjectCreate)
	if len(creates) != 1 {
		t.Fatalf("create records = %d, want 1 (cache hits are not recorded)", len(creates))
	}

	checks := []struct {
		name        string
		sensitivity instrumentation.Sensitivity
		deferred    bool
	}{
		{"resource", instrumentation.Sensitive, false},
		{"cached_projects", instrumentation.Metric, false},
		{"vcs_head", instrumentation.Sensitive, true},
	}
	for _, c := range checks {
		e, ok := creates[0].Lookup(c.name)
		if !ok {
			t.Errorf("create record missing %q", c.name)
			continue
		}
		if e.Sensitivity != c.sensitivity || e.Deferred != c.deferred {
			t.Errorf("%s: sensitivity=%v deferred=%v, want %v %v", c.name, e.Sensitivity, e.Deferred, c.sensitivity, c.deferred)
		}
	}
	if e, _ := creates[0].Lookup("resource"); e.Value.String() != resA.Path {
		t.Errorf("resource = %v, want %q", e.Value, resA.Path)
	}

	lookups := logger.byOperation(OpResourceFor)
	if len(lookups) != 1 {
		t.Fatalf("resourceFor records = %d, want 1", len(lookups))
	}
	result, ok := lookups[0].Lookup("result")
	if !ok || result.Sensitivity != instrumentation.Metric {
		t.Fatalf("result entry = %+v", result)
	}
	if s, _ := result.Value.Text(); s != LookupHit {
		t.Errorf("result = %q, want %q", s, LookupHit)
	}
	if src, _ := lookups[0].Lookup("source"); src.Sensitivity != instrumentation.Sensitive {
		t.Error("source path must be recorded as data")
	}
}

func TestRegistry_RemoveAndApply(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "a/main.go", "b/lib.go")
	a := workspace.ProjectResource(filepath.Join(dir, "a"))
	b := workspace.ProjectResource(filepath.Join(dir, "b"))

	obs := &countingObserver{}
	r := NewRegistry(workspace.NewDirRoot(dir, workspace.DirRootOptions{}), &Config{Observer: obs})
	defer r.Close()
	ctx := context.Background()

	if _, err := r.IndexAll(ctx); err != nil {
		t.Fatalf("IndexAll() error = %v", err)
	}
	first := r.Project(a)

	if !r.Remove(ctx, a) {
		t.Error("Remove() = false for a cached project")
	}
	if r.Remove(ctx, a) {
		t.Error("Remove() = true for an evicted project")
	}
	if n, _ := r.Index().Count(ctx, a.Path); n != 0 {
		t.Errorf("index still holds %d elements of the removed project", n)
	}
	if r.Project(a) == first {
		t.Error("Project() after Remove must construct a new project")
	}

	r.Apply(ctx, []workspace.Change{
		{Kind: workspace.Removed, Resource: b},
		{Kind: workspace.Added, Resource: a},
	})
	if n, _ := r.Index().Count(ctx, b.Path); n != 0 {
		t.Errorf("index holds %d elements of removed b", n)
	}
	if n, _ := r.Index().Count(ctx, a.Path); n != 1 {
		t.Errorf("index holds %d elements of added a, want 1", n)
	}
	if obs.evicted.Load() != 2 {
		t.Errorf("evictions = %d, want 2", obs.evicted.Load())
	}
	if obs.size.Load() != 1 {
		t.Errorf("index size observed = %d, want 1", obs.size.Load())
	}
}

func TestRegistry_IndexAllAndSearch(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "app/main.go", "app/handler.go", "lib/main.go", "lib/vendor/x.go")

	obs := &countingObserver{}
	r := NewRegistry(workspace.NewDirRoot(dir, workspace.DirRootOptions{}), &Config{
		Projects: Options{IgnoreDirs: []string{"vendor"}},
		Observer: obs,
	})
	defer r.Close()
	ctx := context.Background()

	n, err := r.IndexAll(ctx)
	if err != nil {
		t.Fatalf("IndexAll() error = %v", err)
	}
	if n != 3 {
		t.Errorf("IndexAll() = %d, want 3", n)
	}
	if obs.indexed.Load() != 2 {
		t.Errorf("projects indexed = %d, want 2", obs.indexed.Load())
	}

	got, err := r.NewSearchEngine().FindByName(ctx, "main.go", searchExact)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("FindByName(main.go) = %d results, want 2", len(got))
	}

	res, ok, err := r.ResourceFor(ctx, analysis.NewSource(filepath.Join(dir, "lib", "main.go")))
	if err != nil || !ok {
		t.Fatalf("ResourceFor() = %v, %v, %v", res, ok, err)
	}
	if res != workspace.FileResource(filepath.Join(dir, "lib", "main.go")) {
		t.Errorf("ResourceFor() = %v", res)
	}
}

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry(workspace.StaticRoot{}, nil)
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := r.Index().Len(context.Background()); !errors.Is(err, index.ErrIndexClosed) {
		t.Errorf("Len() after Close error = %v, want ErrIndexClosed", err)
	}
}

func TestRegistry_ProjectDoesNotWaitForDeferredValues(t *testing.T) {
	logger := &captureLogger{}
	inst := instrumentation.New(logger, &instrumentation.Config{
		Enabled:      true,
		Workers:      1,
		FlushTimeout: 2 * time.Second,
	})
	defer inst.Close()

	// Hold the only worker with another operation's generator.
	gate := make(chan struct{})
	busy := inst.Builder("busy")
	busy.MetricFunc("slow", func(context.Context) (instrumentation.Value, error) {
		<-gate
		return instrumentation.Int(1), nil
	})

	f := newCountingFactory()
	r := NewRegistry(workspace.StaticRoot{resA}, &Config{NewProject: f.create, Instrumentation: inst})

	start := time.Now()
	r.Project(resA)
	if d := time.Since(start); d > 500*time.Millisecond {
		t.Errorf("Project() took %v with a saturated pool", d)
	}

	close(gate)
	if err := busy.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if n := len(logger.byOperation(OpProjectCreate)); n != 1 {
		t.Errorf("create records after Close = %d, want 1", n)
	}
}

// gatedProject writes one element to the index once its gate opens.
type gatedProject struct {
	fakeProject
	idx     *index.Index
	started chan struct{}
	gate    chan struct{}
}

func newGatedProject(res workspace.Resource, idx *index.Index) *gatedProject {
	return &gatedProject{
		fakeProject: fakeProject{res: res},
		idx:         idx,
		started:     make(chan struct{}),
		gate:        make(chan struct{}),
	}
}

func (p *gatedProject) Index(ctx context.Context) (int, error) {
	close(p.started)
	<-p.gate
	el := index.Element{Name: "main.go", Kind: index.KindFile, Project: p.res.Path, Path: p.res.Path + "/main.go"}
	return 1, p.idx.Replace(ctx, p.res.Path, []index.Element{el})
}

func TestRegistry_RemoveDuringIndexing(t *testing.T) {
	created := make(chan *gatedProject, 1)
	r := NewRegistry(workspace.StaticRoot{resA}, &Config{
		NewProject: func(res workspace.Resource, idx *index.Index) analysis.Project {
			p := newGatedProject(res, idx)
			created <- p
			return p
		},
	})
	defer r.Close()
	ctx := context.Background()

	indexed := make(chan error, 1)
	go func() {
		_, err := r.IndexAll(ctx)
		indexed <- err
	}()
	project := <-created
	<-project.started

	removed := make(chan bool, 1)
	go func() { removed <- r.Remove(ctx, resA) }()

	// Let Remove evict the project before indexing writes its elements.
	deadline := time.Now().Add(2 * time.Second)
	for r.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Remove() did not evict the project")
		}
		time.Sleep(time.Millisecond)
	}
	close(project.gate)

	if err := <-indexed; err != nil {
		t.Fatalf("IndexAll() error = %v", err)
	}
	if !<-removed {
		t.Error("Remove() = false for a cached project")
	}
	if n, _ := r.Index().Count(ctx, resA.Path); n != 0 {
		t.Errorf("index holds %d elements of the evicted project", n)
	}
	got, err := r.NewSearchEngine().FindByName(ctx, "main.go", searchExact)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("search returned %d elements of the evicted project", len(got))
	}
}

func TestRegistry_IndexProjectSkipsEvicted(t *testing.T) {
	r := NewRegistry(workspace.StaticRoot{resA}, &Config{
		NewProject: func(res workspace.Resource, idx *index.Index) analysis.Project {
			p := newGatedProject(res, idx)
			close(p.gate)
			return p
		},
	})
	defer r.Close()
	ctx := context.Background()

	stale := r.Project(resA)
	r.Remove(ctx, resA)

	n, err := r.IndexProject(ctx, stale)
	if err != nil || n != 0 {
		t.Errorf("IndexProject(evicted) = %d, %v, want 0, nil", n, err)
	}
	if c, _ := r.Index().Count(ctx, resA.Path); c != 0 {
		t.Errorf("index holds %d elements of the evicted project", c)
	}
}

var searchExact = search.Options{Mode: search.ModeExact}
