package index

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

func el(project, rel string, kind ElementKind) Element {
	p := filepath.Join(project, rel)
	return Element{Name: filepath.Base(p), Kind: kind, Project: project, Path: p}
}

func seed(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if err := s.Replace(ctx, "/ws/app", []Element{
		el("/ws/app", "main.go", KindFile),
		el("/ws/app", "main_test.go", KindFile),
		el("/ws/app", "cmd", KindDirectory),
		el("/ws/app", "cmd/server.go", KindFile),
	}); err != nil {
		t.Fatalf("Replace(app) error = %v", err)
	}
	if err := s.Replace(ctx, "/ws/lib", []Element{
		el("/ws/lib", "main.go", KindFile),
		el("/ws/lib", "README.md", KindFile),
	}); err != nil {
		t.Fatalf("Replace(lib) error = %v", err)
	}
}

func paths(elements []Element) []string {
	out := make([]string, len(elements))
	for i, e := range elements {
		out[i] = e.Path
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// testStore runs the behaviour every Store must share.
func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	seed(t, s)

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{
			name:  "exact across projects",
			query: Query{Name: "main.go"},
			want:  []string{"/ws/app/main.go", "/ws/lib/main.go"},
		},
		{
			name:  "exact in project",
			query: Query{Name: "main.go", Project: "/ws/lib"},
			want:  []string{"/ws/lib/main.go"},
		},
		{
			name:  "prefix",
			query: Query{Name: "main", Mode: MatchPrefix},
			want:  []string{"/ws/app/main.go", "/ws/lib/main.go", "/ws/app/main_test.go"},
		},
		{
			name:  "contains",
			query: Query{Name: "erv", Mode: MatchContains},
			want:  []string{"/ws/app/cmd/server.go"},
		},
		{
			name:  "glob",
			query: Query{Name: "*_test.go", Mode: MatchGlob},
			want:  []string{"/ws/app/main_test.go"},
		},
		{
			name:  "glob class",
			query: Query{Name: "[A-Z]*", Mode: MatchGlob},
			want:  []string{"/ws/lib/README.md"},
		},
		{
			name:  "kind filter",
			query: Query{Kind: KindDirectory},
			want:  []string{"/ws/app/cmd"},
		},
		{
			name:  "limit",
			query: Query{Name: "main", Mode: MatchPrefix, Limit: 2},
			want:  []string{"/ws/app/main.go", "/ws/lib/main.go"},
		},
		{
			name:  "glob limit",
			query: Query{Name: "*.go", Mode: MatchGlob, Limit: 1},
			want:  []string{"/ws/app/main.go"},
		},
		{
			name:  "case sensitive",
			query: Query{Name: "readme", Mode: MatchPrefix},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Find(ctx, tt.query)
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			if !equalStrings(paths(got), tt.want) {
				t.Errorf("Find() = %v, want %v", paths(got), tt.want)
			}
		})
	}

	if n, err := s.Count(ctx, ""); err != nil || n != 6 {
		t.Errorf("Count() = %d, %v, want 6", n, err)
	}
	if n, err := s.Count(ctx, "/ws/lib"); err != nil || n != 2 {
		t.Errorf("Count(lib) = %d, %v, want 2", n, err)
	}

	projects, err := s.Projects(ctx)
	if err != nil {
		t.Fatalf("Projects() error = %v", err)
	}
	if !equalStrings(projects, []string{"/ws/app", "/ws/lib"}) {
		t.Errorf("Projects() = %v", projects)
	}

	// Replace drops previous elements of the project only.
	if err := s.Replace(ctx, "/ws/app", []Element{el("/ws/app", "new.go", KindFile)}); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Count(ctx, "/ws/app"); n != 1 {
		t.Errorf("Count(app) after replace = %d, want 1", n)
	}
	if n, _ := s.Count(ctx, "/ws/lib"); n != 2 {
		t.Errorf("Count(lib) after replace = %d, want 2", n)
	}

	if err := s.DeleteProject(ctx, "/ws/lib"); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Count(ctx, ""); n != 1 {
		t.Errorf("Count() after delete = %d, want 1", n)
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestIndex_Closed(t *testing.T) {
	ctx := context.Background()
	ix := New(nil)
	seed(t, ix.store)

	if n, err := ix.Len(ctx); err != nil || n != 6 {
		t.Fatalf("Len() = %d, %v, want 6", n, err)
	}

	if err := ix.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := ix.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if _, err := ix.Find(ctx, Query{}); !errors.Is(err, ErrIndexClosed) {
		t.Errorf("Find() after close error = %v, want ErrIndexClosed", err)
	}
	if err := ix.Replace(ctx, "/ws/app", nil); !errors.Is(err, ErrIndexClosed) {
		t.Errorf("Replace() after close error = %v, want ErrIndexClosed", err)
	}
	if _, err := ix.Len(ctx); !errors.Is(err, ErrIndexClosed) {
		t.Errorf("Len() after close error = %v, want ErrIndexClosed", err)
	}
}

func TestIndex_InvalidQuery(t *testing.T) {
	ix := New(nil)
	defer ix.Close()

	tests := []Query{
		{Limit: -1},
		{Name: "[", Mode: MatchGlob},
		{Mode: MatchMode(42)},
	}
	for _, q := range tests {
		if _, err := ix.Find(context.Background(), q); err == nil {
			t.Errorf("Find(%+v) expected error", q)
		}
	}
}

func TestIndex_ConcurrentReaders(t *testing.T) {
	ctx := context.Background()
	ix := New(nil)
	defer ix.Close()
	seed(t, ix.store)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := ix.Find(ctx, Query{Name: "main", Mode: MatchPrefix}); err != nil {
					t.Errorf("Find() error = %v", err)
					return
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			_ = ix.Replace(ctx, "/ws/other", []Element{el("/ws/other", "x.go", KindFile)})
		}
	}()
	wg.Wait()
}

func TestParseMatchMode(t *testing.T) {
	tests := []struct {
		in      string
		want    MatchMode
		wantErr bool
	}{
		{"exact", MatchExact, false},
		{"Prefix", MatchPrefix, false},
		{"contains", MatchContains, false},
		{"glob", MatchGlob, false},
		{"fuzzy", MatchExact, true},
	}
	for _, tt := range tests {
		got, err := ParseMatchMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMatchMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMatchMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
