package search

import (
	"context"
	"testing"

	"mercator-hq/meridian/pkg/analysis/index"
	"mercator-hq/meridian/pkg/workspace"
)

func newTestIndex(t *testing.T) *index.Index {
	t.Helper()
	ix := index.New(index.NewMemoryStore())
	t.Cleanup(func() { ix.Close() })

	ctx := context.Background()
	add := func(project string, names ...string) {
		var elements []index.Element
		for _, n := range names {
			elements = append(elements, index.Element{
				Name: n, Kind: index.KindFile, Path: project + "/" + n,
			})
		}
		if err := ix.Replace(ctx, project, elements); err != nil {
			t.Fatal(err)
		}
	}
	add("/ws/app", "main.go", "handler.go", "handler_test.go")
	add("/ws/lib", "main.go", "util.go")
	return ix
}

func names(elements []index.Element) []string {
	out := make([]string, len(elements))
	for i, e := range elements {
		out[i] = e.Project + ":" + e.Name
	}
	return out
}

func TestEngine_FindByName(t *testing.T) {
	e := New(newTestIndex(t))
	ctx := context.Background()

	tests := []struct {
		name    string
		pattern string
		opts    Options
		want    []string
	}{
		{"auto substring", "andl", Options{}, []string{"/ws/app:handler.go", "/ws/app:handler_test.go"}},
		{"auto glob", "*_test.go", Options{}, []string{"/ws/app:handler_test.go"}},
		{"exact", "main.go", Options{Mode: ModeExact}, []string{"/ws/app:main.go", "/ws/lib:main.go"}},
		{"prefix", "u", Options{Mode: ModePrefix}, []string{"/ws/lib:util.go"}},
		{"limit", ".go", Options{Limit: 1}, []string{"/ws/app:handler.go"}},
		{"unlimited", ".go", Options{Limit: -1}, []string{
			"/ws/app:handler.go", "/ws/app:handler_test.go", "/ws/app:main.go", "/ws/lib:main.go", "/ws/lib:util.go",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.FindByName(ctx, tt.pattern, tt.opts)
			if err != nil {
				t.Fatalf("FindByName() error = %v", err)
			}
			g := names(got)
			if len(g) != len(tt.want) {
				t.Fatalf("FindByName() = %v, want %v", g, tt.want)
			}
			for i := range g {
				if g[i] != tt.want[i] {
					t.Errorf("FindByName()[%d] = %q, want %q", i, g[i], tt.want[i])
				}
			}
		})
	}

	if e.Queries() != int64(len(tests)) {
		t.Errorf("Queries() = %d, want %d", e.Queries(), len(tests))
	}
}

func TestEngine_FindInProject(t *testing.T) {
	e := New(newTestIndex(t))

	got, err := e.FindInProject(context.Background(), workspace.Resource{Kind: workspace.KindProject, Path: "/ws/lib"}, "main.go", Options{Mode: ModeExact})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Project != "/ws/lib" {
		t.Errorf("FindInProject() = %v", names(got))
	}
}

func TestEngine_UnknownMode(t *testing.T) {
	e := New(newTestIndex(t))
	if _, err := e.FindByName(context.Background(), "x", Options{Mode: "fuzzy"}); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestNew_DistinctEnginesShareIndex(t *testing.T) {
	ix := newTestIndex(t)
	var factory Factory = New

	a, b := factory(ix), factory(ix)
	if a == b || a.ID() == b.ID() {
		t.Error("factory must return a fresh engine per call")
	}
	if a.Index() != ix || b.Index() != ix {
		t.Error("engines must be bound to the given index")
	}
}
