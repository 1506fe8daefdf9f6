package project

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"mercator-hq/meridian/pkg/analysis"
	"mercator-hq/meridian/pkg/analysis/index"
	"mercator-hq/meridian/pkg/workspace"
)

// writeTree creates files (and their parent directories) under root.
func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDirProject_Index(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir,
		"main.go",
		"README.md",
		"pkg/util/util.go",
		"vendor/dep/dep.go",
		".git/HEAD",
		".env",
	)

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "defaults",
			opts: Options{IgnoreDirs: []string{"vendor"}},
			want: []string{"README.md", "main.go", "pkg", "util", "util.go"},
		},
		{
			name: "extensions",
			opts: Options{IgnoreDirs: []string{"vendor"}, Extensions: []string{"go"}},
			want: []string{"main.go", "pkg", "util", "util.go"},
		},
		{
			name: "hidden",
			opts: Options{IgnoreDirs: []string{"vendor", ".git"}, IncludeHidden: true},
			want: []string{".env", "README.md", "main.go", "pkg", "util", "util.go"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := index.New(nil)
			defer ix.Close()

			p := NewDirProject(workspace.ProjectResource(dir), ix, tt.opts)
			n, err := p.Index(context.Background())
			if err != nil {
				t.Fatalf("Index() error = %v", err)
			}
			if n != len(tt.want) {
				t.Errorf("Index() = %d, want %d", n, len(tt.want))
			}

			got, err := ix.Find(context.Background(), index.Query{Project: p.Resource().Path})
			if err != nil {
				t.Fatal(err)
			}
			var names []string
			for _, e := range got {
				names = append(names, e.Name)
			}
			sort.Strings(names)
			if len(names) != len(tt.want) {
				t.Fatalf("indexed = %v, want %v", names, tt.want)
			}
			for i := range names {
				if names[i] != tt.want[i] {
					t.Errorf("indexed[%d] = %q, want %q", i, names[i], tt.want[i])
				}
			}
		})
	}
}

func TestDirProject_Reindex(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "a.go", "b.go")

	ix := index.New(nil)
	defer ix.Close()
	p := NewDirProject(workspace.ProjectResource(dir), ix, Options{})

	if _, err := p.Index(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, "b.go")); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Index(context.Background()); err != nil {
		t.Fatal(err)
	}

	if n, _ := ix.Len(context.Background()); n != 1 {
		t.Errorf("Len() after reindex = %d, want 1", n)
	}
}

func TestDirProject_ResourceFor(t *testing.T) {
	res := workspace.ProjectResource("/ws/app")
	p := NewDirProject(res, nil, Options{})

	tests := []struct {
		name   string
		source string
		want   workspace.Resource
		wantOK bool
	}{
		{"file", "/ws/app/main.go", workspace.FileResource("/ws/app/main.go"), true},
		{"project dir", "/ws/app", res, true},
		{"other project", "/ws/lib/main.go", workspace.Resource{}, false},
		{"shared prefix", "/ws/application/x.go", workspace.Resource{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.ResourceFor(analysis.NewSource(tt.source))
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ResourceFor(%q) = %v, %v, want %v, %v", tt.source, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
