package index

import (
	"context"
	"path/filepath"
	"testing"
)

func newSQLiteStore(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(SQLiteStoreConfig{Path: path})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	return s
}

func TestSQLiteStore(t *testing.T) {
	s := newSQLiteStore(t, filepath.Join(t.TempDir(), "index.db"))
	defer s.Close()

	testStore(t, s)
}

func TestSQLiteStore_EmptyPath(t *testing.T) {
	if _, err := NewSQLiteStore(SQLiteStoreConfig{}); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	s := newSQLiteStore(t, path)
	seed(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s = newSQLiteStore(t, path)
	defer s.Close()

	n, err := s.Count(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if n != 6 {
		t.Errorf("Count() after reopen = %d, want 6", n)
	}
}

func TestIndex_SQLiteBacked(t *testing.T) {
	ix := New(newSQLiteStore(t, filepath.Join(t.TempDir(), "index.db")))
	defer ix.Close()

	ctx := context.Background()
	if err := ix.Replace(ctx, "/ws/app", []Element{el("/ws/app", "main.go", KindFile)}); err != nil {
		t.Fatal(err)
	}
	got, err := ix.Find(ctx, Query{Name: "main.go"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Project != "/ws/app" {
		t.Errorf("Find() = %+v", got)
	}
}
