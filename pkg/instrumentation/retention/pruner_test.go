package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/meridian/pkg/instrumentation"
	"mercator-hq/meridian/pkg/instrumentation/storage"
)

var fixedNow = time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)

// seedDaily stores one record per day, ages 0..n-1 days before fixedNow.
func seedDaily(t *testing.T, s instrumentation.Storage, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		start := fixedNow.AddDate(0, 0, -i).Add(-time.Minute)
		r := &instrumentation.Record{
			ID:        fmt.Sprintf("day-%02d", i),
			Operation: "op",
			StartTime: start,
			FlushTime: start,
		}
		if err := s.Store(context.Background(), r); err != nil {
			t.Fatalf("Store() failed: %v", err)
		}
	}
}

func newTestPruner(s instrumentation.Storage, cfg *Config) *Pruner {
	p := NewPruner(s, cfg)
	p.now = func() time.Time { return fixedNow }
	return p
}

func TestPruner_ByAge(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedDaily(t, store, 10)

	p := newTestPruner(store, &Config{RetentionDays: 3})
	deleted, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}

	// Ages 3..9 days are older than the cutoff.
	if deleted != 7 {
		t.Errorf("Prune() deleted %d, want 7", deleted)
	}
	if store.Size() != 3 {
		t.Errorf("remaining = %d, want 3", store.Size())
	}
	if store.GetByID("day-02") == nil {
		t.Error("day-02 should be kept")
	}
}

func TestPruner_ByCount(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedDaily(t, store, 10)

	p := newTestPruner(store, &Config{RetentionDays: 0, MaxRecords: 4})
	deleted, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}

	if deleted != 6 {
		t.Errorf("Prune() deleted %d, want 6", deleted)
	}
	for i := 0; i < 4; i++ {
		if store.GetByID(fmt.Sprintf("day-%02d", i)) == nil {
			t.Errorf("newest record day-%02d was deleted", i)
		}
	}
}

func TestPruner_KeepForever(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedDaily(t, store, 5)

	deleted, err := newTestPruner(store, &Config{RetentionDays: -1}).Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 0 || store.Size() != 5 {
		t.Errorf("deleted %d, remaining %d; want 0 and 5", deleted, store.Size())
	}
}

func TestPruner_ArchiveBeforeDelete(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedDaily(t, store, 6)
	archiveDir := filepath.Join(t.TempDir(), "archives")

	p := newTestPruner(store, &Config{
		RetentionDays:       2,
		MaxRecords:          1,
		ArchiveBeforeDelete: true,
		ArchivePath:         archiveDir,
	})
	deleted, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 5 {
		t.Errorf("Prune() deleted %d, want 5", deleted)
	}

	files, err := filepath.Glob(filepath.Join(archiveDir, "*.json"))
	if err != nil {
		t.Fatalf("Glob() failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d archive files, want 2 (age and count)", len(files))
	}

	archived := 0
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("ReadFile() failed: %v", err)
		}
		var records []*instrumentation.Record
		if err := json.Unmarshal(data, &records); err != nil {
			t.Fatalf("archive %s is not a JSON array: %v", f, err)
		}
		archived += len(records)
	}
	if archived != 5 {
		t.Errorf("archived %d records, want 5", archived)
	}
}

func TestPruner_SQLiteBackend(t *testing.T) {
	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
		Path:        filepath.Join(t.TempDir(), "records.db"),
		WALMode:     true,
		BusyTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("NewSQLiteStorage() failed: %v", err)
	}
	defer store.Close()
	seedDaily(t, store, 8)

	deleted, err := newTestPruner(store, &Config{RetentionDays: 5, MaxRecords: 3}).Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 5 {
		t.Errorf("Prune() deleted %d, want 5", deleted)
	}
	n, err := store.Count(context.Background(), &instrumentation.Query{})
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
}
