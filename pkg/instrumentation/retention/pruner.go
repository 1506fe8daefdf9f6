package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/meridian/pkg/instrumentation"
	"mercator-hq/meridian/pkg/instrumentation/export"
)

// batchSize is the number of records fetched per count-pruning round.
const batchSize = 1000

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain records.
	// 0 or less keeps records forever.
	RetentionDays int

	// PruneSchedule is a cron expression for scheduling pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string

	// ArchiveBeforeDelete enables archiving records before deletion.
	ArchiveBeforeDelete bool

	// ArchivePath is the directory to store archived records.
	ArchivePath string

	// MaxRecords is the maximum number of records to keep.
	// 0 means unlimited.
	MaxRecords int64
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 30,
		PruneSchedule: "0 3 * * *",
		ArchivePath:   "data/archives/",
	}
}

// Pruner enforces retention policies on instrumentation records.
type Pruner struct {
	storage   instrumentation.Storage
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
	now       func() time.Time
}

// NewPruner creates a new retention pruner.
func NewPruner(storage instrumentation.Storage, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	p := &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "instrumentation.retention"),
		now:     time.Now,
	}
	p.scheduler = NewScheduler(p)

	return p
}

// Prune deletes records older than the retention period, then the oldest
// records beyond MaxRecords. It returns the total number deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by age failed: %w", err)
		}
		totalDeleted += deleted
		p.logger.Debug("pruned records by age",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
		)
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by count failed: %w", err)
		}
		totalDeleted += deleted
		p.logger.Debug("pruned records by count",
			"deleted_count", deleted,
			"max_records", p.config.MaxRecords,
		)
	}

	if totalDeleted > 0 {
		p.logger.Info("instrumentation pruning completed",
			"total_deleted", totalDeleted,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}

	return totalDeleted, nil
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)
	query := &instrumentation.Query{EndTime: &cutoff}

	if p.config.ArchiveBeforeDelete {
		if err := p.archiveQuery(ctx, query, "age"); err != nil {
			return 0, instrumentation.NewRetentionError(p.config.RetentionDays, err)
		}
	}

	deleted, err := p.storage.Delete(ctx, query)
	if err != nil {
		return 0, instrumentation.NewRetentionError(p.config.RetentionDays, err)
	}
	return deleted, nil
}

func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &instrumentation.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}

	toDelete := count - p.config.MaxRecords
	p.logger.Info("record count exceeds limit, pruning oldest",
		"current_count", count,
		"max_records", p.config.MaxRecords,
		"to_delete", toDelete,
	)

	var deleted int64
	for deleted < toDelete {
		limit := toDelete - deleted
		if limit > batchSize {
			limit = batchSize
		}

		oldest, err := p.storage.Query(ctx, &instrumentation.Query{
			SortOrder: "asc",
			Limit:     int(limit),
		})
		if err != nil {
			return deleted, fmt.Errorf("failed to query records: %w", err)
		}
		if len(oldest) == 0 {
			break
		}

		if p.config.ArchiveBeforeDelete {
			if err := p.archiveRecords(ctx, oldest, "count"); err != nil {
				return deleted, fmt.Errorf("archive failed: %w", err)
			}
		}

		for _, record := range oldest {
			n, err := p.storage.Delete(ctx, &instrumentation.Query{ID: record.ID})
			if err != nil {
				return deleted, fmt.Errorf("delete failed: %w", err)
			}
			deleted += n
		}
	}

	return deleted, nil
}

// archiveQuery archives every record matching query, paging through the
// storage batchSize records at a time.
func (p *Pruner) archiveQuery(ctx context.Context, query *instrumentation.Query, reason string) error {
	var records []*instrumentation.Record
	for offset := 0; ; offset += batchSize {
		page, err := p.storage.Query(ctx, &instrumentation.Query{
			StartTime: query.StartTime,
			EndTime:   query.EndTime,
			SortOrder: "asc",
			Limit:     batchSize,
			Offset:    offset,
		})
		if err != nil {
			return fmt.Errorf("failed to query records for archiving: %w", err)
		}
		records = append(records, page...)
		if len(page) < batchSize {
			break
		}
	}
	return p.archiveRecords(ctx, records, reason)
}

// archiveRecords writes records to a new JSON file under ArchivePath.
func (p *Pruner) archiveRecords(ctx context.Context, records []*instrumentation.Record, reason string) error {
	if len(records) == 0 {
		return nil
	}

	if err := os.MkdirAll(p.config.ArchivePath, 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := fmt.Sprintf("instrumentation-%s-%s-%s.json",
		reason, p.now().UTC().Format("20060102-150405"), records[0].ID)
	archiveFile := filepath.Join(p.config.ArchivePath, name)

	f, err := os.Create(archiveFile)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer f.Close()

	if err := export.NewJSONExporter(true).Export(ctx, records, f); err != nil {
		return fmt.Errorf("failed to export records to archive: %w", err)
	}

	p.logger.Info("instrumentation records archived",
		"archive_file", archiveFile,
		"record_count", len(records),
	)
	return nil
}

// Start starts the automatic pruning scheduler.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the automatic pruning scheduler.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
