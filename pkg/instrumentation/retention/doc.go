// Package retention prunes instrumentation records by age and by count.
//
// A Pruner deletes records older than RetentionDays and then, if more than
// MaxRecords remain, the oldest surplus. With ArchiveBeforeDelete set, the
// records about to be deleted are first written to ArchivePath as JSON.
//
// A Scheduler runs the pruner on a cron schedule:
//
//	pruner := retention.NewPruner(store, &retention.Config{
//	    RetentionDays: 30,
//	    PruneSchedule: "0 3 * * *",
//	})
//	if err := pruner.Start(ctx); err != nil {
//	    return err
//	}
//	defer pruner.Stop()
package retention
