// Package stats records the counters of each sync and diff cycle: a log
// summary, Prometheus metrics and a persisted record per cycle.
package stats

import (
	"context"
	"fmt"
	"log/slog"
)

// Recorder receives every finished cycle
type Recorder interface {
	ObserveCycle(c *Cycle)
}

// Collector reports finished cycles to the log, a recorder and the store
type Collector struct {
	db       DatabaseWriter
	recorder Recorder
	config   Config
	logger   *slog.Logger
}

// NewCollector creates a new collector. db and recorder may be nil.
func NewCollector(config Config, db DatabaseWriter, recorder Recorder, logger *slog.Logger) *Collector {
	return &Collector{
		db:       db,
		recorder: recorder,
		config:   config,
		logger:   logger,
	}
}

// Record reports a finished cycle. Only the store write can fail.
func (sc *Collector) Record(ctx context.Context, c *Cycle) error {
	sc.logger.Info("cycle complete",
		"cycle_id", c.ID,
		"outcome", c.Outcome(),
		"duration", c.Duration(),
		"servers_synced", c.Sync.ServersSynced,
		"servers_skipped", c.Sync.ServersSkipped,
		"groups_fetched", c.Sync.GroupsFetched,
		"groups_skipped", c.Sync.GroupsSkipped,
		"builds_inserted", c.Sync.BuildsInserted,
		"builds_updated", c.Sync.BuildsUpdated,
		"fetch_failures", c.Sync.FetchFailures,
		"ports_diffed", c.Diff.Diffed,
		"ports_exempt", c.Diff.Exempt,
		"ports_deferred", c.Diff.Deferred,
		"ports_no_baseline", c.Diff.NoBaseline,
	)

	if sc.recorder != nil {
		sc.recorder.ObserveCycle(c)
	}

	// A cancelled cycle's context cannot be used for the write.
	if !sc.config.Persist || sc.db == nil || c.Outcome() == OutcomeCancelled {
		return nil
	}
	if err := sc.db.WriteCycleStats(ctx, c); err != nil {
		return fmt.Errorf("write cycle stats failed: %w", err)
	}
	return nil
}
