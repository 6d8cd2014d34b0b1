package stats

import (
	"context"

	"github.com/livinlefevreloca/pkgstatus/internal/db"
)

// DatabaseWriter interface for database operations
type DatabaseWriter interface {
	WriteCycleStats(ctx context.Context, c *Cycle) error
}

// CycleStatsStore is implemented by both document stores
type CycleStatsStore interface {
	CreateCycleStats(ctx context.Context, stats *db.CycleStats) error
}

// DBAdapter adapts a store to implement DatabaseWriter
type DBAdapter struct {
	db CycleStatsStore
}

// NewDBAdapter creates a new database adapter
func NewDBAdapter(store CycleStatsStore) *DBAdapter {
	return &DBAdapter{db: store}
}

// WriteCycleStats implements DatabaseWriter
func (a *DBAdapter) WriteCycleStats(ctx context.Context, c *Cycle) error {
	return a.db.CreateCycleStats(ctx, toRecord(c))
}

func toRecord(c *Cycle) *db.CycleStats {
	return &db.CycleStats{
		CycleID:         c.ID,
		StartTime:       c.StartTime,
		EndTime:         c.EndTime,
		ServersSynced:   c.Sync.ServersSynced,
		ServersSkipped:  c.Sync.ServersSkipped,
		GroupsFetched:   c.Sync.GroupsFetched,
		GroupsSkipped:   c.Sync.GroupsSkipped,
		BuildsInserted:  c.Sync.BuildsInserted,
		BuildsUpdated:   c.Sync.BuildsUpdated,
		BuildsImmutable: c.Sync.BuildsImmutable,
		BuildsLegacy:    c.Sync.BuildsLegacy,
		FetchFailures:   c.Sync.FetchFailures,
		PortsDiffed:     c.Diff.Diffed,
		PortsExempt:     c.Diff.Exempt,
		PortsDeferred:   c.Diff.Deferred,
		PortsNoBaseline: c.Diff.NoBaseline,
	}
}
