package db

import "context"

// CreateCycleStats inserts the statistics of one cycle
func (db *DB) CreateCycleStats(ctx context.Context, stats *CycleStats) error {
	query := `
		INSERT INTO cycle_stats (
			cycle_id, start_time, end_time, servers_synced, servers_skipped,
			groups_fetched, groups_skipped, builds_inserted, builds_updated,
			builds_immutable, builds_legacy, fetch_failures, ports_diffed,
			ports_exempt, ports_deferred, ports_no_baseline
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		stats.CycleID,
		stats.StartTime,
		stats.EndTime,
		stats.ServersSynced,
		stats.ServersSkipped,
		stats.GroupsFetched,
		stats.GroupsSkipped,
		stats.BuildsInserted,
		stats.BuildsUpdated,
		stats.BuildsImmutable,
		stats.BuildsLegacy,
		stats.FetchFailures,
		stats.PortsDiffed,
		stats.PortsExempt,
		stats.PortsDeferred,
		stats.PortsNoBaseline,
	)

	return err
}

// GetRecentCycleStats retrieves the most recent cycles, newest first
func (db *DB) GetRecentCycleStats(ctx context.Context, limit int) ([]CycleStats, error) {
	query := `
		SELECT
			cycle_id, start_time, end_time, servers_synced, servers_skipped,
			groups_fetched, groups_skipped, builds_inserted, builds_updated,
			builds_immutable, builds_legacy, fetch_failures, ports_diffed,
			ports_exempt, ports_deferred, ports_no_baseline
		FROM cycle_stats
		ORDER BY start_time DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []CycleStats{}
	for rows.Next() {
		var s CycleStats
		err := rows.Scan(
			&s.CycleID,
			&s.StartTime,
			&s.EndTime,
			&s.ServersSynced,
			&s.ServersSkipped,
			&s.GroupsFetched,
			&s.GroupsSkipped,
			&s.BuildsInserted,
			&s.BuildsUpdated,
			&s.BuildsImmutable,
			&s.BuildsLegacy,
			&s.FetchFailures,
			&s.PortsDiffed,
			&s.PortsExempt,
			&s.PortsDeferred,
			&s.PortsNoBaseline,
		)
		if err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
