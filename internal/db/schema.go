package db

import "time"

// CycleStats represents the counters of one sync and diff cycle
type CycleStats struct {
	CycleID         string    `bson:"_id"`
	StartTime       time.Time `bson:"start_time"`
	EndTime         time.Time `bson:"end_time"`
	ServersSynced   int       `bson:"servers_synced"`
	ServersSkipped  int       `bson:"servers_skipped"`
	GroupsFetched   int       `bson:"groups_fetched"`
	GroupsSkipped   int       `bson:"groups_skipped"`
	BuildsInserted  int       `bson:"builds_inserted"`
	BuildsUpdated   int       `bson:"builds_updated"`
	BuildsImmutable int       `bson:"builds_immutable"`
	BuildsLegacy    int       `bson:"builds_legacy"`
	FetchFailures   int       `bson:"fetch_failures"`
	PortsDiffed     int       `bson:"ports_diffed"`
	PortsExempt     int       `bson:"ports_exempt"`
	PortsDeferred   int       `bson:"ports_deferred"`
	PortsNoBaseline int       `bson:"ports_no_baseline"`
}
