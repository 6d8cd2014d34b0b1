package mongodb

import (
	"context"

	"gopkg.in/mgo.v2"

	"github.com/livinlefevreloca/pkgstatus/internal/db"
)

// CreateCycleStats inserts the statistics of one cycle
func (s *Store) CreateCycleStats(ctx context.Context, stats *db.CycleStats) error {
	return s.withCollection(ctx, CycleStatsCollection, func(c *mgo.Collection) error {
		return c.Insert(stats)
	})
}

// GetRecentCycleStats retrieves the most recent cycles, newest first
func (s *Store) GetRecentCycleStats(ctx context.Context, limit int) ([]db.CycleStats, error) {
	stats := []db.CycleStats{}
	err := s.withCollection(ctx, CycleStatsCollection, func(c *mgo.Collection) error {
		return c.Find(nil).Sort("-start_time").Limit(limit).All(&stats)
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
