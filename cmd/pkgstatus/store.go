package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/livinlefevreloca/pkgstatus/internal/config"
	"github.com/livinlefevreloca/pkgstatus/internal/cycle"
	"github.com/livinlefevreloca/pkgstatus/internal/db"
	"github.com/livinlefevreloca/pkgstatus/internal/mongodb"
	"github.com/livinlefevreloca/pkgstatus/internal/stats"
)

// store is what the commands need from either backend
type store interface {
	cycle.Store
	stats.CycleStatsStore
	Close() error
}

// openStore opens the configured backend and brings its schema up to date
func openStore(ctx context.Context, cfg db.Config, logger *slog.Logger) (store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		database, err := db.OpenWithConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if cfg.SkipMigrations {
			return database, nil
		}
		version, err := database.Migrate(ctx)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		logger.Info("database schema up to date", "version", version)
		return database, nil

	case config.DriverMongo:
		s, err := mongodb.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to mongo: %w", err)
		}
		if err := s.EnsureIndexes(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("create indexes: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
}
