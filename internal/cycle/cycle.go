// Package cycle runs one invocation cycle: the sync pass over every
// configured server followed by the diff pass.
package cycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/livinlefevreloca/pkgstatus/internal/differ"
	"github.com/livinlefevreloca/pkgstatus/internal/model"
	"github.com/livinlefevreloca/pkgstatus/internal/stats"
	"github.com/livinlefevreloca/pkgstatus/internal/syncer"
)

// Store is the persistence both passes run against
type Store interface {
	syncer.Store
	differ.Store
}

// ServerSource lists the servers to sync. It is called once per cycle.
type ServerSource func() ([]model.Server, error)

// Config holds the pass configurations
type Config struct {
	Syncer syncer.Config
	Differ differ.Config
}

// Runner runs cycles against one store
type Runner struct {
	store   Store
	fetcher syncer.Fetcher
	servers ServerSource
	stats   *stats.Collector
	config  Config
	logger  *slog.Logger
}

// NewRunner creates a runner. stats may be nil.
func NewRunner(store Store, fetcher syncer.Fetcher, servers ServerSource, collector *stats.Collector, config Config, logger *slog.Logger) (*Runner, error) {
	// Fail on bad configuration now rather than on the first cycle.
	if _, err := syncer.NewSyncer(store, fetcher, config.Syncer, logger); err != nil {
		return nil, fmt.Errorf("invalid syncer config: %w", err)
	}
	if _, err := differ.NewDiffer(store, config.Differ, logger); err != nil {
		return nil, fmt.Errorf("invalid differ config: %w", err)
	}

	return &Runner{
		store:   store,
		fetcher: fetcher,
		servers: servers,
		stats:   collector,
		config:  config,
		logger:  logger,
	}, nil
}

// Run runs one cycle to completion. The returned statistics are filled in
// as far as the cycle got, also on error.
func (r *Runner) Run(ctx context.Context) (*stats.Cycle, error) {
	id := uuid.New().String()
	logger := r.logger.With("cycle_id", id)
	cycle := stats.NewCycle(id, time.Now())

	err := r.run(ctx, logger, cycle)
	cycle.Finish(time.Now(), err)

	if err != nil {
		logger.Error("cycle failed", "error", err)
	}
	if r.stats != nil {
		if serr := r.stats.Record(ctx, cycle); serr != nil {
			logger.Error("failed to record cycle stats", "error", serr)
		}
	}

	return cycle, err
}

func (r *Runner) run(ctx context.Context, logger *slog.Logger, cycle *stats.Cycle) error {
	servers, err := r.servers()
	if err != nil {
		return fmt.Errorf("list servers: %w", err)
	}
	logger.Info("starting cycle", "servers", len(servers))

	s, err := syncer.NewSyncer(r.store, r.fetcher, r.config.Syncer, logger)
	if err != nil {
		return err
	}
	cycle.Sync, err = s.Sync(ctx, servers)
	if err != nil {
		return fmt.Errorf("sync pass: %w", err)
	}

	d, err := differ.NewDiffer(r.store, r.config.Differ, logger)
	if err != nil {
		return err
	}
	cycle.Diff, err = d.Run(ctx)
	if err != nil {
		return fmt.Errorf("diff pass: %w", err)
	}

	return nil
}
