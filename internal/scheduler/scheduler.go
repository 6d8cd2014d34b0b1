// Package scheduler runs cycles periodically in daemon mode.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/go-co-op/gocron/v2"

	"github.com/livinlefevreloca/pkgstatus/internal/stats"
)

// CycleRunner runs one cycle
type CycleRunner interface {
	Run(ctx context.Context) (*stats.Cycle, error)
}

// Scheduler wraps a gocron scheduler running one cycle job. The job runs
// in singleton mode: a cycle that overruns the interval delays the next one
// instead of overlapping it.
type Scheduler struct {
	scheduler gocron.Scheduler
	runner    CycleRunner
	config    Config
	logger    *slog.Logger

	ctx    context.Context
	cycles atomic.Int64
}

// NewScheduler creates a scheduler with the specified configuration
func NewScheduler(config Config, runner CycleRunner, logger *slog.Logger) (*Scheduler, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	s := &Scheduler{
		scheduler: gs,
		runner:    runner,
		config:    config,
		logger:    logger,
		ctx:       context.Background(),
	}

	options := []gocron.JobOption{
		gocron.WithName("pkgstatus-cycle"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if config.RunOnStart {
		options = append(options, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	_, err = gs.NewJob(
		gocron.DurationJob(config.Interval),
		gocron.NewTask(s.runCycle),
		options...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cycle job: %w", err)
	}

	return s, nil
}

// Start begins running cycles. ctx is passed to every cycle.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("starting scheduler", "interval", s.config.Interval)
	s.ctx = ctx
	s.scheduler.Start()
}

// Stop waits for a running cycle and shuts the scheduler down
func (s *Scheduler) Stop() error {
	s.logger.Info("stopping scheduler")
	return s.scheduler.Shutdown()
}

// Run starts the scheduler and blocks until ctx is done
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start(ctx)
	<-ctx.Done()
	return s.Stop()
}

// Cycles returns the number of cycles started
func (s *Scheduler) Cycles() int64 {
	return s.cycles.Load()
}

func (s *Scheduler) runCycle() {
	if s.ctx.Err() != nil {
		return
	}
	s.cycles.Add(1)

	// The runner logs and records failures; the next cycle retries.
	if _, err := s.runner.Run(s.ctx); err != nil {
		s.logger.Debug("cycle ended with error", "error", err)
	}
}
