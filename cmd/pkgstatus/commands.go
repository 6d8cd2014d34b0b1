package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/livinlefevreloca/pkgstatus/internal/buildid"
	"github.com/livinlefevreloca/pkgstatus/internal/config"
	"github.com/livinlefevreloca/pkgstatus/internal/cycle"
	"github.com/livinlefevreloca/pkgstatus/internal/model"
	"github.com/livinlefevreloca/pkgstatus/internal/remote"
	"github.com/livinlefevreloca/pkgstatus/internal/scheduler"
	"github.com/livinlefevreloca/pkgstatus/internal/stats"
)

// SyncCmd runs a single cycle and exits
type SyncCmd struct{}

func (s *SyncCmd) Run(root *CLI) error {
	g, err := root.load()
	if err != nil {
		return err
	}
	defer g.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, st, err := newRunner(ctx, g, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	_, err = runner.Run(ctx)
	return err
}

// DaemonCmd runs cycles on an interval until interrupted
type DaemonCmd struct {
	Interval time.Duration `help:"Override the cycle interval"`
}

func (d *DaemonCmd) Run(root *CLI) error {
	g, err := root.load()
	if err != nil {
		return err
	}
	defer g.Close()

	if d.Interval > 0 {
		g.Config.Daemon.Interval = d.Interval
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := scheduler.NewRegistry()
	recorder := stats.NewPrometheusRecorder(reg)

	runner, st, err := newRunner(ctx, g, recorder)
	if err != nil {
		return err
	}
	defer st.Close()

	sched, err := scheduler.NewScheduler(g.Config.Daemon, runner, g.Logger)
	if err != nil {
		return err
	}

	if g.Config.Metrics.Enabled {
		metrics, err := scheduler.NewMetricsServer(g.Config.Metrics, reg, g.Logger)
		if err != nil {
			return err
		}
		if err := metrics.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metrics.Shutdown(shutdownCtx); err != nil {
				g.Logger.Warn("metrics server shutdown failed", "error", err)
			}
		}()
	}

	return sched.Run(ctx)
}

// MigrateCmd prepares the store without syncing anything
type MigrateCmd struct{}

func (m *MigrateCmd) Run(root *CLI) error {
	g, err := root.load()
	if err != nil {
		return err
	}
	defer g.Close()

	// Migrations are what this command is for.
	g.Config.Database.SkipMigrations = false

	st, err := openStore(context.Background(), g.Config.Database, g.Logger)
	if err != nil {
		return err
	}
	g.Logger.Info("store is up to date", "driver", g.Config.Database.Driver)
	return st.Close()
}

// DecodeIDCmd prints the parts of an encoded build identity
type DecodeIDCmd struct {
	ID string `arg:"" help:"Encoded build identity"`
}

func (d *DecodeIDCmd) Run() error {
	id, err := buildid.Decode(d.ID)
	if err != nil {
		if errors.Is(err, buildid.ErrMalformedIdentity) {
			return fmt.Errorf("%q is not a build identity: %w", d.ID, err)
		}
		return err
	}

	fmt.Printf("server:    %s\n", id.Server)
	fmt.Printf("setname:   %s\n", id.Setname)
	fmt.Printf("ptname:    %s\n", id.Ptname)
	fmt.Printf("jailname:  %s\n", id.Jailname)
	fmt.Printf("buildname: %s\n", id.Buildname)
	fmt.Printf("group:     %s\n", id.GroupName())
	return nil
}

// newRunner wires the store, remote client and statistics into a cycle runner
func newRunner(ctx context.Context, g *Global, recorder stats.Recorder) (*cycle.Runner, store, error) {
	cfg := g.Config

	st, err := openStore(ctx, cfg.Database, g.Logger)
	if err != nil {
		return nil, nil, err
	}

	client, err := remote.NewClient(cfg.Remote, g.Logger)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	collector := stats.NewCollector(cfg.Stats, stats.NewDBAdapter(st), recorder, g.Logger)
	servers := func() ([]model.Server, error) {
		return config.LoadServers(cfg.ServersFile)
	}

	runner, err := cycle.NewRunner(st, client, servers, collector, cycle.Config{
		Syncer: cfg.Syncer,
		Differ: cfg.Differ,
	}, g.Logger)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return runner, st, nil
}
