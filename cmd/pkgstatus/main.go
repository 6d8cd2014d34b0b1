package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	_ "github.com/mattn/go-sqlite3"

	"github.com/livinlefevreloca/pkgstatus/internal/config"
)

// CLI definition & global flags
type CLI struct {
	Config  string `short:"c" help:"Configuration file path (TOML)" type:"path"`
	EnvFile string `help:"Dotenv file with PKGSTATUS_* overrides" default:".env" type:"path"`
	Verbose bool   `short:"v" help:"Enable debug logging"`

	Sync     SyncCmd     `cmd:"" help:"Run one sync and diff cycle"`
	Daemon   DaemonCmd   `cmd:"" help:"Run cycles periodically"`
	Migrate  MigrateCmd  `cmd:"" help:"Apply schema migrations or create indexes"`
	DecodeID DecodeIDCmd `cmd:"" name:"decode-id" help:"Print the components of a build identity"`
}

// Global holds the state shared by commands that need configuration
type Global struct {
	Config *config.Config
	Logger *slog.Logger

	closer io.Closer
}

// load reads the configuration and builds the logger
func (c *CLI) load() (*Global, error) {
	if err := config.LoadEnvFile(c.EnvFile, false); err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(c.Config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if c.Verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, closer := config.NewLogger(cfg.Logging)
	slog.SetDefault(logger)

	return &Global{Config: cfg, Logger: logger, closer: closer}, nil
}

func (g *Global) Close() error {
	return g.closer.Close()
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("pkgstatus"),
		kong.Description("Mirror build server status into a document store and track new package failures."),
		kong.UsageOnError(),
	)

	if err := ctx.Run(&cli); err != nil {
		slog.Error("command failed", "command", ctx.Command(), "error", err)
		os.Exit(1)
	}
}
