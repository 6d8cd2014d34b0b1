package main

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/livinlefevreloca/pkgstatus/internal/config"
	"github.com/livinlefevreloca/pkgstatus/internal/db"
	"github.com/livinlefevreloca/pkgstatus/internal/testutil"
)

func TestOpenStore_SQLiteLogsSchemaVersion(t *testing.T) {
	logger := testutil.NewTestLogger()
	cfg := db.Config{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "pkgstatus.db"),
	}

	st, err := openStore(context.Background(), cfg, logger.Logger())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	entries := logger.GetEntriesByMessage("database schema up to date")
	if len(entries) != 1 {
		t.Fatalf("expected one schema log entry, got %d", len(entries))
	}
	if got := fmt.Sprint(entries[0].Fields["version"]); got != "2" {
		t.Errorf("expected schema version 2, got %s", got)
	}
	if _, ok := entries[0].Fields["count"]; ok {
		t.Error("schema version must not be logged as a count")
	}

	// Reopening an up to date database reports the same version.
	st.Close()
	st, err = openStore(context.Background(), cfg, logger.Logger())
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	entries = logger.GetEntriesByMessage("database schema up to date")
	if len(entries) != 2 || fmt.Sprint(entries[1].Fields["version"]) != "2" {
		t.Errorf("expected version 2 on reopen, got %v", entries)
	}
}

func TestOpenStore_UnsupportedDriver(t *testing.T) {
	_, err := openStore(context.Background(), db.Config{Driver: "postgres", DSN: "x"}, testutil.NewTestLogger().Logger())
	if err == nil {
		t.Error("expected an error for an unsupported driver")
	}
}
