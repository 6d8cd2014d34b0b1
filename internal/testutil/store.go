package testutil

import (
	"context"
	"testing"

	"github.com/livinlefevreloca/pkgstatus/internal/db"
	_ "github.com/mattn/go-sqlite3"
)

// NewTestStore opens a migrated in-memory SQLite store that is closed when
// the test ends
func NewTestStore(t *testing.T) *db.DB {
	t.Helper()

	store, err := db.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})

	if _, err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test store: %v", err)
	}
	return store
}
