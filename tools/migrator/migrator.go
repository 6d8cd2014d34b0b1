// Package migrator applies the versioned SQL migrations of the SQLite store.
package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
)

// RunMigrations applies all pending migrations found in fsys.
func RunMigrations(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	if err := createSchemaTable(ctx, db); err != nil {
		return fmt.Errorf("failed to create schema table: %w", err)
	}

	migrations, err := LoadMigrations(fsys)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	applied, err := GetAppliedMigrations(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	appliedSet := make(map[int]bool)
	maxApplied := 0
	for _, v := range applied {
		appliedSet[v] = true
		if v > maxApplied {
			maxApplied = v
		}
	}

	for _, migration := range migrations {
		if appliedSet[migration.Version] {
			continue
		}

		// Can't go backwards
		if migration.Version < maxApplied {
			return fmt.Errorf("cannot apply migration %d: version %d is already applied (migrations must be applied in order)", migration.Version, maxApplied)
		}

		for _, dep := range migration.Dependencies {
			if !appliedSet[dep] {
				return fmt.Errorf("migration %d depends on version %d which has not been applied", migration.Version, dep)
			}
		}

		if err := applyMigration(ctx, db, migration); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}

		appliedSet[migration.Version] = true
	}

	return nil
}

// GetCurrentVersion returns the highest applied migration version.
// Returns 0 if no migrations have been applied.
func GetCurrentVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		if isMissingTable(err) {
			return 0, nil
		}
		return 0, err
	}
	return version, nil
}

// GetAppliedMigrations returns a slice of all applied migration versions, sorted.
func GetAppliedMigrations(ctx context.Context, db *sql.DB) ([]int, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		if isMissingTable(err) {
			return []int{}, nil
		}
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		versions = append(versions, version)
	}

	return versions, rows.Err()
}

func isMissingTable(err error) bool {
	return strings.Contains(err.Error(), "no such table")
}

// createSchemaTable creates the schema_migrations table if it doesn't exist.
func createSchemaTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// applyMigration executes a single migration and records it in schema_migrations.
func applyMigration(ctx context.Context, db *sql.DB, migration Migration) error {
	const recordQuery = "INSERT INTO schema_migrations (version) VALUES (?)"

	if migration.NoTransaction {
		if _, err := db.ExecContext(ctx, migration.UpSQL); err != nil {
			return fmt.Errorf("failed to execute SQL: %w", err)
		}
		if _, err := db.ExecContext(ctx, recordQuery, migration.Version); err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, migration.UpSQL); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to execute SQL: %w", err)
	}

	if _, err := tx.ExecContext(ctx, recordQuery, migration.Version); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
