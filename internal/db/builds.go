package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/livinlefevreloca/pkgstatus/internal/model"
)

// Keys kept in columns rather than in the stored document.
var managedBuildKeys = []string{"_id", "latest", "new_stats", "previous_id"}

// buildRow holds the queryable columns extracted from a build document
type buildRow struct {
	Mastername sql.NullString
	Server     sql.NullString
	Type       sql.NullString
	Status     sql.NullString
	SnapNow    sql.NullInt64
	Doc        string
}

func newBuildRow(id string, doc model.Document) (*buildRow, error) {
	stored := make(model.Document, len(doc))
	for k, v := range doc {
		stored[k] = v
	}
	for _, k := range managedBuildKeys {
		delete(stored, k)
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encode build %q: %w", id, err)
	}

	row := &buildRow{Doc: string(raw)}
	row.Mastername = nullString(doc, "mastername")
	row.Server = nullString(doc, "server")
	row.Type = nullString(doc, "type")
	row.Status = nullString(doc, "status")
	if now, ok := model.SnapNow(doc); ok {
		row.SnapNow = sql.NullInt64{Int64: now, Valid: true}
	}
	return row, nil
}

func nullString(doc model.Document, key string) sql.NullString {
	s, ok := model.StringField(doc, key)
	return sql.NullString{String: s, Valid: ok}
}

// InsertBuild stores a new build document
func (db *DB) InsertBuild(ctx context.Context, id string, doc model.Document) error {
	row, err := newBuildRow(id, doc)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO builds (id, mastername, server, type, status, snap_now, doc)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.ExecContext(ctx, query,
		id,
		row.Mastername,
		row.Server,
		row.Type,
		row.Status,
		row.SnapNow,
		row.Doc,
	)
	if IsDuplicate(err) {
		return fmt.Errorf("build %q: %w", id, ErrDuplicate)
	}
	return err
}

// ReplaceBuild replaces the synced fields of an existing build. The latest
// flag and the fields derived by the diff pass are left untouched.
func (db *DB) ReplaceBuild(ctx context.Context, id string, doc model.Document) error {
	row, err := newBuildRow(id, doc)
	if err != nil {
		return err
	}

	query := `
		UPDATE builds
		SET mastername = ?, server = ?, type = ?, status = ?, snap_now = ?, doc = ?
		WHERE id = ?
	`

	result, err := db.ExecContext(ctx, query,
		row.Mastername,
		row.Server,
		row.Type,
		row.Status,
		row.SnapNow,
		row.Doc,
		id,
	)
	if err != nil {
		return err
	}
	return expectOneRow(result, "build", id)
}

// GetBuild retrieves a full build document, including the latest flag and
// the diff fields when set
func (db *DB) GetBuild(ctx context.Context, id string) (model.Document, error) {
	var (
		raw        string
		latest     bool
		newStats   sql.NullString
		previousID sql.NullString
	)

	query := `
		SELECT doc, latest, new_stats, previous_id
		FROM builds
		WHERE id = ?
	`

	err := db.QueryRowContext(ctx, query, id).Scan(&raw, &latest, &newStats, &previousID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var doc model.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode build %q: %w", id, err)
	}
	if doc == nil {
		doc = model.Document{}
	}

	doc["_id"] = id
	if latest {
		doc["latest"] = true
	}
	if newStats.Valid {
		var stats map[string]any
		if err := json.Unmarshal([]byte(newStats.String), &stats); err != nil {
			return nil, fmt.Errorf("decode new_stats of build %q: %w", id, err)
		}
		doc["new_stats"] = stats
	}
	if previousID.Valid {
		doc["previous_id"] = previousID.String
	}

	return doc, nil
}

// GetBuildStatus returns the stored status of a build, or "" when the build
// has none
func (db *DB) GetBuildStatus(ctx context.Context, id string) (string, error) {
	var status sql.NullString

	err := db.QueryRowContext(ctx, "SELECT status FROM builds WHERE id = ?", id).Scan(&status)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return status.String, nil
}

// HasRunningBuilds reports whether any build of a master group on a server
// has a status that is not stopped
func (db *DB) HasRunningBuilds(ctx context.Context, mastername, server string) (bool, error) {
	query := `
		SELECT 1
		FROM builds
		WHERE mastername = ? AND server = ?
		  AND (status IS NULL OR substr(status, 1, 7) <> 'stopped')
		LIMIT 1
	`

	var one int
	err := db.QueryRowContext(ctx, query, mastername, server).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetLatestBuild moves the latest flag of a master group to id. A build
// that does not exist yet is not flagged.
func (db *DB) SetLatestBuild(ctx context.Context, mastername, server, id string) error {
	return db.WithTransaction(ctx, func(tx *Tx) error {
		clearQuery := `
			UPDATE builds
			SET latest = 0
			WHERE mastername = ? AND server = ? AND latest = 1 AND id <> ?
		`
		if _, err := tx.ExecContext(ctx, clearQuery, mastername, server, id); err != nil {
			return fmt.Errorf("clear latest of %s/%s: %w", server, mastername, err)
		}

		if _, err := tx.ExecContext(ctx, "UPDATE builds SET latest = 1 WHERE id = ?", id); err != nil {
			return fmt.Errorf("set latest %q: %w", id, err)
		}
		return nil
	})
}

// GetLatestBuildIDs returns the ids of the builds flagged latest for a
// master group on a server
func (db *DB) GetLatestBuildIDs(ctx context.Context, mastername, server string) ([]string, error) {
	query := `
		SELECT id
		FROM builds
		WHERE mastername = ? AND server = ? AND latest = 1
		ORDER BY id
	`
	return db.queryIDs(ctx, query, mastername, server)
}

// GetDiffCandidate returns the fields of a build the diff pass selects on
func (db *DB) GetDiffCandidate(ctx context.Context, id string) (*model.BuildSummary, error) {
	var (
		summary    = &model.BuildSummary{ID: id}
		mastername sql.NullString
		typ        sql.NullString
		status     sql.NullString
		snapNow    sql.NullInt64
	)

	query := `
		SELECT mastername, type, status, snap_now
		FROM builds
		WHERE id = ?
	`

	err := db.QueryRowContext(ctx, query, id).Scan(&mastername, &typ, &status, &snapNow)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	summary.Mastername = mastername.String
	summary.Type = typ.String
	summary.Status = status.String
	if snapNow.Valid {
		now := snapNow.Int64
		summary.SnapNow = &now
	}
	return summary, nil
}

// FindPreviousBuild returns the id of the most recent successfully finished
// build of the same master group and type that started before the given
// snap.now
func (db *DB) FindPreviousBuild(ctx context.Context, mastername, typ string, before int64) (string, error) {
	query := `
		SELECT id
		FROM builds
		WHERE mastername = ? AND type = ? AND status = ?
		  AND snap_now IS NOT NULL AND snap_now < ?
		ORDER BY snap_now DESC
		LIMIT 1
	`

	var id string
	err := db.QueryRowContext(ctx, query, mastername, typ, model.StatusDone, before).Scan(&id)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (db *DB) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
