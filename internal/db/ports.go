package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/livinlefevreloca/pkgstatus/internal/model"
)

// UpsertPorts stores the port results of a build, replacing any previous
// document and clearing its diff
func (db *DB) UpsertPorts(ctx context.Context, id string, doc model.Document) error {
	stored := make(model.Document, len(doc))
	for k, v := range doc {
		stored[k] = v
	}
	delete(stored, "_id")
	delete(stored, "new")

	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode ports %q: %w", id, err)
	}

	query := `
		INSERT INTO ports (id, doc, new_items)
		VALUES (?, ?, NULL)
		ON CONFLICT (id) DO UPDATE SET doc = excluded.doc, new_items = NULL
	`

	_, err = db.ExecContext(ctx, query, id, string(raw))
	return err
}

// GetPorts retrieves a port result document, including "new" once diffed
func (db *DB) GetPorts(ctx context.Context, id string) (model.Document, error) {
	var raw string
	var newItems sql.NullString

	err := db.QueryRowContext(ctx, "SELECT doc, new_items FROM ports WHERE id = ?", id).Scan(&raw, &newItems)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var doc model.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode ports %q: %w", id, err)
	}
	if doc == nil {
		doc = model.Document{}
	}
	doc["_id"] = id

	if newItems.Valid {
		var items map[string]any
		if err := json.Unmarshal([]byte(newItems.String), &items); err != nil {
			return nil, fmt.Errorf("decode new of ports %q: %w", id, err)
		}
		doc["new"] = items
	}
	return doc, nil
}

// GetPortOrigins returns the origins per result category of a build
func (db *DB) GetPortOrigins(ctx context.Context, id string) (model.Origins, error) {
	doc, err := db.GetPorts(ctx, id)
	if err != nil {
		return nil, err
	}
	return model.PortOrigins(doc), nil
}

// GetNewItems returns the diff stored on a port result document. ok is
// false while the build has not been diffed.
func (db *DB) GetNewItems(ctx context.Context, id string) (model.Origins, bool, error) {
	var newItems sql.NullString

	err := db.QueryRowContext(ctx, "SELECT new_items FROM ports WHERE id = ?", id).Scan(&newItems)
	if err == sql.ErrNoRows {
		return nil, false, ErrNotFound
	}
	if err != nil {
		return nil, false, err
	}
	if !newItems.Valid {
		return nil, false, nil
	}

	var items model.Origins
	if err := json.Unmarshal([]byte(newItems.String), &items); err != nil {
		return nil, false, fmt.Errorf("decode new of ports %q: %w", id, err)
	}
	return items, true, nil
}

// ListUndiffedPorts returns the ids of port result documents without a diff
func (db *DB) ListUndiffedPorts(ctx context.Context) ([]string, error) {
	query := `
		SELECT id
		FROM ports
		WHERE new_items IS NULL
		ORDER BY id
	`
	return db.queryIDs(ctx, query)
}

// MarkPortsExempt stores an empty diff so the build is never considered again
func (db *DB) MarkPortsExempt(ctx context.Context, id string) error {
	raw, err := json.Marshal(model.EmptyOrigins())
	if err != nil {
		return err
	}

	result, err := db.ExecContext(ctx, "UPDATE ports SET new_items = ? WHERE id = ?", string(raw), id)
	if err != nil {
		return err
	}
	return expectOneRow(result, "ports", id)
}

// SaveDiff stores the new items on the port results and the per-category
// counts plus the baseline id on the build, in a single transaction
func (db *DB) SaveDiff(ctx context.Context, id, previousID string, newItems model.Origins) error {
	rawItems, err := json.Marshal(newItems)
	if err != nil {
		return fmt.Errorf("encode new items of %q: %w", id, err)
	}
	rawStats, err := json.Marshal(newItems.Counts())
	if err != nil {
		return fmt.Errorf("encode new stats of %q: %w", id, err)
	}

	return db.WithTransaction(ctx, func(tx *Tx) error {
		result, err := tx.ExecContext(ctx, "UPDATE ports SET new_items = ? WHERE id = ?", string(rawItems), id)
		if err != nil {
			return err
		}
		if err := expectOneRow(result, "ports", id); err != nil {
			return err
		}

		result, err = tx.ExecContext(ctx,
			"UPDATE builds SET new_stats = ?, previous_id = ? WHERE id = ?",
			string(rawStats), previousID, id)
		if err != nil {
			return err
		}
		return expectOneRow(result, "build", id)
	})
}
