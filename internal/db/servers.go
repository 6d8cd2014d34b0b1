package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/livinlefevreloca/pkgstatus/internal/model"
)

// GetServer retrieves a server record by its short hostname
func (db *DB) GetServer(ctx context.Context, id string) (*model.ServerRecord, error) {
	rec := &model.ServerRecord{}
	var masternames string

	query := `
		SELECT id, type, host, masternames
		FROM servers
		WHERE id = ?
	`

	err := db.QueryRowContext(ctx, query, id).Scan(&rec.ID, &rec.Type, &rec.Host, &masternames)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(masternames), &rec.MasterNames); err != nil {
		return nil, fmt.Errorf("decode masternames of server %q: %w", id, err)
	}
	if rec.MasterNames == nil {
		rec.MasterNames = make(map[string]model.MasterState)
	}

	return rec, nil
}

// InsertServer creates a new server record
func (db *DB) InsertServer(ctx context.Context, rec *model.ServerRecord) error {
	masternames, err := encodeMasterNames(rec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO servers (id, type, host, masternames)
		VALUES (?, ?, ?, ?)
	`

	_, err = db.ExecContext(ctx, query, rec.ID, rec.Type, rec.Host, masternames)
	if IsDuplicate(err) {
		return fmt.Errorf("server %q: %w", rec.ID, ErrDuplicate)
	}
	return err
}

// SaveServer replaces an existing server record
func (db *DB) SaveServer(ctx context.Context, rec *model.ServerRecord) error {
	masternames, err := encodeMasterNames(rec)
	if err != nil {
		return err
	}

	query := `
		UPDATE servers
		SET type = ?, host = ?, masternames = ?
		WHERE id = ?
	`

	result, err := db.ExecContext(ctx, query, rec.Type, rec.Host, masternames, rec.ID)
	if err != nil {
		return err
	}
	return expectOneRow(result, "server", rec.ID)
}

func encodeMasterNames(rec *model.ServerRecord) (string, error) {
	names := rec.MasterNames
	if names == nil {
		names = map[string]model.MasterState{}
	}
	raw, err := json.Marshal(names)
	if err != nil {
		return "", fmt.Errorf("encode masternames of server %q: %w", rec.ID, err)
	}
	return string(raw), nil
}
