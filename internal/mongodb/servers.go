package mongodb

import (
	"context"

	"gopkg.in/mgo.v2"

	"github.com/livinlefevreloca/pkgstatus/internal/model"
)

// GetServer retrieves a server record by its short name
func (s *Store) GetServer(ctx context.Context, id string) (*model.ServerRecord, error) {
	var rec model.ServerRecord
	err := s.withCollection(ctx, ServersCollection, func(c *mgo.Collection) error {
		return c.FindId(id).One(&rec)
	})
	if err != nil {
		return nil, err
	}
	if rec.MasterNames == nil {
		rec.MasterNames = make(map[string]model.MasterState)
	}
	return &rec, nil
}

// InsertServer creates a server record
func (s *Store) InsertServer(ctx context.Context, rec *model.ServerRecord) error {
	return s.withCollection(ctx, ServersCollection, func(c *mgo.Collection) error {
		return c.Insert(rec)
	})
}

// SaveServer replaces an existing server record
func (s *Store) SaveServer(ctx context.Context, rec *model.ServerRecord) error {
	return s.withCollection(ctx, ServersCollection, func(c *mgo.Collection) error {
		return c.UpdateId(rec.ID, rec)
	})
}
