package mongodb

import (
	"context"

	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/livinlefevreloca/pkgstatus/internal/model"
)

// UpsertPorts stores the port results of a build, replacing any previous
// document and its diff
func (s *Store) UpsertPorts(ctx context.Context, id string, doc model.Document) error {
	stored := make(bson.M, len(doc))
	for k, v := range doc {
		stored[k] = v
	}
	delete(stored, "_id")
	delete(stored, "new")

	return s.withCollection(ctx, PortsCollection, func(c *mgo.Collection) error {
		_, err := c.UpsertId(id, stored)
		return err
	})
}

// GetPorts retrieves a port result document
func (s *Store) GetPorts(ctx context.Context, id string) (model.Document, error) {
	var raw bson.M
	err := s.withCollection(ctx, PortsCollection, func(c *mgo.Collection) error {
		return c.FindId(id).One(&raw)
	})
	if err != nil {
		return nil, err
	}
	return toDocument(raw), nil
}

// GetPortOrigins returns the origins per result category of a build
func (s *Store) GetPortOrigins(ctx context.Context, id string) (model.Origins, error) {
	doc, err := s.GetPorts(ctx, id)
	if err != nil {
		return nil, err
	}
	return model.PortOrigins(doc), nil
}

// GetNewItems returns the diff stored on a port result document. ok is
// false while the build has not been diffed.
func (s *Store) GetNewItems(ctx context.Context, id string) (model.Origins, bool, error) {
	var ports struct {
		New model.Origins `bson:"new"`
	}
	err := s.withCollection(ctx, PortsCollection, func(c *mgo.Collection) error {
		return c.FindId(id).Select(bson.M{"new": 1}).One(&ports)
	})
	if err != nil {
		return nil, false, err
	}
	return ports.New, ports.New != nil, nil
}

// ListUndiffedPorts returns the ids of port result documents without a diff
func (s *Store) ListUndiffedPorts(ctx context.Context) ([]string, error) {
	return s.queryIDs(ctx, PortsCollection, bson.M{"new": bson.M{"$exists": false}})
}

// MarkPortsExempt stores an empty diff so the build is never considered again
func (s *Store) MarkPortsExempt(ctx context.Context, id string) error {
	return s.withCollection(ctx, PortsCollection, func(c *mgo.Collection) error {
		return c.UpdateId(id, bson.M{"$set": bson.M{"new": model.EmptyOrigins()}})
	})
}

// SaveDiff stores the per-category counts and baseline id on the build,
// then the new items on the port results. The ports document is written
// last: it is what the next scan selects on, so an interrupted save is
// redone.
func (s *Store) SaveDiff(ctx context.Context, id, previousID string, newItems model.Origins) error {
	err := s.withCollection(ctx, BuildsCollection, func(c *mgo.Collection) error {
		return c.UpdateId(id, bson.M{"$set": bson.M{
			"new_stats":   newItems.Counts(),
			"previous_id": previousID,
		}})
	})
	if err != nil {
		return err
	}

	return s.withCollection(ctx, PortsCollection, func(c *mgo.Collection) error {
		return c.UpdateId(id, bson.M{"$set": bson.M{"new": newItems}})
	})
}
