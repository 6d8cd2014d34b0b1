package mongodb

import (
	"context"

	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/livinlefevreloca/pkgstatus/internal/model"
)

// InsertBuild stores a new build document
func (s *Store) InsertBuild(ctx context.Context, id string, doc model.Document) error {
	stored := storedBuild(doc)
	stored["_id"] = id

	return s.withCollection(ctx, BuildsCollection, func(c *mgo.Collection) error {
		return c.Insert(stored)
	})
}

// ReplaceBuild replaces the synced fields of an existing build, carrying
// over the latest flag and the diff fields
func (s *Store) ReplaceBuild(ctx context.Context, id string, doc model.Document) error {
	return s.withCollection(ctx, BuildsCollection, func(c *mgo.Collection) error {
		var managed bson.M
		selector := bson.M{"latest": 1, "new_stats": 1, "previous_id": 1}
		if err := c.FindId(id).Select(selector).One(&managed); err != nil {
			return err
		}

		stored := storedBuild(doc)
		for _, k := range managedBuildKeys {
			if v, ok := managed[k]; ok && k != "_id" {
				stored[k] = v
			}
		}
		return c.UpdateId(id, stored)
	})
}

// GetBuild retrieves a full build document
func (s *Store) GetBuild(ctx context.Context, id string) (model.Document, error) {
	var raw bson.M
	err := s.withCollection(ctx, BuildsCollection, func(c *mgo.Collection) error {
		return c.FindId(id).One(&raw)
	})
	if err != nil {
		return nil, err
	}
	return toDocument(raw), nil
}

// GetBuildStatus returns the stored status of a build, or "" when the build
// has none
func (s *Store) GetBuildStatus(ctx context.Context, id string) (string, error) {
	var build struct {
		Status string `bson:"status"`
	}
	err := s.withCollection(ctx, BuildsCollection, func(c *mgo.Collection) error {
		return c.FindId(id).Select(bson.M{"status": 1}).One(&build)
	})
	if err != nil {
		return "", err
	}
	return build.Status, nil
}

// HasRunningBuilds reports whether any build of a master group on a server
// has a status that is not stopped
func (s *Store) HasRunningBuilds(ctx context.Context, mastername, server string) (bool, error) {
	query := bson.M{
		"mastername": mastername,
		"server":     server,
		"status":     bson.M{"$not": bson.RegEx{Pattern: "^" + model.StatusStoppedPrefix}},
	}

	var n int
	err := s.withCollection(ctx, BuildsCollection, func(c *mgo.Collection) error {
		var err error
		n, err = c.Find(query).Limit(1).Count()
		return err
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetLatestBuild moves the latest flag of a master group to id. A build
// that does not exist yet is not flagged.
func (s *Store) SetLatestBuild(ctx context.Context, mastername, server, id string) error {
	return s.withCollection(ctx, BuildsCollection, func(c *mgo.Collection) error {
		others := bson.M{
			"mastername": mastername,
			"server":     server,
			"latest":     true,
			"_id":        bson.M{"$ne": id},
		}
		if _, err := c.UpdateAll(others, bson.M{"$unset": bson.M{"latest": ""}}); err != nil {
			return err
		}

		err := c.UpdateId(id, bson.M{"$set": bson.M{"latest": true}})
		if err == mgo.ErrNotFound {
			return nil
		}
		return err
	})
}

// GetLatestBuildIDs returns the ids of the builds flagged latest for a
// master group on a server
func (s *Store) GetLatestBuildIDs(ctx context.Context, mastername, server string) ([]string, error) {
	query := bson.M{"mastername": mastername, "server": server, "latest": true}
	return s.queryIDs(ctx, BuildsCollection, query)
}

// GetDiffCandidate returns the fields of a build the diff pass selects on
func (s *Store) GetDiffCandidate(ctx context.Context, id string) (*model.BuildSummary, error) {
	var raw bson.M
	err := s.withCollection(ctx, BuildsCollection, func(c *mgo.Collection) error {
		selector := bson.M{"mastername": 1, "type": 1, "status": 1, "snap.now": 1}
		return c.FindId(id).Select(selector).One(&raw)
	})
	if err != nil {
		return nil, err
	}

	doc := toDocument(raw)
	summary := &model.BuildSummary{ID: id}
	summary.Mastername, _ = model.StringField(doc, "mastername")
	summary.Type, _ = model.StringField(doc, "type")
	summary.Status, _ = model.StringField(doc, "status")
	if now, ok := model.SnapNow(doc); ok {
		summary.SnapNow = &now
	}
	return summary, nil
}

// FindPreviousBuild returns the id of the most recent successfully finished
// build of the same master group and type that started before the given
// snap.now
func (s *Store) FindPreviousBuild(ctx context.Context, mastername, typ string, before int64) (string, error) {
	query := bson.M{
		"mastername": mastername,
		"type":       typ,
		"status":     model.StatusDone,
		"snap.now":   bson.M{"$lt": before},
	}

	var build struct {
		ID string `bson:"_id"`
	}
	err := s.withCollection(ctx, BuildsCollection, func(c *mgo.Collection) error {
		return c.Find(query).Select(bson.M{"_id": 1}).Sort("-snap.now").Limit(1).One(&build)
	})
	if err != nil {
		return "", err
	}
	return build.ID, nil
}

func (s *Store) queryIDs(ctx context.Context, collection string, query bson.M) ([]string, error) {
	var docs []struct {
		ID string `bson:"_id"`
	}
	err := s.withCollection(ctx, collection, func(c *mgo.Collection) error {
		return c.Find(query).Select(bson.M{"_id": 1}).Sort("_id").All(&docs)
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}
