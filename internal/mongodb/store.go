// Package mongodb is the MongoDB document store. It keeps the servers,
// builds and ports collections with build documents stored as fetched, and
// implements the same operations as the SQLite store.
//
// mgo has no context support; operations check the context before talking
// to the server and rely on the session socket timeout otherwise.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/livinlefevreloca/pkgstatus/internal/db"
	"github.com/livinlefevreloca/pkgstatus/internal/model"
)

// Collection names
const (
	ServersCollection    = "servers"
	BuildsCollection     = "builds"
	PortsCollection      = "ports"
	CycleStatsCollection = "cycle_stats"
)

const defaultDialTimeout = 10 * time.Second

// Keys maintained by the store rather than taken from fetched documents.
var managedBuildKeys = []string{"_id", "latest", "new_stats", "previous_id"}

// Store wraps an mgo session. Each operation runs on a copy of it.
type Store struct {
	session  *mgo.Session
	database string
}

// Open dials the server named by config.DSN, a mongodb:// URL. The database
// is config.Database, or the one in the URL when empty.
func Open(config db.Config) (*Store, error) {
	timeout := config.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	session, err := mgo.DialWithTimeout(config.DSN, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial mongodb: %w", err)
	}
	session.SetMode(mgo.Strong, true)
	if config.MaxOpenConns > 0 {
		session.SetPoolLimit(config.MaxOpenConns)
	}

	return &Store{session: session, database: config.Database}, nil
}

// Close releases the session
func (s *Store) Close() error {
	s.session.Close()
	return nil
}

// withCollection runs fn against a collection on a fresh session copy
func (s *Store) withCollection(ctx context.Context, name string, fn func(*mgo.Collection) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	session := s.session.Copy()
	defer session.Close()
	return translate(fn(session.DB(s.database).C(name)))
}

// translate maps mgo errors onto the db package sentinels
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case err == mgo.ErrNotFound:
		return db.ErrNotFound
	case mgo.IsDup(err):
		return fmt.Errorf("%v: %w", err, db.ErrDuplicate)
	default:
		return err
	}
}

// EnsureIndexes creates the indexes the sync and diff passes query on
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mgo.Index{
		{Key: []string{"mastername", "server", "status"}},
		{Key: []string{"mastername", "type", "status", "-snap.now"}},
		{Key: []string{"mastername", "server", "latest"}, Sparse: true},
	}
	err := s.withCollection(ctx, BuildsCollection, func(c *mgo.Collection) error {
		for _, index := range indexes {
			if err := c.EnsureIndex(index); err != nil {
				return fmt.Errorf("ensure index %v: %w", index.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return s.withCollection(ctx, CycleStatsCollection, func(c *mgo.Collection) error {
		return c.EnsureIndexKey("-start_time")
	})
}

// toDocument converts a decoded bson.M, including nested documents, into a
// plain Document
func toDocument(m bson.M) model.Document {
	doc := make(model.Document, len(m))
	for k, v := range m {
		doc[k] = plain(v)
	}
	return doc
}

func plain(v any) any {
	switch x := v.(type) {
	case bson.M:
		return map[string]any(toDocument(x))
	case map[string]any:
		return map[string]any(toDocument(bson.M(x)))
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = plain(item)
		}
		return out
	default:
		return v
	}
}

// storedBuild copies doc without the store-managed keys
func storedBuild(doc model.Document) bson.M {
	stored := make(bson.M, len(doc))
	for k, v := range doc {
		stored[k] = v
	}
	for _, k := range managedBuildKeys {
		delete(stored, k)
	}
	return stored
}
