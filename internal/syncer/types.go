package syncer

import (
	"context"

	"github.com/livinlefevreloca/pkgstatus/internal/model"
	"github.com/livinlefevreloca/pkgstatus/internal/remote"
)

// Fetcher reads status manifests from a build server. ok is false when no
// data could be read this cycle.
type Fetcher interface {
	FetchMasterGroups(ctx context.Context, host string) ([]remote.MasterGroup, bool)
	FetchBuildList(ctx context.Context, host, mastername string) (*remote.BuildList, bool)
	FetchBuildDetail(ctx context.Context, host, mastername, buildname string) (model.Document, bool)
}

// Store is the persistence the sync pass needs. Lookups of missing records
// return an error matching db.IsNotFound.
type Store interface {
	GetServer(ctx context.Context, id string) (*model.ServerRecord, error)
	InsertServer(ctx context.Context, rec *model.ServerRecord) error
	SaveServer(ctx context.Context, rec *model.ServerRecord) error

	HasRunningBuilds(ctx context.Context, mastername, server string) (bool, error)
	SetLatestBuild(ctx context.Context, mastername, server, id string) error
	GetBuildStatus(ctx context.Context, id string) (string, error)
	InsertBuild(ctx context.Context, id string, doc model.Document) error
	ReplaceBuild(ctx context.Context, id string, doc model.Document) error

	UpsertPorts(ctx context.Context, id string, doc model.Document) error
}

// Result counts what one sync pass did
type Result struct {
	ServersSynced   int
	ServersSkipped  int
	GroupsFetched   int
	GroupsSkipped   int
	BuildsInserted  int
	BuildsUpdated   int
	BuildsImmutable int
	BuildsLegacy    int
	FetchFailures   int
}
