// Package syncer mirrors build server status manifests into the store.
//
// Servers, master groups and builds are processed sequentially. A group is
// skipped when nothing in it can have changed, finished builds are never
// rewritten, and a failed fetch only drops the affected scope for this
// cycle.
package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/livinlefevreloca/pkgstatus/internal/buildid"
	"github.com/livinlefevreloca/pkgstatus/internal/db"
	"github.com/livinlefevreloca/pkgstatus/internal/model"
	"github.com/livinlefevreloca/pkgstatus/internal/remote"
)

// Syncer runs the sync pass
type Syncer struct {
	store   Store
	fetcher Fetcher
	config  Config
	logger  *slog.Logger

	qatTypes map[string]bool
}

// NewSyncer creates a syncer with the specified configuration
func NewSyncer(store Store, fetcher Fetcher, config Config, logger *slog.Logger) (*Syncer, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	qatTypes := make(map[string]bool, len(config.QATTypes))
	for _, t := range config.QATTypes {
		qatTypes[t] = true
	}

	return &Syncer{
		store:    store,
		fetcher:  fetcher,
		config:   config,
		logger:   logger,
		qatTypes: qatTypes,
	}, nil
}

// GetConfig returns the syncer configuration
func (s *Syncer) GetConfig() Config {
	return s.config
}

// BuildType maps a configured server type to the type stored on its builds
func (s *Syncer) BuildType(serverType string) string {
	if s.qatTypes[serverType] {
		return model.TypeQAT
	}
	return serverType
}

// Sync runs one pass over all servers in order. Only store errors and
// context cancellation abort the pass.
func (s *Syncer) Sync(ctx context.Context, servers []model.Server) (Result, error) {
	var result Result
	for _, server := range servers {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.SyncServer(ctx, server, &result); err != nil {
			return result, fmt.Errorf("sync %s: %w", server.Host, err)
		}
	}
	return result, nil
}

// SyncServer refreshes every master group of one server
func (s *Syncer) SyncServer(ctx context.Context, server model.Server, result *Result) error {
	short := buildid.ServerShort(server.Host)
	logger := s.logger.With("server", short)

	groups, ok := s.fetcher.FetchMasterGroups(ctx, server.Host)
	if !ok {
		logger.Info("no master groups this cycle, skipping server")
		result.ServersSkipped++
		result.FetchFailures++
		return nil
	}

	rec, err := s.store.GetServer(ctx, short)
	if db.IsNotFound(err) {
		rec = model.NewServerRecord(short, server)
		if err := s.store.InsertServer(ctx, rec); err != nil {
			return fmt.Errorf("insert server record: %w", err)
		}
		logger.Info("created server record", "host", server.Host, "type", server.Type)
	} else if err != nil {
		return fmt.Errorf("load server record: %w", err)
	}
	if rec.MasterNames == nil {
		rec.MasterNames = make(map[string]model.MasterState)
	}

	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.syncGroup(ctx, server, rec, group, result); err != nil {
			return fmt.Errorf("group %s: %w", group.Name, err)
		}
	}

	if err := s.store.SaveServer(ctx, rec); err != nil {
		return fmt.Errorf("save server record: %w", err)
	}

	result.ServersSynced++
	return nil
}

func (s *Syncer) syncGroup(ctx context.Context, server model.Server, rec *model.ServerRecord, group remote.MasterGroup, result *Result) error {
	logger := s.logger.With("server", rec.ID, "mastername", group.Name)

	previous, known := rec.MasterNames[group.Name]

	// Builds still in flight can change without the latest name moving.
	running := true
	if known {
		var err error
		running, err = s.store.HasRunningBuilds(ctx, group.Name, rec.ID)
		if err != nil {
			return fmt.Errorf("check running builds: %w", err)
		}
	}

	if !running && known && previous.Latest != "" && previous.Latest == group.LatestBuildName {
		logger.Debug("group unchanged, skipping", "latest", previous.Latest)
		result.GroupsSkipped++
		return nil
	}

	rec.MasterNames[group.Name] = model.MasterState{Latest: group.LatestBuildName}

	// Keep the old pointer so the group is not skipped next cycle.
	restore := func() {
		if known {
			rec.MasterNames[group.Name] = previous
		} else {
			delete(rec.MasterNames, group.Name)
		}
	}

	list, ok := s.fetcher.FetchBuildList(ctx, server.Host, group.Name)
	if !ok {
		restore()
		logger.Info("no build list this cycle, skipping group")
		result.FetchFailures++
		return nil
	}
	result.GroupsFetched++

	failed := false
	for _, buildname := range model.SortedKeys(list.Entries) {
		if err := ctx.Err(); err != nil {
			return err
		}
		fetched, err := s.syncBuild(ctx, server, rec.ID, group, buildname, list.Entries[buildname], result)
		if err != nil {
			return fmt.Errorf("build %s: %w", buildname, err)
		}
		if !fetched {
			failed = true
		}
	}
	if failed {
		restore()
		logger.Info("group incomplete, fetching again next cycle")
	}

	// Applied last so the flagged build has been stored.
	if list.LatestName != "" {
		id := buildid.Encode(group.Setname, group.Ptname, group.Jailname, list.LatestName, server.Host)
		if err := s.store.SetLatestBuild(ctx, group.Name, rec.ID, id); err != nil {
			return fmt.Errorf("set latest build: %w", err)
		}
		logger.Debug("set latest build", "build_id", id)
	}

	return nil
}

// syncBuild reports false when the build detail could not be fetched.
func (s *Syncer) syncBuild(ctx context.Context, server model.Server, short string, group remote.MasterGroup, buildname string, entry remote.BuildEntry, result *Result) (bool, error) {
	logger := s.logger.With("server", short, "mastername", group.Name, "buildname", buildname)

	if entry.Status == nil {
		logger.Debug("legacy build without status, skipping")
		result.BuildsLegacy++
		return true, nil
	}

	id := buildid.Encode(group.Setname, group.Ptname, group.Jailname, buildname, server.Host)

	exists := true
	status, err := s.store.GetBuildStatus(ctx, id)
	if db.IsNotFound(err) {
		exists = false
	} else if err != nil {
		return false, fmt.Errorf("load build status: %w", err)
	}

	if exists && model.IsFinalized(status) {
		result.BuildsImmutable++
		return true, nil
	}

	detail, ok := s.fetcher.FetchBuildDetail(ctx, server.Host, group.Name, buildname)
	if !ok {
		logger.Info("no build detail this cycle, skipping build")
		result.FetchFailures++
		return false, nil
	}

	if ports := NormalizeBuild(detail); ports != nil {
		if err := s.store.UpsertPorts(ctx, id, ports); err != nil {
			return false, fmt.Errorf("upsert ports: %w", err)
		}
	}

	detail["server"] = short
	detail["type"] = s.BuildType(server.Type)
	detail["mastername"] = group.Name

	if exists {
		logger.Info("updating build", "build_id", id)
		if err := s.store.ReplaceBuild(ctx, id, detail); err != nil {
			return false, fmt.Errorf("replace build: %w", err)
		}
		result.BuildsUpdated++
		return true, nil
	}

	logger.Info("inserting build", "build_id", id)
	if err := s.store.InsertBuild(ctx, id, detail); err != nil {
		return false, fmt.Errorf("insert build: %w", err)
	}
	result.BuildsInserted++
	return true, nil
}
