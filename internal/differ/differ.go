// Package differ derives, for every finished build, the package results
// that are new compared to the closest earlier build of the same group and
// type.
package differ

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/livinlefevreloca/pkgstatus/internal/db"
	"github.com/livinlefevreloca/pkgstatus/internal/model"
)

// Differ runs the diff pass
type Differ struct {
	store  Store
	config Config
	logger *slog.Logger

	selfCompare map[string]bool
}

// NewDiffer creates a differ with the specified configuration
func NewDiffer(store Store, config Config, logger *slog.Logger) (*Differ, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	selfCompare := make(map[string]bool, len(config.SelfCompareTypes))
	for _, t := range config.SelfCompareTypes {
		selfCompare[t] = true
	}

	return &Differ{
		store:       store,
		config:      config,
		logger:      logger,
		selfCompare: selfCompare,
	}, nil
}

// GetConfig returns the differ configuration
func (d *Differ) GetConfig() Config {
	return d.config
}

// NewItems returns, per category, the origins in current that are absent
// from the same category of previous. Categories missing on either side
// count as empty. The result always holds every category, each sorted.
func NewItems(current, previous model.Origins) model.Origins {
	out := model.EmptyOrigins()
	for _, c := range model.Categories {
		seen := make(map[string]bool, len(previous[c]))
		for _, origin := range previous[c] {
			seen[origin] = true
		}

		for _, origin := range current[c] {
			if seen[origin] {
				continue
			}
			seen[origin] = true
			out[c] = append(out[c], origin)
		}
		sort.Strings(out[c])
	}
	return out
}

// Run diffs every port result set that has no diff yet. Only store errors
// and context cancellation abort the pass.
func (d *Differ) Run(ctx context.Context) (Result, error) {
	var result Result

	ids, err := d.store.ListUndiffedPorts(ctx)
	if err != nil {
		return result, fmt.Errorf("list undiffed ports: %w", err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := d.diffBuild(ctx, id, &result); err != nil {
			return result, fmt.Errorf("diff %s: %w", id, err)
		}
	}

	return result, nil
}

func (d *Differ) diffBuild(ctx context.Context, id string, result *Result) error {
	logger := d.logger.With("build_id", id)

	build, err := d.store.GetDiffCandidate(ctx, id)
	if db.IsNotFound(err) {
		// A later sync of the build rewrites its ports, which clears the mark.
		if err := d.store.MarkPortsExempt(ctx, id); err != nil {
			return fmt.Errorf("mark exempt: %w", err)
		}
		logger.Warn("port results without build, marked exempt")
		result.Exempt++
		return nil
	}
	if err != nil {
		return fmt.Errorf("load build: %w", err)
	}

	if build.Status != model.StatusDone || build.SnapNow == nil {
		if err := d.store.MarkPortsExempt(ctx, id); err != nil {
			return fmt.Errorf("mark exempt: %w", err)
		}
		logger.Debug("build not comparable, marked exempt", "status", build.Status)
		result.Exempt++
		return nil
	}

	if !d.selfCompare[build.Type] {
		// TODO: compare experimental builds against the baseline group once a
		// baseline mapping per master group is configurable.
		logger.Debug("no comparison policy for build type, deferring", "type", build.Type)
		result.Deferred++
		return nil
	}

	previousID, err := d.store.FindPreviousBuild(ctx, build.Mastername, build.Type, *build.SnapNow)
	if db.IsNotFound(err) {
		logger.Debug("no earlier build to compare against")
		result.NoBaseline++
		return nil
	}
	if err != nil {
		return fmt.Errorf("find previous build: %w", err)
	}

	current, err := d.store.GetPortOrigins(ctx, id)
	if err != nil {
		return fmt.Errorf("load port results: %w", err)
	}
	previous, err := d.store.GetPortOrigins(ctx, previousID)
	if db.IsNotFound(err) {
		// Predecessor without port results: nothing was recorded.
		previous = model.EmptyOrigins()
	} else if err != nil {
		return fmt.Errorf("load previous port results: %w", err)
	}

	newItems := NewItems(current, previous)
	if err := d.store.SaveDiff(ctx, id, previousID, newItems); err != nil {
		return fmt.Errorf("save diff: %w", err)
	}

	logger.Info("diffed build",
		"previous_id", previousID,
		"new_failed", len(newItems[model.CategoryFailed]),
		"new_skipped", len(newItems[model.CategorySkipped]),
		"new_ignored", len(newItems[model.CategoryIgnored]),
	)
	result.Diffed++
	return nil
}
