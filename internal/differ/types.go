package differ

import (
	"context"

	"github.com/livinlefevreloca/pkgstatus/internal/model"
)

// Store is the persistence the diff pass needs. Lookups of missing records
// return an error matching db.IsNotFound.
type Store interface {
	ListUndiffedPorts(ctx context.Context) ([]string, error)
	GetDiffCandidate(ctx context.Context, id string) (*model.BuildSummary, error)
	FindPreviousBuild(ctx context.Context, mastername, typ string, before int64) (string, error)
	GetPortOrigins(ctx context.Context, id string) (model.Origins, error)
	MarkPortsExempt(ctx context.Context, id string) error
	SaveDiff(ctx context.Context, id, previousID string, newItems model.Origins) error
}

// Result counts what one diff pass did
type Result struct {
	// Builds compared against a predecessor
	Diffed int
	// Legacy or unsuccessful builds, and port results without a build,
	// given an empty diff
	Exempt int
	// Builds whose type has no comparison policy
	Deferred int
	// Builds without an earlier comparable build
	NoBaseline int
}
