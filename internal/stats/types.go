package stats

import (
	"context"
	"errors"
	"time"

	"github.com/livinlefevreloca/pkgstatus/internal/differ"
	"github.com/livinlefevreloca/pkgstatus/internal/syncer"
)

// Cycle outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// Cycle holds the statistics of one sync and diff cycle
type Cycle struct {
	ID        string
	StartTime time.Time
	EndTime   time.Time
	Sync      syncer.Result
	Diff      differ.Result
	Err       error
}

// NewCycle starts the statistics of a cycle
func NewCycle(id string, start time.Time) *Cycle {
	return &Cycle{ID: id, StartTime: start}
}

// Finish records the end of the cycle and the error that ended it, if any
func (c *Cycle) Finish(end time.Time, err error) {
	c.EndTime = end
	c.Err = err
}

// Duration returns the wall time of a finished cycle
func (c *Cycle) Duration() time.Duration {
	if c.EndTime.IsZero() {
		return 0
	}
	return c.EndTime.Sub(c.StartTime)
}

// Outcome classifies how the cycle ended
func (c *Cycle) Outcome() string {
	switch {
	case c.Err == nil:
		return OutcomeSuccess
	case errors.Is(c.Err, context.Canceled), errors.Is(c.Err, context.DeadlineExceeded):
		return OutcomeCancelled
	default:
		return OutcomeFailed
	}
}
