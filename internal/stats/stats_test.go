package stats

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/livinlefevreloca/pkgstatus/internal/db"
	"github.com/livinlefevreloca/pkgstatus/internal/differ"
	"github.com/livinlefevreloca/pkgstatus/internal/syncer"
	"github.com/livinlefevreloca/pkgstatus/internal/testutil"
)

// =============================================================================
// Test Helpers
// =============================================================================

// MockDB records written cycles and can be told to fail
type MockDB struct {
	cycles []*Cycle
	fail   bool
}

func (m *MockDB) WriteCycleStats(ctx context.Context, c *Cycle) error {
	if m.fail {
		return fmt.Errorf("simulated database failure")
	}
	m.cycles = append(m.cycles, c)
	return nil
}

func makeCycle(err error) *Cycle {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCycle("cycle-1", start)
	c.Sync = syncer.Result{
		ServersSynced:  2,
		ServersSkipped: 1,
		GroupsFetched:  3,
		GroupsSkipped:  4,
		BuildsInserted: 5,
		BuildsUpdated:  1,
		FetchFailures:  2,
	}
	c.Diff = differ.Result{Diffed: 3, Exempt: 1, NoBaseline: 1}
	c.Finish(start.Add(90*time.Second), err)
	return c
}

// =============================================================================
// Cycle Tests
// =============================================================================

func TestCycle_Outcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"success", nil, OutcomeSuccess},
		{"failed", errors.New("store down"), OutcomeFailed},
		{"cancelled", fmt.Errorf("sync: %w", context.Canceled), OutcomeCancelled},
		{"deadline", context.DeadlineExceeded, OutcomeCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := makeCycle(tt.err).Outcome(); got != tt.want {
				t.Errorf("Outcome() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCycle_Duration(t *testing.T) {
	if d := makeCycle(nil).Duration(); d != 90*time.Second {
		t.Errorf("expected 90s, got %v", d)
	}
	if d := NewCycle("x", time.Now()).Duration(); d != 0 {
		t.Errorf("expected 0 for an unfinished cycle, got %v", d)
	}
}

// =============================================================================
// Collector Tests
// =============================================================================

func TestCollector_Record(t *testing.T) {
	mock := &MockDB{}
	logger := testutil.NewTestLogger()
	reg := prom.NewRegistry()
	recorder := NewPrometheusRecorder(reg)
	collector := NewCollector(DefaultConfig(), mock, recorder, logger.Logger())

	if err := collector.Record(context.Background(), makeCycle(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mock.cycles) != 1 || mock.cycles[0].ID != "cycle-1" {
		t.Errorf("expected cycle to be written, got %v", mock.cycles)
	}
	if !logger.HasMessage("cycle complete") {
		t.Error("expected cycle summary to be logged")
	}

	if v := promtest.ToFloat64(recorder.cycles.WithLabelValues(OutcomeSuccess)); v != 1 {
		t.Errorf("expected 1 successful cycle, got %v", v)
	}
	if v := promtest.ToFloat64(recorder.builds.WithLabelValues("inserted")); v != 5 {
		t.Errorf("expected 5 inserted builds, got %v", v)
	}
	if v := promtest.ToFloat64(recorder.fetchFailures); v != 2 {
		t.Errorf("expected 2 fetch failures, got %v", v)
	}
	if v := promtest.ToFloat64(recorder.ports.WithLabelValues("diffed")); v != 3 {
		t.Errorf("expected 3 diffed port results, got %v", v)
	}
}

func TestCollector_WriteFailure(t *testing.T) {
	mock := &MockDB{fail: true}
	collector := NewCollector(DefaultConfig(), mock, nil, testutil.NewTestLogger().Logger())

	if err := collector.Record(context.Background(), makeCycle(nil)); err == nil {
		t.Error("expected write failure to be returned")
	}
}

func TestCollector_SkipsWrite(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		err    error
	}{
		{"persist disabled", Config{Persist: false}, nil},
		{"cancelled cycle", DefaultConfig(), context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockDB{}
			collector := NewCollector(tt.config, mock, nil, testutil.NewTestLogger().Logger())
			if err := collector.Record(context.Background(), makeCycle(tt.err)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(mock.cycles) != 0 {
				t.Errorf("expected no write, got %d", len(mock.cycles))
			}
		})
	}
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var recorder *PrometheusRecorder
	recorder.ObserveCycle(makeCycle(nil))
}

// TestNewPrometheusRecorder_Registration verifies that each registry holds one
// set of cycle metrics and that recorders on separate registries are independent.
func TestNewPrometheusRecorder_Registration(t *testing.T) {
	first := NewPrometheusRecorder(prom.NewRegistry())
	second := NewPrometheusRecorder(prom.NewRegistry())

	first.ObserveCycle(makeCycle(nil))
	if v := promtest.ToFloat64(second.cycles.WithLabelValues(OutcomeSuccess)); v != 0 {
		t.Errorf("expected separate registries not to share counters, got %v", v)
	}

	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg)
	defer func() {
		if recover() == nil {
			t.Error("expected registering twice on one registry to panic")
		}
	}()
	NewPrometheusRecorder(reg)
}

// =============================================================================
// DBAdapter Tests
// =============================================================================

func TestDBAdapter_WritesRecord(t *testing.T) {
	store := testutil.NewTestStore(t)
	adapter := NewDBAdapter(store)
	ctx := context.Background()

	if err := adapter.WriteCycleStats(ctx, makeCycle(nil)); err != nil {
		t.Fatalf("failed to write cycle stats: %v", err)
	}

	recent, err := store.GetRecentCycleStats(ctx, 10)
	if err != nil {
		t.Fatalf("failed to read cycle stats: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recent))
	}

	got := recent[0]
	want := toRecord(makeCycle(nil))
	if got.CycleID != want.CycleID || got.GroupsSkipped != 4 || got.PortsDiffed != 3 || got.PortsNoBaseline != 1 {
		t.Errorf("unexpected record %+v", got)
	}
	if !got.EndTime.Equal(want.EndTime) {
		t.Errorf("expected end time %v, got %v", want.EndTime, got.EndTime)
	}
}

var _ CycleStatsStore = (*db.DB)(nil)
