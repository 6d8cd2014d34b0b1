package scheduler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/livinlefevreloca/pkgstatus/internal/stats"
	"github.com/livinlefevreloca/pkgstatus/internal/testutil"
)

// =============================================================================
// Test Helpers
// =============================================================================

// fakeRunner counts cycles and tracks how many run at once
type fakeRunner struct {
	mu        sync.Mutex
	runs      int
	active    int
	maxActive int
	delay     time.Duration
}

func (f *fakeRunner) Run(ctx context.Context) (*stats.Cycle, error) {
	f.mu.Lock()
	f.runs++
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.mu.Unlock()

	time.Sleep(f.delay)

	f.mu.Lock()
	f.active--
	f.mu.Unlock()
	return stats.NewCycle("test", time.Now()), nil
}

func (f *fakeRunner) counts() (runs, maxActive int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs, f.maxActive
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

// =============================================================================
// Configuration Tests
// =============================================================================

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"zero interval", Config{Interval: 0}, true},
		{"negative interval", Config{Interval: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateMetricsConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  MetricsConfig
		wantErr bool
	}{
		{"defaults", DefaultMetricsConfig(), false},
		{"disabled ignores port", MetricsConfig{Enabled: false, Port: -1}, false},
		{"enabled with bad port", MetricsConfig{Enabled: true, Port: 70000}, true},
		{"enabled", MetricsConfig{Enabled: true, Address: "0.0.0.0", Port: 9273}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateMetricsConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateMetricsConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if addr := DefaultMetricsConfig().Addr(); addr != "127.0.0.1:9273" {
		t.Errorf("unexpected default address %s", addr)
	}
}

// =============================================================================
// Scheduler Tests
// =============================================================================

// TestScheduler_RunsCyclesPeriodically verifies that cycles start immediately and repeat.
func TestScheduler_RunsCyclesPeriodically(t *testing.T) {
	runner := &fakeRunner{}
	logger := testutil.NewTestLogger()

	s, err := NewScheduler(Config{Interval: 50 * time.Millisecond, RunOnStart: true}, runner, logger.Logger())
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}

	s.Start(context.Background())
	waitFor(t, 2*time.Second, func() bool {
		runs, _ := runner.counts()
		return runs >= 3
	})
	if err := s.Stop(); err != nil {
		t.Fatalf("failed to stop scheduler: %v", err)
	}

	if s.Cycles() < 3 {
		t.Errorf("expected at least 3 cycles, got %d", s.Cycles())
	}
	if !logger.HasMessage("starting scheduler") || !logger.HasMessage("stopping scheduler") {
		t.Error("expected lifecycle to be logged")
	}
}

// TestScheduler_CyclesNeverOverlap verifies that an overrunning cycle is not run concurrently.
func TestScheduler_CyclesNeverOverlap(t *testing.T) {
	runner := &fakeRunner{delay: 120 * time.Millisecond}
	logger := testutil.NewTestLogger()

	s, err := NewScheduler(Config{Interval: 20 * time.Millisecond, RunOnStart: true}, runner, logger.Logger())
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}

	s.Start(context.Background())
	waitFor(t, 3*time.Second, func() bool {
		runs, _ := runner.counts()
		return runs >= 2
	})
	if err := s.Stop(); err != nil {
		t.Fatalf("failed to stop scheduler: %v", err)
	}

	if _, maxActive := runner.counts(); maxActive != 1 {
		t.Errorf("expected at most one running cycle, saw %d", maxActive)
	}
}

// TestScheduler_RunStopsOnCancel verifies that Run returns once its context is cancelled.
func TestScheduler_RunStopsOnCancel(t *testing.T) {
	runner := &fakeRunner{}
	s, err := NewScheduler(Config{Interval: time.Hour, RunOnStart: true}, runner, testutil.NewTestLogger().Logger())
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitFor(t, 2*time.Second, func() bool {
		runs, _ := runner.counts()
		return runs == 1
	})
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewScheduler_InvalidConfig(t *testing.T) {
	if _, err := NewScheduler(Config{}, &fakeRunner{}, testutil.NewTestLogger().Logger()); err == nil {
		t.Error("expected error for zero interval")
	}
}

// =============================================================================
// Metrics Tests
// =============================================================================

func TestMetricsServer_ServesCycleMetrics(t *testing.T) {
	reg := NewRegistry()
	recorder := stats.NewPrometheusRecorder(reg)

	c := stats.NewCycle("c1", time.Now())
	c.Sync.BuildsInserted = 4
	c.Finish(time.Now(), nil)
	recorder.ObserveCycle(c)

	m, err := NewMetricsServer(DefaultMetricsConfig(), reg, testutil.NewTestLogger().Logger())
	if err != nil {
		t.Fatalf("failed to create metrics server: %v", err)
	}
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`pkgstatus_builds_total{result="inserted"} 4`,
		`pkgstatus_cycles_total{outcome="success"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected metrics to contain %q", want)
		}
	}

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("failed to fetch healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestMetricsServer_StartAndShutdown(t *testing.T) {
	// Port 0 lets the listener pick a free port.
	config := MetricsConfig{Address: "127.0.0.1", Port: 0}
	m, err := NewMetricsServer(config, NewRegistry(), testutil.NewTestLogger().Logger())
	if err != nil {
		t.Fatalf("failed to create metrics server: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if err := m.Shutdown(context.Background()); err != nil {
		t.Errorf("failed to shut down: %v", err)
	}
}
