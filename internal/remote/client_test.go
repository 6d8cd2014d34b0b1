package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/livinlefevreloca/pkgstatus/internal/testutil"
)

func newTestClient(t *testing.T, logger *testutil.TestLogger) *Client {
	t.Helper()
	client, err := NewClient(DefaultConfig(), logger.Logger())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestFetchMasterGroups(t *testing.T) {
	srv := testutil.NewFakeStatusServer(t)
	srv.Set("/data/.data.json", map[string]any{
		"masternames": map[string]any{
			"130amd64-default": map[string]any{
				"latest":   map[string]any{"buildname": "b2"},
				"setname":  "",
				"ptname":   "default",
				"jailname": "130amd64",
			},
			"122i386-default-qat": map[string]any{
				"latest":   map[string]any{"buildname": "q1"},
				"setname":  "qat",
				"ptname":   "default",
				"jailname": "122i386",
			},
		},
	})

	client := newTestClient(t, testutil.NewTestLogger())
	groups, ok := client.FetchMasterGroups(context.Background(), srv.Host())
	if !ok {
		t.Fatal("expected master groups")
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	// Sorted by name
	if groups[0].Name != "122i386-default-qat" || groups[1].Name != "130amd64-default" {
		t.Errorf("unexpected order: %s, %s", groups[0].Name, groups[1].Name)
	}
	if groups[1].LatestBuildName != "b2" || groups[1].Jailname != "130amd64" || groups[1].Setname != "" {
		t.Errorf("unexpected group: %+v", groups[1])
	}
}

func TestFetchMasterGroups_Absent(t *testing.T) {
	tests := []struct {
		name  string
		setup func(srv *testutil.FakeStatusServer)
	}{
		{"not found", func(srv *testutil.FakeStatusServer) {}},
		{"server error", func(srv *testutil.FakeStatusServer) {
			srv.SetStatus("/data/.data.json", http.StatusInternalServerError)
		}},
		{"malformed json", func(srv *testutil.FakeStatusServer) {
			srv.Set("/data/.data.json", "{not json")
		}},
		{"missing masternames", func(srv *testutil.FakeStatusServer) {
			srv.Set("/data/.data.json", map[string]any{"other": 1})
		}},
		{"not an object", func(srv *testutil.FakeStatusServer) {
			srv.Set("/data/.data.json", "[1,2,3]")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testutil.NewFakeStatusServer(t)
			tt.setup(srv)
			logger := testutil.NewTestLogger()
			client := newTestClient(t, logger)

			if _, ok := client.FetchMasterGroups(context.Background(), srv.Host()); ok {
				t.Error("expected absent result")
			}
			if !logger.HasWarning() {
				t.Error("expected a warning to be logged")
			}
		})
	}
}

func TestFetchMasterGroups_ConnectionError(t *testing.T) {
	logger := testutil.NewTestLogger()
	client := newTestClient(t, logger)

	// Port 1 on loopback refuses connections.
	if _, ok := client.FetchMasterGroups(context.Background(), "127.0.0.1:1"); ok {
		t.Error("expected absent result on connection error")
	}
	if !logger.HasMessage("connection error fetching") {
		t.Error("expected connection error to be logged")
	}
}

func TestFetchMasterGroups_CancelledContext(t *testing.T) {
	srv := testutil.NewFakeStatusServer(t)
	srv.Set("/data/.data.json", map[string]any{"masternames": map[string]any{}})

	config := DefaultConfig()
	config.Timeout = 50 * time.Millisecond
	client, err := NewClient(config, testutil.NewTestLogger().Logger())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	// A cancelled request is absent data, not a fatal error.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := client.FetchMasterGroups(ctx, srv.Host()); ok {
		t.Error("expected absent result for cancelled request")
	}
	if srv.Hits("/data/.data.json") != 0 {
		t.Error("expected no request to reach the server")
	}
}

func TestFetchMasterGroups_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	logger := testutil.NewTestLogger()
	config := DefaultConfig()
	config.Timeout = 50 * time.Millisecond
	client, err := NewClient(config, logger.Logger())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, ok := client.FetchMasterGroups(context.Background(), srv.Listener.Addr().String()); ok {
		t.Error("expected absent result on timeout")
	}
	if !logger.HasMessage("timeout fetching") {
		t.Error("expected timeout to be logged")
	}
}

func TestFetchBuildList(t *testing.T) {
	srv := testutil.NewFakeStatusServer(t)
	srv.Set("/data/130amd64-default/.data.json", map[string]any{
		"builds": map[string]any{
			"latest": "b2",
			"b1":     map[string]any{"status": "stopped:done:"},
			"b2":     map[string]any{"status": "parallel_build:"},
			"legacy": map[string]any{"buildname": "legacy"},
		},
	})

	client := newTestClient(t, testutil.NewTestLogger())
	list, ok := client.FetchBuildList(context.Background(), srv.Host(), "130amd64-default")
	if !ok {
		t.Fatal("expected build list")
	}
	if list.LatestName != "b2" {
		t.Errorf("expected latest b2, got %q", list.LatestName)
	}
	if len(list.Entries) != 3 {
		t.Fatalf("expected 3 entries (latest split out), got %d", len(list.Entries))
	}
	if s := list.Entries["b1"].Status; s == nil || *s != "stopped:done:" {
		t.Errorf("unexpected b1 status: %v", s)
	}
	if list.Entries["legacy"].Status != nil {
		t.Error("expected legacy entry without status")
	}
}

func TestFetchBuildList_MissingBuilds(t *testing.T) {
	srv := testutil.NewFakeStatusServer(t)
	srv.Set("/data/m/.data.json", map[string]any{"mastername": "m"})

	client := newTestClient(t, testutil.NewTestLogger())
	if _, ok := client.FetchBuildList(context.Background(), srv.Host(), "m"); ok {
		t.Error("expected absent result without builds key")
	}
}

func TestFetchBuildDetail(t *testing.T) {
	srv := testutil.NewFakeStatusServer(t)
	srv.Set("/data/m/b1/.data.json", map[string]any{
		"buildname": "b1",
		"status":    "stopped:done:",
		"stats":     map[string]any{"queued": "10"},
	})
	srv.Set("/data/m/b2/.data.json", map[string]any{"status": "stopped:done:"})

	client := newTestClient(t, testutil.NewTestLogger())

	doc, ok := client.FetchBuildDetail(context.Background(), srv.Host(), "m", "b1")
	if !ok {
		t.Fatal("expected build detail")
	}
	if doc["buildname"] != "b1" {
		t.Errorf("unexpected buildname %v", doc["buildname"])
	}

	if _, ok := client.FetchBuildDetail(context.Background(), srv.Host(), "m", "b2"); ok {
		t.Error("expected detail without buildname to be absent")
	}
}

func TestConfigValidate(t *testing.T) {
	config := DefaultConfig()
	if err := config.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	config.Timeout = 0
	if err := config.Validate(); err == nil {
		t.Error("expected error for zero timeout")
	}

	config = DefaultConfig()
	config.Scheme = "ftp"
	if err := config.Validate(); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}
