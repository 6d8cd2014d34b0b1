package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

// FakeStatusServer serves canned JSON documents the way a build server's
// status endpoint does and counts requests per path
type FakeStatusServer struct {
	mu     sync.Mutex
	docs   map[string]any
	status map[string]int
	hits   map[string]int
	server *httptest.Server
}

// NewFakeStatusServer starts a server that is closed when the test ends
func NewFakeStatusServer(t *testing.T) *FakeStatusServer {
	t.Helper()

	f := &FakeStatusServer{
		docs:   make(map[string]any),
		status: make(map[string]int),
		hits:   make(map[string]int),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

// Host returns host:port suitable for the remote client
func (f *FakeStatusServer) Host() string {
	u, _ := url.Parse(f.server.URL)
	return u.Host
}

// Set registers the document served at path
func (f *FakeStatusServer) Set(path string, doc any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[path] = doc
	delete(f.status, path)
}

// SetStatus makes path answer with the given HTTP status
func (f *FakeStatusServer) SetStatus(path string, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[path] = code
}

// Hits returns the number of requests served for path
func (f *FakeStatusServer) Hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

// DetailHits returns the number of build detail requests served
func (f *FakeStatusServer) DetailHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for path, count := range f.hits {
		if strings.Count(path, "/") == 4 {
			n += count
		}
	}
	return n
}

// ResetHits clears the request counters
func (f *FakeStatusServer) ResetHits() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits = make(map[string]int)
}

func (f *FakeStatusServer) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.URL.Path]++
	code, hasCode := f.status[r.URL.Path]
	doc, hasDoc := f.docs[r.URL.Path]
	f.mu.Unlock()

	if hasCode {
		w.WriteHeader(code)
		return
	}
	if !hasDoc {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if raw, ok := doc.(string); ok {
		w.Write([]byte(raw))
		return
	}
	json.NewEncoder(w).Encode(doc)
}
