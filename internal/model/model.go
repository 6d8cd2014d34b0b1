// Package model holds the documents shared by the sync and diff passes:
// server records, build and port result documents, and the origin sets
// compared between builds.
package model

import (
	"sort"
	"strconv"
	"strings"
)

// Document is a schemaless build or port result document as served by the
// remote and stored by the document stores.
type Document map[string]any

// Result categories tracked per build.
const (
	CategoryBuilt   = "built"
	CategoryFailed  = "failed"
	CategorySkipped = "skipped"
	CategoryIgnored = "ignored"
)

// Categories lists the result categories in a fixed order.
var Categories = []string{CategoryBuilt, CategoryFailed, CategorySkipped, CategoryIgnored}

// Status values used by the sync and diff passes.
const (
	StatusStoppedPrefix = "stopped"
	StatusDone          = "stopped:done:"
	JobStatusIdle       = "idle:"
)

// Build types.
const (
	TypePackage = "package"
	TypeQAT     = "qat"
)

// Server is one configured remote build server.
type Server struct {
	Type string
	Host string
}

// MasterState records what the last sync saw for a master group.
type MasterState struct {
	Latest string `json:"latest" bson:"latest"`
}

// ServerRecord is the persisted per-server state.
type ServerRecord struct {
	ID          string                 `json:"_id" bson:"_id"`
	Type        string                 `json:"type" bson:"type"`
	Host        string                 `json:"host" bson:"host"`
	MasterNames map[string]MasterState `json:"masternames" bson:"masternames"`
}

// NewServerRecord returns an empty record for a configured server.
func NewServerRecord(id string, server Server) *ServerRecord {
	return &ServerRecord{
		ID:          id,
		Type:        server.Type,
		Host:        server.Host,
		MasterNames: make(map[string]MasterState),
	}
}

// IsFinalized reports whether a build status marks a finished build.
func IsFinalized(status string) bool {
	return strings.HasPrefix(status, StatusStoppedPrefix)
}

// Origins maps a result category to the package origins in it.
type Origins map[string][]string

// EmptyOrigins returns a mapping with an empty list for every category.
func EmptyOrigins() Origins {
	o := make(Origins, len(Categories))
	for _, c := range Categories {
		o[c] = []string{}
	}
	return o
}

// PortOrigins extracts the origin of every item in each result category of
// a port result document. Missing categories and items without an origin
// are ignored.
func PortOrigins(doc Document) Origins {
	o := EmptyOrigins()
	for _, c := range Categories {
		items, _ := doc[c].([]any)
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if origin, ok := m["origin"].(string); ok {
				o[c] = append(o[c], origin)
			}
		}
	}
	return o
}

// Counts returns the number of origins per category.
func (o Origins) Counts() map[string]int {
	counts := make(map[string]int, len(o))
	for c, items := range o {
		counts[c] = len(items)
	}
	return counts
}

// ToInt converts a JSON scalar to an integer. Strings are parsed as base 10,
// floats are truncated.
func ToInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return i, true
	default:
		return 0, false
	}
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BuildSummary carries the build fields the diff pass reads.
type BuildSummary struct {
	ID         string
	Mastername string
	Type       string
	Status     string
	// SnapNow is nil for legacy builds without snap.now.
	SnapNow *int64
}

// SnapNow extracts snap.now from a build document.
func SnapNow(doc Document) (int64, bool) {
	snap, ok := doc["snap"].(map[string]any)
	if !ok {
		return 0, false
	}
	v, ok := snap["now"]
	if !ok {
		return 0, false
	}
	return ToInt(v)
}

// StringField returns doc[key] if it is a string.
func StringField(doc Document, key string) (string, bool) {
	s, ok := doc[key].(string)
	return s, ok
}
