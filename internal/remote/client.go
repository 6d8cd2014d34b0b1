// Package remote reads build status manifests from poudriere style status
// servers. Every read returns ok=false on transport failure, non-200
// responses or malformed JSON; callers treat that as "no data this cycle".
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/livinlefevreloca/pkgstatus/internal/model"
)

// MasterGroup is one entry of a server's master group manifest.
type MasterGroup struct {
	Name            string
	LatestBuildName string
	Setname         string
	Ptname          string
	Jailname        string
}

// BuildEntry is the sparse status a build list carries for one build.
type BuildEntry struct {
	// Status is nil for legacy entries that carry no status.
	Status *string
}

// BuildList is the build list of one master group.
type BuildList struct {
	// LatestName is the build currently considered latest, empty if the
	// server reported none.
	LatestName string
	Entries    map[string]BuildEntry
}

// Client fetches manifests over HTTP.
type Client struct {
	http   *http.Client
	config Config
	logger *slog.Logger
}

// NewClient creates a client with the configured per-request timeout.
func NewClient(config Config, logger *slog.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		http:   &http.Client{Timeout: config.Timeout},
		config: config,
		logger: logger,
	}, nil
}

type masterManifest struct {
	MasterNames map[string]struct {
		Latest struct {
			Buildname string `json:"buildname"`
		} `json:"latest"`
		Setname  string `json:"setname"`
		Ptname   string `json:"ptname"`
		Jailname string `json:"jailname"`
	} `json:"masternames"`
}

// FetchMasterGroups reads /data/.data.json. Groups are returned sorted by name.
func (c *Client) FetchMasterGroups(ctx context.Context, host string) ([]MasterGroup, bool) {
	var manifest masterManifest
	if !c.fetch(ctx, host, "/data/.data.json", &manifest) {
		return nil, false
	}
	if manifest.MasterNames == nil {
		c.logger.Warn("master manifest has no masternames", "host", host)
		return nil, false
	}

	groups := make([]MasterGroup, 0, len(manifest.MasterNames))
	for _, name := range model.SortedKeys(manifest.MasterNames) {
		m := manifest.MasterNames[name]
		groups = append(groups, MasterGroup{
			Name:            name,
			LatestBuildName: m.Latest.Buildname,
			Setname:         m.Setname,
			Ptname:          m.Ptname,
			Jailname:        m.Jailname,
		})
	}
	return groups, true
}

// FetchBuildList reads /data/{mastername}/.data.json. The "latest" key of the
// remote builds map is split out into LatestName.
func (c *Client) FetchBuildList(ctx context.Context, host, mastername string) (*BuildList, bool) {
	var manifest struct {
		Builds map[string]json.RawMessage `json:"builds"`
	}
	path := "/data/" + url.PathEscape(mastername) + "/.data.json"
	if !c.fetch(ctx, host, path, &manifest) {
		return nil, false
	}
	if manifest.Builds == nil {
		c.logger.Warn("build list has no builds", "host", host, "mastername", mastername)
		return nil, false
	}

	list := &BuildList{Entries: make(map[string]BuildEntry, len(manifest.Builds))}
	for name, raw := range manifest.Builds {
		if name == "latest" {
			if err := json.Unmarshal(raw, &list.LatestName); err != nil {
				c.logger.Warn("ignoring malformed latest pointer",
					"host", host,
					"mastername", mastername,
					"error", err)
			}
			continue
		}

		var sparse struct {
			Status *string `json:"status"`
		}
		if err := json.Unmarshal(raw, &sparse); err != nil {
			// Treated like an entry without status.
			c.logger.Debug("unparseable build entry",
				"host", host,
				"mastername", mastername,
				"buildname", name,
				"error", err)
		}
		list.Entries[name] = BuildEntry{Status: sparse.Status}
	}
	return list, true
}

// FetchBuildDetail reads /data/{mastername}/{buildname}/.data.json. A
// document without a buildname is treated as absent.
func (c *Client) FetchBuildDetail(ctx context.Context, host, mastername, buildname string) (model.Document, bool) {
	var doc model.Document
	path := "/data/" + url.PathEscape(mastername) + "/" + url.PathEscape(buildname) + "/.data.json"
	if !c.fetch(ctx, host, path, &doc) {
		return nil, false
	}
	if _, ok := doc["buildname"]; !ok {
		c.logger.Warn("build detail has no buildname",
			"host", host,
			"mastername", mastername,
			"buildname", buildname)
		return nil, false
	}
	return doc, true
}

// fetch GETs path from host and decodes the JSON object body into out.
func (c *Client) fetch(ctx context.Context, host, path string, out any) bool {
	u := url.URL{Scheme: c.config.Scheme, Host: host, Path: path}
	target := u.String()
	c.logger.Debug("fetching", "url", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		c.logger.Error("failed to build request", "url", target, "error", err)
		return false
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) && uerr.Timeout() {
			c.logger.Warn("timeout fetching", "url", target)
		} else {
			c.logger.Warn("connection error fetching", "url", target, "error", err)
		}
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, resp.Body)
		c.logger.Warn("unexpected status fetching", "url", target, "status", resp.StatusCode)
		return false
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Warn("malformed response", "url", target, "error", fmt.Errorf("decode: %w", err))
		return false
	}
	return true
}
