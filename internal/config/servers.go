package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/livinlefevreloca/pkgstatus/internal/model"
)

// ParseServers reads a servers list: one "type:hostname" per line, in the
// order listed. Blank lines and lines starting with '#' are ignored.
func ParseServers(r io.Reader) ([]model.Server, error) {
	var servers []model.Server

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		typ, host, ok := strings.Cut(line, ":")
		typ = strings.TrimSpace(typ)
		host = strings.TrimSpace(host)
		if !ok || typ == "" || host == "" {
			return nil, fmt.Errorf("line %d: expected type:hostname, got %q", lineNo, line)
		}

		servers = append(servers, model.Server{Type: typ, Host: host})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return servers, nil
}

// LoadServers reads the servers list at path
func LoadServers(path string) ([]model.Server, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open servers file: %w", err)
	}
	defer f.Close()

	servers, err := ParseServers(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return servers, nil
}
