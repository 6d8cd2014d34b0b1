// Package buildid encodes and decodes the composite key that identifies a
// build snapshot across the servers, builds and ports collections.
//
// The serialized form is five colon separated components in the order
// server:setname:ptname:jailname:buildname. Components are escaped so the
// encoding stays bijective even when a component contains the delimiter.
package buildid

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultSetname replaces an empty set name reported by the remote.
const DefaultSetname = "default"

const (
	delimiter = ":"
	arity     = 5
)

// ErrMalformedIdentity is returned when an identity string cannot be decoded.
var ErrMalformedIdentity = errors.New("buildid: malformed identity")

var (
	escaper   = strings.NewReplacer("%", "%25", ":", "%3A")
	unescaper = strings.NewReplacer("%3A", ":", "%3a", ":", "%25", "%")
)

// ID identifies one build snapshot.
type ID struct {
	Server    string
	Setname   string
	Ptname    string
	Jailname  string
	Buildname string
}

// New builds an ID from the values reported by a server. host may be a fully
// qualified hostname; only its first label is kept.
func New(setname, ptname, jailname, buildname, host string) ID {
	if setname == "" {
		setname = DefaultSetname
	}
	return ID{
		Server:    ServerShort(host),
		Setname:   setname,
		Ptname:    ptname,
		Jailname:  jailname,
		Buildname: buildname,
	}
}

// Encode is shorthand for New(...).String().
func Encode(setname, ptname, jailname, buildname, host string) string {
	return New(setname, ptname, jailname, buildname, host).String()
}

// ServerShort returns the first label of a hostname.
func ServerShort(host string) string {
	short, _, _ := strings.Cut(host, ".")
	return short
}

// String returns the storage form of the identity.
func (id ID) String() string {
	parts := []string{id.Server, id.Setname, id.Ptname, id.Jailname, id.Buildname}
	for i, p := range parts {
		parts[i] = escaper.Replace(p)
	}
	return strings.Join(parts, delimiter)
}

// GroupName derives the master group name from the identity:
// buildname-jailname, suffixed with -setname for non-default sets.
func (id ID) GroupName() string {
	name := id.Buildname + "-" + id.Jailname
	if id.Setname != DefaultSetname {
		name += "-" + id.Setname
	}
	return name
}

// Decode parses the storage form produced by String.
func Decode(s string) (ID, error) {
	parts := strings.Split(s, delimiter)
	if len(parts) != arity {
		return ID{}, fmt.Errorf("%w: %q has %d components, want %d", ErrMalformedIdentity, s, len(parts), arity)
	}
	for i, p := range parts {
		if !validEscapes(p) {
			return ID{}, fmt.Errorf("%w: %q has an invalid escape in component %d", ErrMalformedIdentity, s, i)
		}
		parts[i] = unescaper.Replace(p)
	}
	return ID{
		Server:    parts[0],
		Setname:   parts[1],
		Ptname:    parts[2],
		Jailname:  parts[3],
		Buildname: parts[4],
	}, nil
}

// validEscapes reports whether every '%' in p starts one of the escapes
// produced by String.
func validEscapes(p string) bool {
	for i := 0; i < len(p); i++ {
		if p[i] != '%' {
			continue
		}
		if i+2 >= len(p) {
			return false
		}
		switch p[i+1 : i+3] {
		case "25", "3A", "3a":
			i += 2
		default:
			return false
		}
	}
	return true
}
