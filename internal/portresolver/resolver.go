// Package portresolver implements spec.md §4.1: picking a MIDI input port
// by fuzzy name match against a user-supplied device string.
package portresolver

import (
	"errors"
	"strings"
)

var (
	ErrNoPorts = errors.New("portresolver: no ports available")
	ErrNoMatch = errors.New("portresolver: no port matches query")
)

// Port is the minimal shape the resolver needs from a MIDI backend port.
type Port[T any] struct {
	Index  int
	Handle T
	Name   string
}

// normalize takes the substring before the first ':' (backends commonly
// format names as "<device>:<port>"), lower-cases it, and strips spaces.
// Non-UTF-8 input cannot panic here: strings.Cut operates byte-wise, and
// strings.ToLower replaces invalid UTF-8 bytes with U+FFFD instead of failing.
func normalize(name string) string {
	base, _, _ := strings.Cut(name, ":")
	base = strings.ToLower(base)
	return strings.ReplaceAll(base, " ", "")
}

// Resolve picks the port whose normalized name equals the normalized query.
// If the enumerator yields no ports, ErrNoPorts. If none match exactly,
// ErrNoMatch. Ties are broken by last-match-wins, matching the source's
// linear-scan-with-overwrite behavior (spec.md §4.1, scenario 7).
func Resolve[T any](query string, ports []Port[T]) (Port[T], error) {
	var zero Port[T]
	if len(ports) == 0 {
		return zero, ErrNoPorts
	}

	normalizedQuery := normalize(query)

	found := false
	var match Port[T]
	for _, p := range ports {
		if normalize(p.Name) == normalizedQuery {
			match = p
			found = true
		}
	}
	if !found {
		return zero, ErrNoMatch
	}
	return match, nil
}
