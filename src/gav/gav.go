// Package gav parses Maven style artifact coordinates and derives the
// registry tag each coordinate is published under.
package gav

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// maxTagLength is the OCI distribution limit for a tag.
const maxTagLength = 128

// ErrMalformed is returned for strings that are not group:artifact:version[:tag].
var ErrMalformed = errors.New("gav: malformed coordinate")

var (
	tagRe        = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]{0,127}$`)
	tagInvalidRe = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
)

// GAV identifies one build output. Two GAVs are the same artifact when group,
// artifact and version match; Tag is only where it gets published.
type GAV struct {
	Group    string
	Artifact string
	Version  string
	Tag      string
}

// Parse reads "group:artifact:version[:tag]". When no tag is given one is
// derived from the coordinate, prefixed with prependTag so repeated builds of
// the same artifact can publish side by side.
func Parse(s, prependTag string) (GAV, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 && len(parts) != 4 {
		return GAV{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	for _, p := range parts {
		if p == "" {
			return GAV{}, fmt.Errorf("%w: %q has an empty segment", ErrMalformed, s)
		}
	}

	g := GAV{Group: parts[0], Artifact: parts[1], Version: parts[2]}
	if len(parts) == 4 {
		if !tagRe.MatchString(parts[3]) {
			return GAV{}, fmt.Errorf("%w: %q is not a valid tag", ErrMalformed, parts[3])
		}
		g.Tag = parts[3]
		return g, nil
	}
	g.Tag = DeriveTag(g.Key(), prependTag)
	return g, nil
}

// DeriveTag maps a coordinate to a registry safe tag: the sha256 of the
// coordinate, optionally behind a sanitized prefix. The result never exceeds
// the 128 character tag limit.
func DeriveTag(coordinate, prependTag string) string {
	sum := sha256.Sum256([]byte(coordinate))
	tag := hex.EncodeToString(sum[:])

	prefix := tagInvalidRe.ReplaceAllString(prependTag, "_")
	if prefix == "" {
		return tag
	}
	// Tags may not start with '.' or '-'.
	if prefix[0] == '.' || prefix[0] == '-' {
		prefix = "_" + prefix[1:]
	}
	if max := maxTagLength - len(tag) - 1; len(prefix) > max {
		prefix = prefix[:max]
	}
	return prefix + "_" + tag
}

// Key is the group:artifact:version identity.
func (g GAV) Key() string {
	return g.Group + ":" + g.Artifact + ":" + g.Version
}

// String is the round-trippable form including the tag.
func (g GAV) String() string {
	if g.Tag == "" {
		return g.Key()
	}
	return g.Key() + ":" + g.Tag
}

// Equal compares coordinates, ignoring the tag.
func (g GAV) Equal(o GAV) bool {
	return g.Key() == o.Key()
}

// Set is a de-duplicated collection of coordinates.
type Set struct {
	items map[string]GAV
}

// NewSet parses every entry, dropping duplicates. The first occurrence of
// a coordinate wins.
func NewSet(entries []string, prependTag string) (*Set, error) {
	s := &Set{items: make(map[string]GAV, len(entries))}
	for _, e := range entries {
		g, err := Parse(e, prependTag)
		if err != nil {
			return nil, err
		}
		s.Add(g)
	}
	return s, nil
}

// Add inserts g unless an equal coordinate is present.
func (s *Set) Add(g GAV) {
	if s.items == nil {
		s.items = make(map[string]GAV)
	}
	if _, ok := s.items[g.Key()]; !ok {
		s.items[g.Key()] = g
	}
}

// Len returns the number of distinct coordinates.
func (s *Set) Len() int { return len(s.items) }

// Sorted returns the coordinates ordered by Key.
func (s *Set) Sorted() []GAV {
	out := make([]GAV, 0, len(s.items))
	for _, g := range s.items {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// GroupIDs returns the distinct groups, sorted and comma joined.
func (s *Set) GroupIDs() string {
	return s.join(func(g GAV) string { return g.Group })
}

// ArtifactIDs returns the distinct artifact ids, sorted and comma joined.
func (s *Set) ArtifactIDs() string {
	return s.join(func(g GAV) string { return g.Artifact })
}

// Versions returns the distinct versions, sorted and comma joined.
func (s *Set) Versions() string {
	return s.join(func(g GAV) string { return g.Version })
}

// Keys returns every group:artifact:version, sorted and comma joined.
func (s *Set) Keys() string {
	return s.join(GAV.Key)
}

func (s *Set) join(field func(GAV) string) string {
	seen := make(map[string]bool)
	var vals []string
	for _, g := range s.items {
		v := field(g)
		if !seen[v] {
			seen[v] = true
			vals = append(vals, v)
		}
	}
	sort.Strings(vals)
	return strings.Join(vals, ",")
}
