package core

import (
	"path"
	"strings"
)

// DefaultMaxCandidates caps how many matching groups a wildcard pattern may
// select before truncation.
const DefaultMaxCandidates = 20

// Selection is the resolved set of candidate groups for a pattern.
type Selection struct {
	Names []string
	// Truncated is how many additional matches were dropped by the cap.
	Truncated int
	// Exact is true when the pattern named a single group verbatim.
	Exact bool
}

// HasWildcard reports whether the pattern contains shell-glob
// metacharacters.
func HasWildcard(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// SelectGroups resolves a shell-style wildcard against the cached catalog
// into an ordered candidate set. Matching is case-sensitive and preserves
// catalog order. A pattern without wildcards selects exactly that group and
// bypasses both the cap and the catalog.
func SelectGroups(pattern string, snap *Snapshot, maxCandidates int) (Selection, error) {
	if strings.TrimSpace(pattern) == "" {
		return Selection{}, NewValidationError("empty group pattern")
	}
	if !HasWildcard(pattern) {
		return Selection{Names: []string{pattern}, Exact: true}, nil
	}
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}

	var sel Selection
	for _, g := range snap.AllGroups() {
		ok, err := path.Match(pattern, g.Name)
		if err != nil {
			return Selection{}, NewValidationError("malformed group pattern %q", pattern)
		}
		if !ok {
			continue
		}
		if len(sel.Names) < maxCandidates {
			sel.Names = append(sel.Names, g.Name)
		} else {
			sel.Truncated++
		}
	}
	return sel, nil
}

// AllGroups returns the snapshot's entries in catalog order, tolerating a
// nil snapshot.
func (s *Snapshot) AllGroups() []NewsgroupEntry {
	if s == nil {
		return nil
	}
	return s.Groups
}
