package dupes

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Group is one resolved duplicate group: every indexed path sharing a hash,
// partitioned into exactly one original and one or more duplicates.
type Group struct {
	Hash       string
	Original   string
	Duplicates []string
	// NoMatchingOriginal is set when preferred directories were supplied
	// but no group member lives under any of them, so the original was
	// chosen by the default depth/length rule instead.
	NoMatchingOriginal bool
}

// Resolve recomputes all duplicate groups from the index and selects an
// original for each.
//
// preferredDirs is an ordered list: a member under an earlier directory
// beats a member under a later one. withinDir restricts grouping to paths
// under that directory; the restriction is applied before the group-size
// check, so a cross-directory duplicate pair with only one member in scope
// is not a duplicate group.
func (s *Service) Resolve(preferredDirs []string, withinDir string) ([]*Group, error) {
	prefix := ""
	if withinDir != "" {
		dir, err := s.fsmgr.Resolve(withinDir)
		if err != nil {
			return nil, fmt.Errorf("resolving within-directory: %w", err)
		}
		prefix = dirPrefix(dir)
	}

	prefs := make([]string, 0, len(preferredDirs))
	for _, d := range preferredDirs {
		resolved, err := s.fsmgr.Resolve(d)
		if err != nil {
			return nil, fmt.Errorf("resolving preferred directory: %w", err)
		}
		prefs = append(prefs, resolved)
	}

	raw, err := s.index.GroupsByHash(prefix)
	if err != nil {
		return nil, fmt.Errorf("querying hash groups: %w", err)
	}

	var groups []*Group
	for _, hg := range raw {
		if len(hg.Paths) < 2 {
			continue
		}

		original, noMatch := selectOriginal(hg.Paths, prefs)
		g := &Group{
			Hash:               hg.Hash,
			Original:           original,
			NoMatchingOriginal: noMatch,
		}
		for _, p := range hg.Paths {
			if p != original {
				g.Duplicates = append(g.Duplicates, p)
			}
		}
		groups = append(groups, g)
	}

	return groups, nil
}

// selectOriginal picks the group member to keep.
//
// With preferred directories, each member's rank is the index of the first
// directory that is an ancestor of it; the candidates are narrowed to the
// lowest rank present. When nothing matches, all members stay candidates
// and the group is flagged. Remaining ties are broken by fewest folder
// depth, then shortest path string, then lexicographic order, which makes
// the choice deterministic for identical input regardless of enumeration
// order.
func selectOriginal(paths []string, preferredDirs []string) (original string, noMatch bool) {
	candidates := paths

	if len(preferredDirs) > 0 {
		bestRank := len(preferredDirs)
		var ranked []string
		for _, p := range paths {
			rank, ok := preferenceRank(p, preferredDirs)
			if !ok {
				continue
			}
			switch {
			case rank < bestRank:
				bestRank = rank
				ranked = []string{p}
			case rank == bestRank:
				ranked = append(ranked, p)
			}
		}
		if len(ranked) > 0 {
			candidates = ranked
		} else {
			noMatch = true
		}
	}

	best := candidates[0]
	for _, p := range candidates[1:] {
		if lessOriginal(p, best) {
			best = p
		}
	}
	return best, noMatch
}

// preferenceRank returns the index of the first preferred directory that is
// an ancestor of path. A path matches at most one directory: the first.
func preferenceRank(path string, preferredDirs []string) (int, bool) {
	for i, dir := range preferredDirs {
		if strings.HasPrefix(path, dirPrefix(dir)) {
			return i, true
		}
	}
	return 0, false
}

// lessOriginal reports whether a is a better original than b under the
// default rule: fewer folders, then shorter path, then lexicographic.
func lessOriginal(a, b string) bool {
	da, db := folderDepth(a), folderDepth(b)
	if da != db {
		return da < db
	}
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// folderDepth counts the path segments excluding the filename.
func folderDepth(path string) int {
	dir := filepath.Dir(path)
	if dir == "/" {
		return 0
	}
	return strings.Count(dir, "/")
}

// dirPrefix turns a cleaned directory path into the literal prefix that
// matches exactly the paths under it.
func dirPrefix(dir string) string {
	if strings.HasSuffix(dir, "/") {
		return dir
	}
	return dir + "/"
}

// underDir reports whether path is inside dir.
func underDir(path, dir string) bool {
	return strings.HasPrefix(path, dirPrefix(dir))
}
