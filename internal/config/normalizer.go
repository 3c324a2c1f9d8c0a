package config

import (
	"fmt"
	"sort"
	"strings"
)

type categoryEntry struct {
	name     string
	glob     *GlobSet
	patterns []string
}

// PathNormalizer turns a raw file path into "category:relative" form for
// compact audit logging, matching most-specific category first (by glob
// slash-depth), per original_source's PathNormalizer.
type PathNormalizer struct {
	entries []categoryEntry
}

// NewPathNormalizer compiles a PathNormalizer from a category map.
func NewPathNormalizer(categories map[string][]string) (*PathNormalizer, error) {
	var entries []categoryEntry
	for name, patterns := range categories {
		if len(patterns) == 0 {
			continue
		}
		gs, err := BuildGlobSet(patterns)
		if err != nil {
			return nil, err
		}
		entries = append(entries, categoryEntry{name: name, glob: gs, patterns: patterns})
	}

	sort.Slice(entries, func(i, j int) bool {
		di, dj := maxDepth(entries[i].patterns), maxDepth(entries[j].patterns)
		if di != dj {
			return di > dj
		}
		return entries[i].name < entries[j].name
	})

	return &PathNormalizer{entries: entries}, nil
}

func maxDepth(patterns []string) int {
	max := 0
	for _, p := range patterns {
		if d := strings.Count(p, "/"); d > max {
			max = d
		}
	}
	return max
}

// Normalize maps path to "category:relative" form, or returns path
// unchanged if no category matches.
func (n *PathNormalizer) Normalize(path string) string {
	for _, e := range n.entries {
		if e.glob.IsMatch(path) {
			return fmt.Sprintf("%s:%s", e.name, stripCategoryPrefix(path, e.patterns))
		}
	}
	return path
}

// stripCategoryPrefix removes the longest "dir/**" directory prefix
// matching path from one of patterns; file-level patterns (Cargo.toml,
// *.test.*) leave the path unchanged.
func stripCategoryPrefix(path string, patterns []string) string {
	best := path
	bestLen := 0
	for _, pattern := range patterns {
		prefix, ok := strings.CutSuffix(pattern, "/**")
		if !ok {
			continue
		}
		if strings.HasPrefix(path, prefix) && len(prefix) > bestLen {
			rest := strings.TrimPrefix(path[len(prefix):], "/")
			if rest != "" {
				best = rest
				bestLen = len(prefix)
			}
		}
	}
	return best
}
