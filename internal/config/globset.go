// Glob matching for role path policies. No glob-set library appears in
// any example repo's go.mod -- the teacher matches paths with plain
// strings/filepath prefix checks, which cannot express "src/**"-style
// policy globs required by spec.md §3 -- so this is a small translator
// from glob syntax to a compiled, linear-time regexp (stdlib regexp is
// RE2-backed, so this is safe against catastrophic backtracking by
// construction, per spec.md §9).
package config

import (
	"regexp"
	"strings"

	"github.com/opsgate/captainhook/internal/cerr"
)

// GlobSet is a compiled set of glob patterns matched with "any of".
type GlobSet struct {
	patterns []string
	regexes  []*regexp.Regexp
}

// BuildGlobSet compiles a list of glob patterns into a GlobSet.
func BuildGlobSet(patterns []string) (*GlobSet, error) {
	gs := &GlobSet{patterns: append([]string(nil), patterns...)}
	for _, p := range patterns {
		re, err := compileGlob(p)
		if err != nil {
			return nil, &cerr.GlobPattern{Pattern: p, Reason: err.Error()}
		}
		gs.regexes = append(gs.regexes, re)
	}
	return gs, nil
}

// IsMatch reports whether path matches any pattern in the set. An empty
// GlobSet never matches.
func (g *GlobSet) IsMatch(path string) bool {
	if g == nil {
		return false
	}
	for _, re := range g.regexes {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// Patterns returns the original glob strings backing this set.
func (g *GlobSet) Patterns() []string {
	if g == nil {
		return nil
	}
	return g.patterns
}

// compileGlob translates one glob pattern into an anchored regexp.
// Supported syntax: "**" (any number of path segments, including zero),
// "*" (anything but "/"), "?" (one char but "/"), "[...]" character
// classes (passed through), and literal characters escaped otherwise.
func compileGlob(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch ch {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				// "**" -- match across directory separators, including
				// the case of matching zero segments when followed by "/".
				if i+2 < len(runes) && runes[i+2] == '/' {
					b.WriteString("(?:.*/)?")
					i += 2
				} else {
					b.WriteString(".*")
					i++
				}
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		case '[':
			// Pass the character class through until its closing bracket.
			j := i + 1
			if j < len(runes) && (runes[j] == '!' || runes[j] == '^') {
				j++
			}
			if j < len(runes) && runes[j] == ']' {
				j++
			}
			for j < len(runes) && runes[j] != ']' {
				j++
			}
			if j < len(runes) {
				class := string(runes[i : j+1])
				class = strings.Replace(class, "[!", "[^", 1)
				b.WriteString(class)
				i = j
			} else {
				b.WriteString(`\[`)
			}
		case '.', '+', '(', ')', '|', '^', '$', '{', '}', '\\':
			b.WriteString(regexp.QuoteMeta(string(ch)))
		default:
			b.WriteRune(ch)
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}
