package cascade

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/opsgate/captainhook/internal/decision"
)

// bashPathExtractors is the fixed battery of write-capable-command regexes
// used to pull file-path targets out of a raw shell command string. One
// pattern per command family; each has alternation groups for a quoted or
// bare path. All patterns are plain Go regexp (RE2), so none can exhibit
// catastrophic backtracking.
var bashPathExtractors = compilePatterns([]string{
	`(?:^|[;&|]\s*)rm\s+(?:-[rifvdIRP]+\s+)*(?:"([^"]+)"|'([^']+)'|((?:[/~.]|\w)[\w./_~*?\[\]{}-]*))`,
	`(?:^|[;&|]\s*)mv\s+(?:-[fintuvTSZ]+\s+)*(?:"([^"]+)"|'([^']+)'|((?:[/~.]|\w)[\w./_~*?\[\]{}-]*))\s+(?:"([^"]+)"|'([^']+)'|((?:[/~.]|\w)[\w./_~*?\[\]{}-]*))`,
	`(?:^|[;&|]\s*)cp\s+(?:-[raflinpuvRPdHLsxTZ]+\s+)*(?:"([^"]+)"|'([^']+)'|((?:[/~.]|\w)[\w./_~*?\[\]{}-]*))\s+(?:"([^"]+)"|'([^']+)'|((?:[/~.]|\w)[\w./_~*?\[\]{}-]*))`,
	`(?:^|[;&|]\s*)mkdir\s+(?:-[pmvZ]+\s+)*(?:"([^"]+)"|'([^']+)'|((?:[/~.]|\w)[\w./_~*?\[\]{}-]*))`,
	`(?:^|[;&|]\s*)touch\s+(?:-[acmr]+\s+(?:\S+\s+)?)*(?:"([^"]+)"|'([^']+)'|((?:[/~.]|\w)[\w./_~*?\[\]{}-]*))`,
	`>{1,2}\s*(?:"([^"]+)"|'([^']+)'|((?:[/~.]|\w)[\w./_~*?\[\]{}-]*))`,
	`\|\s*tee\s+(?:-[ai]+\s+)*(?:"([^"]+)"|'([^']+)'|((?:[/~.]|\w)[\w./_~*?\[\]{}-]*))`,
	`(?:^|[;&|]\s*)sed\s+(?:-[nEerz]+\s+)*-i(?:\.\S+)?\s+(?:'[^']*'|"[^"]*"|\S+)\s+(?:"([^"]+)"|'([^']+)'|((?:[/~.]|\w)[\w./_~*?\[\]{}-]*))`,
	`(?:^|[;&|]\s*)chmod\s+(?:-[RfvcH]+\s+)*(?:\+?[rwxXstugo0-7,]+)\s+(?:"([^"]+)"|'([^']+)'|((?:[/~.]|\w)[\w./_~*?\[\]{}-]*))`,
	`(?:^|[;&|]\s*)chown\s+(?:-[RfvcHhLP]+\s+)*(?:[\w.:-]+)\s+(?:"([^"]+)"|'([^']+)'|((?:[/~.]|\w)[\w./_~*?\[\]{}-]*))`,
	`(?:^|[;&|]\s*)git\s+checkout\s+(?:-[bBfqm]+\s+)*--\s+(?:"([^"]+)"|'([^']+)'|((?:[/~.]|\w)[\w./_~*?\[\]{}-]*))`,
	`curl\s+.*?(?:-o|--output)\s+(?:"([^"]+)"|'([^']+)'|((?:[/~.]|\w)[\w./_~*?\[\]{}-]*))`,
	`wget\s+.*?(?:-O|--output-document)\s+(?:"([^"]+)"|'([^']+)'|((?:[/~.]|\w)[\w./_~*?\[\]{}-]*))`,
	`(?:^|[;&|]\s*)dd\s+.*?of=(?:"([^"]+)"|'([^']+)'|([^\s;&|]+))`,
})

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			// A malformed built-in pattern is a programmer error, not a
			// runtime condition -- fail loudly at package init.
			panic(fmt.Sprintf("cascade: bad built-in bash path pattern %q: %v", p, err))
		}
		compiled = append(compiled, re)
	}
	return compiled
}

// extractBashPaths pulls write-target paths out of a raw shell command.
func extractBashPaths(command string) []string {
	var paths []string
	for _, re := range bashPathExtractors {
		for _, caps := range re.FindAllStringSubmatch(command, -1) {
			for _, m := range caps[1:] {
				p := strings.TrimSpace(m)
				if p != "" && p != "/dev/null" {
					paths = append(paths, p)
				}
			}
		}
	}
	sort.Strings(paths)
	return dedupSorted(paths)
}

func dedupSorted(in []string) []string {
	out := in[:0]
	var prev string
	first := true
	for _, v := range in {
		if first || v != prev {
			out = append(out, v)
			prev = v
			first = false
		}
	}
	return out
}

// relativize rebases an absolute path onto cwd, so role globs like
// "src/**" match regardless of where the tool call originated.
func relativize(path, cwd string) string {
	if cwd == "" {
		return path
	}
	rel, err := filepath.Rel(cwd, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// PathPolicy is tier 0: the deterministic role glob policy.
type PathPolicy struct{}

// NewPathPolicy builds the path-policy tier.
func NewPathPolicy() *PathPolicy { return &PathPolicy{} }

func (p *PathPolicy) Tier() decision.Tier { return decision.TierPathPolicy }
func (p *PathPolicy) Name() string        { return "path-policy" }

func (p *PathPolicy) extractPaths(in *Input) []string {
	switch in.ToolName {
	case "Write", "Edit", "Read", "Glob", "Grep":
		if in.FilePath != nil {
			return []string{*in.FilePath}
		}
		return nil
	case "Bash":
		var payload struct {
			Command string `json:"command"`
		}
		command := in.SanitizedInput
		if err := json.Unmarshal(in.ToolInput, &payload); err == nil && payload.Command != "" {
			command = payload.Command
		}
		return extractBashPaths(command)
	default:
		return nil
	}
}

func (p *PathPolicy) Evaluate(_ context.Context, in *Input) (*decision.Record, error) {
	if in.Policy == nil {
		return nil, nil
	}

	rawPaths := p.extractPaths(in)
	if len(rawPaths) == 0 {
		return nil, nil
	}

	paths := make([]string, len(rawPaths))
	for i, raw := range rawPaths {
		paths[i] = relativize(raw, in.Cwd)
	}

	readOnly := in.ToolName == "Read" || in.ToolName == "Glob" || in.ToolName == "Grep"

	var worst *decision.Decision
	var worstPath, worstReason string

	for _, path := range paths {
		var d *decision.Decision
		var reason string

		if readOnly {
			switch {
			case in.Policy.SensitiveAskWrite.IsMatch(path):
				v := decision.Ask
				d = &v
				reason = fmt.Sprintf("path %q matches sensitive path pattern", path)
			case in.Policy.AllowRead.IsMatch(path):
				// allowed implicitly, no policy action needed
			default:
				v := decision.Deny
				d = &v
				reason = fmt.Sprintf("path %q denied by role path policy", path)
			}
		} else {
			switch {
			// A path matching both sensitive_ask_write and deny_write
			// resolves to ask, not deny -- sensitive is checked first.
			case in.Policy.SensitiveAskWrite.IsMatch(path):
				v := decision.Ask
				d = &v
				reason = fmt.Sprintf("path %q matches sensitive path pattern", path)
			case in.Policy.DenyWrite.IsMatch(path):
				v := decision.Deny
				d = &v
				reason = fmt.Sprintf("path %q denied by role path policy", path)
			case in.Policy.AllowWrite.IsMatch(path):
				v := decision.Allow
				d = &v
				reason = fmt.Sprintf("path %q allowed by role path policy", path)
			}
		}

		if d == nil {
			continue
		}
		if worst == nil || d.Precedence() > worst.Precedence() {
			worst = d
			worstPath = path
			worstReason = reason
		}
	}

	return p.record(in, worst, worstPath, worstReason)
}

// record builds the tier's output record from the most restrictive of the
// extracted paths, or falls through if none of them matched any policy rule.
func (p *PathPolicy) record(in *Input, worst *decision.Decision, worstPath, worstReason string) (*decision.Record, error) {
	if worst == nil {
		return nil, nil
	}

	var filePath *string
	if worstPath != "" {
		filePath = &worstPath
	}

	return &decision.Record{
		Key: decision.CacheKey{
			SanitizedInput: in.SanitizedInput,
			Tool:           in.ToolName,
			Role:           in.RoleName,
		},
		Decision: *worst,
		Metadata: decision.Metadata{
			Tier:       decision.TierPathPolicy,
			Confidence: 1.0,
			Reason:     worstReason,
		},
		Timestamp: time.Now().UTC(),
		Scope:     decision.ScopeRole,
		FilePath:  filePath,
	}, nil
}
