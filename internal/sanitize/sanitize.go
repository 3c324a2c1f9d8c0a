// Package sanitize produces a stable, secret-redacted fingerprint from a
// tool-input payload. The contract (spec.md §4.1): Sanitize is
// deterministic and idempotent, Sanitize(Sanitize(x)) == Sanitize(x), and
// no redaction ever shortens two distinct inputs into the same string --
// each pattern family maps to a distinct sentinel.
package sanitize

import "regexp"

const redacted = "<REDACTED>"

// rule is one ordered redaction pass. Each family gets its own sentinel
// suffix so two different secret kinds never collide after redaction.
type rule struct {
	pattern  *regexp.Regexp
	sentinel string
}

var rules = []rule{
	// GitHub-style tokens: ghp_, gho_, ghu_, ghs_, ghr_.
	{regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{20,}\b`), redacted + ":ghp"},
	// OpenAI/Anthropic-style secret keys: sk-..., sk-ant-...
	{regexp.MustCompile(`\bsk-(?:ant-)?[A-Za-z0-9_-]{16,}\b`), redacted + ":sk"},
	// AWS access key IDs.
	{regexp.MustCompile(`\b(?:AKIA|ASIA)[A-Z0-9]{16}\b`), redacted + ":aws"},
	// JWT-shaped triplets: base64url.base64url.base64url.
	{regexp.MustCompile(`\b[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}\b`), redacted + ":jwt"},
	// Generic high-entropy base64, 32+ chars -- catches unclassified secrets.
	{regexp.MustCompile(`\b[A-Za-z0-9+/]{32,}={0,2}\b`), redacted + ":b64"},
	// Absolute ISO-ish timestamps (volatile, would break cache-key stability).
	{regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?Z?\b`), redacted + ":ts"},
	// PIDs in paths like /proc/12345 or pid=12345.
	{regexp.MustCompile(`\b(?:pid[=: ]\s*|/proc/)\d{2,7}\b`), redacted + ":pid"},
}

var whitespace = regexp.MustCompile(`\s+`)

// Sanitize redacts recognised secret/volatile patterns from raw and
// collapses whitespace, producing a stable fingerprint.
func Sanitize(raw string) string {
	out := raw
	for _, r := range rules {
		out = r.pattern.ReplaceAllString(out, r.sentinel)
	}
	out = whitespace.ReplaceAllString(out, " ")
	return trimSpace(out)
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && s[start] == ' ' {
		start++
	}
	for end > start && s[end-1] == ' ' {
		end--
	}
	return s[start:end]
}
