package cascade

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/opsgate/captainhook/internal/decision"
)

// stopTokens are filtered out of the token set before Jaccard comparison
// -- shell glue words too common to carry similarity signal.
var stopTokens = map[string]bool{
	"the": true, "a": true, "an": true, "to": true, "of": true, "and": true,
	"or": true, "is": true, "in": true, "on": true, "for": true, "with": true,
}

// tokenize splits raw input on whitespace, trims surrounding punctuation,
// lowercases, and drops stop tokens.
func tokenize(raw string) map[string]bool {
	fields := strings.FieldsFunc(raw, unicode.IsSpace)
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		tok := strings.ToLower(strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r)
		}))
		if tok == "" || stopTokens[tok] {
			continue
		}
		set[tok] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if b[t] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

type tokenEntry struct {
	tokens map[string]bool
	record decision.Record
}

// TokenJaccard is tier 2: similarity by whitespace-tokenised Jaccard
// overlap against every prior decision for the same tool.
type TokenJaccard struct {
	mu        sync.RWMutex
	byTool    map[string][]tokenEntry
	threshold float64
	minTokens int
}

// NewTokenJaccard builds the tier with the configured threshold and
// minimum-token floor below which a fingerprint is too thin to compare.
func NewTokenJaccard(threshold float64, minTokens int) *TokenJaccard {
	return &TokenJaccard{
		byTool:    map[string][]tokenEntry{},
		threshold: threshold,
		minTokens: minTokens,
	}
}

// Seed loads prior records into the index.
func (t *TokenJaccard) Seed(records []decision.Record) {
	for _, rec := range records {
		t.Insert(&rec)
	}
}

// Insert adds rec's fingerprint to the index for its tool.
func (t *TokenJaccard) Insert(rec *decision.Record) {
	tokens := tokenize(rec.Key.SanitizedInput)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byTool[rec.Key.Tool] = append(t.byTool[rec.Key.Tool], tokenEntry{tokens: tokens, record: *rec})
}

func (t *TokenJaccard) Tier() decision.Tier { return decision.TierTokenJaccard }
func (t *TokenJaccard) Name() string        { return "token-jaccard" }

func (t *TokenJaccard) Evaluate(_ context.Context, in *Input) (*decision.Record, error) {
	tokens := tokenize(in.SanitizedInput)
	if len(tokens) < t.minTokens {
		return nil, nil
	}

	t.mu.RLock()
	entries := append([]tokenEntry(nil), t.byTool[in.ToolName]...)
	t.mu.RUnlock()

	var best *tokenEntry
	var bestScore float64

	for i := range entries {
		score := jaccard(tokens, entries[i].tokens)
		if score < t.threshold {
			continue
		}
		if best == nil || score > bestScore ||
			(score == bestScore && entries[i].record.Timestamp.After(best.record.Timestamp)) {
			best = &entries[i]
			bestScore = score
		}
	}

	if best == nil {
		return nil, nil
	}

	key := decision.CacheKey{SanitizedInput: in.SanitizedInput, Tool: in.ToolName, Role: in.RoleName}
	matched := best.record.Key
	score := bestScore
	return &decision.Record{
		Key:      key,
		Decision: best.record.Decision,
		Metadata: decision.Metadata{
			Tier:            decision.TierTokenJaccard,
			Confidence:      best.record.Metadata.Confidence,
			Reason:          "matched prior decision by token similarity",
			MatchedKey:      &matched,
			SimilarityScore: &score,
		},
		Timestamp: time.Now().UTC(),
		Scope:     decision.ScopeProject,
	}, nil
}
