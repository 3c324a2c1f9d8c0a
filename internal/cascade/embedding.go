package cascade

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/opsgate/captainhook/internal/decision"
)

// embeddingDims is the fixed width of the bag-of-hashed-tokens vector.
// No embedding-model dependency exists anywhere in the example corpus,
// so the encoder below is a deterministic hashing trick: each token
// votes into one of embeddingDims buckets (sign taken from a second,
// independent hash), which is the standard feature-hashing construction
// and needs no trained weights to stay stable across processes.
const embeddingDims = 64

// embed encodes sanitized input into a unit vector in embeddingDims
// dimensions.
func embed(sanitizedInput string) [embeddingDims]float64 {
	var vec [embeddingDims]float64
	for tok := range tokenize(sanitizedInput) {
		bucket := fnv32(tok) % embeddingDims
		sign := 1.0
		if fnv32a(tok)%2 == 0 {
			sign = -1.0
		}
		vec[bucket] += sign
	}
	normalize(&vec)
	return vec
}

func fnv32(s string) uint32 {
	h := fnv.New32()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

func fnv32a(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

func normalize(v *[embeddingDims]float64) {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] /= norm
	}
}

func cosine(a, b [embeddingDims]float64) float64 {
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

type embeddingEntry struct {
	vector [embeddingDims]float64
	record decision.Record
}

// EmbeddingSimilarity is tier 3: nearest-neighbour lookup in vector
// space over a flat per-tool index. A neighbour-set is accepted only
// when its top-k matches agree on a decision by most-restrictive
// majority; an even split falls through rather than guessing.
type EmbeddingSimilarity struct {
	mu        sync.RWMutex
	byTool    map[string][]embeddingEntry
	threshold float64
	topK      int
}

// NewEmbeddingSimilarity builds the tier with the configured cosine
// threshold; topK fixed at 3 neighbours, matching the majority-vote
// tie-break rule.
func NewEmbeddingSimilarity(threshold float64) *EmbeddingSimilarity {
	return &EmbeddingSimilarity{
		byTool:    map[string][]embeddingEntry{},
		threshold: threshold,
		topK:      3,
	}
}

// Seed loads prior records into the index.
func (e *EmbeddingSimilarity) Seed(records []decision.Record) {
	for _, rec := range records {
		e.Insert(&rec)
	}
}

// Insert encodes rec's fingerprint and adds it to its tool's index.
// Errors never propagate -- per spec this tier is allowed to degrade to
// a constant fall-through rather than fail the cascade.
func (e *EmbeddingSimilarity) Insert(rec *decision.Record) error {
	vec := embed(rec.Key.SanitizedInput)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.byTool[rec.Key.Tool] = append(e.byTool[rec.Key.Tool], embeddingEntry{vector: vec, record: *rec})
	return nil
}

func (e *EmbeddingSimilarity) Tier() decision.Tier { return decision.TierEmbeddingSimilarity }
func (e *EmbeddingSimilarity) Name() string        { return "embedding-similarity" }

type scoredEntry struct {
	entry embeddingEntry
	score float64
}

func (e *EmbeddingSimilarity) Evaluate(_ context.Context, in *Input) (*decision.Record, error) {
	vec := embed(in.SanitizedInput)

	e.mu.RLock()
	entries := append([]embeddingEntry(nil), e.byTool[in.ToolName]...)
	e.mu.RUnlock()

	var candidates []scoredEntry
	for _, entry := range entries {
		score := cosine(vec, entry.vector)
		if score >= e.threshold {
			candidates = append(candidates, scoredEntry{entry: entry, score: score})
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if candidates[j].score > candidates[i].score {
				candidates[i], candidates[j] = candidates[j], candidates[i]
			}
		}
	}
	if len(candidates) > e.topK {
		candidates = candidates[:e.topK]
	}

	votes := map[decision.Decision]int{}
	for _, c := range candidates {
		votes[c.entry.record.Decision]++
	}

	winner, ok := mostRestrictiveMajority(votes, len(candidates))
	if !ok {
		return nil, nil // split vote: fall through
	}

	best := candidates[0]
	for _, c := range candidates {
		if c.entry.record.Decision == winner && c.score > best.score {
			best = c
		}
	}

	key := decision.CacheKey{SanitizedInput: in.SanitizedInput, Tool: in.ToolName, Role: in.RoleName}
	matched := best.entry.record.Key
	score := best.score
	return &decision.Record{
		Key:      key,
		Decision: winner,
		Metadata: decision.Metadata{
			Tier:            decision.TierEmbeddingSimilarity,
			Confidence:      best.entry.record.Metadata.Confidence,
			Reason:          "matched prior decision by embedding similarity",
			MatchedKey:      &matched,
			SimilarityScore: &score,
		},
		Timestamp: time.Now().UTC(),
		Scope:     decision.ScopeProject,
	}, nil
}

// mostRestrictiveMajority picks the decision with the most votes,
// breaking ties by restrictiveness; a tie remaining after that (a pure
// even split across all distinct decisions) is reported as unresolved.
func mostRestrictiveMajority(votes map[decision.Decision]int, total int) (decision.Decision, bool) {
	var best decision.Decision
	bestCount := -1
	tied := 0

	for d, count := range votes {
		switch {
		case count > bestCount:
			best = d
			bestCount = count
			tied = 1
		case count == bestCount:
			tied++
			if d.Precedence() > best.Precedence() {
				best = d
			}
		}
	}

	if tied > 1 && bestCount*2 == total {
		return best, false
	}
	return best, true
}
