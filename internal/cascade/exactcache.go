package cascade

import (
	"context"
	"sync"

	"github.com/opsgate/captainhook/internal/decision"
)

// ExactCache is tier 1: an O(1) lookup by CacheKey, backed by an
// in-memory map seeded from the decision store at start-up.
type ExactCache struct {
	mu      sync.RWMutex
	entries map[decision.CacheKey]decision.Record
}

// NewExactCache builds an empty cache.
func NewExactCache() *ExactCache {
	return &ExactCache{entries: map[decision.CacheKey]decision.Record{}}
}

// Seed loads a batch of records (e.g. from store.LoadAll) into the
// cache, keeping the newest record per key.
func (c *ExactCache) Seed(records []decision.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rec := range records {
		existing, ok := c.entries[rec.Key]
		if !ok {
			c.entries[rec.Key] = rec
			continue
		}
		c.entries[rec.Key] = decision.MergeRecords(existing, rec)
	}
}

// Insert records (or overwrites) a decision for its key.
func (c *ExactCache) Insert(rec decision.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[rec.Key] = rec
}

func (c *ExactCache) Tier() decision.Tier { return decision.TierExactCache }
func (c *ExactCache) Name() string        { return "exact-cache" }

func (c *ExactCache) Evaluate(_ context.Context, in *Input) (*decision.Record, error) {
	key := decision.CacheKey{
		SanitizedInput: in.SanitizedInput,
		Tool:           in.ToolName,
		Role:           in.RoleName,
	}

	c.mu.RLock()
	rec, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	hit := rec
	hit.Metadata.Tier = decision.TierExactCache
	hit.Metadata.MatchedKey = &key
	return &hit, nil
}
