package cascade

import (
	"context"
	"testing"

	"github.com/opsgate/captainhook/internal/decision"
)

func TestExactCacheHitAndMiss(t *testing.T) {
	c := NewExactCache()
	key := decision.CacheKey{SanitizedInput: "rm foo.txt", Tool: "Bash", Role: "dev"}
	c.Insert(decision.Record{Key: key, Decision: decision.Deny})

	in := &Input{ToolName: "Bash", RoleName: "dev", SanitizedInput: "rm foo.txt"}
	rec, err := c.Evaluate(context.Background(), in)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rec == nil || rec.Decision != decision.Deny {
		t.Fatalf("Evaluate = %+v, want a Deny hit", rec)
	}
	if rec.Metadata.Tier != decision.TierExactCache {
		t.Errorf("Metadata.Tier = %v, want TierExactCache", rec.Metadata.Tier)
	}
	if rec.Metadata.MatchedKey == nil || *rec.Metadata.MatchedKey != key {
		t.Errorf("Metadata.MatchedKey = %v, want %v", rec.Metadata.MatchedKey, key)
	}

	miss := &Input{ToolName: "Bash", RoleName: "dev", SanitizedInput: "rm bar.txt"}
	rec, err = c.Evaluate(context.Background(), miss)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rec != nil {
		t.Errorf("Evaluate(miss) = %+v, want nil (fall through)", rec)
	}
}

func TestExactCacheSeedMergesByRestrictiveness(t *testing.T) {
	c := NewExactCache()
	key := decision.CacheKey{SanitizedInput: "x", Tool: "Write", Role: "dev"}
	c.Seed([]decision.Record{
		{Key: key, Decision: decision.Allow, Scope: decision.ScopeOrg},
		{Key: key, Decision: decision.Deny, Scope: decision.ScopeUser},
	})

	in := &Input{ToolName: "Write", RoleName: "dev", SanitizedInput: "x"}
	rec, err := c.Evaluate(context.Background(), in)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rec == nil || rec.Decision != decision.Deny {
		t.Fatalf("Evaluate = %+v, want merged Deny", rec)
	}
}

func TestExactCacheTierAndName(t *testing.T) {
	c := NewExactCache()
	if c.Tier() != decision.TierExactCache {
		t.Errorf("Tier() = %v", c.Tier())
	}
	if c.Name() == "" {
		t.Error("Name() should not be empty")
	}
}
