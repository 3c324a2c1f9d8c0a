package cascade

import (
	"context"
	"testing"

	"github.com/opsgate/captainhook/internal/decision"
)

func TestEmbedIsDeterministic(t *testing.T) {
	a := embed("deploy production cluster now")
	b := embed("deploy production cluster now")
	if a != b {
		t.Errorf("embed is not deterministic: %v != %v", a, b)
	}
}

func TestEmbedIdenticalTextCosineOne(t *testing.T) {
	vec := embed("rollback the release")
	if score := cosine(vec, vec); score < 0.999 {
		t.Errorf("cosine(v, v) = %v, want ~1", score)
	}
}

func TestEmbeddingSimilarityMatchesNearDuplicate(t *testing.T) {
	e := NewEmbeddingSimilarity(0.99)
	e.Insert(&decision.Record{
		Key:      decision.CacheKey{SanitizedInput: "restart the production database", Tool: "Bash", Role: "dev"},
		Decision: decision.Ask,
	})

	in := &Input{ToolName: "Bash", RoleName: "dev", SanitizedInput: "restart the production database"}
	rec, err := e.Evaluate(context.Background(), in)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rec == nil {
		t.Fatal("expected exact-text embedding match, got fall-through")
	}
	if rec.Decision != decision.Ask {
		t.Errorf("Decision = %v, want Ask", rec.Decision)
	}
}

func TestEmbeddingSimilarityNoCandidatesFallsThrough(t *testing.T) {
	e := NewEmbeddingSimilarity(0.99)
	e.Insert(&decision.Record{
		Key:      decision.CacheKey{SanitizedInput: "list directory contents", Tool: "Bash", Role: "dev"},
		Decision: decision.Allow,
	})

	in := &Input{ToolName: "Bash", RoleName: "dev", SanitizedInput: "delete entire production database forever"}
	rec, err := e.Evaluate(context.Background(), in)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rec != nil {
		t.Errorf("Evaluate = %+v, want fall-through for dissimilar input", rec)
	}
}

func TestMostRestrictiveMajorityPicksPlurality(t *testing.T) {
	votes := map[decision.Decision]int{decision.Allow: 2, decision.Deny: 1}
	winner, ok := mostRestrictiveMajority(votes, 3)
	if !ok {
		t.Fatal("expected a resolved majority")
	}
	if winner != decision.Allow {
		t.Errorf("winner = %v, want Allow", winner)
	}
}

func TestMostRestrictiveMajorityEvenSplitFallsThrough(t *testing.T) {
	votes := map[decision.Decision]int{decision.Allow: 1, decision.Deny: 1}
	_, ok := mostRestrictiveMajority(votes, 2)
	if ok {
		t.Error("expected an even split to be reported as unresolved")
	}
}

func TestMostRestrictiveMajorityTieBreaksTowardRestrictive(t *testing.T) {
	votes := map[decision.Decision]int{decision.Allow: 1, decision.Ask: 1, decision.Deny: 1}
	winner, ok := mostRestrictiveMajority(votes, 3)
	if !ok {
		t.Fatal("three-way split with unequal halves should resolve")
	}
	if winner != decision.Deny {
		t.Errorf("winner = %v, want Deny (most restrictive tie-break)", winner)
	}
}
