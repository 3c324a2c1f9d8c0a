package cascade

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/opsgate/captainhook/internal/decision"
	"github.com/opsgate/captainhook/internal/store"
)

type fallthroughTier struct {
	tier decision.Tier
}

func (f fallthroughTier) Evaluate(ctx context.Context, in *Input) (*decision.Record, error) {
	return nil, nil
}
func (f fallthroughTier) Tier() decision.Tier { return f.tier }
func (f fallthroughTier) Name() string        { return string(f.tier) }

func newTestRunner() *Runner {
	return &Runner{
		PathPolicy:          NewPathPolicy(),
		ExactCache:          NewExactCache(),
		TokenJaccard:        NewTokenJaccard(0.92, 4),
		EmbeddingSimilarity: NewEmbeddingSimilarity(0.88),
		Supervisor:          fallthroughTier{tier: decision.TierSupervisor},
		Human:               fallthroughTier{tier: decision.TierHuman},
		Storage:             store.NewJSONLStore("", "", ""),
	}
}

// uncertainBashInput is an ordinary Bash command that touches no file
// path, so path-policy (tier 0) has nothing to extract and match against
// and must fall through, leaving the rest of the cascade to resolve it.
const uncertainBashInput = `{"command":"echo hello"}`

func TestRunnerEvaluateDefaultDenyWhenNothingResolves(t *testing.T) {
	r := newTestRunner()
	rec, err := r.Evaluate(context.Background(), nil, "dev", "", nil, "Bash", json.RawMessage(uncertainBashInput), "/repo")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rec.Decision != decision.Deny {
		t.Errorf("Decision = %v, want Deny (default)", rec.Decision)
	}
	if rec.Metadata.Tier != decision.TierDefault {
		t.Errorf("Metadata.Tier = %v, want TierDefault", rec.Metadata.Tier)
	}
}

func TestRunnerEvaluateExactCacheHitSkipsRestOfCascade(t *testing.T) {
	r := newTestRunner()
	r.ExactCache.Insert(decision.Record{
		Key:      decision.CacheKey{SanitizedInput: uncertainBashInput, Tool: "Bash", Role: "dev"},
		Decision: decision.Allow,
	})

	rec, err := r.Evaluate(context.Background(), nil, "dev", "", nil, "Bash", json.RawMessage(uncertainBashInput), "/repo")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rec.Decision != decision.Allow {
		t.Errorf("Decision = %v, want Allow (exact cache hit)", rec.Decision)
	}
	if rec.Metadata.Tier != decision.TierExactCache {
		t.Errorf("Metadata.Tier = %v, want TierExactCache", rec.Metadata.Tier)
	}
}

func TestRunnerPersistWritesThroughForNonCacheTiers(t *testing.T) {
	r := newTestRunner()
	rec, err := r.Evaluate(context.Background(), nil, "dev", "", nil, "Bash", json.RawMessage(uncertainBashInput), "/repo")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rec.Decision != decision.Deny {
		t.Fatalf("setup: expected default deny, got %v", rec.Decision)
	}

	// A second identical call should now hit the exact cache the first
	// call populated.
	second, err := r.Evaluate(context.Background(), nil, "dev", "", nil, "Bash", json.RawMessage(uncertainBashInput), "/repo")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if second.Metadata.Tier != decision.TierExactCache {
		t.Errorf("second call Metadata.Tier = %v, want TierExactCache", second.Metadata.Tier)
	}
}

func TestExtractFilePathPerTool(t *testing.T) {
	tests := []struct {
		tool  string
		input string
		want  string
	}{
		{"Write", `{"file_path":"src/main.go"}`, "src/main.go"},
		{"Read", `{"file_path":"src/main.go"}`, "src/main.go"},
		{"Glob", `{"path":"src"}`, "src"},
		{"NotebookEdit", `{"notebook_path":"n.ipynb"}`, "n.ipynb"},
	}
	for _, tt := range tests {
		got := extractFilePath(tt.tool, json.RawMessage(tt.input))
		if got == nil || *got != tt.want {
			t.Errorf("extractFilePath(%s, %s) = %v, want %q", tt.tool, tt.input, got, tt.want)
		}
	}
}

func TestExtractFilePathBashReturnsNil(t *testing.T) {
	got := extractFilePath("Bash", json.RawMessage(`{"command":"rm foo"}`))
	if got != nil {
		t.Errorf("extractFilePath(Bash) = %v, want nil (handled inside PathPolicy)", got)
	}
}
