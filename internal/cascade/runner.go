package cascade

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opsgate/captainhook/internal/config"
	"github.com/opsgate/captainhook/internal/decision"
	"github.com/opsgate/captainhook/internal/sanitize"
	"github.com/opsgate/captainhook/internal/session"
	"github.com/opsgate/captainhook/internal/store"
)

// Runner stitches the six tiers together for one tool call, in strict
// declared order, applying the shared persistence rule after whichever
// tier resolves.
type Runner struct {
	PathPolicy          *PathPolicy
	ExactCache          *ExactCache
	TokenJaccard        *TokenJaccard
	EmbeddingSimilarity *EmbeddingSimilarity
	Supervisor          Tier
	Human               Tier
	Storage             store.Backend
}

// tiers returns the cascade in its mandated evaluation order.
func (r *Runner) tiers() []Tier {
	return []Tier{r.PathPolicy, r.ExactCache, r.TokenJaccard, r.EmbeddingSimilarity, r.Supervisor, r.Human}
}

// Evaluate runs the full cascade for one tool call.
func (r *Runner) Evaluate(ctx context.Context, sess *session.Context, roleName, roleDescription string, policy *config.CompiledPathPolicy, toolName string, toolInput json.RawMessage, cwd string) (*decision.Record, error) {
	raw := string(toolInput)
	sanitizedInput := sanitize.Sanitize(raw)
	filePath := extractFilePath(toolName, toolInput)

	in := &Input{
		Session:         sess,
		RoleName:        roleName,
		RoleDescription: roleDescription,
		Policy:          policy,
		ToolName:        toolName,
		ToolInput:       toolInput,
		SanitizedInput:  sanitizedInput,
		FilePath:        filePath,
		Cwd:             cwd,
	}

	sessionID := ""
	if sess != nil {
		sessionID = fmt.Sprintf("%s/%s/%s", sess.Org, sess.Project, sess.User)
	}

	for _, tier := range r.tiers() {
		rec, err := tier.Evaluate(ctx, in)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}

		if rec.SessionID == "" {
			rec.SessionID = sessionID
		}

		if err := r.persist(rec); err != nil {
			return nil, err
		}
		return rec, nil
	}

	rec := &decision.Record{
		Key: decision.CacheKey{
			SanitizedInput: sanitizedInput,
			Tool:           toolName,
			Role:           roleName,
		},
		Decision: decision.Deny,
		Metadata: decision.Metadata{
			Tier:       decision.TierDefault,
			Confidence: 1.0,
			Reason:     "no cascade tier resolved; default deny",
		},
		Timestamp: time.Now().UTC(),
		Scope:     decision.ScopeProject,
		FilePath:  filePath,
		SessionID: sessionID,
	}
	if err := r.persist(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// persist applies the tier-dependent write-through rule: exact-cache
// hits never re-persist; similarity hits are written only into the
// exact cache (to prevent ask drift); every other tier writes through
// to the JSONL store and all three in-memory indices.
func (r *Runner) persist(rec *decision.Record) error {
	switch rec.Metadata.Tier {
	case decision.TierExactCache:
		return nil
	case decision.TierTokenJaccard, decision.TierEmbeddingSimilarity:
		r.ExactCache.Insert(*rec)
		return nil
	default:
		if err := r.Storage.SaveDecision(*rec); err != nil {
			return err
		}
		r.ExactCache.Insert(*rec)
		r.TokenJaccard.Insert(rec)
		if err := r.EmbeddingSimilarity.Insert(rec); err != nil {
			fmt.Printf("captainhook: embedding index update failed: %v\n", err)
		}
		return nil
	}
}

// extractFilePath pulls the primary file path from tool input, per
// tool type. For Bash the full extraction battery runs inside the
// path-policy tier; this is only the headline path for audit logging.
func extractFilePath(toolName string, toolInput json.RawMessage) *string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(toolInput, &payload); err != nil {
		return nil
	}

	field := ""
	switch toolName {
	case "Write", "Edit", "Read":
		field = "file_path"
	case "Glob", "Grep":
		field = "path"
	case "NotebookEdit":
		field = "notebook_path"
	default:
		return nil
	}

	raw, ok := payload[field]
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return nil
	}
	return &s
}
