// Package cascade implements the ordered permission-decision pipeline:
// path policy, exact cache, token-Jaccard similarity, embedding
// similarity, remote supervisor, and human-in-the-loop, in that order,
// falling through to a default deny if nothing resolves.
package cascade

import (
	"context"
	"encoding/json"

	"github.com/opsgate/captainhook/internal/config"
	"github.com/opsgate/captainhook/internal/decision"
	"github.com/opsgate/captainhook/internal/session"
)

// Input is what every tier receives. It is built once per tool call by
// the Runner and handed unchanged through the pipeline.
type Input struct {
	Session         *session.Context
	RoleName        string // "*" if the session has no role
	RoleDescription string
	Policy          *config.CompiledPathPolicy
	ToolName       string
	ToolInput      json.RawMessage
	SanitizedInput string
	FilePath       *string
	Cwd            string
}

// Tier is one stage of the cascade. Evaluate returns (nil, nil) to fall
// through to the next tier, a non-nil record to terminate the cascade,
// or an error for a failure that should propagate (tier-fallthrough
// errors are swallowed by the tier itself, per spec.md's error taxonomy).
type Tier interface {
	Evaluate(ctx context.Context, in *Input) (*decision.Record, error)
	Tier() decision.Tier
	Name() string
}
