package cascade

import (
	"context"
	"fmt"
	"os"

	"github.com/opsgate/captainhook/internal/config"
	"github.com/opsgate/captainhook/internal/decision"
	"github.com/opsgate/captainhook/internal/supervisor"
)

// SupervisorTier wraps a pluggable supervisor.Backend as a cascade Tier,
// applying the project confidence gate: a low-confidence verdict falls
// through to the human tier rather than resolving outright.
type SupervisorTier struct {
	backend supervisor.Backend
	policy  *config.PolicyConfig
}

// NewSupervisorTier builds the tier from a backend and policy.
func NewSupervisorTier(backend supervisor.Backend, policy *config.PolicyConfig) *SupervisorTier {
	return &SupervisorTier{backend: backend, policy: policy}
}

func (s *SupervisorTier) Tier() decision.Tier { return decision.TierSupervisor }
func (s *SupervisorTier) Name() string        { return "supervisor" }

func (s *SupervisorTier) Evaluate(ctx context.Context, in *Input) (*decision.Record, error) {
	var taskDescription *string
	if in.Session != nil && in.Session.TaskDescription != "" {
		td := in.Session.TaskDescription
		taskDescription = &td
	}

	req := &supervisor.Request{
		Role:            in.RoleName,
		RoleDescription: in.RoleDescription,
		ToolName:        in.ToolName,
		SanitizedInput:  in.SanitizedInput,
		FilePath:        in.FilePath,
		TaskDescription: taskDescription,
		Cwd:             in.Cwd,
	}

	resp, err := s.backend.Evaluate(ctx, req, s.policy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "captainhook: supervisor unavailable, falling through (%v)\n", err)
		return nil, nil
	}

	if resp.Confidence < s.policy.Confidence.Project {
		return nil, nil
	}

	rec := resp.ToRecord(req)
	return &rec, nil
}
