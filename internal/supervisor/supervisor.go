// Package supervisor implements the pluggable remote-advisor backends
// the supervisor cascade tier delegates to: a co-resident Unix socket
// process, or a direct HTTP call to an Anthropic-Messages-API-shaped
// endpoint.
package supervisor

import (
	"context"
	"time"

	"github.com/opsgate/captainhook/internal/config"
	"github.com/opsgate/captainhook/internal/decision"
)

// Request is what the cascade asks the supervisor to evaluate.
type Request struct {
	SessionID        string  `json:"session_id"`
	Role             string  `json:"role"`
	RoleDescription  string  `json:"role_description"`
	ToolName         string  `json:"tool_name"`
	SanitizedInput   string  `json:"sanitized_input"`
	FilePath         *string `json:"file_path,omitempty"`
	TaskDescription  *string `json:"task_description,omitempty"`
	Cwd              string  `json:"cwd"`
}

// Response is the supervisor's verdict before it is wrapped into a
// DecisionRecord.
type Response struct {
	Decision   decision.Decision `json:"decision"`
	Confidence float64           `json:"confidence"`
	Reason     string            `json:"reason"`
}

// Backend is a pluggable remote-advisor transport.
type Backend interface {
	Evaluate(ctx context.Context, req *Request, policy *config.PolicyConfig) (*Response, error)
}

// ToRecord wraps a Response into a DecisionRecord for the caller's request.
func (r *Response) ToRecord(req *Request) decision.Record {
	return decision.Record{
		Key: decision.CacheKey{
			SanitizedInput: req.SanitizedInput,
			Tool:           req.ToolName,
			Role:           req.Role,
		},
		Decision: r.Decision,
		Metadata: decision.Metadata{
			Tier:       decision.TierSupervisor,
			Confidence: r.Confidence,
			Reason:     r.Reason,
		},
		Timestamp: time.Now().UTC(),
		Scope:     decision.ScopeProject,
		FilePath:  req.FilePath,
		SessionID: req.SessionID,
	}
}
