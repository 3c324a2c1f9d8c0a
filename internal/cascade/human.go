package cascade

import (
	"context"
	"fmt"
	"time"

	"github.com/opsgate/captainhook/internal/decision"
	"github.com/opsgate/captainhook/internal/queue"
)

// nowMillis exists so tests can stub out wall-clock ID generation by
// constructing a HumanTier with a fixed clock; production always uses
// time.Now.
type clock func() time.Time

// HumanTier is tier 5: enqueue the call for an operator and suspend
// until they respond or the timeout expires.
type HumanTier struct {
	queue       *queue.Queue
	timeout     time.Duration
	now         clock
}

// NewHumanTier builds the tier over a shared queue with the configured
// human-response timeout.
func NewHumanTier(q *queue.Queue, timeout time.Duration) *HumanTier {
	return &HumanTier{queue: q, timeout: timeout, now: time.Now}
}

func (h *HumanTier) Tier() decision.Tier { return decision.TierHuman }
func (h *HumanTier) Name() string        { return "human" }

func (h *HumanTier) Evaluate(_ context.Context, in *Input) (*decision.Record, error) {
	id := fmt.Sprintf("%s-%s-%d", in.RoleName, in.ToolName, h.now().UnixMilli())

	var sessionID string
	if in.Session != nil {
		sessionID = fmt.Sprintf("%s/%s/%s", in.Session.Org, in.Session.Project, in.Session.User)
	}

	pending := queue.PendingDecision{
		ID:             id,
		SessionID:      sessionID,
		Role:           in.RoleName,
		ToolName:       in.ToolName,
		SanitizedInput: in.SanitizedInput,
		FilePath:       in.FilePath,
		QueuedAt:       h.now().UTC(),
	}

	if _, err := h.queue.Enqueue(pending); err != nil {
		return nil, err
	}

	resp, err := h.queue.WaitForResponse(id, h.timeout)
	if err != nil {
		return nil, err
	}

	effective := resp.Decision
	if resp.AlwaysAsk {
		effective = decision.Ask
	}

	scope := decision.ScopeProject
	if resp.RuleScope != nil {
		scope = *resp.RuleScope
	}

	return &decision.Record{
		Key: decision.CacheKey{
			SanitizedInput: in.SanitizedInput,
			Tool:           in.ToolName,
			Role:           in.RoleName,
		},
		Decision: effective,
		Metadata: decision.Metadata{
			Tier:       decision.TierHuman,
			Confidence: 1.0,
			Reason:     fmt.Sprintf("human decision: %s", resp.Decision),
		},
		Timestamp: h.now().UTC(),
		Scope:     scope,
		FilePath:  in.FilePath,
	}, nil
}
