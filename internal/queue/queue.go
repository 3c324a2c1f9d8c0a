// Package queue implements the cross-process pending-decision queue the
// human tier uses to hand a tool call off to an operator: a PendingDecision
// is enqueued to a shared JSON file, and the cascade polls for a
// HumanResponse written by a separate "approve"/"deny" CLI invocation.
package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/opsgate/captainhook/internal/cerr"
	"github.com/opsgate/captainhook/internal/decision"
)

// Recommendation is the supervisor's advisory verdict shown alongside a
// pending decision, when the supervisor ran but fell through to human
// review on a low-confidence result.
type Recommendation struct {
	Decision   decision.Decision `json:"decision"`
	Confidence float64           `json:"confidence"`
	Reason     string            `json:"reason"`
}

// PendingDecision is one tool call awaiting human review.
type PendingDecision struct {
	ID             string           `json:"id"`
	SessionID      string           `json:"session_id"`
	Role           string           `json:"role"`
	ToolName       string           `json:"tool_name"`
	SanitizedInput string           `json:"sanitized_input"`
	FilePath       *string          `json:"file_path,omitempty"`
	Recommendation *Recommendation  `json:"recommendation,omitempty"`
	QueuedAt       time.Time        `json:"queued_at"`
}

// Response is an operator's answer to a PendingDecision.
type Response struct {
	Decision  decision.Decision    `json:"decision"`
	AlwaysAsk bool                 `json:"always_ask"`
	AddRule   bool                 `json:"add_rule"`
	RuleScope *decision.ScopeLevel `json:"rule_scope,omitempty"`
}

// fileState is the on-disk shape of the shared queue file.
type fileState struct {
	Pending   map[string]PendingDecision `json:"pending"`
	Responses map[string]Response       `json:"responses"`
}

func emptyState() fileState {
	return fileState{Pending: map[string]PendingDecision{}, Responses: map[string]Response{}}
}

// Path resolves the shared queue file, namespaced by team ID and
// honoring XDG_RUNTIME_DIR, mirroring the bare-file discipline used
// across the rest of captainhook's cross-process state.
func Path(teamID string) string {
	suffix := ""
	if teamID != "" {
		suffix = "-" + teamID
	}
	filename := "captain-hook-pending" + suffix + ".json"

	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, filename)
	}
	return filepath.Join(os.TempDir(), filename)
}

// loadFile reads the shared queue file. A missing or corrupt file reads
// as empty rather than erroring -- the queue must survive crash-restart
// without recovery logic.
func loadFile(path string) fileState {
	state := emptyState()
	contents, err := os.ReadFile(path)
	if err != nil {
		return state
	}
	if err := json.Unmarshal(contents, &state); err != nil {
		return emptyState()
	}
	if state.Pending == nil {
		state.Pending = map[string]PendingDecision{}
	}
	if state.Responses == nil {
		state.Responses = map[string]Response{}
	}
	return state
}

func saveFile(path string, state fileState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	contents, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, contents, 0o644)
}

// Queue is the human-decision queue for one team namespace. It keeps an
// in-memory shadow of completed responses so a same-process
// enqueue/respond pair resolves without a filesystem round trip, while
// still reading/writing the shared file so a separate CLI process can
// participate.
type Queue struct {
	path string

	mu        sync.Mutex
	pending   map[string]PendingDecision
	completed map[string]Response
}

// New builds a Queue namespaced by teamID.
func New(teamID string) *Queue {
	return &Queue{
		path:      Path(teamID),
		pending:   map[string]PendingDecision{},
		completed: map[string]Response{},
	}
}

// Enqueue records a pending decision both in memory and in the shared
// file, returning its ID.
func (q *Queue) Enqueue(pd PendingDecision) (string, error) {
	q.mu.Lock()
	q.pending[pd.ID] = pd
	q.mu.Unlock()

	state := loadFile(q.path)
	state.Pending[pd.ID] = pd
	return pd.ID, saveFile(q.path, state)
}

// ListPending returns every pending decision visible across processes.
func (q *Queue) ListPending() []PendingDecision {
	state := loadFile(q.path)
	out := make([]PendingDecision, 0, len(state.Pending))
	for _, pd := range state.Pending {
		out = append(out, pd)
	}
	return out
}

// GetPending looks up one pending decision by ID.
func (q *Queue) GetPending(id string) (PendingDecision, bool) {
	state := loadFile(q.path)
	pd, ok := state.Pending[id]
	return pd, ok
}

// Respond records an operator's answer, removing the pending entry and
// recording the response both in memory and in the shared file.
func (q *Queue) Respond(id string, resp Response) error {
	q.mu.Lock()
	delete(q.pending, id)
	q.completed[id] = resp
	q.mu.Unlock()

	state := loadFile(q.path)
	delete(state.Pending, id)
	state.Responses[id] = resp
	return saveFile(q.path, state)
}

func (q *Queue) takeCompleted(id string) (Response, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	resp, ok := q.completed[id]
	if ok {
		delete(q.completed, id)
	}
	return resp, ok
}

// WaitForResponse polls every 200ms for a human response to id, checking
// the in-memory shadow first, then the shared file. On timeout it
// removes the pending entry from both and returns HumanTimeout.
func (q *Queue) WaitForResponse(id string, timeout time.Duration) (Response, error) {
	deadline := time.Now().Add(timeout)

	for {
		if resp, ok := q.takeCompleted(id); ok {
			return resp, nil
		}

		state := loadFile(q.path)
		if resp, ok := state.Responses[id]; ok {
			delete(state.Responses, id)
			delete(state.Pending, id)
			_ = saveFile(q.path, state)

			q.mu.Lock()
			delete(q.pending, id)
			q.mu.Unlock()

			return resp, nil
		}

		if time.Now().After(deadline) {
			q.mu.Lock()
			delete(q.pending, id)
			q.mu.Unlock()

			state := loadFile(q.path)
			delete(state.Pending, id)
			_ = saveFile(q.path, state)

			return Response{}, &cerr.HumanTimeout{TimeoutSecs: int(timeout.Seconds())}
		}

		time.Sleep(200 * time.Millisecond)
	}
}
