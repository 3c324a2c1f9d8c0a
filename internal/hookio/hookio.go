// Package hookio reads the hook-invocation payload the host assistant
// writes to stdin and writes the permission decision back to stdout, in
// either of the two supported wire shapes (Claude, Gemini).
package hookio

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/opsgate/captainhook/internal/decision"
)

// Format selects which host's output shape to emit.
type Format string

const (
	FormatClaude Format = "claude"
	FormatGemini Format = "gemini"
)

// ParseFormat parses a CLI flag value, defaulting to Claude for an
// empty string.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", string(FormatClaude):
		return FormatClaude, nil
	case string(FormatGemini):
		return FormatGemini, nil
	default:
		return "", fmt.Errorf("unknown hook format %q (want %q or %q)", s, FormatClaude, FormatGemini)
	}
}

// Input is the JSON payload the host writes to stdin before a tool call.
type Input struct {
	SessionID      string          `json:"session_id"`
	ToolName       string          `json:"tool_name"`
	ToolInput      json.RawMessage `json:"tool_input"`
	Cwd            string          `json:"cwd"`
	PermissionMode string          `json:"permission_mode,omitempty"`
}

// ReadInput parses the hook input from r. Ecosystem-specific fields
// beyond the ones captainhook cares about are ignored silently.
func ReadInput(r io.Reader) (*Input, error) {
	var in Input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("parsing hook input: %w", err)
	}
	return &in, nil
}

// claudeOutput is Claude Code's expected hook-response shape.
type claudeOutput struct {
	HookSpecificOutput struct {
		PermissionDecision string `json:"permissionDecision"`
	} `json:"hookSpecificOutput"`
}

// geminiOutput is the Gemini CLI extension's expected hook-response shape.
type geminiOutput struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

func decisionString(d decision.Decision) string {
	switch d {
	case decision.Allow:
		return "allow"
	case decision.Ask:
		return "ask"
	default:
		return "deny"
	}
}

// WriteOutput writes rec to w in the requested format, flushing before
// returning (the caller must still flush its own writer if buffered --
// this matters because a subsequent os.Exit skips any unflushed data).
func WriteOutput(w io.Writer, format Format, rec *decision.Record) error {
	var payload any
	switch format {
	case FormatGemini:
		out := geminiOutput{Decision: decisionString(rec.Decision)}
		if rec.Decision != decision.Allow {
			out.Reason = rec.Metadata.Reason
		}
		payload = out
	default:
		var out claudeOutput
		out.HookSpecificOutput.PermissionDecision = decisionString(rec.Decision)
		payload = out
	}

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		return fmt.Errorf("writing hook output: %w", err)
	}
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// ExitCode returns the process exit code for rec under format, per the
// two hosts' distinct deny-signaling conventions.
func ExitCode(format Format, rec *decision.Record) int {
	if rec.Decision != decision.Deny {
		return 0
	}
	if format == FormatGemini {
		return 2
	}
	return 1
}
