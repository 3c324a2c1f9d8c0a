package hookio

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/opsgate/captainhook/internal/decision"
)

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"":       FormatClaude,
		"claude": FormatClaude,
		"gemini": FormatGemini,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil {
			t.Fatalf("ParseFormat(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseFormat(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseFormat("bogus"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestReadInput(t *testing.T) {
	raw := `{"session_id":"s1","tool_name":"Bash","tool_input":{"command":"ls"},"cwd":"/repo"}`
	in, err := ReadInput(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadInput: %v", err)
	}
	if in.SessionID != "s1" || in.ToolName != "Bash" || in.Cwd != "/repo" {
		t.Errorf("ReadInput = %+v, unexpected", in)
	}
}

func TestWriteOutputClaudeFormat(t *testing.T) {
	var buf bytes.Buffer
	rec := &decision.Record{Decision: decision.Deny, Metadata: decision.Metadata{Reason: "blocked"}}
	if err := WriteOutput(&buf, FormatClaude, rec); err != nil {
		t.Fatalf("WriteOutput: %v", err)
	}

	var got struct {
		HookSpecificOutput struct {
			PermissionDecision string `json:"permissionDecision"`
		} `json:"hookSpecificOutput"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.HookSpecificOutput.PermissionDecision != "deny" {
		t.Errorf("PermissionDecision = %q, want deny", got.HookSpecificOutput.PermissionDecision)
	}
}

func TestWriteOutputGeminiFormat(t *testing.T) {
	var buf bytes.Buffer
	rec := &decision.Record{Decision: decision.Ask, Metadata: decision.Metadata{Reason: "needs review"}}
	if err := WriteOutput(&buf, FormatGemini, rec); err != nil {
		t.Fatalf("WriteOutput: %v", err)
	}

	var got struct {
		Decision string `json:"decision"`
		Reason   string `json:"reason"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Decision != "ask" || got.Reason != "needs review" {
		t.Errorf("got %+v, want decision=ask reason set", got)
	}
}

func TestWriteOutputAllowOmitsReason(t *testing.T) {
	var buf bytes.Buffer
	rec := &decision.Record{Decision: decision.Allow, Metadata: decision.Metadata{Reason: "should not appear"}}
	if err := WriteOutput(&buf, FormatGemini, rec); err != nil {
		t.Fatalf("WriteOutput: %v", err)
	}
	if strings.Contains(buf.String(), "should not appear") {
		t.Errorf("allow output should omit reason, got %s", buf.String())
	}
}

func TestExitCode(t *testing.T) {
	allow := &decision.Record{Decision: decision.Allow}
	deny := &decision.Record{Decision: decision.Deny}
	ask := &decision.Record{Decision: decision.Ask}

	if got := ExitCode(FormatClaude, allow); got != 0 {
		t.Errorf("ExitCode(claude, allow) = %d, want 0", got)
	}
	if got := ExitCode(FormatClaude, ask); got != 0 {
		t.Errorf("ExitCode(claude, ask) = %d, want 0", got)
	}
	if got := ExitCode(FormatClaude, deny); got != 1 {
		t.Errorf("ExitCode(claude, deny) = %d, want 1", got)
	}
	if got := ExitCode(FormatGemini, deny); got != 2 {
		t.Errorf("ExitCode(gemini, deny) = %d, want 2", got)
	}
}
