package daemon

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opsgate/captainhook/internal/cascade"
	"github.com/opsgate/captainhook/internal/config"
	"github.com/opsgate/captainhook/internal/decision"
	"github.com/opsgate/captainhook/internal/session"
	"github.com/opsgate/captainhook/internal/store"
)

type alwaysAllow struct{}

func (alwaysAllow) Evaluate(ctx context.Context, in *cascade.Input) (*decision.Record, error) {
	return &decision.Record{Decision: decision.Allow, Metadata: decision.Metadata{Tier: decision.TierSupervisor, Reason: "test stub"}}, nil
}
func (alwaysAllow) Tier() decision.Tier { return decision.TierSupervisor }
func (alwaysAllow) Name() string        { return "test-stub" }

func newTestEvaluator(t *testing.T) (*Evaluator, *session.Manager) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)

	projectRoot := filepath.Join(dir, "project")
	if err := os.MkdirAll(filepath.Join(projectRoot, ".captain-hook"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	roleYAML := "roles:\n  dev:\n    description: dev role\n"
	if err := os.WriteFile(filepath.Join(projectRoot, ".captain-hook", "roles.yml"), []byte(roleYAML), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	sessions, err := session.NewManager("team1", projectRoot)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	runner := &cascade.Runner{
		PathPolicy:          cascade.NewPathPolicy(),
		ExactCache:          cascade.NewExactCache(),
		TokenJaccard:        cascade.NewTokenJaccard(0.92, 4),
		EmbeddingSimilarity: cascade.NewEmbeddingSimilarity(0.88),
		Supervisor:          alwaysAllow{},
		Human:               alwaysAllow{},
		Storage:             store.NewJSONLStore("", "", ""),
	}

	policy := config.DefaultPolicy()
	return &Evaluator{Runner: runner, Sessions: sessions, Policy: &policy}, sessions
}

func TestEvaluatorDeniesUnregisteredSession(t *testing.T) {
	e, _ := newTestEvaluator(t)
	resp := e.evaluate(context.Background(), EvalRequest{SessionID: "ghost", ToolName: "Bash", ToolInput: json.RawMessage(`{"command":"ls"}`)})
	if resp.Decision != "deny" {
		t.Errorf("Decision = %q, want deny for unregistered session", resp.Decision)
	}
}

func TestEvaluatorResolvesRegisteredSession(t *testing.T) {
	e, sessions := newTestEvaluator(t)
	if _, err := sessions.Register("sess1", "alice", "acme", "widgets", "team1", "dev", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}

	resp := e.evaluate(context.Background(), EvalRequest{SessionID: "sess1", ToolName: "Bash", ToolInput: json.RawMessage(`{"command":"ls"}`)})
	if resp.Decision != "allow" {
		t.Errorf("Decision = %q, want allow (stub supervisor)", resp.Decision)
	}
}

func TestDaemonRunAndShutdownOverSocket(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)

	evaluator, sessions := newTestEvaluator(t)
	if _, err := sessions.Register("sess1", "alice", "acme", "widgets", "team1", "dev", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}

	cfg := Config{
		SocketPath:  filepath.Join(dir, "daemon.sock"),
		PIDPath:     filepath.Join(dir, "daemon.pid"),
		IdleTimeout: 2 * time.Second,
	}
	d := New(evaluator, cfg)

	runErr := make(chan error, 1)
	go func() { runErr <- d.Run() }()

	var conn net.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("unix", cfg.SocketPath)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial daemon socket: %v", err)
	}

	req := EvalRequest{SessionID: "sess1", ToolName: "Bash", ToolInput: json.RawMessage(`{"command":"ls"}`)}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		t.Fatalf("encode request: %v", err)
	}

	var resp EvalResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	conn.Close()

	if resp.Decision != "allow" {
		t.Errorf("Decision = %q, want allow", resp.Decision)
	}

	d.Shutdown()
	select {
	case <-runErr:
	case <-time.After(3 * time.Second):
		t.Fatal("Run() did not return after Shutdown()")
	}

	if _, err := os.Stat(cfg.SocketPath); !os.IsNotExist(err) {
		t.Error("expected socket file to be removed after Shutdown")
	}
}
