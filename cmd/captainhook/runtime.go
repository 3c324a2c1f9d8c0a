package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/opsgate/captainhook/internal/cascade"
	"github.com/opsgate/captainhook/internal/config"
	"github.com/opsgate/captainhook/internal/queue"
	"github.com/opsgate/captainhook/internal/session"
	"github.com/opsgate/captainhook/internal/store"
	"github.com/opsgate/captainhook/internal/supervisor"
)

// runtime bundles everything one `captainhook` invocation needs to run
// the cascade against a project: its policy, its session manager, and
// a freshly seeded cascade runner.
type runtime struct {
	Policy   *config.PolicyConfig
	Sessions *session.Manager
	Runner   *cascade.Runner
	Queue    *queue.Queue
	TeamID   string
}

func teamID() string {
	return os.Getenv("CLAUDE_TEAM_ID")
}

func userStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "captain-hook")
	}
	return filepath.Join(os.TempDir(), "captain-hook")
}

// loadRuntime wires together config, session, store and cascade for
// projectRoot. It is the single assembly point every subcommand goes
// through so they share one construction path.
func loadRuntime(projectRoot string) (*runtime, error) {
	policy, err := config.LoadProjectPolicy(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("loading policy: %w", err)
	}

	team := teamID()

	sessions, err := session.NewManager(team, projectRoot)
	if err != nil {
		return nil, fmt.Errorf("loading roles: %w", err)
	}

	projectDir := filepath.Join(projectRoot, ".captain-hook")
	backend := store.NewJSONLStore("", projectDir, userStateDir())

	records, err := backend.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("loading decision store: %w", err)
	}

	exactCache := cascade.NewExactCache()
	exactCache.Seed(records)

	tokenJaccard := cascade.NewTokenJaccard(policy.Similarity.JaccardThreshold, policy.Similarity.JaccardMinTokens)
	tokenJaccard.Seed(records)

	embeddingSim := cascade.NewEmbeddingSimilarity(policy.Similarity.EmbeddingThreshold)
	embeddingSim.Seed(records)

	supervisorTier := cascade.NewSupervisorTier(buildSupervisorBackend(policy), policy)

	q := queue.New(team)
	humanTimeout := time.Duration(policy.HumanTimeoutSecs) * time.Second
	humanTier := cascade.NewHumanTier(q, humanTimeout)

	runner := &cascade.Runner{
		PathPolicy:          cascade.NewPathPolicy(),
		ExactCache:          exactCache,
		TokenJaccard:        tokenJaccard,
		EmbeddingSimilarity: embeddingSim,
		Supervisor:          supervisorTier,
		Human:               humanTier,
		Storage:             backend,
	}

	return &runtime{Policy: policy, Sessions: sessions, Runner: runner, Queue: q, TeamID: team}, nil
}

func buildSupervisorBackend(policy *config.PolicyConfig) supervisor.Backend {
	switch policy.Supervisor.Backend {
	case "api":
		return &supervisor.ApiBackend{
			BaseURL:     valueOr(policy.Supervisor.ApiURL, "https://api.anthropic.com"),
			ApiKey:      os.Getenv(valueOr(policy.Supervisor.ApiKeyEnv, "ANTHROPIC_API_KEY")),
			Model:       valueOr(policy.Supervisor.Model, "claude-3-5-sonnet-latest"),
			TimeoutSecs: policy.Supervisor.TimeoutSecs,
		}
	default:
		return &supervisor.SocketBackend{
			SocketPath:  valueOr(policy.Supervisor.SocketPath, filepath.Join(userStateDir(), "supervisor.sock")),
			TimeoutSecs: policy.Supervisor.TimeoutSecs,
		}
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
