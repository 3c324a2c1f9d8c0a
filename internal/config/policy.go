package config

import (
	"os"
	"path/filepath"

	"github.com/opsgate/captainhook/internal/cerr"
	"gopkg.in/yaml.v3"
)

// SensitivePathsConfig lists path globs that force an "ask" on write even
// when a role's allow_write would otherwise permit it.
type SensitivePathsConfig struct {
	AskWrite []string `yaml:"ask_write"`
}

// ConfidenceConfig sets the supervisor-tier confidence floor required to
// trust a verdict at each scope, from loosest (org) to tightest (user).
type ConfidenceConfig struct {
	Org     float64 `yaml:"org"`
	Project float64 `yaml:"project"`
	User    float64 `yaml:"user"`
}

// SimilarityConfig tunes the token-Jaccard and embedding-similarity tiers.
type SimilarityConfig struct {
	JaccardThreshold   float64 `yaml:"jaccard_threshold"`
	EmbeddingThreshold float64 `yaml:"embedding_threshold"`
	JaccardMinTokens   int     `yaml:"jaccard_min_tokens"`
}

// SupervisorConfig selects and configures the remote-supervisor backend.
type SupervisorConfig struct {
	Backend       string `yaml:"backend"` // "socket" or "api"
	SocketPath    string `yaml:"socket_path"`
	ApiURL        string `yaml:"api_url"`
	ApiKeyEnv     string `yaml:"api_key_env"`
	Model         string `yaml:"model"`
	TimeoutSecs   int    `yaml:"timeout_secs"`
}

// PolicyConfig is the parsed project policy.yml.
type PolicyConfig struct {
	SensitivePaths          SensitivePathsConfig `yaml:"sensitive_paths"`
	Confidence              ConfidenceConfig     `yaml:"confidence"`
	Similarity              SimilarityConfig     `yaml:"similarity"`
	HumanTimeoutSecs        int                  `yaml:"human_timeout_secs"`
	RegistrationTimeoutSecs int                  `yaml:"registration_timeout_secs"`
	Supervisor              SupervisorConfig     `yaml:"supervisor"`
}

// DefaultPolicy returns the policy used when no policy.yml is present,
// matching original_source's built-in defaults.
func DefaultPolicy() PolicyConfig {
	return PolicyConfig{
		Confidence: ConfidenceConfig{
			Org:     0.85,
			Project: 0.9,
			User:    0.95,
		},
		Similarity: SimilarityConfig{
			JaccardThreshold:   0.92,
			EmbeddingThreshold: 0.88,
			JaccardMinTokens:   4,
		},
		HumanTimeoutSecs:        300,
		RegistrationTimeoutSecs: 30,
		Supervisor: SupervisorConfig{
			Backend:     "socket",
			SocketPath:  "",
			TimeoutSecs: 20,
		},
	}
}

// LoadPolicyFrom reads policy.yml at path, overlaying values onto
// DefaultPolicy. A missing file yields the defaults unchanged.
func LoadPolicyFrom(path string) (*PolicyConfig, error) {
	cfg := DefaultPolicy()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &cfg, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, &cerr.ConfigParse{Path: path, Reason: err.Error()}
	}
	return &cfg, nil
}

// LoadProjectPolicy loads policy.yml from <projectRoot>/.captain-hook/policy.yml.
func LoadProjectPolicy(projectRoot string) (*PolicyConfig, error) {
	return LoadPolicyFrom(filepath.Join(projectRoot, ".captain-hook", "policy.yml"))
}

// ConfidenceFor returns the configured confidence floor for scope, used to
// gate whether a supervisor verdict at that scope may be trusted without
// falling through to the human tier.
func (p *PolicyConfig) ConfidenceFor(scope string) float64 {
	switch scope {
	case "org":
		return p.Confidence.Org
	case "user":
		return p.Confidence.User
	default:
		return p.Confidence.Project
	}
}
