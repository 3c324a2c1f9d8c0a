// Package session tracks the registration lifecycle of an agent session:
// which user/org/project it belongs to, which role (and compiled path
// policy) it has been registered under, and whether it has been disabled.
// State is persisted per-team so that the "check" hook (short-lived, one
// process per tool call) and the "register"/"disable"/"enable" CLI
// commands (also short-lived, separate processes) see a consistent view.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/opsgate/captainhook/internal/config"
)

// Context describes one registered (or pending) session.
type Context struct {
	SessionID       string    `json:"session_id"`
	User            string    `json:"user"`
	Org             string    `json:"org"`
	Project         string    `json:"project"`
	Team            string    `json:"team,omitempty"`
	Role            string    `json:"role,omitempty"`
	TaskDescription string    `json:"task_description,omitempty"`
	RegisteredAt    time.Time `json:"registered_at"`
	Disabled        bool      `json:"disabled"`
}

// IsRegistered reports whether the session has a role assigned.
func (c *Context) IsRegistered() bool {
	return c != nil && c.Role != ""
}

// fileState is the on-disk shape: one JSON file per team holding every
// session registered under it.
type fileState struct {
	Sessions map[string]*Context `json:"sessions"`
}

// Manager loads, persists and looks up session contexts for one team
// namespace. It also resolves the team's RolesConfig so a registered
// session's CompiledPathPolicy is available without a second file read.
type Manager struct {
	mu      sync.Mutex
	path    string
	state   fileState
	loaded  bool
	roles   *config.RolesConfig
}

// NewManager builds a Manager for the given team ID (may be empty) and
// project root, used to locate both the session store and roles.yml.
func NewManager(teamID, projectRoot string) (*Manager, error) {
	roles, err := config.LoadProjectRoles(projectRoot)
	if err != nil {
		return nil, err
	}
	return &Manager{
		path:  sessionStorePath(teamID),
		roles: roles,
	}, nil
}

// sessionStorePath mirrors the pending-decision queue's path resolution:
// CLAUDE_TEAM_ID namespaces the filename, XDG_RUNTIME_DIR (falling back to
// os.UserConfigDir, then /tmp) selects the directory.
func sessionStorePath(teamID string) string {
	suffix := ""
	if teamID != "" {
		suffix = "-" + teamID
	}
	filename := "sessions" + suffix + ".json"

	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "captain-hook", filename)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "captain-hook", filename)
	}
	return filepath.Join(os.TempDir(), "captain-hook-"+filename)
}

func (m *Manager) ensureLoaded() {
	if m.loaded {
		return
	}
	m.state = fileState{Sessions: map[string]*Context{}}
	contents, err := os.ReadFile(m.path)
	if err == nil {
		_ = json.Unmarshal(contents, &m.state)
	}
	if m.state.Sessions == nil {
		m.state.Sessions = map[string]*Context{}
	}
	m.loaded = true
}

func (m *Manager) save() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return err
	}
	contents, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, contents, 0o644)
}

// Get returns the session context for sessionID, or nil if never
// registered or disabled.
func (m *Manager) Get(sessionID string) *Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoaded()
	return m.state.Sessions[sessionID]
}

// IsDisabled reports whether sessionID has been explicitly disabled.
func (m *Manager) IsDisabled(sessionID string) bool {
	ctx := m.Get(sessionID)
	return ctx != nil && ctx.Disabled
}

// IsRegistered reports whether sessionID already has a role.
func (m *Manager) IsRegistered(sessionID string) bool {
	return m.Get(sessionID).IsRegistered()
}

// Register assigns a role to a session, creating the context if needed.
// Re-registering an existing session replaces its role and task
// description and clears any disabled flag.
func (m *Manager) Register(sessionID, user, org, project, team, role, task string) (*Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoaded()

	ctx := &Context{
		SessionID:       sessionID,
		User:            user,
		Org:             org,
		Project:         project,
		Team:            team,
		Role:            role,
		TaskDescription: task,
		RegisteredAt:    time.Now().UTC(),
		Disabled:        false,
	}
	m.state.Sessions[sessionID] = ctx
	if err := m.save(); err != nil {
		return nil, err
	}
	return ctx, nil
}

// Disable marks a session as disabled without forgetting its role, so a
// later Enable restores prior registration.
func (m *Manager) Disable(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoaded()

	ctx, ok := m.state.Sessions[sessionID]
	if !ok {
		ctx = &Context{SessionID: sessionID, RegisteredAt: time.Now().UTC()}
		m.state.Sessions[sessionID] = ctx
	}
	ctx.Disabled = true
	return m.save()
}

// Enable clears a session's disabled flag.
func (m *Manager) Enable(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoaded()

	ctx, ok := m.state.Sessions[sessionID]
	if !ok {
		return nil
	}
	ctx.Disabled = false
	return m.save()
}

// RoleNames lists the roles available to register against, for the
// registration-prompt message shown to an unregistered session.
func (m *Manager) RoleNames() []string {
	names := make([]string, 0, len(m.roles.Roles))
	for name := range m.roles.Roles {
		names = append(names, name)
	}
	return names
}

// GetRole looks up a role definition by name.
func (m *Manager) GetRole(name string) (config.RoleDefinition, bool) {
	return m.roles.GetRole(name)
}

// RoleDescription returns the human-readable description for a role
// name, or "" if unknown.
func (m *Manager) RoleDescription(roleName string) string {
	role, ok := m.roles.GetRole(roleName)
	if !ok {
		return ""
	}
	return role.Description
}

// CompiledPolicyFor resolves a session's role into a compiled path
// policy, using sensitivePatterns from project policy.yml.
func (m *Manager) CompiledPolicyFor(ctx *Context, sensitivePatterns []string) (*config.CompiledPathPolicy, error) {
	role, ok := m.roles.GetRole(ctx.Role)
	if !ok {
		return nil, nil
	}
	return role.Paths.Compile(sensitivePatterns)
}
