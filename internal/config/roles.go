package config

import (
	"os"
	"path/filepath"

	"github.com/opsgate/captainhook/internal/cerr"
	"gopkg.in/yaml.v3"
)

// PathPolicyConfig is the raw (string-glob) path policy from roles.yml,
// before category-macro expansion and glob compilation.
type PathPolicyConfig struct {
	AllowWrite []string `yaml:"allow_write"`
	DenyWrite  []string `yaml:"deny_write"`
	AllowRead  []string `yaml:"allow_read"`
}

// RoleDefinition is one role entry from roles.yml.
type RoleDefinition struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Paths       PathPolicyConfig `yaml:"paths"`
}

// CompiledPathPolicy holds the glob sets ready for matching. SensitiveAskWrite
// comes from the project-wide policy.yml, independent of the role.
type CompiledPathPolicy struct {
	AllowWrite        *GlobSet
	DenyWrite         *GlobSet
	AllowRead         *GlobSet
	SensitiveAskWrite *GlobSet
}

// Compile builds a CompiledPathPolicy from raw config and the project's
// sensitive-path patterns.
func (c PathPolicyConfig) Compile(sensitivePatterns []string) (*CompiledPathPolicy, error) {
	allowWrite, err := BuildGlobSet(c.AllowWrite)
	if err != nil {
		return nil, err
	}
	denyWrite, err := BuildGlobSet(c.DenyWrite)
	if err != nil {
		return nil, err
	}
	allowRead, err := BuildGlobSet(c.AllowRead)
	if err != nil {
		return nil, err
	}
	sensitive, err := BuildGlobSet(sensitivePatterns)
	if err != nil {
		return nil, err
	}
	return &CompiledPathPolicy{
		AllowWrite:        allowWrite,
		DenyWrite:         denyWrite,
		AllowRead:         allowRead,
		SensitiveAskWrite: sensitive,
	}, nil
}

// RolesConfig is the parsed roles.yml: semantic path categories merged
// over built-in defaults, plus the role table.
type RolesConfig struct {
	Categories map[string][]string       `yaml:"categories"`
	Roles      map[string]RoleDefinition `yaml:"roles"`
}

// LoadRolesFrom reads and expands roles.yml at path. A missing file
// yields an empty config rather than an error -- captainhook runs with
// no roles configured until a project opts in.
func LoadRolesFrom(path string) (*RolesConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &RolesConfig{Categories: map[string][]string{}, Roles: map[string]RoleDefinition{}}, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg RolesConfig
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, &cerr.ConfigParse{Path: path, Reason: err.Error()}
	}
	if cfg.Roles == nil {
		cfg.Roles = map[string]RoleDefinition{}
	}

	if err := cfg.expandCategories(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadProjectRoles loads roles.yml from <projectRoot>/.captain-hook/roles.yml.
func LoadProjectRoles(projectRoot string) (*RolesConfig, error) {
	return LoadRolesFrom(filepath.Join(projectRoot, ".captain-hook", "roles.yml"))
}

// GetRole looks up a role by name.
func (c *RolesConfig) GetRole(name string) (RoleDefinition, bool) {
	r, ok := c.Roles[name]
	return r, ok
}

// Normalizer builds a PathNormalizer from this config's categories.
func (c *RolesConfig) Normalizer() (*PathNormalizer, error) {
	return NewPathNormalizer(c.Categories)
}

func (c *RolesConfig) expandCategories() error {
	merged := MergedCategories(c.Categories)

	for name, role := range c.Roles {
		allowWrite, err := ExpandMacros(role.Paths.AllowWrite, merged, name)
		if err != nil {
			return err
		}
		denyWrite, err := ExpandMacros(role.Paths.DenyWrite, merged, name)
		if err != nil {
			return err
		}
		allowRead, err := ExpandMacros(role.Paths.AllowRead, merged, name)
		if err != nil {
			return err
		}
		role.Paths.AllowWrite = allowWrite
		role.Paths.DenyWrite = denyWrite
		role.Paths.AllowRead = allowRead
		c.Roles[name] = role
	}

	c.Categories = merged
	return nil
}
