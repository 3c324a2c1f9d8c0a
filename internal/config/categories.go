package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/opsgate/captainhook/internal/cerr"
)

// DefaultCategories returns the built-in semantic path groups, ported
// from original_source/src/config/roles.rs's default_categories(). A
// project's roles.yml `categories:` section is merged over these.
func DefaultCategories() map[string][]string {
	return map[string][]string{
		"source": {"src/**", "lib/**"},
		"tests": {
			"tests/**", "test-fixtures/**", "*.test.*", "*.spec.*",
			"*_test.go", "test_*.py", "**/test_*.py", "**/*_test.go",
		},
		"docs": {"docs/**"},
		"ci": {
			".github/**", ".gitlab-ci.yml", ".circleci/**", "Jenkinsfile", ".buildkite/**",
		},
		"infra": {
			"*.tf", "*.tfvars", "*.hcl", "terraform/**", "infra/**", "pulumi/**",
			"cdk/**", "cloudformation/**", "ansible/**", "helm/**", ".terraform.lock.hcl",
		},
		"config_files": {
			"Cargo.toml", "Cargo.lock", "package.json", "package-lock.json",
			"go.mod", "go.sum", "pyproject.toml", "requirements*.txt",
		},
		"devops": {
			"Dockerfile*", "docker-compose*", ".dockerignore", "Makefile",
			".eslintrc*", ".prettierrc*", ".editorconfig", "tsconfig*", ".*rc", ".*rc.*",
			".tool-versions", ".nvmrc", ".python-version", ".ruby-version",
			"rust-toolchain.toml", "lefthook.yml", ".husky/**", ".pre-commit-config.yaml",
		},
		"test_config": {
			"jest.config.*", "pytest.ini", "vitest.config.*", ".coveragerc", "codecov.yml",
		},
		"research_output":          {"docs/research/**"},
		"architecture_output":      {"docs/architecture/**", "docs/adr/**"},
		"plans_output":             {"docs/plans/**"},
		"reviews_output":           {"docs/reviews/**"},
		"security_reviews_output":  {"docs/reviews/security/**"},
		"docs_output": {
			"docs/**", "*.md", "*.aisp", "CHANGELOG.md", "LICENSE",
		},
	}
}

var macroRe = regexp.MustCompile(`^\{\{([a-z][a-z0-9_]*)\}\}$`)

// ExpandMacros replaces any "{{category}}" token in patterns with the
// matching category's glob list. An unresolvable macro is a fatal
// ConfigParse error naming the available categories.
func ExpandMacros(patterns []string, categories map[string][]string, roleName string) ([]string, error) {
	var expanded []string
	for _, p := range patterns {
		m := macroRe.FindStringSubmatch(p)
		if m == nil {
			expanded = append(expanded, p)
			continue
		}
		name := m[1]
		cat, ok := categories[name]
		if !ok {
			names := make([]string, 0, len(categories))
			for k := range categories {
				names = append(names, k)
			}
			sort.Strings(names)
			return nil, &cerr.ConfigParse{
				Path:   "roles.yml",
				Reason: fmt.Sprintf("role %q: unknown category {{%s}}. Available: %s", roleName, name, strings.Join(names, ", ")),
			}
		}
		expanded = append(expanded, cat...)
	}
	return expanded, nil
}

// MergedCategories overlays user-specified categories on top of the
// built-in defaults.
func MergedCategories(userCategories map[string][]string) map[string][]string {
	merged := DefaultCategories()
	for name, patterns := range userCategories {
		merged[name] = patterns
	}
	return merged
}
