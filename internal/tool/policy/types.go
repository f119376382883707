package policy

import (
	"slices"
)

// CustomTool is a named command template defined by a project. The {args}
// placeholder is replaced with caller-supplied arguments.
type CustomTool struct {
	Name            string `yaml:"name" json:"name"`
	CommandTemplate string `yaml:"command_template" json:"command_template"`
	Description     string `yaml:"description,omitempty" json:"description,omitempty"`
}

// ProjectPolicy is the per-project execution policy.
// AllowedCommands only adds to DefaultAllowlist; defaults cannot be removed.
type ProjectPolicy struct {
	AllowedCommands       []string     `yaml:"allowed_commands" json:"allowed_commands"`
	CustomTools           []CustomTool `yaml:"custom_tools" json:"custom_tools"`
	GitAutoCommit         bool         `yaml:"git_auto_commit" json:"git_auto_commit"`
	CommitMessageTemplate string       `yaml:"commit_message_template" json:"commit_message_template"`
	SessionTracking       bool         `yaml:"session_tracking" json:"session_tracking"`

	// Source is the file the policy was loaded from, empty for defaults.
	Source string `yaml:"-" json:"source,omitempty"`
}

// DefaultCommitMessageTemplate is used when a project enables auto-commit
// without its own template.
const DefaultCommitMessageTemplate = "devrun: {command}"

// DefaultAllowlist is the built-in set of allowed programs.
var DefaultAllowlist = []string{
	// Package managers
	"npm", "npx", "yarn", "pnpm", "pip", "pip3", "pipx", "poetry", "cargo", "go", "bundle", "gem", "composer",
	// Runtimes
	"node", "python", "python3", "deno", "bun",
	// VCS and containers
	"git", "docker", "docker-compose", "make",
	// Linters and test runners
	"eslint", "prettier", "tsc", "jest", "vitest", "mocha", "pytest", "ruff", "black", "flake8", "mypy",
	// Read-only utilities
	"ls", "cat", "echo", "pwd", "which", "head", "tail", "grep", "find", "wc", "date", "printenv",
}

// DefaultPolicy returns the policy used when a project has no policy file.
func DefaultPolicy() *ProjectPolicy {
	return &ProjectPolicy{
		CommitMessageTemplate: DefaultCommitMessageTemplate,
	}
}

// AllowedPrefixes returns the defaults merged with the project's additions,
// sorted and without duplicates.
func (p *ProjectPolicy) AllowedPrefixes() []string {
	out := make([]string, 0, len(DefaultAllowlist)+len(p.AllowedCommands))
	out = append(out, DefaultAllowlist...)
	for _, c := range p.AllowedCommands {
		if c != "" {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// LookupTool finds a custom tool by name.
func (p *ProjectPolicy) LookupTool(name string) (CustomTool, bool) {
	for _, t := range p.CustomTools {
		if t.Name == name {
			return t, true
		}
	}
	return CustomTool{}, false
}

// Clone returns a deep copy.
func (p *ProjectPolicy) Clone() *ProjectPolicy {
	c := *p
	c.AllowedCommands = slices.Clone(p.AllowedCommands)
	c.CustomTools = slices.Clone(p.CustomTools)
	return &c
}
