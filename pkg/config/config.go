// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

// Package config defines the agent configuration document and its loader.
//
// The document is a two-section YAML structure rooted at `agent`. String
// values may reference environment variables as ${VAR}; references are
// expanded recursively before typed parsing, and unset variables are left
// literal.
package config

// Config is the top-level configuration document.
type Config struct {
	Agent AgentConfig `yaml:"agent"`
}

// AgentConfig carries every setting of one agent run. The mcp and commands
// sections are optional as wholes; a run without an mcp section has no
// filesystem bridge, and a run without a commands section has no shell tool.
type AgentConfig struct {
	Model     ModelConfig     `yaml:"model"`
	Security  *SecurityConfig `yaml:"security,omitempty"`
	Limits    LimitsConfig    `yaml:"limits,omitempty"`
	Templates TemplatesConfig `yaml:"templates,omitempty"`
	MCP       *MCPConfig      `yaml:"mcp,omitempty"`
	Commands  *CommandConfig  `yaml:"commands,omitempty"`
	Workspace WorkspaceConfig `yaml:"workspace,omitempty"`
}

// ModelConfig identifies the model endpoint.
// Extra holds request settings passed through to the endpoint verbatim,
// such as top_p.
type ModelConfig struct {
	Name        string         `yaml:"name"`
	APIKey      string         `yaml:"api_key,omitempty"`
	APIBase     string         `yaml:"api_base,omitempty"`
	Temperature *float64       `yaml:"temperature,omitempty"`
	Extra       map[string]any `yaml:"extra,omitempty"`
}

// SecurityConfig is the set of disallowed command tokens, consulted
// read-only before every command execution.
type SecurityConfig struct {
	BlockedCommands []string `yaml:"blocked_commands,omitempty"`
}

// LimitsConfig bounds one agent run. A nil field leaves the runtime
// default in place.
type LimitsConfig struct {
	MaxTokens *int `yaml:"max_tokens,omitempty"`
	MaxSteps  *int `yaml:"max_steps,omitempty"`
}

// TemplatesConfig holds the prompt templates. The user template may
// reference {problem_statement}.
type TemplatesConfig struct {
	SystemTemplate string `yaml:"system_template,omitempty"`
	UserTemplate   string `yaml:"user_template,omitempty"`
}

// MCPConfig configures the filesystem-access bridge: the server executable,
// an optional tool allowlist (empty attaches no filter), and extra
// environment for the server process.
type MCPConfig struct {
	Path          string            `yaml:"path"`
	ToolAllowlist []string          `yaml:"tool_allowlist,omitempty"`
	Env           map[string]string `yaml:"env,omitempty"`
}

// CommandConfig configures the sandboxed command executor. BindMounts are
// ordered HOST:CONTAINER pairs; the order is preserved exactly in the
// constructed argument vector. An explicitly supplied image path overrides
// ApptainerImage per run.
type CommandConfig struct {
	ApptainerImage   string            `yaml:"apptainer_image"`
	Writable         bool              `yaml:"writable,omitempty"`
	WorkingDirectory string            `yaml:"working_directory,omitempty"`
	BindMounts       []string          `yaml:"bind_mounts,omitempty"`
	Env              map[string]string `yaml:"env,omitempty"`
}

// WorkspaceConfig configures the workspace manager.
type WorkspaceConfig struct {
	BaseDir     string `yaml:"base_dir,omitempty"`
	AutoCleanup bool   `yaml:"auto_cleanup,omitempty"`
	MaxAgeHours *int   `yaml:"max_age_hours,omitempty"`
}
