// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks c for missing or malformed fields. Errors name the
// offending field.
func Validate(c *Config) error {
	if c.Agent.Model.Name == "" {
		return errors.New("field `agent.model.name` must be set")
	}
	if t := c.Agent.Model.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("field `agent.model.temperature` must be between 0 and 2, got %v", *t)
	}
	if v := c.Agent.Limits.MaxTokens; v != nil && *v <= 0 {
		return fmt.Errorf("field `agent.limits.max_tokens` must be positive, got %d", *v)
	}
	if v := c.Agent.Limits.MaxSteps; v != nil && *v <= 0 {
		return fmt.Errorf("field `agent.limits.max_steps` must be positive, got %d", *v)
	}

	if mcp := c.Agent.MCP; mcp != nil {
		if mcp.Path == "" {
			return errors.New("field `agent.mcp.path` must be set to locate the filesystem server executable")
		}
		for i, tool := range mcp.ToolAllowlist {
			if tool == "" {
				return fmt.Errorf("field `agent.mcp.tool_allowlist[%d]` must not be empty", i)
			}
		}
	}

	if cmds := c.Agent.Commands; cmds != nil {
		if cmds.ApptainerImage == "" {
			return errors.New("field `agent.commands.apptainer_image` must be set")
		}
		for i, mount := range cmds.BindMounts {
			host, container, ok := strings.Cut(mount, ":")
			if !ok || host == "" || container == "" {
				return fmt.Errorf("field `agent.commands.bind_mounts[%d]` must be in HOST:CONTAINER form, got %q", i, mount)
			}
		}
	}

	if c.Agent.Workspace.BaseDir == "" {
		return errors.New("field `agent.workspace.base_dir` must be set")
	}
	if v := c.Agent.Workspace.MaxAgeHours; v != nil && *v < 0 {
		return fmt.Errorf("field `agent.workspace.max_age_hours` must not be negative, got %d", *v)
	}
	return nil
}
