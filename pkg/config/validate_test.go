// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/sweagent-dev/sweagent/pkg/ptr"
)

func validConfig() *Config {
	c := &Config{}
	c.Agent.Model.Name = "gpt-4"
	FillDefault(c)
	return c
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "minimal valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing model name",
			mutate:  func(c *Config) { c.Agent.Model.Name = "" },
			wantErr: "field `agent.model.name` must be set",
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *Config) { c.Agent.Model.Temperature = ptr.Of(2.5) },
			wantErr: "field `agent.model.temperature` must be between 0 and 2",
		},
		{
			name:    "non-positive max_tokens",
			mutate:  func(c *Config) { c.Agent.Limits.MaxTokens = ptr.Of(0) },
			wantErr: "field `agent.limits.max_tokens` must be positive",
		},
		{
			name:    "mcp without path",
			mutate:  func(c *Config) { c.Agent.MCP = &MCPConfig{} },
			wantErr: "field `agent.mcp.path` must be set",
		},
		{
			name: "empty allowlist entry",
			mutate: func(c *Config) {
				c.Agent.MCP = &MCPConfig{Path: "swectl-mcp", ToolAllowlist: []string{"read_file", ""}}
			},
			wantErr: "field `agent.mcp.tool_allowlist[1]` must not be empty",
		},
		{
			name:    "commands without image",
			mutate:  func(c *Config) { c.Agent.Commands = &CommandConfig{} },
			wantErr: "field `agent.commands.apptainer_image` must be set",
		},
		{
			name: "malformed bind mount",
			mutate: func(c *Config) {
				c.Agent.Commands = &CommandConfig{
					ApptainerImage: "x.sif",
					BindMounts:     []string{"/host/dir"},
				}
			},
			wantErr: "field `agent.commands.bind_mounts[0]` must be in HOST:CONTAINER form",
		},
		{
			name:    "negative max_age_hours",
			mutate:  func(c *Config) { c.Agent.Workspace.MaxAgeHours = ptr.Of(-1) },
			wantErr: "field `agent.workspace.max_age_hours` must not be negative",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.mutate(c)
			err := Validate(c)
			if tc.wantErr == "" {
				assert.NilError(t, err)
			} else {
				assert.ErrorContains(t, err, tc.wantErr)
			}
		})
	}
}
