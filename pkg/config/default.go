// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"github.com/sweagent-dev/sweagent/pkg/ptr"
)

// Default values for unspecified fields.
const (
	DefaultBaseDir     = "workspaces"
	DefaultMaxAgeHours = 24
)

// FillDefault fills unspecified fields of c with the default values.
func FillDefault(c *Config) {
	if c.Agent.Security == nil {
		c.Agent.Security = &SecurityConfig{}
	}
	if c.Agent.Workspace.BaseDir == "" {
		c.Agent.Workspace.BaseDir = DefaultBaseDir
	}
	if c.Agent.Workspace.MaxAgeHours == nil {
		c.Agent.Workspace.MaxAgeHours = ptr.Of(DefaultMaxAgeHours)
	}
}
