// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"

	"github.com/sweagent-dev/sweagent/pkg/config"
)

// Runner loads a config file and executes one run against it, tearing the
// run down afterwards. It is the one-call entrypoint the CLI uses.
type Runner struct {
	ConfigPath string
	InstanceID string
	ModelName  string
	SIFPath    string
}

// Run executes the agent on input and returns the final assistant message.
func (r *Runner) Run(ctx context.Context, input string) (string, error) {
	cfg, err := config.LoadFile(r.ConfigPath)
	if err != nil {
		return "", err
	}
	if err := config.Validate(cfg); err != nil {
		return "", err
	}
	rt := &Runtime{
		Config:     cfg,
		InstanceID: r.InstanceID,
		ModelName:  r.ModelName,
		SIFPath:    r.SIFPath,
	}
	run, err := rt.Build(ctx)
	if err != nil {
		return "", err
	}
	defer run.Close()
	return run.Execute(ctx, input)
}
