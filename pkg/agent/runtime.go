// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent assembles configured runs: workspace, sandboxed shell
// tool, filesystem bridge, and the model loop that drives them.
package agent

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sweagent-dev/sweagent/pkg/agentloop"
	"github.com/sweagent-dev/sweagent/pkg/apptainer"
	"github.com/sweagent-dev/sweagent/pkg/config"
	"github.com/sweagent-dev/sweagent/pkg/mcp/bridge"
	"github.com/sweagent-dev/sweagent/pkg/workspace"
)

// TrajectoryFileName is the per-run conversation record, written under the
// workspace outputs directory.
const TrajectoryFileName = "trajectory.jsonl"

// Runtime assembles a Run from configuration plus per-instance facts.
// InstanceID, ModelName, and SIFPath may all be empty for free-form runs
// that operate without a workspace.
type Runtime struct {
	Config     *config.Config
	InstanceID string
	ModelName  string

	// SIFPath pins the container image for this run, overriding
	// commands.apptainer_image.
	SIFPath string
}

// Run is one assembled agent run. Execute may be called once the Run is
// built; Close tears the run's resources down and must be called even
// when Execute fails.
type Run struct {
	loop         *agentloop.Loop
	bridge       *bridge.Bridge
	ws           *workspace.Info
	manager      *workspace.Manager
	cleanup      bool
	userTemplate string
}

// Workspace returns the run's workspace, or nil when the run has none.
func (r *Run) Workspace() *workspace.Info {
	return r.ws
}

// Build resolves the image, creates the workspace when the run is bound to
// a benchmark instance, and wires every configured tool into the loop.
func (rt *Runtime) Build(ctx context.Context) (*Run, error) {
	if rt.Config == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	agentCfg := &rt.Config.Agent
	sifPath := rt.resolveSIFPath()

	run := &Run{
		cleanup:      agentCfg.Workspace.AutoCleanup,
		userTemplate: agentCfg.Templates.UserTemplate,
	}
	ok := false
	defer func() {
		if !ok {
			run.Close()
		}
	}()

	if rt.InstanceID != "" && rt.ModelName != "" && sifPath != "" {
		manager, err := workspace.New(agentCfg.Workspace.BaseDir)
		if err != nil {
			return nil, err
		}
		ws, err := manager.Create(ctx, rt.InstanceID, rt.ModelName, sifPath)
		if err != nil {
			return nil, err
		}
		run.manager = manager
		run.ws = ws
	}

	var tools []agentloop.Tool
	if agentCfg.Commands != nil {
		commands := agentCfg.Commands
		if run.ws != nil {
			// Mount the workspace so the shell tool and the filesystem
			// bridge see the same testbed files.
			mounted := *commands
			mounted.BindMounts = append(run.ws.BindMounts(), commands.BindMounts...)
			commands = &mounted
		}
		executor, err := apptainer.NewExecutor(agentCfg.Security, commands, sifPath)
		if err != nil {
			return nil, err
		}
		tools = append(tools, executor.Tool())
	}
	if agentCfg.MCP != nil {
		br, err := bridge.New(agentCfg.MCP, run.ws).Connect(ctx)
		if err != nil {
			return nil, err
		}
		run.bridge = br
		bridged, err := br.Tools(ctx)
		if err != nil {
			return nil, err
		}
		tools = append(tools, bridged...)
	}

	loopOpts := agentloop.Options{
		Client:       agentloop.NewClient(agentCfg.Model.APIBase, agentCfg.Model.APIKey),
		Model:        agentCfg.Model.Name,
		SystemPrompt: agentCfg.Templates.SystemTemplate,
		Temperature:  agentCfg.Model.Temperature,
		MaxTokens:    agentCfg.Limits.MaxTokens,
		Tools:        tools,
	}
	if agentCfg.Limits.MaxSteps != nil {
		loopOpts.MaxTurns = *agentCfg.Limits.MaxSteps
	}
	if run.ws != nil {
		loopOpts.TrajectoryPath = filepath.Join(run.ws.OutputsDir, TrajectoryFileName)
	}
	loop, err := agentloop.New(loopOpts)
	if err != nil {
		return nil, err
	}
	run.loop = loop

	logrus.WithFields(logrus.Fields{
		"model":     agentCfg.Model.Name,
		"max_steps": agentCfg.Limits.MaxSteps,
		"tools":     len(tools),
	}).Info("Agent constructed")
	ok = true
	return run, nil
}

// resolveSIFPath picks the image for this run: an explicitly pinned SIF
// wins over the configured default.
func (rt *Runtime) resolveSIFPath() string {
	if rt.SIFPath != "" {
		return rt.SIFPath
	}
	if c := rt.Config.Agent.Commands; c != nil {
		return c.ApptainerImage
	}
	return ""
}

// Execute renders the user template around problemStatement and drives the
// loop to completion.
func (r *Run) Execute(ctx context.Context, problemStatement string) (string, error) {
	input := renderUserTemplate(r.userTemplate, problemStatement)
	logrus.WithField("input", truncate(input, 200)).Info("Starting agent run")
	out, err := r.loop.Run(ctx, input)
	if err != nil {
		return "", err
	}
	logrus.Info("Agent run complete")
	return out, nil
}

// Close tears the run down: the bridge is shut first so the server process
// never outlives the run, then auto-cleanup removes the workspace when
// configured. Teardown failures are logged, not returned; a finished run's
// outcome must not be masked by cleanup trouble.
func (r *Run) Close() error {
	if r.bridge != nil {
		if err := r.bridge.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to shut down MCP bridge")
		}
		r.bridge = nil
	}
	if r.cleanup && r.ws != nil && r.manager != nil {
		if err := r.manager.Cleanup(r.ws.WorkspaceDir, true); err != nil {
			logrus.WithError(err).Warn("Failed to clean up workspace")
		}
		r.ws = nil
	}
	return nil
}

func renderUserTemplate(template, problemStatement string) string {
	if template == "" {
		return problemStatement
	}
	return strings.ReplaceAll(template, "{problem_statement}", problemStatement)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
