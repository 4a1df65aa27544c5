// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/containerd/continuity/fs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sweagent-dev/sweagent/pkg/agent"
	"github.com/sweagent-dev/sweagent/pkg/config"
	"github.com/sweagent-dev/sweagent/pkg/localpathutil"
	"github.com/sweagent-dev/sweagent/pkg/swebench"
)

func newRunCommand() *cobra.Command {
	runCommand := &cobra.Command{
		Use:               "run",
		Short:             "Run the agent on the instances selected by the task config",
		Args:              WrapArgsError(cobra.NoArgs),
		RunE:              runAction,
		ValidArgsFunction: cobra.NoFileCompletions,
	}
	runCommand.Flags().String("agent-config", "agent.yaml", "Path to the agent configuration file")
	runCommand.Flags().String("task-config", "task.yaml", "Path to the task configuration file")
	runCommand.Flags().StringP("output", "o", "sweagent_output", "Directory for per-instance results")
	runCommand.Flags().StringSlice("instance", nil, "Run only the given instance id (can be repeated)")
	runCommand.Flags().String("images", swebench.DefaultImagesDir, "Directory holding the SIF images")
	return runCommand
}

func runAction(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	agentConfigPath, err := cmd.Flags().GetString("agent-config")
	if err != nil {
		return err
	}
	taskConfigPath, err := cmd.Flags().GetString("task-config")
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	only, err := cmd.Flags().GetStringSlice("instance")
	if err != nil {
		return err
	}
	imagesDir, err := cmd.Flags().GetString("images")
	if err != nil {
		return err
	}

	// Fail on a broken agent config before pulling anything.
	cfg, err := config.LoadFile(agentConfigPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	taskCfg, err := swebench.LoadTaskConfig(taskConfigPath)
	if err != nil {
		return err
	}
	loader, err := swebench.LoaderFromConfig(taskCfg)
	if err != nil {
		return err
	}
	loader.CacheDir = downloadCacheDir()

	instances, err := loader.Load(ctx)
	if err != nil {
		return err
	}
	if len(only) > 0 {
		instances = narrowInstances(instances, only)
	}
	if len(instances) == 0 {
		return errors.New("no instances selected")
	}

	outputDir, err := localpathutil.Expand(output)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}

	var succeeded, failed int
	for i, inst := range instances {
		logrus.Infof("[%d/%d] Processing instance %s", i+1, len(instances), inst.InstanceID)
		if err := runInstance(ctx, cfg, agentConfigPath, outputDir, imagesDir, inst); err != nil {
			logrus.WithError(err).Errorf("Failed to process instance %s", inst.InstanceID)
			failed++
			continue
		}
		succeeded++
	}

	logrus.Infof("Finished: %d total, %d succeeded, %d failed", len(instances), succeeded, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d instance(s) failed", failed, len(instances))
	}
	return nil
}

// narrowInstances keeps the loaded instances whose id was requested,
// preserving the load order. Requested ids the load did not produce are
// warned about and skipped.
func narrowInstances(instances []swebench.Instance, only []string) []swebench.Instance {
	requested := make(map[string]struct{}, len(only))
	for _, id := range only {
		requested[id] = struct{}{}
	}
	var kept []swebench.Instance
	for _, inst := range instances {
		if _, ok := requested[inst.InstanceID]; ok {
			kept = append(kept, inst)
			delete(requested, inst.InstanceID)
		}
	}
	for _, id := range slices.Sorted(maps.Keys(requested)) {
		logrus.Warnf("Ignoring unknown instance %q", id)
	}
	return kept
}

// runInstance executes one agent run: the image is materialized as a SIF,
// the agent config is snapshotted into the per-instance output directory,
// and the runner is pointed at the snapshot so the results record the
// exact configuration they were produced with.
func runInstance(ctx context.Context, cfg *config.Config, agentConfigPath, outputDir, imagesDir string, inst swebench.Instance) error {
	sifPath, err := swebench.EnsureSIF(ctx, inst.InstanceID, imagesDir)
	if err != nil {
		return err
	}

	instanceDir := filepath.Join(outputDir, strings.ReplaceAll(inst.InstanceID, "__", "_"))
	if err := os.MkdirAll(instanceDir, 0o755); err != nil {
		return err
	}
	configSnapshot := filepath.Join(instanceDir, "agent_config.yaml")
	if err := fs.CopyFile(configSnapshot, agentConfigPath); err != nil {
		return fmt.Errorf("failed to snapshot the agent config into %q: %w", instanceDir, err)
	}

	runner := &agent.Runner{
		ConfigPath: configSnapshot,
		InstanceID: inst.InstanceID,
		ModelName:  cfg.Agent.Model.Name,
		SIFPath:    sifPath,
	}
	if _, err := runner.Run(ctx, inst.ProblemStatement); err != nil {
		return err
	}
	return nil
}
