// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sweagent-dev/sweagent/pkg/swebench"
)

func newInstancesCommand() *cobra.Command {
	instancesCommand := &cobra.Command{
		Use:   "instances",
		Short: "Inspect and prepare the benchmark instances of a task config",
	}
	instancesCommand.AddCommand(
		newInstancesListCommand(),
		newInstancesPullCommand(),
	)
	return instancesCommand
}

func newInstancesListCommand() *cobra.Command {
	listCommand := &cobra.Command{
		Use:               "list",
		Aliases:           []string{"ls"},
		Short:             "List the instances the task config selects",
		Args:              WrapArgsError(cobra.NoArgs),
		RunE:              instancesListAction,
		ValidArgsFunction: cobra.NoFileCompletions,
	}
	listCommand.Flags().String("task-config", "task.yaml", "Path to the task configuration file")
	listCommand.Flags().Bool("json", false, "JSONify output")
	return listCommand
}

func instancesListAction(cmd *cobra.Command, _ []string) error {
	jsonFormat, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	instances, err := loadTaskInstances(cmd)
	if err != nil {
		return err
	}

	if jsonFormat {
		for _, inst := range instances {
			b, err := json.Marshal(inst)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 4, 8, 4, ' ', 0)
	fmt.Fprintln(w, "ID\tREPO\tPROBLEM")
	for _, inst := range instances {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			inst.InstanceID,
			inst.Repo,
			problemHead(inst.ProblemStatement),
		)
	}
	return w.Flush()
}

// problemHead renders the first line of a problem statement, truncated so
// the table stays readable.
func problemHead(s string) string {
	s, _, _ = strings.Cut(s, "\n")
	s = strings.TrimSpace(s)
	const limit = 60
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

func newInstancesPullCommand() *cobra.Command {
	pullCommand := &cobra.Command{
		Use:               "pull [INSTANCE, ...]",
		Short:             "Pull the container images and convert them to SIF files",
		RunE:              instancesPullAction,
		ValidArgsFunction: cobra.NoFileCompletions,
	}
	pullCommand.Flags().String("task-config", "task.yaml", "Path to the task configuration file")
	pullCommand.Flags().String("images", swebench.DefaultImagesDir, "Directory holding the SIF images")
	return pullCommand
}

func instancesPullAction(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	imagesDir, err := cmd.Flags().GetString("images")
	if err != nil {
		return err
	}

	ids := args
	if len(ids) == 0 {
		instances, err := loadTaskInstances(cmd)
		if err != nil {
			return err
		}
		for _, inst := range instances {
			ids = append(ids, inst.InstanceID)
		}
	}
	if len(ids) == 0 {
		logrus.Warn("No instance selected, nothing to pull")
		return nil
	}

	for i, id := range ids {
		logrus.Infof("[%d/%d] Ensuring image for %s", i+1, len(ids), id)
		sifPath, err := swebench.EnsureSIF(ctx, id, imagesDir)
		if err != nil {
			return fmt.Errorf("failed to ensure the image of instance %q: %w", id, err)
		}
		logrus.Debugf("SIF image: %s", sifPath)
	}
	logrus.Infof("Ensured %d image(s) under %q", len(ids), imagesDir)
	return nil
}

// loadTaskInstances loads the instance selection of the task config named
// by the command's --task-config flag.
func loadTaskInstances(cmd *cobra.Command) ([]swebench.Instance, error) {
	taskConfigPath, err := cmd.Flags().GetString("task-config")
	if err != nil {
		return nil, err
	}
	taskCfg, err := swebench.LoadTaskConfig(taskConfigPath)
	if err != nil {
		return nil, err
	}
	loader, err := swebench.LoaderFromConfig(taskCfg)
	if err != nil {
		return nil, err
	}
	loader.CacheDir = downloadCacheDir()
	return loader.Load(cmd.Context())
}

// downloadCacheDir returns the directory dataset pages are cached under.
// An unresolvable user cache directory disables caching.
func downloadCacheDir() string {
	ucd, err := os.UserCacheDir()
	if err != nil {
		logrus.WithError(err).Warn("Disabling the download cache")
		return ""
	}
	return filepath.Join(ucd, "sweagent")
}
