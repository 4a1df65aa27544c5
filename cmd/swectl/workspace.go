// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/docker/go-units"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sweagent-dev/sweagent/pkg/config"
	"github.com/sweagent-dev/sweagent/pkg/textutil"
	"github.com/sweagent-dev/sweagent/pkg/workspace"
)

func newWorkspaceCommand() *cobra.Command {
	workspaceCommand := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Manage the per-run workspaces",
	}
	workspaceCommand.PersistentFlags().String("agent-config", "", "Resolve the workspace settings from the given agent configuration file")
	workspaceCommand.AddCommand(
		newWorkspaceListCommand(),
		newWorkspaceDeleteCommand(),
		newWorkspacePruneCommand(),
	)
	return workspaceCommand
}

// workspaceManager builds the manager the subcommands operate through.
// With --agent-config the base directory and limits come from that file;
// otherwise the defaults apply.
func workspaceManager(cmd *cobra.Command) (*workspace.Manager, *config.Config, error) {
	configPath, err := cmd.Flags().GetString("agent-config")
	if err != nil {
		return nil, nil, err
	}
	var cfg *config.Config
	baseDir := ""
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
		if err != nil {
			return nil, nil, err
		}
		baseDir = cfg.Agent.Workspace.BaseDir
	}
	m, err := workspace.New(baseDir)
	if err != nil {
		return nil, nil, err
	}
	return m, cfg, nil
}

func newWorkspaceListCommand() *cobra.Command {
	listCommand := &cobra.Command{
		Use:               "list",
		Aliases:           []string{"ls"},
		Short:             "List workspaces",
		Args:              WrapArgsError(cobra.NoArgs),
		RunE:              workspaceListAction,
		ValidArgsFunction: cobra.NoFileCompletions,
	}
	listCommand.Flags().StringP("format", "f", "", "Format the output using the given Go template")
	listCommand.Flags().Bool("json", false, "JSONify output")
	listCommand.Flags().BoolP("quiet", "q", false, "Only show names")
	return listCommand
}

// workspaceEntry is one row of the list output.
type workspaceEntry struct {
	Name       string    `json:"name"`
	Dir        string    `json:"dir"`
	InstanceID string    `json:"instance_id"`
	ModelName  string    `json:"model_name"`
	CreatedAt  time.Time `json:"created_at"`
	SizeBytes  int64     `json:"size_bytes"`
}

func workspaceListAction(cmd *cobra.Command, _ []string) error {
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return err
	}
	goFormat, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	jsonFormat, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	if quiet && jsonFormat {
		return errors.New("option --quiet conflicts with --json")
	}
	if goFormat != "" && jsonFormat {
		return errors.New("option --format conflicts with --json")
	}
	if goFormat != "" && quiet {
		return errors.New("option --format conflicts with --quiet")
	}

	m, _, err := workspaceManager(cmd)
	if err != nil {
		return err
	}
	dirs, err := m.List()
	if err != nil {
		return err
	}

	if quiet {
		for _, dir := range dirs {
			fmt.Fprintln(cmd.OutOrStdout(), filepath.Base(dir))
		}
		return nil
	}

	if goFormat != "" {
		for _, dir := range dirs {
			entry, err := inspectWorkspace(dir)
			if err != nil {
				logrus.WithError(err).Errorf("workspace %q is broken?", dir)
				continue
			}
			b, err := textutil.ExecuteTemplate(goFormat, entry)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
		}
		return nil
	}
	if jsonFormat {
		for _, dir := range dirs {
			entry, err := inspectWorkspace(dir)
			if err != nil {
				logrus.WithError(err).Errorf("workspace %q is broken?", dir)
				continue
			}
			b, err := json.Marshal(entry)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 4, 8, 4, ' ', 0)
	fmt.Fprintln(w, "NAME\tINSTANCE\tMODEL\tCREATED\tSIZE")

	if len(dirs) == 0 {
		logrus.Warn("No workspace found. Run `swectl run` to create one.")
	}

	for _, dir := range dirs {
		entry, err := inspectWorkspace(dir)
		if err != nil {
			logrus.WithError(err).Errorf("workspace %q is broken?", dir)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			entry.Name,
			entry.InstanceID,
			entry.ModelName,
			units.HumanDuration(time.Since(entry.CreatedAt))+" ago",
			units.BytesSize(float64(entry.SizeBytes)),
		)
	}

	return w.Flush()
}

func inspectWorkspace(dir string) (*workspaceEntry, error) {
	md, err := workspace.ReadMetadata(dir)
	if err != nil {
		return nil, err
	}
	size, err := dirSize(dir)
	if err != nil {
		return nil, err
	}
	return &workspaceEntry{
		Name:       filepath.Base(dir),
		Dir:        dir,
		InstanceID: md.InstanceID,
		ModelName:  md.ModelName,
		CreatedAt:  md.CreatedAt,
		SizeBytes:  size,
	}, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		st, err := d.Info()
		if err != nil {
			return err
		}
		total += st.Size()
		return nil
	})
	return total, err
}

func newWorkspaceDeleteCommand() *cobra.Command {
	deleteCommand := &cobra.Command{
		Use:               "delete DIR [DIR, ...]",
		Aliases:           []string{"remove", "rm"},
		Short:             "Delete workspaces",
		Args:              WrapArgsError(cobra.MinimumNArgs(1)),
		RunE:              workspaceDeleteAction,
		ValidArgsFunction: cobra.NoFileCompletions,
	}
	deleteCommand.Flags().BoolP("force", "f", false, "Ignore removal errors")
	return deleteCommand
}

func workspaceDeleteAction(cmd *cobra.Command, args []string) error {
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}
	m, _, err := workspaceManager(cmd)
	if err != nil {
		return err
	}
	for _, dir := range args {
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			logrus.Warnf("Ignoring non-existent workspace %q", dir)
			continue
		}
		// Only directories carrying workspace metadata are deleted, so a
		// mistyped argument cannot take an unrelated tree with it.
		if _, err := workspace.ReadMetadata(dir); err != nil {
			return fmt.Errorf("refusing to delete %q: %w", dir, err)
		}
		if err := m.Cleanup(dir, force); err != nil {
			return fmt.Errorf("failed to delete workspace %q: %w", dir, err)
		}
		logrus.Infof("Deleted %q", dir)
	}
	return nil
}

func newWorkspacePruneCommand() *cobra.Command {
	pruneCommand := &cobra.Command{
		Use:               "prune",
		Short:             "Remove workspaces older than the age limit",
		Args:              WrapArgsError(cobra.NoArgs),
		RunE:              workspacePruneAction,
		ValidArgsFunction: cobra.NoFileCompletions,
	}
	pruneCommand.Flags().Int("max-age-hours", config.DefaultMaxAgeHours, "Remove workspaces older than this many hours")
	pruneCommand.Flags().Bool("dry-run", false, "Only report what would be removed")
	return pruneCommand
}

func workspacePruneAction(cmd *cobra.Command, _ []string) error {
	maxAgeHours, err := cmd.Flags().GetInt("max-age-hours")
	if err != nil {
		return err
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}
	m, cfg, err := workspaceManager(cmd)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("max-age-hours") && cfg != nil && cfg.Agent.Workspace.MaxAgeHours != nil {
		maxAgeHours = *cfg.Agent.Workspace.MaxAgeHours
	}

	removed, err := m.PruneOld(maxAgeHours, dryRun)
	if err != nil {
		return err
	}
	if dryRun {
		logrus.Infof("Would remove %d workspace(s)", len(removed))
		return nil
	}
	logrus.Infof("Removed %d workspace(s)", len(removed))
	return nil
}
