// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sweagent-dev/sweagent/pkg/version"
)

func main() {
	if err := newApp().Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func processGlobalFlags(rootCmd *cobra.Command) error {
	// --log-level will override --debug
	if debug, _ := rootCmd.Flags().GetBool("debug"); debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	l, _ := rootCmd.Flags().GetString("log-level")
	if l != "" {
		lvl, err := logrus.ParseLevel(l)
		if err != nil {
			return err
		}
		logrus.SetLevel(lvl)
	}

	logFormat, _ := rootCmd.Flags().GetString("log-format")
	switch logFormat {
	case "json":
		formatter := new(logrus.JSONFormatter)
		logrus.StandardLogger().SetFormatter(formatter)
	case "text":
		// logrus uses the text format by default.
	default:
		return fmt.Errorf("unsupported log-format: %q", logFormat)
	}
	return nil
}

func newApp() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "swectl",
		Short:   "Run coding agents against SWE-bench tasks in Apptainer sandboxes",
		Version: strings.TrimPrefix(version.Version, "v"),
		Example: `  Run the agent on the instances selected by the task config:
  $ swectl run --agent-config agent.yaml --task-config task.yaml

  Pull the container images ahead of time:
  $ swectl instances pull --task-config task.yaml

  List workspaces left behind by earlier runs:
  $ swectl workspace list

  Watch sandboxed commands as the agent executes them:
  $ swectl audit --kind tools --follow`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}
	rootCmd.PersistentFlags().String("log-level", "", "Set the logging level [trace, debug, info, warn, error]")
	rootCmd.PersistentFlags().String("log-format", "text", "Set the logging format [text, json]")
	rootCmd.PersistentFlags().Bool("debug", false, "Debug mode")
	rootCmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		return processGlobalFlags(rootCmd)
	}

	rootCmd.AddCommand(
		newRunCommand(),
		newWorkspaceCommand(),
		newInstancesCommand(),
		newValidateCommand(),
		newAuditCommand(),
		newGenManCommand(),
	)

	return rootCmd
}
