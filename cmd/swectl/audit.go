// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/nxadm/tail"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sweagent-dev/sweagent/pkg/auditlog"
)

func newAuditCommand() *cobra.Command {
	auditCommand := &cobra.Command{
		Use:               "audit",
		Short:             "Print audit log records",
		Args:              WrapArgsError(cobra.NoArgs),
		RunE:              auditAction,
		ValidArgsFunction: cobra.NoFileCompletions,
	}
	auditCommand.Flags().String("kind", "tools", "Audit log to read [tools, mcp, workspace]")
	auditCommand.Flags().BoolP("follow", "f", false, "Keep printing records as they are appended")
	auditCommand.Flags().IntP("lines", "n", 10, "Number of trailing records to print")
	return auditCommand
}

func auditAction(cmd *cobra.Command, _ []string) error {
	kind, err := cmd.Flags().GetString("kind")
	if err != nil {
		return err
	}
	follow, err := cmd.Flags().GetBool("follow")
	if err != nil {
		return err
	}
	n, err := cmd.Flags().GetInt("lines")
	if err != nil {
		return err
	}

	path, err := auditLogPath(kind)
	if err != nil {
		return err
	}
	if err := printTrailingRecords(cmd.OutOrStdout(), path, n); err != nil {
		return err
	}
	if !follow {
		return nil
	}
	return followAppends(cmd.Context(), cmd.OutOrStdout(), path)
}

func auditLogPath(kind string) (string, error) {
	switch kind {
	case "tools":
		return auditlog.ToolsLog, nil
	case "mcp":
		return auditlog.MCPLog, nil
	case "workspace":
		return auditlog.WorkspaceLog, nil
	}
	return "", fmt.Errorf("unsupported audit log kind: %q (must be one of tools, mcp, workspace)", kind)
}

// printTrailingRecords prints the last n records of the log. A negative n
// prints every record. A log that does not exist yet prints nothing.
func printTrailingRecords(w io.Writer, path string, n int) error {
	if n == 0 {
		return nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logrus.Debugf("audit log %q does not exist yet", path)
		return nil
	}
	if err != nil {
		return err
	}
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for _, line := range lines {
		if line == "" {
			continue
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// followAppends streams records appended to the log from now on. The log
// file may not exist yet; it is picked up on creation.
func followAppends(ctx context.Context, w io.Writer, path string) error {
	t, err := tail.TailFile(path, tail.Config{
		Follow:   true,
		ReOpen:   true,
		Location: &tail.SeekInfo{Whence: io.SeekEnd},
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = t.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line := <-t.Lines:
			if line == nil {
				return nil
			}
			if line.Err != nil {
				logrus.Error(line.Err)
			}
			if line.Text == "" {
				continue
			}
			fmt.Fprintln(w, line.Text)
		}
	}
}
