// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sweagent-dev/sweagent/pkg/auditlog"
)

// Cleanup removes a workspace directory tree. A directory that does not
// exist is a warned no-op. When force is set, failures are logged and
// swallowed so best-effort teardown never masks the caller's own error;
// otherwise they are returned.
func (m *Manager) Cleanup(workspaceDir string, force bool) error {
	if _, err := os.Stat(workspaceDir); errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("Workspace does not exist: %s", workspaceDir)
		return nil
	}

	logrus.WithField("workspace_dir", workspaceDir).Info("Cleaning up workspace")

	if err := os.RemoveAll(workspaceDir); err != nil {
		return m.cleanupFailed(workspaceDir, force, err)
	}
	err := auditlog.Append(m.auditPath, &auditlog.Event{
		Event: "workspace_removed",
		Fields: map[string]any{
			"workspace_dir": workspaceDir,
		},
	})
	if err != nil {
		return m.cleanupFailed(workspaceDir, force, err)
	}

	logrus.Info("Workspace removed successfully")
	return nil
}

func (m *Manager) cleanupFailed(workspaceDir string, force bool, err error) error {
	logrus.Errorf("Failed to remove workspace: %v", err)
	if force {
		return nil
	}
	return fmt.Errorf("failed to remove workspace %s: %w", workspaceDir, err)
}
