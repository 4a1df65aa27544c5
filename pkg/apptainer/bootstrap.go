// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package apptainer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/sirupsen/logrus"

	"github.com/sweagent-dev/sweagent/pkg/executil"
)

// TestbedSource is the directory inside every evaluation image that holds
// the project tree to be staged onto the host.
const TestbedSource = "/testbed"

// bootstrapTimeout bounds the testbed copy. Large repos can take a while;
// anything past this is treated as a definite failure, not retried.
const bootstrapTimeout = 5 * time.Minute

// CopyTestbed stages the image's /testbed tree into destDir on the host by
// running a recursive copy inside the container. destDir must already
// exist. The three failure causes a caller may encounter are kept apart in
// the message: image missing, copy exiting nonzero, and the copy timing
// out or failing to start.
func CopyTestbed(ctx context.Context, sifPath, destDir string) error {
	if _, err := os.Stat(sifPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("container image not found: %s", sifPath)
		}
		return fmt.Errorf("failed to stat container image %s: %w", sifPath, err)
	}

	logrus.WithFields(logrus.Fields{
		"sif_path": sifPath,
		"dest":     destDir,
	}).Info("Copying testbed from container")

	copyCmd := fmt.Sprintf("cp -r %s/. %s/", TestbedSource, shellescape.Quote(destDir))
	res, err := executil.Run(
		[]string{Binary, "exec", sifPath, "sh", "-c", copyCmd},
		executil.WithContext(ctx),
		executil.WithTimeout(bootstrapTimeout),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errors.New("timeout while copying testbed from container")
		}
		return fmt.Errorf("unexpected error copying testbed: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("failed to copy testbed: %s", strings.TrimSpace(res.Stderr))
	}

	logrus.Info("Testbed copied successfully")
	return nil
}
