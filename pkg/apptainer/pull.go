// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package apptainer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sweagent-dev/sweagent/pkg/executil"
)

// Pull fetches ref into destSIF via `apptainer pull`. ref is a full source
// URI such as "docker://swebench/sweb.eval.x86_64.astropy_1776_astropy-12907:latest".
// Apptainer refuses to overwrite an existing destination, so callers decide
// the skip-if-present policy before calling.
func Pull(ctx context.Context, destSIF, ref string) error {
	logrus.WithFields(logrus.Fields{
		"ref":  ref,
		"dest": destSIF,
	}).Info("Pulling container image")

	res, err := executil.Run([]string{Binary, "pull", destSIF, ref}, executil.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to run apptainer pull: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("apptainer pull failed with exit code %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}
