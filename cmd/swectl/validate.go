// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sweagent-dev/sweagent/pkg/config"
)

func newValidateCommand() *cobra.Command {
	validateCommand := &cobra.Command{
		Use:   "validate FILE.yaml [FILE.yaml, ...]",
		Short: "Validate agent configuration files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  validateAction,
	}
	return validateCommand
}

func validateAction(_ *cobra.Command, args []string) error {
	for _, f := range args {
		cfg, err := config.LoadFile(f)
		if err != nil {
			return err
		}
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("failed to validate %q: %w", f, err)
		}
		logrus.Infof("%q: OK", f)
	}

	return nil
}
