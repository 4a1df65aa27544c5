// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

// Package apptainer shells out to the Apptainer container runtime.
//
// Three invocation shapes are used: `apptainer exec` runs sandboxed agent
// commands inside an image, `apptainer exec ... sh -c "cp ..."` stages the
// testbed tree out of an image during workspace bootstrap, and
// `apptainer pull` fetches images from a registry. Nothing of the runtime
// itself is reimplemented here.
package apptainer

import (
	"maps"
	"slices"

	"github.com/sweagent-dev/sweagent/pkg/config"
)

// Binary is the name of the Apptainer executable, looked up via PATH.
const Binary = "apptainer"

// BuildExecArgv constructs the argument vector for running command inside
// image under `apptainer exec`. Bind mounts keep their configured order.
// Environment overrides are emitted with keys in lexical order so equal
// configurations always yield the same vector. The command string reaches
// the container shell untouched; argument-vector execution means no host
// shell ever interprets it.
func BuildExecArgv(cfg *config.CommandConfig, image, command string) []string {
	argv := []string{Binary, "exec"}
	if cfg.Writable {
		argv = append(argv, "--writable")
	}
	for _, mount := range cfg.BindMounts {
		argv = append(argv, "--bind", mount)
	}
	if cfg.WorkingDirectory != "" {
		argv = append(argv, "--pwd", cfg.WorkingDirectory)
	}
	for _, k := range slices.Sorted(maps.Keys(cfg.Env)) {
		argv = append(argv, "--env", k+"="+cfg.Env[k])
	}
	return append(argv, image, "/bin/bash", "-lc", command)
}
