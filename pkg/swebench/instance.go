// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

// Package swebench loads SWE-bench task instances from the Hugging Face
// datasets server and resolves their container images.
package swebench

import (
	"encoding/json"
	"strings"
)

// Instance is one benchmark task as published in the dataset rows.
type Instance struct {
	// InstanceID is the formatted task identifier,
	// e.g. "astropy__astropy-12907".
	InstanceID string `json:"instance_id"`
	// Repo is the GitHub owner/name the task was mined from.
	Repo string `json:"repo"`
	// BaseCommit is the commit the issue is to be fixed on top of.
	BaseCommit string `json:"base_commit"`
	// ProblemStatement is the issue title and body to resolve.
	ProblemStatement string `json:"problem_statement"`
	// Patch is the gold patch that resolved the issue, kept for evaluation.
	Patch string `json:"patch"`
	// TestPatch is the test change contributed by the solution PR.
	TestPatch string `json:"test_patch"`
	// HintsText holds issue comments written before the solution PR.
	HintsText string `json:"hints_text"`
	// Version is the installation version used for evaluation.
	Version string `json:"version"`
	// EnvironmentSetupCommit pins the commit used for environment setup.
	EnvironmentSetupCommit string `json:"environment_setup_commit"`
	// CreatedAt is the creation date of the solution PR.
	CreatedAt string `json:"created_at"`
	// FailToPass lists the tests that must pass after the fix.
	FailToPass StringList `json:"FAIL_TO_PASS"`
	// PassToPass lists the tests that must keep passing.
	PassToPass StringList `json:"PASS_TO_PASS"`
}

// ImageName returns the Docker image reference for the instance's
// evaluation container. The registry publishes images with "__" in the
// instance id rewritten to "_1776_".
func (inst *Instance) ImageName() string {
	return "swebench/sweb.eval.x86_64." + registryCompatibleID(inst.InstanceID) + ":latest"
}

func registryCompatibleID(instanceID string) string {
	return strings.ReplaceAll(instanceID, "__", "_1776_")
}

// StringList unmarshals both a JSON array of strings and a string holding a
// JSON-encoded array. The dataset ships its test lists in the latter form.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	var encoded string
	if err := json.Unmarshal(b, &encoded); err == nil {
		if encoded == "" {
			*l = nil
			return nil
		}
		return json.Unmarshal([]byte(encoded), (*[]string)(l))
	}
	return json.Unmarshal(b, (*[]string)(l))
}
