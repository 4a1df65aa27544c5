// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package swebench

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// TaskTypeSWEBench is the only instances type this loader understands.
const TaskTypeSWEBench = "swe_bench"

// TaskConfig is the task document selecting which instances to run.
type TaskConfig struct {
	Instances InstancesConfig `yaml:"instances"`
}

// InstancesConfig narrows a dataset down to the instances of interest.
type InstancesConfig struct {
	Type    string `yaml:"type"`
	Subset  string `yaml:"subset,omitempty"`
	Split   string `yaml:"split,omitempty"`
	Filter  string `yaml:"filter,omitempty"`
	Slice   string `yaml:"slice,omitempty"`
	Shuffle bool   `yaml:"shuffle,omitempty"`
}

// LoadTaskConfig loads the task document from the YAML file at path.
// Unknown and duplicate keys are rejected.
func LoadTaskConfig(path string) (*TaskConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task config file %q: %w", path, err)
	}
	var cfg TaskConfig
	if err := yaml.UnmarshalWithOptions(b, &cfg, yaml.Strict(), yaml.DisallowDuplicateKey()); err != nil {
		return nil, fmt.Errorf("failed to load task config file %q: %w", path, err)
	}
	return &cfg, nil
}

// LoaderFromConfig builds a Loader for the task document's selection.
func LoaderFromConfig(cfg *TaskConfig) (*Loader, error) {
	if cfg.Instances.Type != TaskTypeSWEBench {
		return nil, fmt.Errorf("unsupported instances type %q (expected %q)", cfg.Instances.Type, TaskTypeSWEBench)
	}
	return &Loader{
		Subset:  cfg.Instances.Subset,
		Split:   cfg.Instances.Split,
		Filter:  cfg.Instances.Filter,
		Slice:   cfg.Instances.Slice,
		Shuffle: cfg.Instances.Shuffle,
	}, nil
}
