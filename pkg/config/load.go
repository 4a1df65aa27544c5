// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/goccy/go-yaml"
)

// Load parses b into a Config and fills unspecified fields with the default
// values. ${VAR} references are expanded first; references to unset
// variables are left literal. Unknown and duplicate keys are rejected.
//
// Load does not validate. Use Validate for validation.
func Load(b []byte) (*Config, error) {
	var c Config
	if err := yaml.UnmarshalWithOptions(ExpandEnv(b), &c, yaml.Strict(), yaml.DisallowDuplicateKey()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	FillDefault(&c)
	return &c, nil
}

// LoadFile loads the config from the YAML file at path.
func LoadFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	c, err := Load(b)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %q: %w", path, err)
	}
	return c, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ExpandEnv expands ${VAR} references against the process environment.
// The expansion runs over the raw document, so a reference can stand in for
// any scalar, not only strings.
func ExpandEnv(b []byte) []byte {
	return envVarPattern.ReplaceAllFunc(b, func(ref []byte) []byte {
		name := string(envVarPattern.FindSubmatch(ref)[1])
		if value, ok := os.LookupEnv(name); ok {
			return []byte(value)
		}
		return ref
	})
}
