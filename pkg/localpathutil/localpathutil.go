// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package localpathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Expand expands a path like "~", "~/", "~/foo" and makes it absolute.
// Paths like "~foo/bar" are unsupported.
func Expand(orig string) (string, error) {
	s := orig
	if s == "" {
		return "", errors.New("empty path")
	}
	if strings.HasPrefix(s, "~") {
		if s != "~" && !strings.HasPrefix(s, "~/") {
			return "", fmt.Errorf("unexpandable path %q", orig)
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		s = strings.Replace(s, "~", homeDir, 1)
	}
	return filepath.Abs(s)
}
