// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

// Package version records the build's version string.
package version

// Version is set at build time via ldflags:
//
//	-X github.com/sweagent-dev/sweagent/pkg/version.Version=x.y.z
//
// A binary built without the flag reports "<unknown>".
var Version = "<unknown>"
