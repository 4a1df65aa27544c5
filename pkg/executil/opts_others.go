// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package executil

import (
	"syscall"
)

var sysProcAttr = &syscall.SysProcAttr{Setpgid: true}
