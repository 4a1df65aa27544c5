// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package lockutil

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"
)

// WithDirLock runs fn while holding an exclusive lock on a sibling .lock
// file, since directories cannot be opened for locking on Windows.
func WithDirLock(dir string, fn func() error) error {
	f, err := os.OpenFile(dir+".lock", os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	h := windows.Handle(f.Fd())
	if err := windows.LockFileEx(h, windows.LOCKFILE_EXCLUSIVE_LOCK, 0, 1, 0, &windows.Overlapped{}); err != nil {
		return fmt.Errorf("failed to lock %q: %w", dir, err)
	}
	defer func() {
		if err := windows.UnlockFileEx(h, 0, 1, 0, &windows.Overlapped{}); err != nil {
			logrus.WithError(err).Errorf("failed to unlock %q", dir)
		}
	}()
	return fn()
}
