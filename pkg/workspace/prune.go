// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"time"

	"github.com/sirupsen/logrus"
)

// PruneOld removes every workspace created more than maxAgeHours ago and
// returns the affected directories. Under dryRun, candidates are reported
// but nothing is removed. Reclamation is best-effort: a workspace whose
// metadata cannot be read or whose removal fails is logged and skipped so
// it never blocks reclamation of the rest.
func (m *Manager) PruneOld(maxAgeHours int, dryRun bool) ([]string, error) {
	cutoff := time.Now().Add(-time.Duration(maxAgeHours) * time.Hour)

	dirs, err := m.List()
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, dir := range dirs {
		md, err := ReadMetadata(dir)
		if err != nil {
			logrus.Warnf("Error processing workspace %s: %v", dir, err)
			continue
		}
		if !md.CreatedAt.Before(cutoff) {
			continue
		}
		if dryRun {
			logrus.Infof("Would remove old workspace: %s", dir)
		} else if err := m.Cleanup(dir, true); err != nil {
			logrus.Warnf("Error processing workspace %s: %v", dir, err)
			continue
		}
		removed = append(removed, dir)
	}
	return removed, nil
}
