// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

// Package progressbar renders byte-count progress on stderr for long
// transfers, staying quiet when stderr is not a terminal or the logger is
// not in text mode.
package progressbar

import (
	"os"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// New returns a bar sized for a transfer of size bytes. A negative size
// (unknown Content-Length) still works; the bar then shows counters only.
func New(size int64) (*pb.ProgressBar, error) {
	bar := pb.New64(size)
	bar.Set(pb.Bytes, true)

	if showProgress() {
		bar.SetTemplateString(`{{counters . }} {{bar . | green }} {{percent .}} {{speed . "%s/s"}}`)
		bar.SetRefreshRate(200 * time.Millisecond)
	} else {
		bar.Set(pb.Static, true)
	}
	bar.SetWidth(80)
	if err := bar.Err(); err != nil {
		return nil, err
	}
	return bar, nil
}

func showProgress() bool {
	// The bar is drawn with terminal control sequences; JSON log consumers
	// must never see those.
	if _, ok := logrus.StandardLogger().Formatter.(*logrus.TextFormatter); !ok {
		return false
	}
	// Both logrus and pb write to stderr.
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
