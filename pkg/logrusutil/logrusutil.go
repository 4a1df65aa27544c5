// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

// Package logrusutil forwards logrus JSONFormatter lines emitted by child
// processes into the parent logger.
package logrusutil

import (
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"
)

// JSON is the line format produced by logrus.JSONFormatter.
type JSON struct {
	Level string `json:"level"`
	Msg   string `json:"msg"`
}

// ForwardJSON replays one JSONFormatter line from a child process through
// logger, prefixed with header. Lines that do not parse as JSONFormatter
// output are logged verbatim at info level, so plain-text child output is
// never lost.
//
// PanicLevel and FatalLevel are demoted to ErrorLevel; a child failure must
// not terminate the parent.
func ForwardJSON(logger *logrus.Logger, line []byte, header string) {
	if strings.TrimSpace(string(line)) == "" {
		return
	}
	entry := logrus.NewEntry(logger)

	var j JSON
	if err := json.Unmarshal(line, &j); err != nil {
		entry.Info(header + string(line))
		return
	}
	lv, err := logrus.ParseLevel(j.Level)
	if err != nil {
		entry.Info(header + string(line))
		return
	}
	// Capture the "extra" fields added by WithError() and WithField().
	// "level", "msg", and "time" are handled by the entry itself.
	var fields logrus.Fields
	if err := json.Unmarshal(line, &fields); err == nil {
		delete(fields, "level")
		delete(fields, "msg")
		delete(fields, "time")
		entry = entry.WithFields(fields)
	}
	if lv <= logrus.FatalLevel {
		entry = entry.WithField("level", lv)
		lv = logrus.ErrorLevel
	}
	entry.Log(lv, header+j.Msg)
}
