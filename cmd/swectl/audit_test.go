// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/sweagent-dev/sweagent/pkg/auditlog"
)

func TestAuditLogPath(t *testing.T) {
	for kind, expected := range map[string]string{
		"tools":     auditlog.ToolsLog,
		"mcp":       auditlog.MCPLog,
		"workspace": auditlog.WorkspaceLog,
	} {
		path, err := auditLogPath(kind)
		assert.NilError(t, err)
		assert.Equal(t, path, expected)
	}

	_, err := auditLogPath("nope")
	assert.ErrorContains(t, err, `unsupported audit log kind: "nope"`)
}

func TestPrintTrailingRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	records := []string{
		`{"event":"one"}`,
		`{"event":"two"}`,
		`{"event":"three"}`,
	}
	assert.NilError(t, os.WriteFile(path, []byte(strings.Join(records, "\n")+"\n"), 0o644))

	printed := func(n int) []string {
		t.Helper()
		var sb strings.Builder
		assert.NilError(t, printTrailingRecords(&sb, path, n))
		out := strings.TrimRight(sb.String(), "\n")
		if out == "" {
			return nil
		}
		return strings.Split(out, "\n")
	}

	assert.DeepEqual(t, printed(2), []string{`{"event":"two"}`, `{"event":"three"}`})
	assert.DeepEqual(t, printed(10), records)
	assert.DeepEqual(t, printed(-1), records)
	assert.Equal(t, len(printed(0)), 0)
}

func TestPrintTrailingRecordsMissingLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.jsonl")
	var sb strings.Builder
	assert.NilError(t, printTrailingRecords(&sb, path, 10))
	assert.Equal(t, sb.String(), "")
}

func TestAuditUnknownKind(t *testing.T) {
	app := newApp()
	app.SetArgs([]string{"audit", "--kind", "nope"})
	app.SetOut(io.Discard)
	app.SetErr(io.Discard)
	err := app.Execute()
	assert.ErrorContains(t, err, "unsupported audit log kind")
}
