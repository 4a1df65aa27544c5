// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package apptainer

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/sweagent-dev/sweagent/pkg/auditlog"
)

// fakeApptainer puts a stand-in apptainer executable on PATH whose body is
// the given shell script, so the full spawn-and-capture pipeline runs
// without a container runtime installed.
func fakeApptainer(t *testing.T, script string) {
	t.Helper()
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, Binary), []byte("#!/bin/sh\n"+script+"\n"), 0o755)
	assert.NilError(t, err)
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func readToolRecords(t *testing.T, path string) []auditlog.ToolRecord {
	t.Helper()
	b, err := os.ReadFile(path)
	assert.NilError(t, err)
	var recs []auditlog.ToolRecord
	for _, line := range strings.Split(strings.TrimSpace(string(b)), "\n") {
		if line == "" {
			continue
		}
		var rec auditlog.ToolRecord
		assert.NilError(t, json.Unmarshal([]byte(line), &rec))
		recs = append(recs, rec)
	}
	return recs
}

func TestExecuteReturnsStdout(t *testing.T) {
	fakeApptainer(t, `printf 'hello\n'`)
	x, auditPath := newTestExecutor(t)

	out, err := x.Execute(context.Background(), "echo hello")
	assert.NilError(t, err)
	assert.Equal(t, out, "hello\n")

	recs := readToolRecords(t, auditPath)
	assert.Equal(t, len(recs), 1)
	assert.Equal(t, recs[0].Tool, "local_shell")
	assert.Equal(t, recs[0].Command, "echo hello")
	assert.DeepEqual(t, recs[0].Argv, BuildExecArgv(x.commands, "img.sif", "echo hello"))
	assert.Equal(t, recs[0].ExitCode, 0)
	assert.Equal(t, recs[0].Stdout, "hello\n")
	assert.Equal(t, recs[0].Stderr, "")
}

func TestExecuteKeepsStderrOfSuccessfulCommand(t *testing.T) {
	fakeApptainer(t, "printf 'out\\n'\nprintf 'warning\\n' >&2")
	x, _ := newTestExecutor(t)

	out, err := x.Execute(context.Background(), "make check")
	assert.NilError(t, err)
	assert.Equal(t, out, "STDOUT:\nout\n\nSTDERR:\nwarning\n")
}

func TestExecuteNonzeroExitRedactsAudit(t *testing.T) {
	fakeApptainer(t, "printf 'partial'\nprintf 'boom\\n' >&2\nexit 3")
	x, auditPath := newTestExecutor(t)

	_, err := x.Execute(context.Background(), "false")
	var exitErr *ExitError
	assert.Assert(t, errors.As(err, &exitErr), "got %v", err)
	assert.Equal(t, exitErr.ExitCode, 3)
	assert.Error(t, err, "apptainer command failed with exit code 3: boom")

	recs := readToolRecords(t, auditPath)
	assert.Equal(t, len(recs), 1)
	assert.Equal(t, recs[0].ExitCode, 3)
	assert.Equal(t, recs[0].Stdout, auditlog.Redacted)
	assert.Equal(t, recs[0].Stderr, auditlog.Redacted)

	// The exit status travels under the returncode key on disk.
	raw, readErr := os.ReadFile(auditPath)
	assert.NilError(t, readErr)
	assert.Assert(t, strings.Contains(string(raw), `"returncode":3`))
}

func TestExecuteEmptyCommandPassesThrough(t *testing.T) {
	fakeApptainer(t, ":")
	x, _ := newTestExecutor(t)

	out, err := x.Execute(context.Background(), "")
	assert.NilError(t, err)
	assert.Equal(t, out, "")
}

func TestCopyTestbed(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	fakeApptainer(t, `printf '%s\n' "$@" > "$ARGS_OUT"`)
	t.Setenv("ARGS_OUT", argsFile)

	sif := filepath.Join(t.TempDir(), "img.sif")
	assert.NilError(t, os.WriteFile(sif, []byte("sif"), 0o644))
	dest := t.TempDir()

	assert.NilError(t, CopyTestbed(context.Background(), sif, dest))

	b, err := os.ReadFile(argsFile)
	assert.NilError(t, err)
	args := strings.Split(strings.TrimSpace(string(b)), "\n")
	assert.DeepEqual(t, args, []string{
		"exec", sif, "sh", "-c", "cp -r /testbed/. " + dest + "/",
	})
}

func TestCopyTestbedCopyFailure(t *testing.T) {
	fakeApptainer(t, "printf 'cp: no such directory\\n' >&2\nexit 1")

	sif := filepath.Join(t.TempDir(), "img.sif")
	assert.NilError(t, os.WriteFile(sif, []byte("sif"), 0o644))

	err := CopyTestbed(context.Background(), sif, t.TempDir())
	assert.Error(t, err, "failed to copy testbed: cp: no such directory")
}

func TestPull(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	fakeApptainer(t, `printf '%s\n' "$@" > "$ARGS_OUT"`)
	t.Setenv("ARGS_OUT", argsFile)

	dest := filepath.Join(t.TempDir(), "img.sif")
	assert.NilError(t, Pull(context.Background(), dest, "docker://swebench/sweb.eval.x86_64.x:latest"))

	b, err := os.ReadFile(argsFile)
	assert.NilError(t, err)
	args := strings.Split(strings.TrimSpace(string(b)), "\n")
	assert.DeepEqual(t, args, []string{"pull", dest, "docker://swebench/sweb.eval.x86_64.x:latest"})
}

func TestPullFailure(t *testing.T) {
	fakeApptainer(t, "printf 'FATAL: registry unreachable\\n' >&2\nexit 255")

	err := Pull(context.Background(), filepath.Join(t.TempDir(), "img.sif"), "docker://x")
	assert.Error(t, err, "apptainer pull failed with exit code 255: FATAL: registry unreachable")
}
