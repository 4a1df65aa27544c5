// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/sweagent-dev/sweagent/pkg/apptainer"
	"github.com/sweagent-dev/sweagent/pkg/config"
	"github.com/sweagent-dev/sweagent/pkg/workspace"
)

// fakeApptainer puts a stand-in apptainer executable on PATH so workspace
// bootstrap runs without a container runtime installed.
func fakeApptainer(t *testing.T, script string) {
	t.Helper()
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, apptainer.Binary), []byte("#!/bin/sh\n"+script+"\n"), 0o755)
	assert.NilError(t, err)
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// chdir moves the process into dir for the duration of the test, keeping
// the cwd-relative audit logs out of the source tree.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	assert.NilError(t, err)
	assert.NilError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func workspaceConfig(t *testing.T, apiBase string) (*config.Config, string) {
	t.Helper()
	fakeApptainer(t, "exit 0")
	sif := filepath.Join(t.TempDir(), "instance.sif")
	assert.NilError(t, os.WriteFile(sif, []byte("sif"), 0o644))

	cfg := minimalConfig(apiBase)
	cfg.Agent.Commands = &config.CommandConfig{ApptainerImage: sif}
	cfg.Agent.Workspace = config.WorkspaceConfig{BaseDir: t.TempDir()}
	return cfg, sif
}

func TestBuildCreatesWorkspace(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, sif := workspaceConfig(t, newModelServer(t, "done"))
	rt := &Runtime{
		Config:     cfg,
		InstanceID: "astropy__astropy-12907",
		ModelName:  "gpt-test",
	}

	run, err := rt.Build(context.Background())
	assert.NilError(t, err)
	defer run.Close()

	ws := run.Workspace()
	assert.Assert(t, ws != nil)
	assert.Equal(t, ws.SIFPath, sif)
	meta, err := workspace.ReadMetadata(ws.WorkspaceDir)
	assert.NilError(t, err)
	assert.Equal(t, meta.InstanceID, "astropy__astropy-12907")
	assert.Equal(t, meta.ModelName, "gpt-test")

	out, err := run.Execute(context.Background(), "Fix the bug.")
	assert.NilError(t, err)
	assert.Equal(t, out, "done")

	// One assistant entry lands in the trajectory under outputs/.
	trajectory := filepath.Join(ws.OutputsDir, TrajectoryFileName)
	b, err := os.ReadFile(trajectory)
	assert.NilError(t, err)
	assert.Assert(t, len(b) > 0)

	// Close without auto_cleanup keeps the workspace.
	assert.NilError(t, run.Close())
	_, err = os.Stat(ws.WorkspaceDir)
	assert.NilError(t, err)
}

// scriptedModelServer serves the given ChatCompletions responses in order.
// The loop awaits each response before sending the next request, so a bare
// counter is safe here.
func scriptedModelServer(t *testing.T, responses ...string) string {
	t.Helper()
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		idx := min(calls, len(responses)-1)
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(responses[idx]))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestBuildMountsWorkspaceIntoContainer(t *testing.T) {
	chdir(t, t.TempDir())
	argvLog := filepath.Join(t.TempDir(), "argv.txt")
	fakeApptainer(t, `echo "$@" >> `+argvLog)
	sif := filepath.Join(t.TempDir(), "instance.sif")
	assert.NilError(t, os.WriteFile(sif, []byte("sif"), 0o644))

	toolCall := `{"choices":[{"message":{"role":"assistant","tool_calls":[{"id":"call_1","type":"function","function":{"name":"local_shell","arguments":"{\"command\":\"ls /testbed\"}"}}]},"finish_reason":"tool_calls"}]}`
	done := `{"choices":[{"message":{"role":"assistant","content":"done"},"finish_reason":"stop"}]}`

	cfg := minimalConfig(scriptedModelServer(t, toolCall, done))
	cfg.Agent.Commands = &config.CommandConfig{
		ApptainerImage: sif,
		BindMounts:     []string{"/srv/data:/mnt/data"},
	}
	cfg.Agent.Workspace = config.WorkspaceConfig{BaseDir: t.TempDir()}

	rt := &Runtime{Config: cfg, InstanceID: "astropy__astropy-12907", ModelName: "gpt-test"}
	run, err := rt.Build(context.Background())
	assert.NilError(t, err)
	defer run.Close()
	ws := run.Workspace()
	assert.Assert(t, ws != nil)

	out, err := run.Execute(context.Background(), "Fix the bug.")
	assert.NilError(t, err)
	assert.Equal(t, out, "done")

	// The last apptainer invocation is the shell tool; earlier ones staged
	// the testbed. Its argv carries the workspace mounts ahead of the
	// configured ones.
	b, err := os.ReadFile(argvLog)
	assert.NilError(t, err)
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	shellArgv := lines[len(lines)-1]
	assert.Assert(t, strings.Contains(shellArgv, "--bind "+ws.TestbedDir+":/testbed"), "argv: %s", shellArgv)
	assert.Assert(t, strings.Contains(shellArgv, "--bind "+ws.OutputsDir+":/outputs"), "argv: %s", shellArgv)
	assert.Assert(t, strings.Contains(shellArgv, "--bind /srv/data:/mnt/data"), "argv: %s", shellArgv)
	assert.Assert(t, strings.Index(shellArgv, ":/testbed") < strings.Index(shellArgv, ":/mnt/data"), "argv: %s", shellArgv)

	// The configured command set is left untouched for the next run.
	assert.DeepEqual(t, cfg.Agent.Commands.BindMounts, []string{"/srv/data:/mnt/data"})
}

func TestCloseAutoCleanupRemovesWorkspace(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, _ := workspaceConfig(t, newModelServer(t, "done"))
	cfg.Agent.Workspace.AutoCleanup = true
	rt := &Runtime{
		Config:     cfg,
		InstanceID: "django__django-11001",
		ModelName:  "gpt-test",
	}

	run, err := rt.Build(context.Background())
	assert.NilError(t, err)
	ws := run.Workspace()
	assert.Assert(t, ws != nil)

	assert.NilError(t, run.Close())
	_, err = os.Stat(ws.WorkspaceDir)
	assert.Assert(t, os.IsNotExist(err))
}
