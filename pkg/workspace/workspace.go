// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

// Package workspace manages isolated per-run working directories.
//
// Each run gets its own directory under a shared base directory:
//
//	<base>/<timestamp>_<model>_<instance>/
//	├── testbed/        staged from the image, bind-mounted into the container
//	├── outputs/        agent outputs and logs
//	└── metadata.json   run metadata
//
// A directory is a workspace if and only if it contains metadata.json. The
// filesystem is the single source of truth; there is no index that could
// drift from the disk after a crash.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sweagent-dev/sweagent/pkg/apptainer"
	"github.com/sweagent-dev/sweagent/pkg/auditlog"
	"github.com/sweagent-dev/sweagent/pkg/localpathutil"
)

const (
	// DefaultBaseDir is used when no base directory is configured.
	DefaultBaseDir = "workspaces"

	// TimestampLayout formats the creation time into the workspace id.
	TimestampLayout = "20060102_150405"

	// MetadataFile marks a directory as a workspace.
	MetadataFile = "metadata.json"

	// ContainerTestbedDir and ContainerOutputsDir are where the workspace
	// directories appear inside the container.
	ContainerTestbedDir = "/testbed"
	ContainerOutputsDir = "/outputs"

	testbedDirName = "testbed"
	outputsDirName = "outputs"
)

// Info describes a created workspace. All directory paths are absolute.
type Info struct {
	WorkspaceDir string
	TestbedDir   string
	OutputsDir   string
	InstanceID   string
	ModelName    string
	Timestamp    string
	SIFPath      string
}

// BindMounts returns the host:container mounts that expose the workspace
// inside the container. Mounting these makes the container's /testbed and
// the bridge's allowed root the same physical directory.
func (w *Info) BindMounts() []string {
	return []string{
		w.TestbedDir + ":" + ContainerTestbedDir,
		w.OutputsDir + ":" + ContainerOutputsDir,
	}
}

// Metadata is the content of a workspace's metadata.json.
type Metadata struct {
	InstanceID  string    `json:"instance_id"`
	ModelName   string    `json:"model_name"`
	Timestamp   string    `json:"timestamp"`
	WorkspaceID string    `json:"workspace_id"`
	SIFPath     string    `json:"sif_path"`
	CreatedAt   time.Time `json:"created_at"`
}

// BootstrapFunc stages the initial testbed tree of a new workspace into
// destDir on the host.
type BootstrapFunc func(ctx context.Context, sifPath, destDir string) error

// Manager creates and destroys workspaces under one base directory.
type Manager struct {
	baseDir   string
	auditPath string
	bootstrap BootstrapFunc
}

// Opt customizes a Manager.
type Opt func(*Manager) error

// WithAuditLog overrides the destination of workspace lifecycle audit
// events. The default is [auditlog.WorkspaceLog] relative to the working
// directory.
func WithAuditLog(path string) Opt {
	return func(m *Manager) error {
		if path == "" {
			return errors.New("audit log path must not be empty")
		}
		m.auditPath = path
		return nil
	}
}

// WithBootstrap overrides how the testbed tree is staged. The default runs
// a recursive copy out of the SIF image via [apptainer.CopyTestbed].
func WithBootstrap(fn BootstrapFunc) Opt {
	return func(m *Manager) error {
		if fn == nil {
			return errors.New("bootstrap function must not be nil")
		}
		m.bootstrap = fn
		return nil
	}
}

// New returns a Manager rooted at baseDir. An empty baseDir selects
// DefaultBaseDir. The path may start with ~ and is made absolute.
func New(baseDir string, opts ...Opt) (*Manager, error) {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	expanded, err := localpathutil.Expand(baseDir)
	if err != nil {
		return nil, fmt.Errorf("invalid base directory %q: %w", baseDir, err)
	}
	m := &Manager{
		baseDir:   expanded,
		auditPath: auditlog.WorkspaceLog,
		bootstrap: apptainer.CopyTestbed,
	}
	for _, o := range opts {
		if err := o(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// BaseDir returns the absolute base directory.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// List returns the directory of every workspace under the base directory,
// sorted by name. A missing base directory means no workspaces. Entries
// without a metadata.json are not workspaces and are skipped.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.baseDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces under %s: %w", m.baseDir, err)
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(m.baseDir, e.Name())
		if _, err := os.Stat(filepath.Join(dir, MetadataFile)); err != nil {
			continue
		}
		dirs = append(dirs, dir)
	}
	return dirs, nil
}

// ErrNotAWorkspace reports a directory without a metadata.json.
var ErrNotAWorkspace = errors.New("no metadata found")

// ReadMetadata reads and parses a workspace's metadata.json.
func ReadMetadata(workspaceDir string) (*Metadata, error) {
	b, err := os.ReadFile(filepath.Join(workspaceDir, MetadataFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w in %s", ErrNotAWorkspace, workspaceDir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata from %s: %w", workspaceDir, err)
	}
	var md Metadata
	if err := json.Unmarshal(b, &md); err != nil {
		return nil, fmt.Errorf("failed to read metadata from %s: %w", workspaceDir, err)
	}
	return &md, nil
}
