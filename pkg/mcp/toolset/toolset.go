// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

// Package toolset implements the msi tool handlers against a local
// directory tree.
package toolset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sweagent-dev/sweagent/pkg/localpathutil"
	"github.com/sweagent-dev/sweagent/pkg/mcp/msi"
)

// ToolSet serves the filesystem tools with every path argument confined to
// a single allowed root directory.
type ToolSet struct {
	root string
}

// New builds a ToolSet rooted at dir, which must be an existing directory.
func New(dir string) (*ToolSet, error) {
	if dir == "" {
		return nil, errors.New("allowed root directory is required")
	}
	root, err := localpathutil.Expand(dir)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("allowed root %q is not a directory", root)
	}
	return &ToolSet{root: root}, nil
}

// Root returns the absolute allowed root directory.
func (ts *ToolSet) Root() string {
	return ts.root
}

// Resolve maps a tool path argument to a host path inside the allowed
// root. Symlinks resolve within the root, and both absolute paths and ".."
// sequences are reinterpreted relative to it, so the result never escapes.
func (ts *ToolSet) Resolve(p string) (string, error) {
	if p == "" {
		return "", errors.New("path is empty")
	}
	return securejoin.SecureJoin(ts.root, p)
}

// resolveOptional is Resolve for tools whose path argument defaults to the
// allowed root.
func (ts *ToolSet) resolveOptional(p *string) (string, error) {
	if p == nil || *p == "" {
		return ts.root, nil
	}
	return ts.Resolve(*p)
}

// relative rewrites a host path into the root-relative form tool results
// report.
func (ts *ToolSet) relative(hostPath string) string {
	rel, err := filepath.Rel(ts.root, hostPath)
	if err != nil {
		return hostPath
	}
	return rel
}

func (ts *ToolSet) RegisterServer(server *mcp.Server) error {
	mcp.AddTool(server, msi.ListDirectory, ts.ListDirectory)
	mcp.AddTool(server, msi.ReadFile, ts.ReadFile)
	mcp.AddTool(server, msi.WriteFile, ts.WriteFile)
	mcp.AddTool(server, msi.CreateDirectory, ts.CreateDirectory)
	mcp.AddTool(server, msi.Glob, ts.Glob)
	mcp.AddTool(server, msi.SearchFileContent, ts.SearchFileContent)
	return nil
}
