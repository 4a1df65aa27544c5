// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package toolset

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sweagent-dev/sweagent/pkg/mcp/msi"
	"github.com/sweagent-dev/sweagent/pkg/ptr"
)

func (ts *ToolSet) ListDirectory(_ context.Context,
	_ *mcp.CallToolRequest, args msi.ListDirectoryParams,
) (*mcp.CallToolResult, *msi.ListDirectoryResult, error) {
	dir, err := ts.Resolve(args.Path)
	if err != nil {
		return nil, nil, err
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	res := &msi.ListDirectoryResult{
		Entries: make([]msi.ListDirectoryResultEntry, len(ents)),
	}
	for i, ent := range ents {
		res.Entries[i].Name = ent.Name()
		res.Entries[i].IsDir = ptr.Of(ent.IsDir())
		if info, err := ent.Info(); err == nil {
			res.Entries[i].Size = ptr.Of(info.Size())
			res.Entries[i].Mode = ptr.Of(info.Mode())
			res.Entries[i].ModTime = ptr.Of(info.ModTime())
		}
	}
	return &mcp.CallToolResult{
		StructuredContent: res,
	}, res, nil
}

func (ts *ToolSet) ReadFile(_ context.Context,
	_ *mcp.CallToolRequest, args msi.ReadFileParams,
) (*mcp.CallToolResult, *msi.ReadFileResult, error) {
	path, err := ts.Resolve(args.Path)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	const limitBytes = 32 * 1024 * 1024
	b, err := io.ReadAll(io.LimitReader(f, limitBytes))
	if err != nil {
		return nil, nil, err
	}
	res := &msi.ReadFileResult{
		Content: string(b),
	}
	return &mcp.CallToolResult{
		StructuredContent: res,
	}, res, nil
}

func (ts *ToolSet) WriteFile(_ context.Context,
	_ *mcp.CallToolRequest, args msi.WriteFileParams,
) (*mcp.CallToolResult, *msi.WriteFileResult, error) {
	path, err := ts.Resolve(args.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	if err := os.WriteFile(path, []byte(args.Content), 0o644); err != nil {
		return nil, nil, err
	}
	res := &msi.WriteFileResult{}
	return &mcp.CallToolResult{
		StructuredContent: res,
	}, res, nil
}

func (ts *ToolSet) CreateDirectory(_ context.Context,
	_ *mcp.CallToolRequest, args msi.CreateDirectoryParams,
) (*mcp.CallToolResult, *msi.CreateDirectoryResult, error) {
	path, err := ts.Resolve(args.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, nil, err
	}
	res := &msi.CreateDirectoryResult{}
	return &mcp.CallToolResult{
		StructuredContent: res,
	}, res, nil
}

func (ts *ToolSet) Glob(_ context.Context,
	_ *mcp.CallToolRequest, args msi.GlobParams,
) (*mcp.CallToolResult, *msi.GlobResult, error) {
	if args.Pattern == "" {
		return nil, nil, errors.New("pattern is empty")
	}
	base, err := ts.resolveOptional(args.Path)
	if err != nil {
		return nil, nil, err
	}
	// The pattern joins below the base with the same containment rules as
	// plain paths; metacharacters survive the join untouched.
	pattern, err := securejoin.SecureJoin(base, args.Pattern)
	if err != nil {
		return nil, nil, err
	}
	globbed, err := filepath.Glob(pattern)
	if err != nil {
		return nil, nil, err
	}
	type match struct {
		path    string
		modTime time.Time
	}
	matches := make([]match, 0, len(globbed))
	for _, m := range globbed {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		matches = append(matches, match{path: m, modTime: info.ModTime()})
	}
	slices.SortStableFunc(matches, func(a, b match) int {
		return b.modTime.Compare(a.modTime)
	})
	res := &msi.GlobResult{
		Matches: make([]string, len(matches)),
	}
	for i, m := range matches {
		res.Matches[i] = ts.relative(m.path)
	}
	return &mcp.CallToolResult{
		StructuredContent: res,
	}, res, nil
}
