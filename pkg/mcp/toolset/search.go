// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package toolset

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sweagent-dev/sweagent/pkg/mcp/msi"
)

const (
	maxSearchMatches  = 1000
	maxSearchFileSize = 8 * 1024 * 1024
)

func (ts *ToolSet) SearchFileContent(ctx context.Context,
	_ *mcp.CallToolRequest, args msi.SearchFileContentParams,
) (*mcp.CallToolResult, *msi.SearchFileContentResult, error) {
	if args.Pattern == "" {
		return nil, nil, errors.New("pattern is empty")
	}
	re, err := regexp.Compile(args.Pattern)
	if err != nil {
		return nil, nil, err
	}
	base, err := ts.resolveOptional(args.Path)
	if err != nil {
		return nil, nil, err
	}
	include := ""
	if args.Include != nil {
		include = *args.Include
	}
	if include != "" {
		if _, err := filepath.Match(include, "probe"); err != nil {
			return nil, nil, err
		}
	}

	res := &msi.SearchFileContentResult{
		Matches: []msi.SearchMatch{},
	}
	walkErr := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// The base itself must be readable; anything below it is
			// skipped on error.
			if d == nil {
				return err
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return nil
		}
		if !includeMatch(include, rel) {
			return nil
		}
		if info, err := d.Info(); err != nil || info.Size() > maxSearchFileSize {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		if bytes.IndexByte(b, 0) >= 0 {
			return nil
		}
		for i, line := range strings.Split(strings.TrimSuffix(string(b), "\n"), "\n") {
			if !re.MatchString(line) {
				continue
			}
			res.Matches = append(res.Matches, msi.SearchMatch{
				Path: ts.relative(path),
				Line: i + 1,
				Text: line,
			})
			if len(res.Matches) >= maxSearchMatches {
				return fs.SkipAll
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, nil, walkErr
	}
	return &mcp.CallToolResult{
		StructuredContent: res,
	}, res, nil
}

// includeMatch applies the optional include glob. Patterns without a path
// separator match base names; others match the path relative to the
// searched directory.
func includeMatch(include, rel string) bool {
	if include == "" {
		return true
	}
	if !strings.Contains(include, "/") {
		ok, err := filepath.Match(include, filepath.Base(rel))
		return err == nil && ok
	}
	ok, err := filepath.Match(include, filepath.ToSlash(rel))
	return err == nil && ok
}
